package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phylocite/phylocite/pkg/errors"
)

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "run:a"); err != nil || hit {
		t.Fatalf("Get on empty cache = %v, %v", hit, err)
	}
	if err := c.Set(ctx, "run:a", []byte("payload"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "run:a")
	if err != nil || !hit || string(data) != "payload" {
		t.Errorf("Get = %q, %v, %v, want payload hit", data, hit, err)
	}

	if err := c.Delete(ctx, "run:a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "run:a"); hit {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "run:a"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry = %v, %v, want miss", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("Clear should remove entries")
	}
	if err := c.Set(ctx, "a", []byte("1"), 0); err != nil {
		t.Errorf("Set after Clear: %v", err)
	}
}

func TestFileCacheCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, _ := NewFileCache(t.TempDir())
	if err := c.Set(ctx, "k", []byte("v"), 0); err != context.Canceled {
		t.Errorf("Set with canceled context = %v", err)
	}
}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("NullCache.Get = %v, %v, %v, want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	type opts struct{ Seed uint64 }
	r1, r2 := k.RunKey(opts{Seed: 1}), k.RunKey(opts{Seed: 2})
	if r1 == r2 {
		t.Error("different run options should produce different keys")
	}
	if r1 != k.RunKey(opts{Seed: 1}) {
		t.Error("RunKey should be deterministic")
	}
	if !strings.HasPrefix(r1, "run:") {
		t.Errorf("RunKey = %s, want run: prefix", r1)
	}

	n1 := k.NetworkKey("mongo", NetworkKeyOpts{Root: 1, Depth: 2})
	n2 := k.NetworkKey("mongo", NetworkKeyOpts{Root: 1, Depth: 3})
	if n1 == n2 || !strings.HasPrefix(n1, "network:") {
		t.Errorf("NetworkKey = %s, %s", n1, n2)
	}

	a1 := k.ArtifactKey("abc", ArtifactKeyOpts{View: "genealogy", Format: "svg"})
	a2 := k.ArtifactKey("abc", ArtifactKeyOpts{View: "genealogy", Format: "dot"})
	if a1 == a2 {
		t.Error("different artifact options should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(nil, "exp:1:")
	inner := NewDefaultKeyer()

	if got, want := scoped.RunKey("x"), "exp:1:"+inner.RunKey("x"); got != want {
		t.Errorf("RunKey = %s, want %s", got, want)
	}
	opts := NetworkKeyOpts{Root: 7}
	if got := scoped.NetworkKey("mongo", opts); got != "exp:1:"+inner.NetworkKey("mongo", opts) {
		t.Errorf("NetworkKey = %s", got)
	}
	if got := scoped.ArtifactKey("h", ArtifactKeyOpts{}); !strings.HasPrefix(got, "exp:1:artifact:") {
		t.Errorf("ArtifactKey = %s", got)
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "http://localhost", "")
	if !errors.Is(err, errors.ErrCodeInvalidConfiguration) {
		t.Errorf("NewRedisCache(bad url) = %v, want INVALID_CONFIGURATION", err)
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := NewRedisCacheFromClient(client, "")
	defer c.Close()

	if c.key("k") != DefaultRedisPrefix+"k" {
		t.Errorf("key = %s", c.key("k"))
	}
	_, _, err := c.Get(context.Background(), "k")
	if !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("Get on unreachable redis = %v, want IO_FAILURE", err)
	}
}
