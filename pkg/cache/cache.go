// Package cache stores serialized run results keyed by a hash of the inputs
// that produced them.
//
// A run is deterministic given its options (seed included), so identical
// options always map to the same key and a cached result can stand in for a
// rerun. Three backends implement [Cache]:
//
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [RedisCache]: a shared Redis instance (API server)
//   - [NullCache]: caches nothing
//
// Keys are produced by a [Keyer] so that callers never build key strings by
// hand. [ScopedKeyer] prefixes every key for namespace isolation.
package cache

import (
	"context"
	"time"
)

// Expiry of each entry kind. Runs are deterministic, so their summaries only
// age out to bound storage; fetched networks follow the source database.
const (
	TTLRun      = 7 * 24 * time.Hour
	TTLNetwork  = 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key-value store with optional expiry.
type Cache interface {
	// Get returns the stored value and true, or false on a miss. Expired
	// entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// RunKey identifies the summary of a pipeline run.
	RunKey(opts any) string

	// NetworkKey identifies a network fetched from an external source.
	NetworkKey(source string, opts NetworkKeyOpts) string

	// ArtifactKey identifies a rendered diagram of a run.
	ArtifactKey(runHash string, opts ArtifactKeyOpts) string
}

// NetworkKeyOpts holds the fetch parameters that affect a fetched network.
type NetworkKeyOpts struct {
	Root      int64 `json:"root"`
	Depth     int   `json:"depth"`
	Threshold int   `json:"threshold"`
	Keywords  int   `json:"keywords,omitempty"`
}

// ArtifactKeyOpts holds the render parameters that affect an artifact.
type ArtifactKeyOpts struct {
	View     string `json:"view"`
	Format   string `json:"format"`
	Founders []int  `json:"founders,omitempty"`
	Traits   []int  `json:"traits,omitempty"`
	Grid     bool   `json:"grid,omitempty"`
}

// DefaultKeyer builds keys of the form kind:sha256(parts).
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// RunKey hashes the JSON encoding of opts.
func (DefaultKeyer) RunKey(opts any) string {
	return hashKey("run", opts)
}

// NetworkKey hashes the source name and fetch options.
func (DefaultKeyer) NetworkKey(source string, opts NetworkKeyOpts) string {
	return hashKey("network", source, opts)
}

// ArtifactKey hashes the run hash and render options.
func (DefaultKeyer) ArtifactKey(runHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", runHash, opts)
}
