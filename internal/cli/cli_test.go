package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phylocite/phylocite/pkg/cache"
	"github.com/phylocite/phylocite/pkg/phylo"
	"github.com/phylocite/phylocite/pkg/pipeline"
)

var network = []string{"-n", "30", "-g", "10", "-p", "2"}

// execute runs the root command with args and a private cache directory.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(t.TempDir(), "cache"))
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func args(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, log.InfoLevel).RootCommand()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"simulate", "traits", "analyze", "run", "dot", "fetch", "serve", "cache", "completion"} {
		assert.Contains(t, names, want)
	}
	for _, flag := range []string{"config", "no-cache", "redis-url"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestSimulateTraitsAnalyze(t *testing.T) {
	dir := t.TempDir()
	traitFlags := []string{"--num-traits", "1", "-k", "2"}

	require.NoError(t, execute(t, args([]string{"simulate", "-o", dir}, network)...))
	for _, name := range []string{pipeline.FileParentage, pipeline.FileCounts, pipeline.FileFinalCounts} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	require.NoError(t, execute(t, args([]string{"traits", "-o", dir}, network, traitFlags)...))
	assert.FileExists(t, filepath.Join(dir, pipeline.FilePhenomes))

	require.NoError(t, execute(t, args([]string{
		"analyze", "-g", "10", "-o", dir, "--views", "genealogy",
		"--parentage", filepath.Join(dir, pipeline.FileParentage),
		"--phenomes", filepath.Join(dir, pipeline.FilePhenomes),
	}, traitFlags)...))
	assert.FileExists(t, filepath.Join(dir, pipeline.FileAnalysis))
	assert.FileExists(t, filepath.Join(dir, "genealogy.dot"))

	out := filepath.Join(dir, "inheritance.dot")
	require.NoError(t, execute(t,
		"dot", "-g", "10", "--view", "inheritance", "-O", out,
		"--parentage", filepath.Join(dir, pipeline.FileParentage),
		"--phenomes", filepath.Join(dir, pipeline.FilePhenomes)))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "digraph inheritance {"))
}

func TestRunCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, execute(t, args([]string{"run", "--no-cache", "-o", dir, "--num-traits", "1", "-k", "2"}, network)...))
	for _, name := range []string{pipeline.FileParentage, pipeline.FilePhenomes, pipeline.FileAnalysis} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestRunSummaryOnlyWritesNothing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, execute(t, args([]string{"run", "--summary-only", "-o", dir, "--num-traits", "1", "-k", "2"}, network)...))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunCommandConfig(t *testing.T) {
	dir := t.TempDir()
	config := writeConfig(t, "run.yml", `
simulation:
  num_records: 30
  gen_len: 10
  num_parents: 2
traits:
  num_traits: 1
  num_keywords: 2
`)
	require.NoError(t, execute(t, "run", "--no-cache", "--config", config, "-o", dir, "--per-generation"))

	data, err := os.ReadFile(filepath.Join(dir, pipeline.FileCounts))
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 3)
}

func TestCommandErrors(t *testing.T) {
	tests := [][]string{
		{"run", "--no-cache", "-n", "5", "-g", "10"},
		{"simulate", "--policy", "random"},
		{"analyze", "--parentage", "missing.csv"},
		{"dot", "--view", "sankey"},
		{"dot", "--format", "gif"},
		{"fetch", "not-a-number"},
		{"fetch"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt, " "), func(t *testing.T) {
			assert.Error(t, execute(t, tt...))
		})
	}
}

func TestCacheCommands(t *testing.T) {
	require.NoError(t, execute(t, "cache", "path"))
	require.NoError(t, execute(t, "cache", "clear"))
}

func TestNewCache(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	c := New(io.Discard, log.InfoLevel)
	ch, err := c.newCache(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &cache.FileCache{}, ch)

	c.noCache = true
	ch, err = c.newCache(context.Background())
	require.NoError(t, err)
	assert.IsType(t, cache.NullCache{}, ch)

	c.noCache = false
	c.redisURL = "not a url"
	_, err = c.newCache(context.Background())
	assert.Error(t, err)
}

func TestStatsLine(t *testing.T) {
	line := statsLine(30, 58, 3, true)
	assert.Contains(t, line, "30 nodes")
	assert.Contains(t, line, "58 citations")
	assert.Contains(t, line, "3 generations")
	assert.Contains(t, line, iconCached)

	line = statsLine(30, 0, 0, false)
	assert.NotContains(t, line, "citations")
	assert.Contains(t, line, iconFresh)
}

func TestMetricsBlock(t *testing.T) {
	m := phylo.Metrics{
		Surviving:     4,
		Transmissions: 12,
		Reach:         phylo.Reach{Founders: 2, Median: 3, Max: 5, Mean: 3},
		TopTraits:     []phylo.TraitCount{{Trait: 7, Count: 9}},
	}
	block := metricsBlock(m)
	assert.Contains(t, block, "transmissions")
	assert.Contains(t, block, "12")
	assert.Contains(t, block, "Reach of 2 founders")
	assert.Contains(t, block, "trait 7")

	block = metricsBlock(phylo.Metrics{})
	assert.NotContains(t, block, "Reach")
	assert.NotContains(t, block, "Most inherited")
}
