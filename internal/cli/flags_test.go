package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phylocite/phylocite/pkg/errors"
	"github.com/phylocite/phylocite/pkg/pipeline"
	"github.com/phylocite/phylocite/pkg/sim"
)

func newFlagCommand(t *testing.T, args ...string) (*cobra.Command, *optionFlags) {
	t.Helper()
	f := newOptionFlags()
	cmd := &cobra.Command{Use: "test"}
	f.addSimulation(cmd)
	f.addTraits(cmd)
	f.addAnalysis(cmd)
	f.addOutput(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, f
}

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestResolveDefaults(t *testing.T) {
	cmd, f := newFlagCommand(t)
	opts, err := f.resolve(cmd, "")
	require.NoError(t, err)

	want := pipeline.DefaultOptions()
	assert.Equal(t, want.Simulation, opts.Simulation)
	assert.Equal(t, want.Traits, opts.Traits)
	assert.Equal(t, want.Analysis, opts.Analysis)
	assert.Equal(t, ".", opts.Output.Dir)
}

func TestResolveFlags(t *testing.T) {
	cmd, f := newFlagCommand(t,
		"-n", "500", "-g", "50", "--parents", "3",
		"--dist", "ave", "--min-parents", "1", "--policy", "uniform",
		"--num-traits", "4", "-k", "40",
		"--top-k", "3", "--reach", "5",
		"--views", "genealogy,inheritance", "--highlight-founders", "0,2",
		"-o", "out")
	opts, err := f.resolve(cmd, "")
	require.NoError(t, err)

	s := opts.Simulation
	assert.Equal(t, 500, s.NumRecords)
	assert.Equal(t, 50, s.GenLen)
	assert.Equal(t, 3, s.NumParents)
	assert.Equal(t, 1, s.MinParents)
	assert.Equal(t, sim.DistAveraged, s.Dist)
	assert.Equal(t, sim.PolicyUniform, s.Policy)
	assert.Equal(t, 4, opts.Traits.NumTraits)
	assert.Equal(t, 40, opts.Traits.NumKeywords)
	assert.Equal(t, 3, opts.Analysis.TopK)
	assert.Equal(t, 5, opts.Analysis.Founders)
	assert.Equal(t, []string{"genealogy", "inheritance"}, opts.Output.Views)
	assert.Equal(t, []int{0, 2}, opts.Output.Founders)
	assert.Equal(t, "out", opts.Output.Dir)
}

func TestResolveConfigFile(t *testing.T) {
	path := writeConfig(t, "run.toml", `
[simulation]
num_records = 300
gen_len = 30
num_parents = 4
age_exp = 0.0
policy = "aging"

[traits]
num_traits = 2

[output]
views = ["inheritance"]
dir = "from-file"
`)

	cmd, f := newFlagCommand(t, "--parents", "2", "--seed", "9", "-o", "from-flag")
	opts, err := f.resolve(cmd, path)
	require.NoError(t, err)

	s := opts.Simulation
	assert.Equal(t, 300, s.NumRecords, "file value")
	assert.Equal(t, 30, s.GenLen, "file value")
	assert.Equal(t, 2, s.NumParents, "flag overrides file")
	assert.Equal(t, uint64(9), s.Seed, "flag overrides default")
	assert.Zero(t, s.AgeExp, "explicit zero in file is kept")
	assert.Equal(t, sim.PolicyAging, s.Policy)
	assert.Equal(t, sim.DefaultCitesExp, s.CitesExp, "default kept")
	assert.Equal(t, 2, opts.Traits.NumTraits)
	assert.Equal(t, []string{"inheritance"}, opts.Output.Views)
	assert.Equal(t, "from-flag", opts.Output.Dir)
}

func TestResolveConfigFileEnumFlags(t *testing.T) {
	path := writeConfig(t, "run.yaml", `
simulation:
  dist: poisson
  policy: aging
output:
  views: [genealogy]
`)

	cmd, f := newFlagCommand(t, "--policy", "preferential", "--views", "inheritance")
	opts, err := f.resolve(cmd, path)
	require.NoError(t, err)
	assert.Equal(t, sim.DistPoisson, opts.Simulation.Dist)
	assert.Equal(t, sim.PolicyPreferential, opts.Simulation.Policy)
	assert.Equal(t, []string{"inheritance"}, opts.Output.Views)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		config string
		code   errors.Code
	}{
		{"unknown dist", []string{"--dist", "gauss"}, "", errors.ErrCodeInvalidConfiguration},
		{"unknown policy", []string{"--policy", "random"}, "", errors.ErrCodeInvalidConfiguration},
		{"missing config", nil, filepath.Join(t.TempDir(), "absent.toml"), errors.ErrCodeIO},
		{"bad extension", nil, writeConfig(t, "run.ini", "x=1"), errors.ErrCodeInvalidConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, f := newFlagCommand(t, tt.args...)
			_, err := f.resolve(cmd, tt.config)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}
