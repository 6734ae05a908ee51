package sim

import (
	"fmt"
	"strings"

	"github.com/phylocite/phylocite/pkg/errors"
)

// Default parameter values.
const (
	DefaultNumRecords = 1000
	DefaultNumParents = 5
	DefaultGenLen     = 100
	DefaultAgeExp     = 1.45
	DefaultCitesExp   = 2.0
	DefaultPoolFactor = 2
	DefaultSeed       = uint64(42)
)

// Dist selects how many parents a new node asks for.
type Dist string

const (
	// DistFlat always asks for NumParents parents.
	DistFlat Dist = "flat"
	// DistAveraged draws uniformly from [MinParents, 2*NumParents-MinParents],
	// which averages NumParents.
	DistAveraged Dist = "averaged"
	// DistPoisson draws from a Poisson distribution with mean NumParents.
	DistPoisson Dist = "poisson"
)

// ParseDist parses a parent-count distribution name. "ave" is accepted as an
// alias for averaged.
func ParseDist(s string) (Dist, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(DistFlat):
		return DistFlat, nil
	case string(DistAveraged), "ave", "avg":
		return DistAveraged, nil
	case string(DistPoisson):
		return DistPoisson, nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfiguration, "unknown parent distribution %q (must be flat, averaged or poisson)", s)
}

// Policy selects the attachment weight function.
type Policy string

const (
	PolicyUniform      Policy = "uniform"
	PolicyPreferential Policy = "preferential"
	PolicyAging        Policy = "aging"
	PolicyPrefAging    Policy = "preferential+aging"
)

// ParsePolicy parses a weight policy name. The empty string selects
// preferential+aging.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(PolicyPrefAging), "prefaging", "pref+aging":
		return PolicyPrefAging, nil
	case string(PolicyUniform):
		return PolicyUniform, nil
	case string(PolicyPreferential), "pref":
		return PolicyPreferential, nil
	case string(PolicyAging):
		return PolicyAging, nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfiguration, "unknown weight policy %q (must be uniform, preferential, aging or preferential+aging)", s)
}

// Config holds the construction-time parameters of a simulation run.
type Config struct {
	NumRecords int     `json:"num_records" toml:"num_records" yaml:"num_records"`
	NumParents int     `json:"num_parents" toml:"num_parents" yaml:"num_parents"`
	MinParents int     `json:"min_parents,omitempty" toml:"min_parents" yaml:"min_parents"`
	Dist       Dist    `json:"dist" toml:"dist" yaml:"dist"`
	GenLen     int     `json:"gen_len" toml:"gen_len" yaml:"gen_len"`
	AgeExp     float64 `json:"age_exp" toml:"age_exp" yaml:"age_exp"`
	CitesExp   float64 `json:"cites_exp" toml:"cites_exp" yaml:"cites_exp"`
	Policy     Policy  `json:"policy" toml:"policy" yaml:"policy"`

	// PoolFactor scales the pool drawn at every generation boundary:
	// GenLen*NumParents*PoolFactor indices. Larger pools refill less often.
	PoolFactor int `json:"pool_factor,omitempty" toml:"pool_factor" yaml:"pool_factor"`

	Seed uint64 `json:"seed" toml:"seed" yaml:"seed"`
}

// DefaultConfig returns a Config populated with the default values.
func DefaultConfig() Config {
	return Config{
		NumRecords: DefaultNumRecords,
		NumParents: DefaultNumParents,
		Dist:       DistFlat,
		GenLen:     DefaultGenLen,
		AgeExp:     DefaultAgeExp,
		CitesExp:   DefaultCitesExp,
		Policy:     PolicyPrefAging,
		PoolFactor: DefaultPoolFactor,
		Seed:       DefaultSeed,
	}
}

// ParentRange returns the inclusive bounds of the parent count for the flat
// and averaged distributions. Poisson draws are unbounded above.
func (c Config) ParentRange() (lo, hi int) {
	if c.Dist == DistAveraged {
		return c.MinParents, 2*c.NumParents - c.MinParents
	}
	return c.NumParents, c.NumParents
}

// PoolSize is the number of indices drawn into a fresh parent pool.
func (c Config) PoolSize() int {
	factor := c.PoolFactor
	if factor <= 0 {
		factor = DefaultPoolFactor
	}
	return max(c.GenLen*c.NumParents*factor, c.GenLen)
}

// Validate reports the first invalid parameter as an INVALID_CONFIGURATION
// error.
func (c Config) Validate() error {
	if err := errors.ValidatePositive("gen_len", c.GenLen); err != nil {
		return err
	}
	if c.NumRecords < c.GenLen {
		return errors.New(errors.ErrCodeInvalidConfiguration,
			"num_records (%d) must be at least gen_len (%d)", c.NumRecords, c.GenLen)
	}
	if err := errors.ValidateNonNegative("num_parents", c.NumParents); err != nil {
		return err
	}
	if _, err := ParseDist(string(c.Dist)); err != nil {
		return err
	}
	if _, err := ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	if c.Dist == DistAveraged {
		if err := errors.ValidateRange("min_parents", c.MinParents, 0, c.NumParents); err != nil {
			return err
		}
	}
	if err := errors.ValidateFinite("age_exp", c.AgeExp); err != nil {
		return err
	}
	if err := errors.ValidateFinite("cites_exp", c.CitesExp); err != nil {
		return err
	}
	// 0^negative is +Inf, and every node starts with zero citations.
	if c.CitesExp < 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration,
			"cites_exp must not be negative, got %v", c.CitesExp)
	}
	if err := errors.ValidateNonNegative("pool_factor", c.PoolFactor); err != nil {
		return err
	}
	return nil
}

// String renders the configuration on one line for logs.
func (c Config) String() string {
	return fmt.Sprintf("records=%d parents=%d dist=%s gen_len=%d age_exp=%g cites_exp=%g policy=%s seed=%d",
		c.NumRecords, c.NumParents, c.Dist, c.GenLen, c.AgeExp, c.CitesExp, c.Policy, c.Seed)
}

// NumNodes is the number of nodes a run with this configuration forms:
// whole generations until the node count plus one reaches NumRecords.
func (c Config) NumNodes() int {
	if c.GenLen <= 0 {
		return 0
	}
	gens := max((c.NumRecords-1+c.GenLen-1)/c.GenLen, 1)
	return gens * c.GenLen
}
