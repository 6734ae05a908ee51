package sim

import (
	"math"

	"github.com/phylocite/phylocite/pkg/errors"
)

// AgingSchedule holds the per-generation aging coefficients of one run.
//
// Each time a generation closes the schedule gains one coefficient,
// now^(-AgeExp) where now is the number of nodes created so far. The newest
// coefficient belongs to generation 0, the one before it to generation 1,
// and so on, so a generation's coefficient reflects its age at the most
// recent update. Generations that have not yet received a coefficient use 1.
//
// The coefficient list is append-only; lookups index it from the end.
type AgingSchedule struct {
	exp    float64
	coeffs []float64
}

// NewAgingSchedule creates an empty schedule for the given exponent.
func NewAgingSchedule(ageExp float64) *AgingSchedule {
	return &AgingSchedule{exp: ageExp}
}

// Advance records the coefficient for a generation boundary reached after
// nowForming nodes have been created.
func (a *AgingSchedule) Advance(nowForming int) {
	a.coeffs = append(a.coeffs, math.Pow(float64(nowForming), -a.exp))
}

// Coefficient returns the aging coefficient of generation gen.
func (a *AgingSchedule) Coefficient(gen int) float64 {
	k := len(a.coeffs)
	if gen < 0 || gen >= k {
		return 1
	}
	return a.coeffs[k-1-gen]
}

// Len reports how many boundaries have been recorded.
func (a *AgingSchedule) Len() int { return len(a.coeffs) }

// History is the read-only state a weight function sees at a generation
// boundary.
type History struct {
	Counts   []int // citation count per existing node
	GenLen   int
	CitesExp float64
	Aging    *AgingSchedule
}

// Nodes is the number of existing nodes.
func (h History) Nodes() int { return len(h.Counts) }

// WeightFunc computes one weight per existing node. It must not retain or
// modify the history.
type WeightFunc func(h History) []float64

// WeightFunc returns the weight function implementing the policy.
func (p Policy) WeightFunc() (WeightFunc, error) {
	switch p {
	case PolicyUniform:
		return UniformWeights, nil
	case PolicyPreferential:
		return PreferentialWeights, nil
	case PolicyAging:
		return AgingWeights, nil
	case PolicyPrefAging, "":
		return PrefAgingWeights, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfiguration, "unknown weight policy %q", p)
}

// UniformWeights gives every existing node weight 1.
func UniformWeights(h History) []float64 {
	w := make([]float64, h.Nodes())
	for i := range w {
		w[i] = 1
	}
	return w
}

// PreferentialWeights gives node i weight 1 + cites(i)^CitesExp.
func PreferentialWeights(h History) []float64 {
	w := make([]float64, h.Nodes())
	for i, c := range h.Counts {
		w[i] = prefTerm(c, h.CitesExp)
	}
	return w
}

// AgingWeights gives node i the aging coefficient of its generation.
func AgingWeights(h History) []float64 {
	w := make([]float64, h.Nodes())
	for i := range w {
		w[i] = h.Aging.Coefficient(i / h.GenLen)
	}
	return w
}

// PrefAgingWeights multiplies the preferential and aging terms.
func PrefAgingWeights(h History) []float64 {
	w := make([]float64, h.Nodes())
	for i, c := range h.Counts {
		w[i] = prefTerm(c, h.CitesExp) * h.Aging.Coefficient(i/h.GenLen)
	}
	return w
}

func prefTerm(cites int, exp float64) float64 {
	return 1 + math.Pow(float64(cites), exp)
}
