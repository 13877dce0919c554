package world

import (
	"testing"

	"treg2d/internal/sim/params"
)

const baseline = "../../../configs/params.yaml"

func baselineParams(t *testing.T) params.Params {
	t.Helper()
	p, err := params.Load(baseline)
	if err != nil {
		t.Fatalf("load params.yaml: %v", err)
	}
	return p
}

// newTestSim builds an unstarted kernel from the baseline with edit applied.
func newTestSim(t *testing.T, seed int64, edit func(p *params.Params), opts ...Option) *Sim {
	t.Helper()
	p := baselineParams(t)
	if edit != nil {
		edit(&p)
	}
	s, err := New(p, seed, opts...)
	if err != nil {
		t.Fatalf("new sim: %v", err)
	}
	return s
}

func countSpecies(c *Compartment, sp Species) int {
	n := 0
	for _, o := range c.grid.All() {
		if o.(Agent).Species() == sp {
			n++
		}
	}
	return n
}
