package world

import (
	"treg2d/internal/sim/field"
	"treg2d/internal/sim/lifecycle"
)

// th1Share is the local Type1 fraction at which helper differentiation
// switches from diff00 to diff08.
const th1Share = 0.8

// CD4Th is a helper T cell specific for MHC-II:MBP. It polarizes to Th1 or
// Th2 when it starts proliferating.
type CD4Th struct {
	tcell
	polarization Polarization
	wasTh2       bool

	// Qa-1 (MHC-I:CDR12) expression window of a Th1 effector.
	qa1    bool
	qa1On  lifecycle.Timer
	qa1Off lifecycle.Timer
}

func newCD4Th(s *Sim, specificity float64) *CD4Th {
	th := &CD4Th{}
	th.species = SpeciesCD4Th
	th.start(s, th, specificity)
	return th
}

// newNaiveCD4Th seeds a helper with a fresh specificity somewhere in c.
func newNaiveCD4Th(s *Sim, c *Compartment) *CD4Th {
	th := newCD4Th(s, s.specificity())
	s.add(th, c)
	c.placeRandom(th)
	return th
}

func (th *CD4Th) Step(now float64) error { return th.step(th, now) }

func (th *CD4Th) Polarization() Polarization { return th.polarization }

func (th *CD4Th) ExpressingMHCICDR12() bool {
	return th.polarization == PolarizationType1 && th.qa1
}

func (th *CD4Th) Proliferation() lifecycle.Interval {
	if th.polarization == PolarizationType2 {
		p := th.sim.p.Th2
		return lifecycle.Interval{Mean: p.ProliferationMean, SD: p.ProliferationSD}
	}
	return th.tcell.Proliferation()
}

func (th *CD4Th) OnProliferating(now float64) {
	th.tcell.OnProliferating(now)
	th.polarize()
}

func (th *CD4Th) polarize() {
	type1 := th.comp.concentration(field.Type1, th)
	type2 := th.comp.concentration(field.Type2, th)
	chance := th.sim.p.CD4Th.Diff00
	if total := type1 + type2; total > 0 && type1/total >= th1Share {
		chance = th.sim.p.CD4Th.Diff08
	}
	if th.sim.rng.Float64() <= chance {
		th.polarization = PolarizationType1
	} else {
		th.polarization = PolarizationType2
		th.wasTh2 = true
	}
}

func (th *CD4Th) OnEffector(now float64) {
	if th.polarization != PolarizationType1 {
		return
	}
	p := th.sim.p.Th1
	th.qa1On.Set(now)
	th.qa1Off.Set(lifecycle.Sample(th.sim.rng, lifecycle.Interval{Mean: p.MHCUnexpressionDelayMean, SD: p.MHCUnexpressionDelaySD}, now))
	th.updateExpression(now)
}

func (th *CD4Th) updateExpression(now float64) {
	if th.qa1On.Due(now) {
		th.qa1 = true
		th.qa1On.Clear()
	}
	if th.qa1Off.Due(now) {
		th.qa1 = false
		th.qa1Off.Clear()
	}
}

// OnApoptotic keeps the cell in its compartment so that an APC can
// phagocytose it.
func (th *CD4Th) OnApoptotic(_ float64, cause lifecycle.Cause) {
	th.sim.counters.death(cause)
	th.polarization = PolarizationNone
}

func (th *CD4Th) SpawnDaughter(float64) {
	th.spawnNear(newCD4Th(th.sim, th.m.Specificity()))
}

// BePhagocytosed removes the cell. Anything that was never Th2 yields
// Fr3 and CDR12.
func (th *CD4Th) BePhagocytosed(float64) (Peptides, bool) {
	th.sim.counters.death(lifecycle.CausePhagocytosed)
	th.sim.remove(th)
	if th.wasTh2 {
		return 0, true
	}
	return PeptideFr3 | PeptideCDR12, true
}

func (th *CD4Th) interact(now float64, n Agent) {
	apc, ok := n.(APC)
	if !ok {
		return
	}
	var matched bool
	if mk, ok := apc.(MHCIIMBP); ok {
		matched = mk.ExpressingMHCIIMBP()
	}
	out := th.encounter(now, apc, matched)
	if out.Effector {
		if l, ok := apc.(Licensable); ok {
			l.LicenseCostim()
		}
	}
	if out.Phagocytose {
		apc.Phagocytose(now, th)
	}
}

func (th *CD4Th) afterStep(now float64) {
	if th.polarization == PolarizationNone {
		return
	}
	th.updateExpression(now)
	switch th.polarization {
	case PolarizationType1:
		th.secreteWhenActivated(field.Type1, th.sim.p.Th1.Type1PerHour)
	case PolarizationType2:
		th.secreteWhenActivated(field.Type2, th.sim.p.Th2.Type2PerHour)
	}
}
