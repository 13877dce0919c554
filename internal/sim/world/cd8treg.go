package world

import (
	"treg2d/internal/sim/field"
	"treg2d/internal/sim/lifecycle"
)

// CD8Treg recognises Qa-1:CDR12 on licensed dendritic cells and on Th1
// effectors, and kills the latter.
type CD8Treg struct {
	tcell
	cd200 bool
}

func newCD8Treg(s *Sim, specificity float64) *CD8Treg {
	t := &CD8Treg{}
	t.species = SpeciesCD8Treg
	t.start(s, t, specificity)
	return t
}

func newNaiveCD8Treg(s *Sim, c *Compartment) *CD8Treg {
	t := newCD8Treg(s, s.specificity())
	s.add(t, c)
	c.placeRandom(t)
	return t
}

func (t *CD8Treg) Step(now float64) error { return t.step(t, now) }

func (t *CD8Treg) ExpressingCD200() bool { return t.cd200 }

func (t *CD8Treg) OnEffector(float64) { t.cd200 = true }

func (t *CD8Treg) SpawnDaughter(float64) {
	t.spawnNear(newCD8Treg(t.sim, t.m.Specificity()))
}

func (t *CD8Treg) interact(now float64, n Agent) {
	if apc, ok := n.(APC); ok {
		var matched bool
		if mk, ok := apc.(MHCICDR12); ok {
			matched = mk.ExpressingMHCICDR12()
		}
		if out := t.encounter(now, apc, matched); out.Effector {
			t.m.Stimulate(now)
		}
	} else if th, ok := n.(*CD4Th); ok && th.polarization == PolarizationType1 {
		t.attackTh1(now, th)
	}

	if r, ok := n.(CD200R); ok && t.cd200 && t.sim.p.CD200.Active() && r.ExpressingCD200R() {
		r.ReceiveCD200Signal()
	}
}

func (t *CD8Treg) attackTh1(now float64, th *CD4Th) {
	if !t.Effector() || !th.Effector() {
		return
	}
	if !lifecycle.Bind(t.sim.rng, th.ExpressingMHCICDR12(), t.m.Specificity(), t.sim.p.CD8Treg.SpecificityDropOff) {
		return
	}
	t.m.Stimulate(now)
	kind := th.comp.kind
	th.m.BecomeApoptotic(now, lifecycle.CauseKilled)
	t.sim.counters.th1Killed[kind]++
}

func (t *CD8Treg) afterStep(float64) {
	t.secreteWhenActivated(field.Type1, t.sim.p.CD8Treg.Type1PerHour)
}
