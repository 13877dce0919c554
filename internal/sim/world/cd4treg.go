package world

import "treg2d/internal/sim/field"

// CD4Treg is a regulatory T cell specific for MHC-II:Fr3.
type CD4Treg struct {
	tcell
}

func newCD4Treg(s *Sim, specificity float64) *CD4Treg {
	t := &CD4Treg{}
	t.species = SpeciesCD4Treg
	t.start(s, t, specificity)
	return t
}

func newNaiveCD4Treg(s *Sim, c *Compartment) *CD4Treg {
	t := newCD4Treg(s, s.specificity())
	s.add(t, c)
	c.placeRandom(t)
	return t
}

func (t *CD4Treg) Step(now float64) error { return t.step(t, now) }

func (t *CD4Treg) SpawnDaughter(float64) {
	t.spawnNear(newCD4Treg(t.sim, t.m.Specificity()))
}

func (t *CD4Treg) interact(now float64, n Agent) {
	apc, ok := n.(APC)
	if !ok {
		return
	}
	var matched bool
	if mk, ok := apc.(MHCIIFr3); ok {
		matched = mk.ExpressingMHCIIFr3()
	}
	if out := t.encounter(now, apc, matched); out.Effector {
		if l, ok := apc.(Licensable); ok {
			l.LicenseCostim()
			l.LicenseQa1()
		}
	}
}

func (t *CD4Treg) afterStep(float64) {
	t.secreteWhenActivated(field.Type1, t.sim.p.CD4Treg.Type1PerHour)
}
