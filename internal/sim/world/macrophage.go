package world

import (
	"treg2d/internal/sim/field"
	"treg2d/internal/sim/lifecycle"
)

// Macrophage is the resident CNS antigen presenting cell. Once stimulated
// by Type1 it secretes SDA, which kills neurons.
type Macrophage struct {
	apc
	mbp        bool
	costim     bool
	stimulated bool
}

func spawnMacrophage(s *Sim, c *Compartment) *Macrophage {
	m := &Macrophage{}
	m.species = SpeciesMacrophage
	s.add(m, c)
	now := s.Now()
	m.immatureEnd.Set(lifecycle.Sample(s.rng, m.immatureInterval(), now))
	if s.rng.Float64() <= s.p.Macrophage.BasalMBPExpression {
		m.mbp = true
		m.costim = true
		m.setDeath(now)
	}
	c.placeRandom(m)
	return m
}

func initialMacrophage(s *Sim, c *Compartment) *Macrophage {
	m := spawnMacrophage(s, c)
	m.death.Set(lifecycle.Sample(s.rng, m.deathInterval(), s.Now()))
	m.scaleTimer(&m.death)
	return m
}

func (m *Macrophage) Step(now float64) error {
	if m.dead || m.apoptotic {
		return nil
	}
	m.perceive(now)
	m.engulfApoptoticAPCs(m, now)
	if m.stimulated {
		m.comp.secrete(field.SDA, m.sim.p.Macrophage.SDAPerHourWhenStimulated*m.sim.tick, m)
	}
	if m.immatureEnd.Due(now) {
		m.immatureEnd.Clear()
		m.setDeath(now)
	}
	if m.death.Due(now) {
		m.death.Clear()
		m.becomeApoptotic()
	}
	return nil
}

func (m *Macrophage) perceive(now float64) {
	if m.comp.concentration(field.Type1, m) < m.sim.p.Macrophage.Type1RequiredForActivation {
		return
	}
	m.stimulated = true
	m.setDeath(now)
	if !m.costim && m.expressingMHC() {
		m.costim = true
	}
}

func (m *Macrophage) becomeApoptotic() {
	m.apoptotic = true
	comp := m.comp
	m.sim.remove(m)
	spawnMacrophage(m.sim, comp)
}

func (m *Macrophage) expressingMHC() bool { return m.mbp }

func (m *Macrophage) phagocytosisProbability(mature bool) float64 {
	if mature {
		return m.sim.p.Macrophage.PhagocytosisMature
	}
	return m.sim.p.Macrophage.PhagocytosisImmature
}

func (m *Macrophage) present(p Peptides) {
	if p.Has(PeptideMBP) && !m.mbp {
		m.mbp = true
		m.setDeath(m.sim.Now())
	}
}

func (m *Macrophage) Phagocytose(now float64, victim Phagocytosable) {
	m.phagocytose(m, now, victim)
}

func (m *Macrophage) Costimulatory() bool      { return m.costim }
func (m *Macrophage) ExpressingMHCIIMBP() bool { return m.mbp }

func (m *Macrophage) immature() bool {
	return !m.expressingMHC() && !m.costim && !m.apoptotic
}

// Mobile is false only for an immature, unstimulated macrophage.
func (m *Macrophage) Mobile() bool { return !m.immature() || m.stimulated }
