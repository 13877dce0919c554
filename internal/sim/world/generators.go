package world

import (
	"math"

	"treg2d/internal/sim/schedule"
)

// generator replaces naive T cells in the circulation at roughly the rate
// the initial population dies of neglect.
type generator struct {
	s       *Sim
	species Species
	p       float64
	spawn   func(*Sim, *Compartment)
}

// GenerationProbability is the per-tick chance of a new naive cell, for a
// basal population n.
func GenerationProbability(n int, naiveMean, tick float64) float64 {
	return float64(n) / naiveMean * tick
}

func (g *generator) Step(float64) error {
	if g.s.rng.Float64() <= g.p {
		g.spawn(g.s, g.s.comps[Circulation])
		g.s.counters.generated[g.species]++
	}
	return nil
}

func (s *Sim) startGenerators() {
	sp := s.p.Simulation
	mean := s.p.TCell.ApoptosisNaiveMean
	add := func(species Species, n int, spawn func(*Sim, *Compartment)) {
		g := &generator{s: s, species: species, p: GenerationProbability(n, mean, s.tick), spawn: spawn}
		s.sched.Repeating(0, prioGenerator, g, s.tick)
	}
	add(SpeciesCD4Th, sp.NumCD4Th, func(s *Sim, c *Compartment) { newNaiveCD4Th(s, c) })
	if !sp.CD4TregAbrogation {
		add(SpeciesCD4Treg, sp.NumCD4Treg, func(s *Sim, c *Compartment) { newNaiveCD4Treg(s, c) })
	}
	add(SpeciesCD8Treg, sp.NumCD8Treg, func(s *Sim, c *Compartment) { newNaiveCD8Treg(s, c) })
}

// immunization delivers immunized DCs into the SLO: an initial burst, then
// an influx that falls linearly with time until it rounds to zero.
type immunization struct {
	s         *Sim
	start     float64
	initial   int
	dc0, grad float64
	influx    float64
	delivered bool
	handle    *schedule.Handle
}

func (s *Sim) immunize(at float64) {
	sp := s.p.Simulation
	im := &immunization{
		s:       s,
		start:   at,
		initial: sp.ImmunizationLinearInitial,
		dc0:     sp.ImmunizationLinearDC0,
		grad:    sp.ImmunizationLinearGradient,
		influx:  sp.ImmunizationLinearDC0,
	}
	im.handle = s.sched.Repeating(at, prioImmunization, im, sp.ImmunizationLinearFreq)
}

func (im *immunization) Step(now float64) error {
	slo := im.s.comps[SLO]
	if !im.delivered {
		for i := 0; i < im.initial; i++ {
			immunizedDC(im.s, slo)
		}
		im.s.counters.immunization += uint64(im.initial)
		im.delivered = true
	}
	n := int(math.Round(im.influx))
	for i := 0; i < n; i++ {
		immunizedDC(im.s, slo)
	}
	if n > 0 {
		im.s.counters.immunization += uint64(n)
	}
	im.influx = im.dc0 + im.grad*(now-im.start)
	if n <= 0 {
		im.handle.Stop()
	}
	return nil
}
