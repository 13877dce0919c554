package world

import "treg2d/internal/sim/lifecycle"

// moveRule samples one step for an agent.
type moveRule func(c *Compartment, a Agent) (dx, dy int)

// policy is the per-kind rule table consulted by movement and migration.
type policy struct {
	move      [NumSpecies]moveRule
	canEnter  func(dest *Compartment, a Agent, from *Compartment) bool
	canLeave  func(c *Compartment, a Agent) bool
	loopToTop func(c *Compartment, a Agent) bool
	onEnter   func(c *Compartment, a Agent, now float64)
}

func uniform(c *Compartment) int { return c.sim.rng.Intn(3) - 1 }

func crossing(c *Compartment, _ Agent) (int, int) {
	return uniform(c), c.vmb.Sample(c.sim.rng.Float64())
}

func wander(c *Compartment, _ Agent) (int, int) { return uniform(c), uniform(c) }

func still(*Compartment, Agent) (int, int) { return 0, 0 }

// whenMobile applies rule while the agent is mobile and keeps it still otherwise.
func whenMobile(rule moveRule) moveRule {
	return func(c *Compartment, a Agent) (int, int) {
		if m, ok := a.(Mobile); ok && m.Mobile() {
			return rule(c, a)
		}
		return 0, 0
	}
}

func halfCrossing(c *Compartment, _ Agent) (int, int) {
	return uniform(c), c.vmbHalf.Sample(c.sim.rng.Float64())
}

func always(*Compartment, Agent) bool { return true }

func maturityOf(a Agent) (lifecycle.Maturity, bool) {
	t, ok := a.(tCell)
	if !ok {
		return 0, false
	}
	return t.machine().Maturity(), true
}

func isEffector(a Agent) bool {
	m, ok := maturityOf(a)
	return ok && m == lifecycle.Effector
}

func everyone(rule moveRule) [NumSpecies]moveRule {
	var t [NumSpecies]moveRule
	for i := range t {
		t[i] = rule
	}
	return t
}

func circulationPolicy() *policy {
	return &policy{
		move:      everyone(crossing),
		canEnter:  func(*Compartment, Agent, *Compartment) bool { return true },
		canLeave:  always,
		loopToTop: func(*Compartment, Agent) bool { return false },
	}
}

func cnsPolicy(activatedCanLeave bool) *policy {
	tcellMove := func(c *Compartment, a Agent) (int, int) {
		if isEffector(a) && !activatedCanLeave {
			return wander(c, a)
		}
		return crossing(c, a)
	}
	p := &policy{move: everyone(crossing)}
	p.move[SpeciesCD4Th] = tcellMove
	p.move[SpeciesCD4Treg] = tcellMove
	p.move[SpeciesCD8Treg] = tcellMove
	p.move[SpeciesMacrophage] = whenMobile(wander)
	p.move[SpeciesDCM] = whenMobile(halfCrossing)

	p.canEnter = func(_ *Compartment, a Agent, _ *Compartment) bool {
		switch a.Species() {
		case SpeciesCD4Treg, SpeciesCD8Treg:
			return false
		case SpeciesCD4Th:
			return isEffector(a)
		}
		return true
	}
	p.canLeave = func(_ *Compartment, a Agent) bool {
		if a.Species() == SpeciesMacrophage {
			return false
		}
		if isEffector(a) {
			return activatedCanLeave
		}
		return true
	}
	p.loopToTop = func(_ *Compartment, a Agent) bool { return isEffector(a) }
	return p
}

// lymphNodePolicy serves the CLN and the SLO.
func lymphNodePolicy(fastTrack bool) *policy {
	tcellMove := func(c *Compartment, a Agent) (int, int) {
		if fastTrack && isEffector(a) {
			return uniform(c), c.vmbFast.Sample(c.sim.rng.Float64())
		}
		return crossing(c, a)
	}
	p := &policy{move: everyone(crossing)}
	p.move[SpeciesCD4Th] = tcellMove
	p.move[SpeciesCD4Treg] = tcellMove
	p.move[SpeciesCD8Treg] = tcellMove
	p.move[SpeciesDC] = still
	p.move[SpeciesDCM] = whenMobile(halfCrossing)

	p.canEnter = func(_ *Compartment, a Agent, from *Compartment) bool {
		m, ok := maturityOf(a)
		switch {
		case !ok:
			return true
		case m == lifecycle.Effector:
			return false
		case m == lifecycle.Apoptotic:
			return from != nil && from.kind == CNS
		}
		return true
	}
	p.canLeave = always
	p.loopToTop = func(*Compartment, Agent) bool { return false }
	return p
}

func spleenPolicy(splenectomy, fastTrack bool) *policy {
	p := &policy{move: everyone(crossing)}
	p.move[SpeciesDC] = still
	p.move[SpeciesDCM] = whenMobile(wander)
	p.canEnter = func(*Compartment, Agent, *Compartment) bool { return true }
	p.canLeave = always
	p.loopToTop = func(*Compartment, Agent) bool { return false }
	if splenectomy {
		p.onEnter = func(c *Compartment, a Agent, now float64) {
			if th, ok := a.(*CD4Th); ok && th.Apoptotic() {
				th.BePhagocytosed(now)
				return
			}
			if fastTrack {
				c.migrate(a)
			}
		}
	}
	return p
}
