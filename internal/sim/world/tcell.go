package world

import (
	"treg2d/internal/sim/field"
	"treg2d/internal/sim/lifecycle"
)

// tCell is implemented by the three T cell species.
type tCell interface {
	Agent
	machine() *lifecycle.Machine
}

// tcellBehaviour is what a species adds to the shared T cell step.
type tcellBehaviour interface {
	Agent
	interact(now float64, n Agent)
	afterStep(now float64)
}

// tcell carries the maturity machine and the default lifecycle hooks.
type tcell struct {
	Cell
	m *lifecycle.Machine
}

func (t *tcell) machine() *lifecycle.Machine  { return t.m }
func (t *tcell) Packable() bool               { return true }
func (t *tcell) Maturity() lifecycle.Maturity { return t.m.Maturity() }
func (t *tcell) Specificity() float64         { return t.m.Specificity() }
func (t *tcell) Apoptotic() bool              { return t.m.Maturity() == lifecycle.Apoptotic }
func (t *tcell) Effector() bool               { return t.m.Maturity() == lifecycle.Effector }

func (t *tcell) Proliferation() lifecycle.Interval { return t.sim.tparams.Proliferation }

// OnProliferating counts a priming event where it happened.
func (t *tcell) OnProliferating(float64) {
	if t.comp != nil {
		t.sim.counters.priming[t.species][t.comp.kind]++
	}
}

func (t *tcell) OnEffector(float64) {}

// OnApoptotic removes the cell straight away.
func (t *tcell) OnApoptotic(_ float64, cause lifecycle.Cause) {
	t.sim.counters.death(cause)
	t.sim.remove(t.self)
}

// start wires the machine with the inherited or sampled specificity.
func (t *tcell) start(s *Sim, hooks lifecycle.Hooks, specificity float64) {
	t.m = lifecycle.NewMachine(&s.tparams, s.rng, hooks, specificity, s.Now())
}

// step is the shared T cell tick.
func (t *tcell) step(self tcellBehaviour, now float64) error {
	if t.dead {
		return nil
	}
	t.m.Maintain(now)
	if t.dead {
		return nil
	}
	t.m.SetBound(false)
	for _, n := range t.comp.neighbours(self) {
		if n.Dead() {
			continue
		}
		self.interact(now, n)
		if t.dead {
			return nil
		}
	}
	self.afterStep(now)
	return nil
}

// encounter runs the generic APC rules against a partner.
func (t *tcell) encounter(now float64, apc APC, matched bool) lifecycle.Outcome {
	return t.m.Encounter(now, lifecycle.Partner{
		Matched:       matched,
		Costimulatory: apc.Costimulatory(),
		Suppression:   t.sim.suppression(apc),
	})
}

// secreteWhenActivated adds one tick's worth of m while locally activated.
func (t *tcell) secreteWhenActivated(m field.Molecule, perHour float64) {
	if t.m.LocallyActivated() && t.Effector() {
		t.comp.secrete(m, perHour*t.sim.tick, t.self)
	}
}

// spawnNear places a freshly built daughter next to its parent.
func (t *tcell) spawnNear(daughter tCell) {
	c := t.comp
	if c == nil {
		return
	}
	p, ok := c.Location(t.self)
	if !ok {
		return
	}
	t.sim.add(daughter, c)
	c.placeNear(daughter, p.X, p.Y)
	daughter.machine().StartBound()
}
