package lifecycle

import "treg2d/internal/sim/simerr"

// Params are the T cell timer distributions shared by every species.
type Params struct {
	NaiveNeglect   Interval
	PartialNeglect Interval
	Proliferation  Interval
	BecomeEffector Interval
	AICD           Interval
	// ProliferationCutoff is the fraction of the mean division time that may
	// still be outstanding when binding is lost without losing the division.
	ProliferationCutoff float64
	// LocalActivationFor is how long an effector survives without stimulation.
	LocalActivationFor float64
	// LocalActivationDelay blocks stimulation right after becoming an effector.
	LocalActivationDelay float64
}

// Hooks are the species callbacks plugged into a Machine.
type Hooks interface {
	// Proliferation returns the division interval, letting a species
	// override the shared distribution.
	Proliferation() Interval
	OnProliferating(now float64)
	OnEffector(now float64)
	// OnApoptotic runs exactly once, when the machine reaches Apoptotic.
	OnApoptotic(now float64, cause Cause)
	SpawnDaughter(now float64)
}

// Partner describes the antigen presenting cell a T cell is encountering.
type Partner struct {
	// Matched is the marker check: the partner shows what this cell is specific for.
	Matched       bool
	Costimulatory bool
	// Suppression scales binding; 1 means none and 0 never binds.
	Suppression float64
}

// Outcome tells the species what an encounter asks of it.
type Outcome struct {
	// Effector is set when an effector bound the partner.
	Effector bool
	// Phagocytose is set when the cell is apoptotic and should be offered
	// to the partner.
	Phagocytose bool
}

type Machine struct {
	p     *Params
	rng   Rand
	hooks Hooks

	maturity    Maturity
	specificity float64
	bound       bool
	activated   bool

	naiveNeglect       Timer
	partialNeglect     Timer
	division           Timer
	becomeEffector     Timer
	aicd               Timer
	effectorNeglect    Timer
	activationDelayEnd Timer
}

// NewMachine starts a naive cell with a sampled death-by-neglect timer.
func NewMachine(p *Params, rng Rand, hooks Hooks, specificity, now float64) *Machine {
	m := &Machine{p: p, rng: rng, hooks: hooks, maturity: Naive, specificity: specificity}
	m.naiveNeglect.Set(Sample(rng, p.NaiveNeglect, now))
	return m
}

func (m *Machine) Maturity() Maturity     { return m.maturity }
func (m *Machine) Specificity() float64   { return m.specificity }
func (m *Machine) Bound() bool            { return m.bound }
func (m *Machine) SetBound(b bool)        { m.bound = b }
func (m *Machine) LocallyActivated() bool { return m.activated }

func (m *Machine) NaiveNeglect() Timer    { return m.naiveNeglect }
func (m *Machine) PartialNeglect() Timer  { return m.partialNeglect }
func (m *Machine) Division() Timer        { return m.division }
func (m *Machine) EffectorAt() Timer      { return m.becomeEffector }
func (m *Machine) AICD() Timer            { return m.aicd }
func (m *Machine) EffectorNeglect() Timer { return m.effectorNeglect }

func (m *Machine) advance(to Maturity) {
	if to < m.maturity {
		simerr.Violation("maturity moved backwards from %s to %s", m.maturity, to)
	}
	m.maturity = to
}

// Maintain fires whichever timers are due for the current state.
func (m *Machine) Maintain(now float64) {
	switch m.maturity {
	case Naive:
		if m.naiveNeglect.Due(now) {
			m.naiveNeglect.Clear()
			m.BecomeApoptotic(now, CauseNeglect)
		}
	case Partial:
		if m.partialNeglect.Due(now) {
			m.partialNeglect.Clear()
			m.BecomeApoptotic(now, CauseNeglect)
		}
	case Proliferating:
		if at, ok := m.division.Time(); ok && !m.bound {
			remaining := at - now
			if remaining > m.hooks.Proliferation().Mean*m.p.ProliferationCutoff {
				m.division.Clear()
			}
		}
		if m.division.Due(now) {
			m.division.Clear()
			m.hooks.SpawnDaughter(now)
		}
		if m.becomeEffector.Due(now) {
			m.BecomeEffector(now)
		}
	case Effector:
		if m.aicd.Due(now) {
			m.BecomeApoptotic(now, CauseAICD)
		} else if m.effectorNeglect.Due(now) {
			m.BecomeApoptotic(now, CauseNeglect)
		}
	}
}

// Encounter applies the generic rules for meeting an antigen presenting cell.
func (m *Machine) Encounter(now float64, p Partner) Outcome {
	var out Outcome
	if m.maturity == Naive && m.bind(p) {
		if p.Costimulatory {
			m.BecomeProliferating(now)
		} else {
			m.advance(Partial)
			m.naiveNeglect.Clear()
			m.partialNeglect.Set(Sample(m.rng, m.p.PartialNeglect, now))
		}
	}
	if m.maturity == Partial && p.Costimulatory && m.bind(p) {
		m.BecomeProliferating(now)
	}
	if m.maturity == Proliferating {
		if p.Matched {
			m.bound = true
		}
		if !m.division.Active() {
			m.division.Set(Sample(m.rng, m.hooks.Proliferation(), now))
		}
	} else if m.maturity == Effector && m.bind(p) {
		m.Stimulate(now)
		out.Effector = true
	}
	if m.maturity == Apoptotic {
		out.Phagocytose = true
	}
	return out
}

func (m *Machine) bind(p Partner) bool {
	return Bind(m.rng, p.Matched, m.specificity, p.Suppression)
}

func (m *Machine) BecomeProliferating(now float64) {
	m.advance(Proliferating)
	m.bound = true
	m.naiveNeglect.Clear()
	m.partialNeglect.Clear()
	m.division.Clear()
	m.becomeEffector.Set(Sample(m.rng, m.p.BecomeEffector, now))
	m.hooks.OnProliferating(now)
}

func (m *Machine) BecomeEffector(now float64) {
	m.advance(Effector)
	m.bound = false
	m.division.Clear()
	m.becomeEffector.Clear()
	m.aicd.Set(Sample(m.rng, m.p.AICD, now))
	m.activated = false
	m.effectorNeglect.Set(now + m.p.LocalActivationFor)
	m.activationDelayEnd.Set(now + m.p.LocalActivationDelay)
	m.hooks.OnEffector(now)
}

// Stimulate is a local activation event. It only counts once the
// post-differentiation delay is over, and then resets the neglect timer.
func (m *Machine) Stimulate(now float64) bool {
	if m.maturity != Effector || !m.activationDelayEnd.Due(now) {
		return false
	}
	m.effectorNeglect.Set(now + m.p.LocalActivationFor)
	m.activated = true
	return true
}

// BecomeApoptotic is terminal; repeated calls are ignored.
func (m *Machine) BecomeApoptotic(now float64, cause Cause) {
	if m.maturity == Apoptotic {
		return
	}
	m.advance(Apoptotic)
	m.bound = false
	m.naiveNeglect.Clear()
	m.partialNeglect.Clear()
	m.division.Clear()
	m.becomeEffector.Clear()
	m.aicd.Clear()
	m.effectorNeglect.Clear()
	m.activationDelayEnd.Clear()
	m.hooks.OnApoptotic(now, cause)
}

// StartBound marks a freshly divided cell, which begins life attached to
// the same antigen presenting cell as its parent.
func (m *Machine) StartBound() { m.bound = true }
