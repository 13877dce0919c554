package world

import "treg2d/internal/sim/lifecycle"

// apc is the state shared by dendritic cells and macrophages: a periodic
// maturation timer and a death timer.
type apc struct {
	Cell
	apoptotic   bool
	immatureEnd lifecycle.Timer
	death       lifecycle.Timer
}

func (a *apc) Apoptotic() bool { return a.apoptotic }

// BePhagocytosed never yields anything: an APC leaves the grid as soon as
// it turns apoptotic.
func (a *apc) BePhagocytosed(float64) (Peptides, bool) { return 0, false }

func (a *apc) immatureInterval() lifecycle.Interval {
	p := a.sim.p.APC
	return lifecycle.Interval{Mean: p.ImmatureDurationMean, SD: p.ImmatureDurationSD}
}

func (a *apc) deathInterval() lifecycle.Interval {
	p := a.sim.p.APC
	return lifecycle.Interval{Mean: p.TimeOfDeathMean, SD: p.TimeOfDeathSD}
}

// setDeath arms the death timer unless it is already running.
func (a *apc) setDeath(now float64) {
	if !a.death.Active() {
		a.death.Set(lifecycle.Sample(a.sim.rng, a.deathInterval(), now))
	}
}

// scaleTimer replaces t with U(0,1) * t. Initial populations use it to
// spread their first events across the whole interval.
func (a *apc) scaleTimer(t *lifecycle.Timer) {
	if at, ok := t.Time(); ok {
		t.Set(a.sim.rng.Float64() * at)
	}
}

// presenter is implemented by each APC species.
type presenter interface {
	expressingMHC() bool
	phagocytosisProbability(mature bool) float64
	present(p Peptides)
}

// phagocytose is the shared engulfing protocol. It returns without effect
// unless the victim is apoptotic and still alive.
func (a *apc) phagocytose(self presenter, now float64, victim Phagocytosable) {
	if !victim.Apoptotic() || victim.Dead() || a.apoptotic || a.dead {
		return
	}
	if a.sim.rng.Float64() >= self.phagocytosisProbability(self.expressingMHC()) {
		return
	}
	pep, ok := victim.BePhagocytosed(now)
	if !ok {
		return
	}
	if a.sim.rng.Float64() >= a.sim.p.APC.PhagocytosisToPeptide {
		return
	}
	self.present(pep)
}

// engulfApoptoticAPCs is the APC side of the neighbourhood interaction.
// T cells and neurons offer themselves from their own steps.
func (a *apc) engulfApoptoticAPCs(self presenter, now float64) {
	if a.comp == nil {
		return
	}
	for _, n := range a.comp.neighbours(a.self) {
		if _, ok := n.(APC); !ok {
			continue
		}
		if v, ok := n.(Phagocytosable); ok && v.Apoptotic() {
			a.phagocytose(self, now, v)
		}
	}
}
