// Package world is the simulation kernel: five compartments joined by a
// migration network, the cell species that move and interact inside them,
// homeostatic generators, immunization and the runaway-population valve.
//
// A Sim is single-threaded. Every agent reaches the scheduler, the random
// stream and the compartments through the *Sim it was created with.
package world

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"

	"treg2d/internal/sim/field"
	"treg2d/internal/sim/grid"
	"treg2d/internal/sim/lifecycle"
	"treg2d/internal/sim/params"
	"treg2d/internal/sim/schedule"
	"treg2d/internal/sim/simerr"
)

// Scheduler priorities. Lower fires first within a time.
const (
	prioAgent        = 0
	prioCompartment  = 0
	prioGenerator    = 2
	prioImmunization = 2
	prioValve        = 3
	prioObserver     = 10

	compartmentStart = 1.0
)

// stepOrder is the order compartments are registered, and so stepped.
var stepOrder = [...]Kind{CNS, CLN, Circulation, SLO, Spleen}

type Sim struct {
	p      params.Params
	seed   int64
	rng    *rand.Rand
	sched  *schedule.Schedule
	logger *log.Logger

	tick     float64
	ceiling  int
	capacity grid.Capacity
	tparams  lifecycle.Params

	comps    [NumKinds]*Compartment
	nextID   uint64
	counters counters

	started  bool
	finished bool
}

type Option func(*Sim)

// WithLogger routes kernel log lines to l. The default discards them.
func WithLogger(l *log.Logger) Option {
	return func(s *Sim) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPopulationCeiling overrides simulation.population_ceiling.
func WithPopulationCeiling(n int) Option {
	return func(s *Sim) {
		if n > 0 {
			s.ceiling = n
		}
	}
}

// New validates p and builds the compartments and their network. Nothing
// is populated until Start.
func New(p params.Params, seed int64, opts ...Option) (*Sim, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Sim{
		p:       p,
		seed:    seed,
		rng:     rand.New(rand.NewSource(seed)),
		sched:   schedule.New(),
		logger:  log.New(io.Discard, "", 0),
		tick:    p.Simulation.TimeSlice,
		ceiling: p.Simulation.PopulationCeiling,
		tparams: tcellParams(p),
	}
	s.capacity = grid.Capacity{PerCell: p.TCell.CellsPerGridspace, Exact: p.TCell.SpatialTestEquals}
	for _, opt := range opts {
		opt(s)
	}

	organs := [NumKinds]params.Organ{
		Circulation: p.Circulation,
		CNS:         p.CNS.Organ,
		CLN:         p.CLN,
		SLO:         p.SLO,
		Spleen:      p.Spleen.Organ,
	}
	gamma := field.Gamma(s.tick, p.Molecule.Halflife)
	for k := Kind(0); k < NumKinds; k++ {
		c, err := NewCompartment(k, organs[k], s.tick)
		if err != nil {
			return nil, err
		}
		c.sim = s
		c.gamma = gamma
		c.threshold = p.Molecule.DecayThreshold
		s.comps[k] = c
	}
	s.comps[Circulation].policy = circulationPolicy()
	s.comps[CNS].policy = cnsPolicy(p.CNS.TCellActivatedCanLeave)
	s.comps[CLN].policy = lymphNodePolicy(p.Compartment.ActivatedTCellsFastTrack)
	s.comps[SLO].policy = lymphNodePolicy(p.Compartment.ActivatedTCellsFastTrack)
	s.comps[Spleen].policy = spleenPolicy(p.Simulation.Splenectomy, p.Spleen.SplenectomyFastTrack)

	if err := s.connect(p.Network.Edges); err != nil {
		return nil, err
	}
	return s, nil
}

func tcellParams(p params.Params) lifecycle.Params {
	t := p.TCell
	return lifecycle.Params{
		NaiveNeglect:         lifecycle.Interval{Mean: t.ApoptosisNaiveMean, SD: t.ApoptosisNaiveSD},
		PartialNeglect:       lifecycle.Interval{Mean: t.ApoptosisPartialMean, SD: t.ApoptosisPartialSD},
		Proliferation:        lifecycle.Interval{Mean: t.ProliferationMean, SD: t.ProliferationSD},
		BecomeEffector:       lifecycle.Interval{Mean: t.BecomeEffectorMean, SD: t.BecomeEffectorSD},
		AICD:                 lifecycle.Interval{Mean: t.AICDMean, SD: t.AICDSD},
		ProliferationCutoff:  t.CutoffWhenBindingLost,
		LocalActivationFor:   t.LocalActivationEffectorFor,
		LocalActivationDelay: t.LocalActivationDelay,
	}
}

// connect wires the migration network. Duplicate edges weight the choice.
func (s *Sim) connect(edges []params.Edge) error {
	for i, e := range edges {
		from, ok := ParseKind(e.From)
		if !ok {
			return simerr.Config("network", "edges", "edge %d: unknown compartment %q", i, e.From)
		}
		to, ok := ParseKind(e.To)
		if !ok {
			return simerr.Config("network", "edges", "edge %d: unknown compartment %q", i, e.To)
		}
		s.comps[from].out = append(s.comps[from].out, s.comps[to])
	}
	return nil
}

func (s *Sim) Now() float64                    { return s.sched.Time() }
func (s *Sim) Seed() int64                     { return s.seed }
func (s *Sim) Params() params.Params           { return s.p }
func (s *Sim) Compartment(k Kind) *Compartment { return s.comps[k] }
func (s *Sim) Steps() uint64                   { return s.sched.Steps() }

func (s *Sim) specificity() float64 {
	return lifecycle.Specificity(s.rng, s.p.TCell.SpecificityLower, s.p.TCell.SpecificityUpper)
}

// suppression is the binding multiplier an APC imposes. Only dendritic
// cells carry a priming capacity, and only while a CD200 mode is on.
func (s *Sim) suppression(a APC) float64 {
	if !s.p.CD200.Active() {
		return 1
	}
	if pr, ok := a.(primer); ok {
		return pr.PrimingCapacity()
	}
	return 1
}

// add schedules a new agent and binds it to c. The caller places it.
func (s *Sim) add(a Agent, c *Compartment) {
	if c == nil {
		simerr.Violation("%s created without a compartment", a.Species())
	}
	cell := a.base()
	s.nextID++
	cell.id = s.nextID
	cell.self = a
	cell.sim = s
	cell.comp = c
	at := s.sched.Time() + s.tick
	if at < 0 {
		at = 0
	}
	cell.handle = s.sched.Repeating(at, prioAgent, a, s.tick)
}

// remove takes an agent out of the run. Its handle is cancelled at once
// and the dead flag stops any further activity within the current step.
func (s *Sim) remove(a Agent) {
	cell := a.base()
	if cell.dead {
		return
	}
	cell.dead = true
	cell.handle.Stop()
	if c := cell.comp; c != nil {
		if !c.grid.Remove(a) {
			simerr.Violation("%s %d not found in %s", a.Species(), cell.id, c.kind)
		}
		cell.comp = nil
	}
}

// Start schedules the compartments, seeds the initial population and
// registers immunization, the generators and the valve. It runs once.
func (s *Sim) Start() {
	if s.started {
		return
	}
	s.started = true
	for _, k := range stepOrder {
		s.sched.Repeating(compartmentStart, prioCompartment, s.comps[k], s.tick)
	}
	s.populate()

	sp := s.p.Simulation
	if sp.Immunize {
		s.immunize(sp.ImmunizationTime)
	}
	if sp.SecondImmunization {
		s.immunize(sp.SecondImmunizationStart)
	}
	s.startGenerators()
	s.sched.Repeating(0, prioValve, schedule.TaskFunc(s.checkPopulation), s.tick)
	s.logger.Printf("start seed=%d population=%d", s.seed, s.Total())
}

// View is the read-only face of the kernel that observers receive.
func (s *Sim) View() View { return View{s: s} }

// Total counts every agent in every compartment.
func (s *Sim) Total() int {
	n := 0
	for _, c := range s.comps {
		n += c.grid.Len()
	}
	return n
}

func (s *Sim) checkPopulation(now float64) error {
	n := s.Total()
	if s.p.Simulation.Splenectomy {
		n -= s.comps[Spleen].grid.Len()
	}
	if n > s.ceiling {
		s.logger.Printf("runaway population %d > %d at t=%.2f", n, s.ceiling, now)
		return &simerr.RunawayPopulationError{Population: n, Ceiling: s.ceiling, Time: now}
	}
	return nil
}

// Observer is called with a read-only view at every observer firing.
type Observer interface {
	Observe(v View, now float64) error
}

type ObserverFunc func(v View, now float64) error

func (f ObserverFunc) Observe(v View, now float64) error { return f(v, now) }

// Finisher observers are told once when the run ends, failed or not.
type Finisher interface {
	Finish(v View, now float64) error
}

// Run starts the kernel and steps it until nothing is due at or before
// endTime, ctx is done, or a task fails. Finish always runs.
func (s *Sim) Run(ctx context.Context, endTime float64, observers ...Observer) (err error) {
	s.Start()
	v := s.View()
	for _, o := range observers {
		o := o
		s.sched.Repeating(0, prioObserver, schedule.TaskFunc(func(now float64) error {
			return o.Observe(v, now)
		}), s.p.Simulation.ObserverInterval)
	}
	defer func() {
		if ferr := s.Finish(observers...); ferr != nil {
			err = errors.Join(err, ferr)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, ok := s.sched.Peek()
		if !ok || next > endTime {
			return nil
		}
		if _, err := s.sched.Step(); err != nil {
			return fmt.Errorf("step at t=%.2f: %w", s.sched.Time(), err)
		}
	}
}

// Finish hands every Finisher the final view. Later calls do nothing.
func (s *Sim) Finish(observers ...Observer) error {
	if s.finished {
		return nil
	}
	s.finished = true
	v := s.View()
	now := s.sched.Time()
	var errs []error
	for _, o := range observers {
		if f, ok := o.(Finisher); ok {
			if err := f.Finish(v, now); err != nil {
				errs = append(errs, err)
			}
		}
	}
	s.logger.Printf("finish t=%.2f steps=%d population=%d", now, s.sched.Steps(), s.Total())
	return errors.Join(errs...)
}
