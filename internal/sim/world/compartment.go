package world

import (
	"math"

	"treg2d/internal/sim/field"
	"treg2d/internal/sim/grid"
	"treg2d/internal/sim/params"
	"treg2d/internal/sim/simerr"
)

// Kind names one of the five compartments.
type Kind int

const (
	Circulation Kind = iota
	CNS
	CLN
	SLO
	Spleen

	NumKinds
)

var kindNames = [...]string{"circulation", "cns", "cln", "slo", "spleen"}

func (k Kind) String() string {
	if k < 0 || k >= NumKinds {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind maps a parameter-document name onto a Kind.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}

const (
	moveAttempts = 8
	// fastTrackCrossing is the crossing time, in hours, used by fast-tracked
	// effector T cells in the lymph nodes.
	fastTrackCrossing = 6.0
)

// Compartment is one organ: an occupancy grid, its signaling fields and the
// rules agents follow while inside it.
type Compartment struct {
	kind   Kind
	sim    *Sim
	grid   *grid.Grid
	fields [field.NumMolecules]*field.Field
	policy *policy
	out    []*Compartment

	gamma     float64
	threshold float64

	vmb     VerticalBoundaries
	vmbHalf VerticalBoundaries
	vmbFast VerticalBoundaries
}

// NewCompartment builds an empty compartment. Both dimensions must be even
// and positive.
func NewCompartment(kind Kind, o params.Organ, tick float64) (*Compartment, error) {
	if o.Width <= 0 || o.Width%2 != 0 {
		return nil, simerr.Config(kind.String(), "width", "must be even and positive, got %d", o.Width)
	}
	if o.Height <= 0 || o.Height%2 != 0 {
		return nil, simerr.Config(kind.String(), "height", "must be even and positive, got %d", o.Height)
	}
	c := &Compartment{
		kind:    kind,
		grid:    grid.New(o.Width, o.Height),
		gamma:   1,
		vmb:     NewVerticalBoundaries(o.Height, o.TimeToCross, tick),
		vmbHalf: NewVerticalBoundaries(o.Height, o.TimeToCross/2, tick),
		vmbFast: NewVerticalBoundaries(o.Height, fastTrackCrossing, tick),
	}
	for m := range c.fields {
		c.fields[m] = field.New(o.Width, o.Height)
	}
	return c, nil
}

func (c *Compartment) Kind() Kind                     { return c.kind }
func (c *Compartment) Name() string                   { return c.kind.String() }
func (c *Compartment) Width() int                     { return c.grid.Width() }
func (c *Compartment) Height() int                    { return c.grid.Height() }
func (c *Compartment) Len() int                       { return c.grid.Len() }
func (c *Compartment) Boundaries() VerticalBoundaries { return c.vmb }

// Field exposes the signaling field for a molecule.
func (c *Compartment) Field(m field.Molecule) *field.Field { return c.fields[m] }

// Location returns the grid position of an agent in this compartment.
func (c *Compartment) Location(a Agent) (grid.Point, bool) { return c.grid.Location(a) }

// Step is the compartment tick: diffuse every field, decay every field,
// then move every agent once.
func (c *Compartment) Step(now float64) error {
	for _, f := range c.fields {
		f.Diffuse()
	}
	for _, f := range c.fields {
		f.Decay(c.gamma, c.threshold)
	}
	for _, o := range c.grid.All() {
		a := o.(Agent)
		if a.Dead() || a.base().comp != c || !moves(a) {
			continue
		}
		c.move(a)
	}
	return nil
}

// moves is false for neurons and for T cells bound to an APC.
func moves(a Agent) bool {
	if a.Species() == SpeciesNeuron {
		return false
	}
	if t, ok := a.(tCell); ok && t.machine().Bound() {
		return false
	}
	return true
}

func (c *Compartment) move(a Agent) {
	p, ok := c.grid.Location(a)
	if !ok {
		simerr.Violation("%s %d is not in %s", a.Species(), a.ID(), c.kind)
	}
	rule := c.policy.move[a.Species()]
	h := c.grid.Height()
	for attempts := moveAttempts; attempts > 0; attempts-- {
		dx, dy := rule(c, a)
		x := c.grid.WrapX(p.X + dx)
		y := p.Y + dy
		if y < 0 {
			y = 0
		}
		if y >= h {
			if c.migrate(a) {
				return
			}
			if c.policy.loopToTop(c, a) {
				y = 0
			} else {
				y = h - 1
			}
		}
		if c.grid.Fits(x, y, a, c.sim.capacity) {
			c.grid.Place(a, x, y)
			return
		}
	}
}

// migrate tries one uniformly chosen outgoing edge.
func (c *Compartment) migrate(a Agent) bool {
	if len(c.out) == 0 {
		return false
	}
	dest := c.out[c.sim.rng.Intn(len(c.out))]
	ok := dest.policy.canEnter(dest, a, c) && c.policy.canLeave(c, a)
	c.sim.counters.migration(c.kind, dest.kind, a.Species(), ok)
	if !ok {
		return false
	}
	if !c.grid.Remove(a) {
		simerr.Violation("%s %d migrating out of %s it does not occupy", a.Species(), a.ID(), c.kind)
	}
	dest.enter(a)
	return true
}

// enter places a migrating agent on the top row, updates its
// back-reference and runs the arrival hooks.
func (c *Compartment) enter(a Agent) {
	w := c.grid.Width()
	x := c.sim.rng.Intn(w)
	for tries := w - 1; tries > 0 && !c.grid.Fits(x, 0, a, c.sim.capacity); tries-- {
		x = c.sim.rng.Intn(w)
	}
	c.grid.Place(a, x, 0)
	a.base().comp = c

	now := c.sim.Now()
	if m, ok := a.(migrator); ok {
		m.migrated(now)
	}
	if c.policy.onEnter != nil {
		c.policy.onEnter(c, a, now)
	}
}

// placeRandom picks one random location and settles as close to it as space allows.
func (c *Compartment) placeRandom(a Agent) {
	c.placeNear(a, c.sim.rng.Intn(c.grid.Width()), c.sim.rng.Intn(c.grid.Height()))
}

// placeNear tries (x, y), then random corners at a growing distance. Once
// the distance exceeds the grid the agent is forced onto (x, y).
func (c *Compartment) placeNear(a Agent, x, y int) {
	g := c.grid
	h := g.Height()
	limit := g.Width()
	if h > limit {
		limit = h
	}
	x1, y1 := g.WrapX(x), y
	attempts, d := moveAttempts, 1
	for !g.Fits(x1, y1, a, c.sim.capacity) {
		if d > limit {
			x1, y1 = g.WrapX(x), y
			break
		}
		x1, y1 = x-d, y-d
		if c.sim.rng.Intn(2) == 0 {
			x1 = x + d
		}
		if c.sim.rng.Intn(2) == 0 {
			y1 = y + d
		}
		x1 = g.WrapX(x1)
		if y1 < 0 {
			y1 = 0
		}
		if y1 >= h {
			y1 = h - 1
		}
		attempts--
		if attempts == 0 {
			d++
			attempts = moveAttempts
		}
	}
	g.Place(a, x1, y1)
	a.base().comp = c
}

func (c *Compartment) neighbours(a Agent) []Agent {
	occ := c.grid.Neighbours(a)
	out := make([]Agent, 0, len(occ))
	for _, o := range occ {
		out = append(out, o.(Agent))
	}
	return out
}

// concentration is the field value under the agent.
func (c *Compartment) concentration(m field.Molecule, a Agent) float64 {
	p, ok := c.grid.Location(a)
	if !ok {
		return 0
	}
	return c.fields[m].At(p.X, p.Y)
}

func (c *Compartment) secrete(m field.Molecule, q float64, a Agent) {
	if q <= 0 || math.IsNaN(q) {
		return
	}
	if p, ok := c.grid.Location(a); ok {
		c.fields[m].Add(p.X, p.Y, q)
	}
}
