// Package grid is the sparse occupancy grid of a compartment.
//
// The grid wraps horizontally and is bounded vertically. Every occupant is
// either bulky (it needs a cell for itself and blocks the cell for everyone
// else) or packable (a bounded number may share a cell with other packable
// occupants).
package grid

import "treg2d/internal/sim/mathx"

type Occupant interface {
	Packable() bool
}

type Point struct {
	X, Y int
}

// Capacity is the sharing rule for packable occupants.
type Capacity struct {
	PerCell int
	// Exact rejects a packable occupant only when the cell holds exactly
	// PerCell others; otherwise the cell rejects at PerCell or more.
	Exact bool
}

type Grid struct {
	w, h  int
	cells map[Point][]Occupant
	loc   map[Occupant]Point
	order []Occupant
	index map[Occupant]int
}

func New(width, height int) *Grid {
	return &Grid{
		w:     width,
		h:     height,
		cells: map[Point][]Occupant{},
		loc:   map[Occupant]Point{},
		index: map[Occupant]int{},
	}
}

func (g *Grid) Width() int  { return g.w }
func (g *Grid) Height() int { return g.h }
func (g *Grid) Len() int    { return len(g.order) }

// WrapX maps any column onto [0, width).
func (g *Grid) WrapX(x int) int { return mathx.Mod(x, g.w) }

func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.w && y >= 0 && y < g.h
}

// Place puts o at (x, y), moving it if it is already in the grid.
func (g *Grid) Place(o Occupant, x, y int) {
	p := Point{X: g.WrapX(x), Y: mathx.ClampInt(y, 0, g.h-1)}
	if old, ok := g.loc[o]; ok {
		if old == p {
			return
		}
		g.detach(o, old)
	} else {
		g.index[o] = len(g.order)
		g.order = append(g.order, o)
	}
	g.loc[o] = p
	g.cells[p] = append(g.cells[p], o)
}

// Remove evicts o and reports whether it was present.
func (g *Grid) Remove(o Occupant) bool {
	p, ok := g.loc[o]
	if !ok {
		return false
	}
	g.detach(o, p)
	delete(g.loc, o)

	i := g.index[o]
	last := len(g.order) - 1
	if i != last {
		moved := g.order[last]
		g.order[i] = moved
		g.index[moved] = i
	}
	g.order[last] = nil
	g.order = g.order[:last]
	delete(g.index, o)
	return true
}

func (g *Grid) detach(o Occupant, p Point) {
	cell := g.cells[p]
	for i, c := range cell {
		if c == o {
			cell = append(cell[:i], cell[i+1:]...)
			break
		}
	}
	if len(cell) == 0 {
		delete(g.cells, p)
		return
	}
	g.cells[p] = cell
}

func (g *Grid) Location(o Occupant) (Point, bool) {
	p, ok := g.loc[o]
	return p, ok
}

func (g *Grid) Contains(o Occupant) bool {
	_, ok := g.loc[o]
	return ok
}

// At returns the occupants of a cell. The slice must not be modified.
func (g *Grid) At(x, y int) []Occupant {
	return g.cells[Point{X: x, Y: y}]
}

func (g *Grid) Count(x, y int) int { return len(g.cells[Point{X: x, Y: y}]) }

// All returns a snapshot of every occupant in a stable order.
func (g *Grid) All() []Occupant {
	out := make([]Occupant, len(g.order))
	copy(out, g.order)
	return out
}

// Fits reports whether o may be placed at (x, y) under the capacity rule.
// o itself is never counted against the cell.
func (g *Grid) Fits(x, y int, o Occupant, c Capacity) bool {
	if !g.InBounds(x, y) {
		return false
	}
	others := 0
	for _, other := range g.cells[Point{X: x, Y: y}] {
		if other == o {
			continue
		}
		if !other.Packable() {
			return false
		}
		others++
	}
	if !o.Packable() {
		return others == 0
	}
	if c.Exact {
		return others != c.PerCell
	}
	return others < c.PerCell
}

// Neighbours lists the occupants of the 3x3 block centred on o, excluding o.
// Columns wrap and each is visited once, even on grids narrower than three
// columns; rows outside the grid are skipped.
func (g *Grid) Neighbours(o Occupant) []Occupant {
	p, ok := g.loc[o]
	if !ok {
		return nil
	}
	var out []Occupant
	var seen [3]int
	cols := 0
	for dx := -1; dx <= 1; dx++ {
		x := g.WrapX(p.X + dx)
		dup := false
		for _, s := range seen[:cols] {
			dup = dup || s == x
		}
		if dup {
			continue
		}
		seen[cols] = x
		cols++
		for dy := -1; dy <= 1; dy++ {
			y := p.Y + dy
			if y < 0 || y >= g.h {
				continue
			}
			for _, c := range g.cells[Point{X: x, Y: y}] {
				if c != o {
					out = append(out, c)
				}
			}
		}
	}
	return out
}
