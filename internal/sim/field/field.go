// Package field implements the continuous signaling fields carried by each
// compartment: a non-negative scalar per grid cell that diffuses to its eight
// neighbours and decays with a half-life every tick.
package field

import (
	"math"

	"treg2d/internal/sim/mathx"
)

// Molecule identifies one of the diffusible signals.
type Molecule int

const (
	INFg Molecule = iota
	SDA
	Type1
	Type2

	NumMolecules
)

func (m Molecule) String() string {
	switch m {
	case INFg:
		return "infg"
	case SDA:
		return "sda"
	case Type1:
		return "type1"
	case Type2:
		return "type2"
	default:
		return "unknown"
	}
}

// Field is a width x height grid, toroidal horizontally and bounded vertically.
type Field struct {
	w, h    int
	v       []float64
	scratch []float64
}

func New(width, height int) *Field {
	return &Field{
		w:       width,
		h:       height,
		v:       make([]float64, width*height),
		scratch: make([]float64, width*height),
	}
}

func (f *Field) Width() int  { return f.w }
func (f *Field) Height() int { return f.h }

func (f *Field) idx(x, y int) int { return y*f.w + x }

func (f *Field) At(x, y int) float64 { return f.v[f.idx(x, y)] }

// Add deposits q at (x, y). The result never goes below zero.
func (f *Field) Add(x, y int, q float64) {
	i := f.idx(x, y)
	f.v[i] += q
	if f.v[i] < 0 {
		f.v[i] = 0
	}
}

func (f *Field) Sum() float64 {
	var s float64
	for _, v := range f.v {
		s += v
	}
	return s
}

var neighbours = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Diffuse moves an eighth of every non-zero cell to each neighbour, reading
// from a snapshot so the result does not depend on visiting order. Neighbours
// beyond the top or bottom row are skipped and the source keeps their share,
// which keeps total mass unchanged.
func (f *Field) Diffuse() {
	copy(f.scratch, f.v)
	for y := 0; y < f.h; y++ {
		for x := 0; x < f.w; x++ {
			here := f.scratch[f.idx(x, y)]
			if here == 0 {
				continue
			}
			share := here / 8.0
			delivered := 0
			for _, d := range neighbours {
				ny := y + d[1]
				if ny < 0 || ny >= f.h {
					continue
				}
				nx := mathx.Mod(x+d[0], f.w)
				f.v[f.idx(nx, ny)] += share
				delivered++
			}
			f.v[f.idx(x, y)] -= share * float64(delivered)
		}
	}
	// Float residue of the subtraction must not produce negative values.
	for i, v := range f.v {
		if v < 0 {
			f.v[i] = 0
		}
	}
}

// Decay zeroes every cell below threshold, then scales every cell by gamma.
func (f *Field) Decay(gamma, threshold float64) {
	for i, v := range f.v {
		if v < threshold {
			v = 0
		}
		f.v[i] = v * gamma
	}
}

// Gamma is the per-tick decay factor for a half-life.
func Gamma(tick, halflife float64) float64 {
	return math.Pow(0.5, tick/halflife)
}
