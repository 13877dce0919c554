package world

import (
	"math"
	"testing"
)

func TestVerticalBoundaries_AlwaysOrdered(t *testing.T) {
	for _, h := range []int{2, 10, 30, 50, 400} {
		for _, cross := range []float64{0.05, 0.1, 0.5, 1, 5, 12, 100, 1000} {
			vb := NewVerticalBoundaries(h, cross, 0.1)
			if vb.B1 < 0 || vb.B1 > vb.B2 || vb.B2 > 1 {
				t.Fatalf("h=%d cross=%v b1=%v b2=%v", h, cross, vb.B1, vb.B2)
			}
		}
	}
}

func TestVerticalBoundaries_FastCrossingAlwaysDown(t *testing.T) {
	vb := NewVerticalBoundaries(10, 5, 1)
	if vb.Alpha != 2 {
		t.Fatalf("alpha=%v want=2", vb.Alpha)
	}
	if math.Abs(vb.X-4.0/3) > 1e-9 {
		t.Fatalf("x=%v want=1.333", vb.X)
	}
	if vb.B1 != 1 || vb.B2 != 1 {
		t.Fatalf("b1=%v b2=%v want=1,1", vb.B1, vb.B2)
	}
	for _, u := range []float64{0, 0.5, 0.999999} {
		if got := vb.Sample(u); got != 1 {
			t.Fatalf("sample(%v)=%d want=1", u, got)
		}
	}
}

func TestVerticalBoundaries_SubTickCrossing(t *testing.T) {
	vb := NewVerticalBoundaries(20, 0.05, 0.1)
	if !math.IsInf(vb.Alpha, 1) {
		t.Fatalf("alpha=%v want=+Inf", vb.Alpha)
	}
	if vb.Sample(0.99) != 1 {
		t.Fatalf("sub-tick crossing must always move down")
	}
}

func TestVerticalBoundaries_SlowCrossingMixes(t *testing.T) {
	vb := NewVerticalBoundaries(50, 12, 0.1)
	if vb.B1 <= 0 || vb.B2 >= 1 {
		t.Fatalf("b1=%v b2=%v want interior", vb.B1, vb.B2)
	}
	down, stay, up := vb.Sample(vb.B1/2), vb.Sample((vb.B1+vb.B2)/2), vb.Sample((vb.B2+1)/2)
	if down != 1 || stay != 0 || up != -1 {
		t.Fatalf("down=%d stay=%d up=%d", down, stay, up)
	}
}
