package field

import (
	"math"
	"math/rand"
	"testing"
)

func randomField(seed int64, w, h int) *Field {
	r := rand.New(rand.NewSource(seed))
	f := New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if r.Intn(3) == 0 {
				continue
			}
			f.Add(x, y, r.Float64()*100)
		}
	}
	return f
}

func TestDiffuse_ConservesMass(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		f := randomField(seed, 12, 8)
		before := f.Sum()
		for i := 0; i < 5; i++ {
			f.Diffuse()
		}
		after := f.Sum()
		if math.Abs(before-after) > 1e-9*before {
			t.Fatalf("seed %d: sum before=%v after=%v", seed, before, after)
		}
	}
}

func TestDiffuse_InteriorSpreadsEvenly(t *testing.T) {
	f := New(6, 6)
	f.Add(2, 2, 8)
	f.Diffuse()
	if got := f.At(2, 2); got != 0 {
		t.Fatalf("center=%v want=0", got)
	}
	for _, d := range neighbours {
		if got := f.At(2+d[0], 2+d[1]); got != 1 {
			t.Fatalf("neighbour %v=%v want=1", d, got)
		}
	}
}

func TestDiffuse_WrapsHorizontallyOnly(t *testing.T) {
	f := New(4, 4)
	f.Add(0, 0, 8)
	f.Diffuse()
	// Left neighbours wrap to column 3; the row above is off-grid.
	if got := f.At(3, 0); got != 1 {
		t.Fatalf("wrapped left=%v want=1", got)
	}
	if got := f.At(3, 1); got != 1 {
		t.Fatalf("wrapped left-down=%v want=1", got)
	}
	if got := f.At(0, 3); got != 0 {
		t.Fatalf("bottom row must not receive from top row, got %v", got)
	}
	// Five neighbours are on-grid, three shares stay home.
	if got := f.At(0, 0); got != 3 {
		t.Fatalf("source=%v want=3", got)
	}
}

func TestDecay_GammaAndThreshold(t *testing.T) {
	f := New(4, 2)
	vals := []float64{0, 0.004, 0.01, 1, 3.5, 10, 0.0099, 100}
	for i, v := range vals {
		f.Add(i%4, i/4, v)
	}
	gamma := Gamma(0.1, 0.5)
	threshold := 0.01
	f.Decay(gamma, threshold)
	for i, v := range vals {
		want := v * gamma
		if v < threshold {
			want = 0
		}
		if got := f.At(i%4, i/4); math.Abs(got-want) > 1e-12 {
			t.Fatalf("cell %d: got=%v want=%v", i, got, want)
		}
	}
}

func TestGamma_HalfLife(t *testing.T) {
	if g := Gamma(2, 2); math.Abs(g-0.5) > 1e-15 {
		t.Fatalf("gamma=%v want=0.5", g)
	}
	if g := Gamma(1, 2); math.Abs(g-math.Sqrt(0.5)) > 1e-15 {
		t.Fatalf("gamma=%v want=sqrt(0.5)", g)
	}
}

func TestAdd_NeverNegative(t *testing.T) {
	f := New(2, 2)
	f.Add(1, 1, 2)
	f.Add(1, 1, -5)
	if got := f.At(1, 1); got != 0 {
		t.Fatalf("value=%v want=0", got)
	}
}
