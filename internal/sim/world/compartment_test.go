package world

import (
	"errors"
	"testing"

	"treg2d/internal/sim/lifecycle"
	"treg2d/internal/sim/params"
	"treg2d/internal/sim/simerr"
)

func TestNewCompartment_OddDimensionsRejected(t *testing.T) {
	cases := []struct {
		organ params.Organ
		field string
	}{
		{params.Organ{Width: 5, Height: 4, TimeToCross: 1}, "width"},
		{params.Organ{Width: 4, Height: 7, TimeToCross: 1}, "height"},
		{params.Organ{Width: 0, Height: 4, TimeToCross: 1}, "width"},
		{params.Organ{Width: 4, Height: -2, TimeToCross: 1}, "height"},
	}
	for _, tc := range cases {
		_, err := NewCompartment(CLN, tc.organ, 0.1)
		var ce *simerr.ConfigurationError
		if !errors.As(err, &ce) {
			t.Fatalf("organ=%+v err=%v want ConfigurationError", tc.organ, err)
		}
		if ce.Category != "cln" || ce.Field != tc.field {
			t.Fatalf("organ=%+v category=%q field=%q", tc.organ, ce.Category, ce.Field)
		}
	}
	if _, err := NewCompartment(CLN, params.Organ{Width: 4, Height: 4, TimeToCross: 1}, 0.1); err != nil {
		t.Fatalf("even organ rejected: %v", err)
	}
}

func TestParseKind(t *testing.T) {
	for k := Kind(0); k < NumKinds; k++ {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Fatalf("ParseKind(%q)=%v,%v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("thymus"); ok {
		t.Fatalf("unknown compartment parsed")
	}
}

func TestMigration_RefusedStaysOnBottomRow(t *testing.T) {
	s := newTestSim(t, 7, func(p *params.Params) {
		p.Network.Edges = []params.Edge{{From: "circulation", To: "cns"}}
	})
	circ, cns := s.comps[Circulation], s.comps[CNS]
	// A naive helper is refused by the CNS; the circulation always pushes it down.
	th := newNaiveCD4Th(s, circ)
	h := circ.Height()
	circ.grid.Place(th, 3, h-1)

	for i := 0; i < 20; i++ {
		circ.move(th)
		p, ok := circ.Location(th)
		if !ok {
			t.Fatalf("helper left the circulation")
		}
		if p.Y != h-1 {
			t.Fatalf("y=%d want=%d", p.Y, h-1)
		}
	}
	if cns.grid.Contains(th) || th.Compartment() != circ {
		t.Fatalf("refused helper reached the cns")
	}
	snap := s.counters.snapshot()
	if len(snap.Migrations) != 1 {
		t.Fatalf("migrations=%+v", snap.Migrations)
	}
	m := snap.Migrations[0]
	if m.From != "circulation" || m.To != "cns" || m.Result != "refused" || m.Count != 20 {
		t.Fatalf("migration metric=%+v", m)
	}
}

func TestMigration_RefusedCNSEffectorLoopsToTop(t *testing.T) {
	s := newTestSim(t, 7, func(p *params.Params) {
		p.CNS.TimeToCross = 0.5
		p.CNS.TCellActivatedCanLeave = true
		p.Network.Edges = []params.Edge{{From: "cns", To: "cln"}}
	})
	cns, cln := s.comps[CNS], s.comps[CLN]
	th := newNaiveCD4Th(s, cns)
	th.m.BecomeEffector(0)
	cns.grid.Place(th, 10, cns.Height()-1)

	cns.move(th)
	p, _ := cns.Location(th)
	if p.Y != 0 {
		t.Fatalf("y=%d want=0", p.Y)
	}
	if cln.grid.Contains(th) {
		t.Fatalf("effector entered the cln")
	}
}

func TestMigration_AcceptedEntersTopRow(t *testing.T) {
	s := newTestSim(t, 3, func(p *params.Params) {
		p.Network.Edges = []params.Edge{{From: "circulation", To: "cln"}}
	})
	circ, cln := s.comps[Circulation], s.comps[CLN]
	th := newNaiveCD4Th(s, circ)
	circ.grid.Place(th, 0, circ.Height()-1)

	circ.move(th)
	if circ.grid.Contains(th) {
		t.Fatalf("helper still in the circulation")
	}
	p, ok := cln.Location(th)
	if !ok || p.Y != 0 {
		t.Fatalf("cln location=%v,%v want row 0", p, ok)
	}
	if th.Compartment() != cln {
		t.Fatalf("back-reference=%v want=cln", th.Compartment().Name())
	}
}

func TestStep_BoundTCellsAndNeuronsStay(t *testing.T) {
	s := newTestSim(t, 11, nil)
	cns := s.comps[CNS]
	n := spawnNeuron(s, cns)
	th := newNaiveCD4Th(s, cns)
	th.m.BecomeProliferating(0)
	neuronAt, _ := cns.Location(n)
	helperAt, _ := cns.Location(th)

	for i := 0; i < 10; i++ {
		if err := cns.Step(float64(i)); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if p, _ := cns.Location(n); p != neuronAt {
		t.Fatalf("neuron moved from %v to %v", neuronAt, p)
	}
	if p, _ := cns.Location(th); p != helperAt {
		t.Fatalf("bound helper moved from %v to %v", helperAt, p)
	}
	if th.Maturity() != lifecycle.Proliferating {
		t.Fatalf("maturity=%s", th.Maturity())
	}
}

func TestPlaceNear_CrowdedGridStillPlaces(t *testing.T) {
	s := newTestSim(t, 5, nil)
	c := s.comps[CLN]
	for y := 0; y < c.Height(); y++ {
		for x := 0; x < c.Width(); x++ {
			dc := &DendriticCell{}
			dc.species = SpeciesDC
			s.add(dc, c)
			c.grid.Place(dc, x, y)
		}
	}
	extra := &DendriticCell{}
	extra.species = SpeciesDC
	s.add(extra, c)
	c.placeNear(extra, 4, 4)
	if p, ok := c.Location(extra); !ok || p.X != 4 || p.Y != 4 {
		t.Fatalf("forced placement at %v,%v want (4,4)", p, ok)
	}
}
