package world

import (
	"testing"

	"treg2d/internal/sim/lifecycle"
	"treg2d/internal/sim/params"
)

func TestMigration_EntryRules(t *testing.T) {
	naiveTh := func(s *Sim, c *Compartment) Agent { return newNaiveCD4Th(s, c) }
	effectorTh := func(s *Sim, c *Compartment) Agent {
		th := newNaiveCD4Th(s, c)
		th.m.BecomeEffector(0)
		return th
	}
	apoptoticTh := func(s *Sim, c *Compartment) Agent {
		th := newNaiveCD4Th(s, c)
		th.m.BecomeApoptotic(0, lifecycle.CauseNeglect)
		return th
	}
	cd4treg := func(s *Sim, c *Compartment) Agent { return newNaiveCD4Treg(s, c) }
	cd8treg := func(s *Sim, c *Compartment) Agent { return newNaiveCD8Treg(s, c) }

	cases := []struct {
		name     string
		from, to Kind
		build    func(*Sim, *Compartment) Agent
		accept   bool
	}{
		{"cns refuses cd4treg", Circulation, CNS, cd4treg, false},
		{"cns refuses cd8treg", Circulation, CNS, cd8treg, false},
		{"cns refuses naive helper", Circulation, CNS, naiveTh, false},
		{"cns admits effector helper", Circulation, CNS, effectorTh, true},
		{"cln refuses effector", Circulation, CLN, effectorTh, false},
		{"slo refuses effector", Circulation, SLO, effectorTh, false},
		{"cln refuses apoptotic from circulation", Circulation, CLN, apoptoticTh, false},
		{"slo refuses apoptotic from circulation", Circulation, SLO, apoptoticTh, false},
		{"cln admits apoptotic from cns", CNS, CLN, apoptoticTh, true},
		{"slo admits apoptotic from cns", CNS, SLO, apoptoticTh, true},
		{"cln admits naive cd4treg", Circulation, CLN, cd4treg, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSim(t, 5, func(p *params.Params) {
				p.Network.Edges = []params.Edge{{From: tc.from.String(), To: tc.to.String()}}
			})
			src, dest := s.comps[tc.from], s.comps[tc.to]
			a := tc.build(s, src)

			if got := src.migrate(a); got != tc.accept {
				t.Fatalf("migrate=%v want=%v", got, tc.accept)
			}
			if dest.grid.Contains(a) != tc.accept || src.grid.Contains(a) == tc.accept {
				t.Fatalf("in dest=%v in src=%v want accepted=%v", dest.grid.Contains(a), src.grid.Contains(a), tc.accept)
			}
			if tc.accept {
				p, _ := dest.Location(a)
				if p.Y != 0 || a.base().Compartment() != dest {
					t.Fatalf("entered at y=%d want row 0 of %s", p.Y, dest.Name())
				}
			}
		})
	}
}

func splenectomySim(t *testing.T, fastTrack bool) *Sim {
	t.Helper()
	return newTestSim(t, 8, func(p *params.Params) {
		p.Simulation.Splenectomy = true
		p.Spleen.SplenectomyFastTrack = fastTrack
		p.Network.Edges = []params.Edge{
			{From: "circulation", To: "spleen"},
			{From: "spleen", To: "circulation"},
		}
	})
}

func TestSplenectomy_ApoptoticHelperPhagocytosedOnEntry(t *testing.T) {
	s := splenectomySim(t, false)
	circ, spleen := s.comps[Circulation], s.comps[Spleen]
	th := newNaiveCD4Th(s, circ)
	th.m.BecomeApoptotic(0, lifecycle.CauseNeglect)

	if !circ.migrate(th) {
		t.Fatalf("spleen refused an apoptotic helper")
	}
	if !th.Dead() || spleen.grid.Contains(th) || circ.grid.Contains(th) {
		t.Fatalf("apoptotic helper survived entering the spleen")
	}
	snap := s.counters.snapshot()
	if snap.Deaths["phagocytosed"] != 1 {
		t.Fatalf("deaths=%v want phagocytosed=1", snap.Deaths)
	}
}

func TestSplenectomy_FastTrackSendsCellsStraightOn(t *testing.T) {
	s := splenectomySim(t, true)
	circ, spleen := s.comps[Circulation], s.comps[Spleen]
	th := newNaiveCD4Th(s, circ)

	if !circ.migrate(th) {
		t.Fatalf("spleen refused a naive helper")
	}
	if spleen.grid.Contains(th) || !circ.grid.Contains(th) || th.Compartment() != circ {
		t.Fatalf("fast-tracked helper not back in the circulation")
	}
	accepted := 0
	for _, m := range s.counters.snapshot().Migrations {
		if m.Result == resultOK {
			accepted += int(m.Count)
		}
	}
	if accepted != 2 {
		t.Fatalf("accepted migrations=%d want=2", accepted)
	}
}

func TestSplenectomy_WithoutFastTrackCellsStay(t *testing.T) {
	s := splenectomySim(t, false)
	circ, spleen := s.comps[Circulation], s.comps[Spleen]
	th := newNaiveCD4Th(s, circ)

	if !circ.migrate(th) {
		t.Fatalf("spleen refused a naive helper")
	}
	if !spleen.grid.Contains(th) || th.Compartment() != spleen {
		t.Fatalf("helper not kept by the spleen")
	}
}
