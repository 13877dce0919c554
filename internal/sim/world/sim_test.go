package world

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"treg2d/internal/sim/field"
	"treg2d/internal/sim/params"
	"treg2d/internal/sim/simerr"
)

func TestNew_UnknownEdgeIsConfigurationError(t *testing.T) {
	p := baselineParams(t)
	p.Network.Edges = append(p.Network.Edges, params.Edge{From: "thymus", To: "cns"})
	_, err := New(p, 1)
	var ce *simerr.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("err=%v want ConfigurationError", err)
	}
	if ce.Category != "network" || ce.Field != "edges" {
		t.Fatalf("category=%q field=%q", ce.Category, ce.Field)
	}
}

func TestNew_OddOrganIsConfigurationError(t *testing.T) {
	p := baselineParams(t)
	p.SLO.Width = 41
	_, err := New(p, 1)
	var ce *simerr.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("err=%v want ConfigurationError", err)
	}
}

func TestGenerator_CountWithinFiveSigma(t *testing.T) {
	s := newTestSim(t, 42, nil)
	const ticks = 10000
	const p = 0.03
	spawned := 0
	g := &generator{s: s, species: SpeciesCD4Th, p: p, spawn: func(*Sim, *Compartment) { spawned++ }}
	for i := 0; i < ticks; i++ {
		if err := g.Step(float64(i)); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	mean := p * ticks
	sigma := math.Sqrt(ticks * p * (1 - p))
	if math.Abs(float64(spawned)-mean) > 5*sigma {
		t.Fatalf("spawned=%d want %.0f+-%.0f", spawned, mean, 5*sigma)
	}
	if got := s.counters.generated[SpeciesCD4Th]; got != uint64(spawned) {
		t.Fatalf("generated counter=%d want=%d", got, spawned)
	}
}

func TestGenerationProbability(t *testing.T) {
	if got := GenerationProbability(500, 100, 0.1); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("p=%v want=0.5", got)
	}
}

func TestStart_PopulatesBaseline(t *testing.T) {
	s := newTestSim(t, 1, nil)
	s.Start()
	sp := s.p.Simulation
	v := View{s: s}
	if got := v.CountBySpecies("cns")[SpeciesNeuron]; got != sp.NumNeurons {
		t.Fatalf("neurons=%d want=%d", got, sp.NumNeurons)
	}
	if got := v.CountBySpecies("cns")[SpeciesMacrophage]; got != sp.NumCNSMacrophage {
		t.Fatalf("macrophages=%d want=%d", got, sp.NumCNSMacrophage)
	}
	tcells := 0
	for _, name := range v.Compartments() {
		by := v.CountBySpecies(name)
		tcells += by[SpeciesCD4Th] + by[SpeciesCD4Treg] + by[SpeciesCD8Treg]
	}
	if want := sp.NumCD4Th + sp.NumCD4Treg + sp.NumCD8Treg; tcells != want {
		t.Fatalf("t cells=%d want=%d", tcells, want)
	}
	if got := v.CountBySpecies("cns")[SpeciesDC]; got != 0 {
		t.Fatalf("resident dcs in the cns: %d", got)
	}
	total := s.Total()
	s.Start()
	if s.Total() != total {
		t.Fatalf("second Start repopulated")
	}
}

func TestStart_SplenectomyKeepsSpleenEmpty(t *testing.T) {
	s := newTestSim(t, 1, func(p *params.Params) {
		p.Simulation.Splenectomy = true
		p.Simulation.CD4TregAbrogation = true
	})
	s.Start()
	if n := s.comps[Spleen].Len(); n != 0 {
		t.Fatalf("spleen population=%d want=0", n)
	}
	for k := Kind(0); k < NumKinds; k++ {
		if n := countSpecies(s.comps[k], SpeciesCD4Treg); n != 0 {
			t.Fatalf("%s cd4treg=%d under abrogation", k, n)
		}
	}
}

func TestRun_RunawayPopulationStops(t *testing.T) {
	s := newTestSim(t, 1, nil, WithPopulationCeiling(10))
	err := s.Run(context.Background(), 100)
	var rp *simerr.RunawayPopulationError
	if !errors.As(err, &rp) {
		t.Fatalf("err=%v want RunawayPopulationError", err)
	}
	if rp.Ceiling != 10 || rp.Population <= 10 {
		t.Fatalf("runaway=%+v", rp)
	}
	if s.Now() != 0 {
		t.Fatalf("valve tripped at t=%v want=0", s.Now())
	}
}

type recordingObserver struct {
	times    []float64
	finished int
	final    int
}

func (r *recordingObserver) Observe(v View, now float64) error {
	r.times = append(r.times, now)
	return nil
}

func (r *recordingObserver) Finish(v View, now float64) error {
	r.finished++
	r.final = v.Total()
	return nil
}

func TestRun_ObserversAndFinisher(t *testing.T) {
	s := newTestSim(t, 5, nil)
	obs := &recordingObserver{}
	plain := 0
	err := s.Run(context.Background(), 3, obs, ObserverFunc(func(View, float64) error {
		plain++
		return nil
	}))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if diff := cmp.Diff([]float64{0, 1, 2, 3}, obs.times); diff != "" {
		t.Fatalf("observer times (-want +got):\n%s", diff)
	}
	if plain != 4 {
		t.Fatalf("plain observer calls=%d want=4", plain)
	}
	if obs.finished != 1 || obs.final != s.Total() {
		t.Fatalf("finished=%d final=%d total=%d", obs.finished, obs.final, s.Total())
	}
	if err := s.Finish(obs); err != nil || obs.finished != 1 {
		t.Fatalf("second finish ran: %v finished=%d", err, obs.finished)
	}
}

func TestRun_ObserverErrorAborts(t *testing.T) {
	s := newTestSim(t, 5, nil)
	boom := errors.New("boom")
	err := s.Run(context.Background(), 10, ObserverFunc(func(View, float64) error { return boom }))
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v want boom", err)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	s := newTestSim(t, 5, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx, 10); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}

func TestRun_Deterministic(t *testing.T) {
	census := func() Census {
		s := newTestSim(t, 99, nil)
		if err := s.Run(context.Background(), 24); err != nil {
			t.Fatalf("run: %v", err)
		}
		return View{s: s}.Census(s.Now())
	}
	a, b := census(), census()
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed diverged (-first +second):\n%s", diff)
	}
}

func TestRun_BaselineSmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("short")
	}
	s := newTestSim(t, 2024, nil)
	if err := s.Run(context.Background(), 72); err != nil {
		t.Fatalf("run: %v", err)
	}
	v := View{s: s}
	if v.Total() == 0 {
		t.Fatalf("population died out")
	}
	snap := v.Counters()
	if snap.ImmunizationDCs < uint64(s.p.Simulation.ImmunizationLinearInitial) {
		t.Fatalf("immunization dcs=%d want>=%d", snap.ImmunizationDCs, s.p.Simulation.ImmunizationLinearInitial)
	}
	if len(snap.Migrations) == 0 {
		t.Fatalf("no migrations recorded")
	}
	if len(snap.Generated) == 0 {
		t.Fatalf("generators never fired")
	}
	if v.FieldTotal("slo", field.Type1) < 0 {
		t.Fatalf("negative field mass")
	}
	for _, name := range v.Compartments() {
		for _, a := range v.Agents(name) {
			if a.X < 0 || a.Y < 0 {
				t.Fatalf("%s agent %d at (%d,%d)", name, a.ID, a.X, a.Y)
			}
		}
	}
}

func TestImmunization_InfluxStops(t *testing.T) {
	s := newTestSim(t, 8, func(p *params.Params) {
		p.Simulation.ImmunizationLinearInitial = 5
		p.Simulation.ImmunizationLinearDC0 = 2
		p.Simulation.ImmunizationLinearGradient = -1
		p.Simulation.ImmunizationLinearFreq = 1
	})
	s.immunize(0)
	for {
		next, ok := s.sched.Peek()
		if !ok || next > 5 {
			break
		}
		if _, err := s.sched.Step(); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	// The burst of 5, then 2, 2 and 1 before the influx rounds to zero.
	if got := s.counters.immunization; got != 10 {
		t.Fatalf("immunization dcs=%d want=10", got)
	}
	if got := countSpecies(s.comps[SLO], SpeciesDC); got != 10 {
		t.Fatalf("slo dcs=%d want=10", got)
	}
}
