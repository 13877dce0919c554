package lifecycle

import (
	"errors"
	"math/rand"
	"testing"

	"treg2d/internal/sim/simerr"
)

type recordingHooks struct {
	proliferation Interval
	proliferating int
	effector      int
	apoptotic     []Cause
	daughters     int
}

func (h *recordingHooks) Proliferation() Interval        { return h.proliferation }
func (h *recordingHooks) OnProliferating(float64)        { h.proliferating++ }
func (h *recordingHooks) OnEffector(float64)             { h.effector++ }
func (h *recordingHooks) OnApoptotic(_ float64, c Cause) { h.apoptotic = append(h.apoptotic, c) }
func (h *recordingHooks) SpawnDaughter(float64)          { h.daughters++ }

func testParams() *Params {
	return &Params{
		NaiveNeglect:         Interval{Mean: 10, SD: 2},
		PartialNeglect:       Interval{Mean: 5, SD: 1},
		Proliferation:        Interval{Mean: 4, SD: 1},
		BecomeEffector:       Interval{Mean: 20, SD: 2},
		AICD:                 Interval{Mean: 30, SD: 2},
		ProliferationCutoff:  0.5,
		LocalActivationFor:   6,
		LocalActivationDelay: 2,
	}
}

func newTestMachine(seed int64, specificity float64) (*Machine, *recordingHooks) {
	h := &recordingHooks{proliferation: Interval{Mean: 4, SD: 1}}
	m := NewMachine(testParams(), rand.New(rand.NewSource(seed)), h, specificity, 0)
	return m, h
}

func TestNaiveNeglectFiresNearMean(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		m, h := newTestMachine(seed, 1)
		const tick = 0.1
		now := 0.0
		for i := 0; i < 1000 && m.Maturity() != Apoptotic; i++ {
			now += tick
			m.Maintain(now)
		}
		if m.Maturity() != Apoptotic {
			t.Fatalf("seed=%d maturity=%s want=apoptotic", seed, m.Maturity())
		}
		if now < 6 || now > 14+tick {
			t.Fatalf("seed=%d apoptosis at %.2f want 10+-4", seed, now)
		}
		if len(h.apoptotic) != 1 || h.apoptotic[0] != CauseNeglect {
			t.Fatalf("seed=%d causes=%v want=[neglect]", seed, h.apoptotic)
		}
	}
}

func TestBecomeApoptoticRunsHookOnce(t *testing.T) {
	m, h := newTestMachine(1, 1)
	m.BecomeApoptotic(1, CauseKilled)
	m.BecomeApoptotic(2, CauseNeglect)
	if len(h.apoptotic) != 1 || h.apoptotic[0] != CauseKilled {
		t.Fatalf("causes=%v want=[killed]", h.apoptotic)
	}
	if m.NaiveNeglect().Active() {
		t.Fatalf("naive neglect still active after apoptosis")
	}
}

func TestMaturityNeverMovesBackwards(t *testing.T) {
	m, _ := newTestMachine(1, 1)
	m.BecomeProliferating(0)
	m.BecomeEffector(1)

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok {
			t.Fatalf("recover=%v want InvariantViolation", r)
		}
		var iv *simerr.InvariantViolation
		if !errors.As(err, &iv) {
			t.Fatalf("err=%v want InvariantViolation", err)
		}
	}()
	m.BecomeProliferating(2)
}

func TestEncounterWithoutCostimulationGoesPartial(t *testing.T) {
	m, h := newTestMachine(3, 1)
	m.Encounter(1, Partner{Matched: true, Suppression: 1})
	if m.Maturity() != Partial {
		t.Fatalf("maturity=%s want=partial", m.Maturity())
	}
	if m.NaiveNeglect().Active() || !m.PartialNeglect().Active() {
		t.Fatalf("timers naive=%v partial=%v want false,true", m.NaiveNeglect().Active(), m.PartialNeglect().Active())
	}

	m.Encounter(2, Partner{Matched: true, Costimulatory: true, Suppression: 1})
	if m.Maturity() != Proliferating {
		t.Fatalf("maturity=%s want=proliferating", m.Maturity())
	}
	if h.proliferating != 1 {
		t.Fatalf("proliferating hook=%d want=1", h.proliferating)
	}
	if !m.Division().Active() || !m.EffectorAt().Active() || !m.Bound() {
		t.Fatalf("division=%v effector=%v bound=%v want all true", m.Division().Active(), m.EffectorAt().Active(), m.Bound())
	}
}

func TestEncounterMismatchNeverBinds(t *testing.T) {
	m, _ := newTestMachine(4, 1)
	for i := 0; i < 100; i++ {
		m.Encounter(0.1*float64(i), Partner{Costimulatory: true, Suppression: 1})
	}
	if m.Maturity() != Naive {
		t.Fatalf("maturity=%s want=naive", m.Maturity())
	}
}

func TestEncounterFullySuppressedNeverBinds(t *testing.T) {
	m, _ := newTestMachine(13, 1)
	for i := 0; i < 200; i++ {
		m.Encounter(0.1*float64(i), Partner{Matched: true, Costimulatory: true, Suppression: 0})
	}
	if m.Maturity() != Naive {
		t.Fatalf("maturity=%s want=naive", m.Maturity())
	}
}

func TestNaiveWithCostimulationFallsThroughToDivision(t *testing.T) {
	m, _ := newTestMachine(5, 1)
	m.Encounter(1, Partner{Matched: true, Costimulatory: true, Suppression: 1})
	if m.Maturity() != Proliferating {
		t.Fatalf("maturity=%s want=proliferating", m.Maturity())
	}
	if !m.Division().Active() {
		t.Fatalf("division timer not sampled in the same encounter")
	}
}

func TestDivisionCancelledWhenUnboundEarly(t *testing.T) {
	m, h := newTestMachine(6, 1)
	m.BecomeProliferating(0)
	m.division.Set(4)
	m.SetBound(false)

	// remaining 3.9 > 4*0.5
	m.Maintain(0.1)
	if m.Division().Active() {
		t.Fatalf("division survived losing the partner early")
	}
	if h.daughters != 0 {
		t.Fatalf("daughters=%d want=0", h.daughters)
	}
}

func TestDivisionSurvivesLateUnbinding(t *testing.T) {
	m, h := newTestMachine(7, 1)
	m.BecomeProliferating(0)
	m.division.Set(4)
	m.becomeEffector.Set(100)
	m.SetBound(false)

	m.Maintain(3)
	if !m.Division().Active() {
		t.Fatalf("division cancelled with 1h remaining")
	}
	m.Maintain(4)
	if h.daughters != 1 {
		t.Fatalf("daughters=%d want=1", h.daughters)
	}
	if m.Division().Active() {
		t.Fatalf("division timer left active after firing")
	}
}

func TestEffectorStimulationWaitsForDelay(t *testing.T) {
	m, h := newTestMachine(8, 1)
	m.BecomeProliferating(0)
	m.BecomeEffector(10)
	if h.effector != 1 || m.Bound() {
		t.Fatalf("effector hook=%d bound=%v", h.effector, m.Bound())
	}

	if m.Stimulate(11) {
		t.Fatalf("stimulated inside activation delay")
	}
	if !m.Stimulate(12) {
		t.Fatalf("stimulation refused after delay")
	}
	if !m.LocallyActivated() {
		t.Fatalf("not locally activated after stimulation")
	}
	at, _ := m.EffectorNeglect().Time()
	if at != 18 {
		t.Fatalf("effector neglect=%v want=18", at)
	}
}

func TestEffectorNeglect(t *testing.T) {
	m, h := newTestMachine(9, 1)
	m.BecomeProliferating(0)
	m.BecomeEffector(0)
	m.aicd.Set(1000)
	m.Maintain(5.9)
	if m.Maturity() != Effector {
		t.Fatalf("maturity=%s want=effector", m.Maturity())
	}
	m.Maintain(6)
	if m.Maturity() != Apoptotic || h.apoptotic[0] != CauseNeglect {
		t.Fatalf("maturity=%s causes=%v", m.Maturity(), h.apoptotic)
	}
}

func TestAICDBeatsNeglect(t *testing.T) {
	m, h := newTestMachine(10, 1)
	m.BecomeProliferating(0)
	m.BecomeEffector(0)
	m.aicd.Set(6)
	m.Maintain(6)
	if len(h.apoptotic) != 1 || h.apoptotic[0] != CauseAICD {
		t.Fatalf("causes=%v want=[aicd]", h.apoptotic)
	}
}

func TestApoptoticEncounterAsksForPhagocytosis(t *testing.T) {
	m, _ := newTestMachine(11, 1)
	m.BecomeApoptotic(0, CauseNeglect)
	out := m.Encounter(1, Partner{Matched: true, Costimulatory: true, Suppression: 1})
	if !out.Phagocytose || out.Effector {
		t.Fatalf("outcome=%+v want phagocytose only", out)
	}
}

func TestSpecificityIsFixed(t *testing.T) {
	m, _ := newTestMachine(12, 0.37)
	m.Encounter(1, Partner{Matched: true, Costimulatory: true, Suppression: 1})
	m.BecomeEffector(2)
	if m.Specificity() != 0.37 {
		t.Fatalf("specificity=%v want=0.37", m.Specificity())
	}
}
