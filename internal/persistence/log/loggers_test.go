package log

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"treg2d/internal/sim/params"
	"treg2d/internal/sim/world"
)

func TestCensusLogger_RoundTrip(t *testing.T) {
	p, err := params.Load("../../../configs/params.yaml")
	if err != nil {
		t.Fatalf("load params.yaml: %v", err)
	}
	p.Simulation.ObserverInterval = 1
	s, err := world.New(p, 3)
	if err != nil {
		t.Fatalf("new sim: %v", err)
	}
	dir := t.TempDir()
	l := NewCensusLogger(dir, "run-1", 24)
	if err := s.Run(context.Background(), 30, l); err != nil {
		t.Fatalf("run: %v", err)
	}

	first, err := ReadRecords(l.Path(0))
	if err != nil {
		t.Fatalf("read first segment: %v", err)
	}
	if len(first) != 24 {
		t.Fatalf("first segment records=%d want=24", len(first))
	}
	second, err := ReadRecords(filepath.Join(dir, "census", "census-000024.jsonl.zst"))
	if err != nil {
		t.Fatalf("read second segment: %v", err)
	}
	if len(second) != 8 {
		t.Fatalf("second segment records=%d want=8", len(second))
	}
	last := second[len(second)-1]
	if !last.Final || last.RunID != "run-1" || last.Seed != 3 {
		t.Fatalf("final record=%+v", last)
	}
	if diff := cmp.Diff(s.View().Census(30), last.Census); diff != "" {
		t.Fatalf("final census mismatch (-want +got):\n%s", diff)
	}
	for i, r := range first {
		if r.Census.Time != float64(i) {
			t.Fatalf("record %d time=%v", i, r.Census.Time)
		}
	}
}

func TestJSONLZstdWriter_AppendsWithinSegment(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "census")
	for i := 0; i < 3; i++ {
		if err := w.Write("000000", Record{RunID: "r", Census: world.Census{Time: float64(i)}}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(w.PathFor("000000")); err != nil {
		t.Fatalf("stat: %v", err)
	}
	got, err := ReadRecords(w.PathFor("000000"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 || got[2].Census.Time != 2 {
		t.Fatalf("records=%+v", got)
	}
}
