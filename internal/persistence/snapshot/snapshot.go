package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"treg2d/internal/sim/params"
	"treg2d/internal/sim/world"
)

const Version = 1

type Header struct {
	Version int     `json:"version"`
	RunID   string  `json:"run_id"`
	Seed    int64   `json:"seed"`
	Time    float64 `json:"time"`
}

// SnapshotV1 is the end-of-run record of one replicate. It is written for
// offline analysis; nothing resumes from it.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Params params.Params `json:"params"`
	Census world.Census  `json:"census"`

	// Agents lists every agent per compartment name.
	Agents map[string][]world.AgentInfo `json:"agents"`
}

// Capture builds a snapshot from a kernel view.
func Capture(runID string, p params.Params, v world.View, now float64) SnapshotV1 {
	snap := SnapshotV1{
		Header: Header{Version: Version, RunID: runID, Seed: v.Seed(), Time: now},
		Params: p,
		Census: v.Census(now),
		Agents: map[string][]world.AgentInfo{},
	}
	for _, name := range v.Compartments() {
		snap.Agents[name] = v.Agents(name)
	}
	return snap
}

func WriteCensus(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := json.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// ReadHeader decodes only the leading header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	err := read(path, func(br *bufio.Reader) error {
		line, err := br.ReadBytes('\n')
		if err != nil {
			return err
		}
		return json.Unmarshal(line, &h)
	})
	return h, err
}

func ReadCensus(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	err := read(path, func(br *bufio.Reader) error {
		// The header is repeated inside the body.
		if _, err := br.ReadBytes('\n'); err != nil {
			return err
		}
		if err := json.NewDecoder(br).Decode(&snap); err != nil {
			return fmt.Errorf("json decode: %w", err)
		}
		return nil
	})
	if err == nil && snap.Header.Version != Version {
		err = fmt.Errorf("snapshot version %d not supported", snap.Header.Version)
	}
	return snap, err
}

func read(path string, fn func(*bufio.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()
	return fn(bufio.NewReaderSize(dec, 256*1024))
}

// Writer is a run observer that writes the snapshot when the run finishes.
type Writer struct {
	Path   string
	RunID  string
	Params params.Params
	// Written, if set, is called after the file is on disk.
	Written func(path string, snap SnapshotV1)
}

func (w *Writer) Observe(world.View, float64) error { return nil }

func (w *Writer) Finish(v world.View, now float64) error {
	snap := Capture(w.RunID, w.Params, v, now)
	if err := WriteCensus(w.Path, snap); err != nil {
		return err
	}
	if w.Written != nil {
		w.Written(w.Path, snap)
	}
	return nil
}
