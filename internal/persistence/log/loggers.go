package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"treg2d/internal/sim/world"
)

// JSONLZstdWriter appends JSON lines to zstd files, one file per segment key.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu     sync.Mutex
	curSeg string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Write appends v to the file for segment, rotating when the segment changes.
func (w *JSONLZstdWriter) Write(segment string, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if segment != w.curSeg || w.w == nil {
		if err := w.rotateLocked(segment); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(segment string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.PathFor(segment)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curSeg = segment
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curSeg = ""
	return err1
}

func (w *JSONLZstdWriter) PathFor(segment string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, segment))
}

// Record is one line of the census log.
type Record struct {
	RunID  string       `json:"run_id"`
	Seed   int64        `json:"seed"`
	Final  bool         `json:"final,omitempty"`
	Census world.Census `json:"census"`
}

// CensusLogger writes a census per observer firing, one file per
// segmentHours of simulated time.
type CensusLogger struct {
	w            *JSONLZstdWriter
	runID        string
	segmentHours float64
}

func NewCensusLogger(runDir, runID string, segmentHours float64) *CensusLogger {
	if segmentHours <= 0 {
		segmentHours = 24
	}
	return &CensusLogger{
		w:            NewJSONLZstdWriter(filepath.Join(runDir, "census"), "census"),
		runID:        runID,
		segmentHours: segmentHours,
	}
}

// Segment names the file a census taken at now belongs to.
func (l *CensusLogger) Segment(now float64) string {
	start := math.Floor(now/l.segmentHours) * l.segmentHours
	return fmt.Sprintf("%06d", int64(start))
}

func (l *CensusLogger) Path(now float64) string { return l.w.PathFor(l.Segment(now)) }

func (l *CensusLogger) Observe(v world.View, now float64) error {
	return l.w.Write(l.Segment(now), Record{RunID: l.runID, Seed: v.Seed(), Census: v.Census(now)})
}

// Finish writes the final census and closes the current file.
func (l *CensusLogger) Finish(v world.View, now float64) error {
	err := l.w.Write(l.Segment(now), Record{RunID: l.runID, Seed: v.Seed(), Final: true, Census: v.Census(now)})
	if cerr := l.w.Close(); err == nil {
		err = cerr
	}
	return err
}

func (l *CensusLogger) Close() error { return l.w.Close() }

// ReadRecords decodes every line of one census file.
func ReadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Record
	jd := json.NewDecoder(bufio.NewReaderSize(dec, 128*1024))
	for jd.More() {
		var r Record
		if err := jd.Decode(&r); err != nil {
			return out, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		out = append(out, r)
	}
	return out, nil
}
