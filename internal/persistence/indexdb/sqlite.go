package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"treg2d/internal/persistence/snapshot"
	"treg2d/internal/sim/params"
	"treg2d/internal/sim/simerr"
	"treg2d/internal/sim/world"
)

// SQLiteIndex is a secondary, queryable index of runs. Rows are handed to a
// single writer goroutine and dropped when it falls behind; the census logs
// remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropRun      atomic.Uint64
	dropSample   atomic.Uint64
	dropCounter  atomic.Uint64
	dropSnapshot atomic.Uint64
}

type reqKind int

const (
	reqRunStart reqKind = iota + 1
	reqRunEnd
	reqSamples
	reqCounters
	reqSnapshot
)

type req struct {
	kind reqKind

	run      runRow
	samples  []sampleRow
	fields   []fieldRow
	counters []counterRow
	snapshot snapshotRow
}

type runRow struct {
	RunID        string
	Seed         int64
	ParamsDigest string
	ParamsJSON   string
	At           string
	EndTime      float64
	Status       string
	Error        string
}

type sampleRow struct {
	Time        float64
	Compartment string
	Species     string
	Maturity    string
	Count       int
}

type fieldRow struct {
	Time        float64
	Compartment string
	Molecule    string
	Total       float64
}

type counterRow struct {
	Name  string
	Key   string
	Value uint64
}

type snapshotRow struct {
	Path   string
	Time   float64
	Seed   int64
	Agents int
}

// Run statuses recorded in the runs table.
const (
	StatusRunning  = "running"
	StatusFinished = "finished"
	StatusRunaway  = "runaway"
	StatusFailed   = "failed"
)

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			params_digest TEXT NOT NULL,
			params_json TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			end_time REAL,
			status TEXT NOT NULL,
			error TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS samples (
			run_id TEXT NOT NULL,
			time REAL NOT NULL,
			compartment TEXT NOT NULL,
			species TEXT NOT NULL,
			maturity TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (run_id, time, compartment, species, maturity)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_samples_species_time ON samples(run_id, species, time);`,
		`CREATE TABLE IF NOT EXISTS fields (
			run_id TEXT NOT NULL,
			time REAL NOT NULL,
			compartment TEXT NOT NULL,
			molecule TEXT NOT NULL,
			total REAL NOT NULL,
			PRIMARY KEY (run_id, time, compartment, molecule)
		);`,
		`CREATE TABLE IF NOT EXISTS counters (
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			key TEXT NOT NULL,
			value INTEGER NOT NULL,
			PRIMARY KEY (run_id, name, key)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			time REAL NOT NULL,
			seed INTEGER NOT NULL,
			agents INTEGER NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropRunTotal      uint64
	DropSampleTotal   uint64
	DropCounterTotal  uint64
	DropSnapshotTotal uint64
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
		DropRunTotal:      s.dropRun.Load(),
		DropSampleTotal:   s.dropSample.Load(),
		DropCounterTotal:  s.dropCounter.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		drops.Add(1)
	}
}

// Digest is the hex sha256 of the canonical JSON of p.
func Digest(p params.Params) (string, []byte) {
	b, _ := json.Marshal(p)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), b
}

// RecordRun registers a run and returns the observer that indexes it.
func (s *SQLiteIndex) RecordRun(runID string, seed int64, p params.Params) *RunObserver {
	digest, raw := Digest(p)
	s.enqueue(req{kind: reqRunStart, run: runRow{
		RunID:        runID,
		Seed:         seed,
		ParamsDigest: digest,
		ParamsJSON:   string(raw),
		At:           time.Now().UTC().Format(time.RFC3339Nano),
		Status:       StatusRunning,
	}}, &s.dropRun)
	return &RunObserver{idx: s, runID: runID}
}

// RecordSnapshot indexes a snapshot file written for a run.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	agents := 0
	for _, a := range snap.Agents {
		agents += len(a)
	}
	s.enqueue(req{kind: reqSnapshot, run: runRow{RunID: snap.Header.RunID}, snapshot: snapshotRow{
		Path:   path,
		Time:   snap.Header.Time,
		Seed:   snap.Header.Seed,
		Agents: agents,
	}}, &s.dropSnapshot)
}

// RunObserver writes samples for one run. It is a world.Observer and a
// world.Finisher.
type RunObserver struct {
	idx   *SQLiteIndex
	runID string
	endAt float64
}

func (o *RunObserver) Observe(v world.View, now float64) error {
	c := v.Census(now)
	samples, fields := censusRows(c)
	o.idx.enqueue(req{kind: reqSamples, run: runRow{RunID: o.runID}, samples: samples, fields: fields}, &o.idx.dropSample)
	return nil
}

// Finish queues the final counters. The run status is set by End.
func (o *RunObserver) Finish(v world.View, now float64) error {
	o.endAt = now
	o.idx.enqueue(req{kind: reqCounters, run: runRow{RunID: o.runID}, counters: counterRows(v.Counters())}, &o.idx.dropCounter)
	return nil
}

// End records how the run ended, from the error Run returned.
func (o *RunObserver) End(err error) {
	r := runRow{
		RunID:   o.runID,
		At:      time.Now().UTC().Format(time.RFC3339Nano),
		EndTime: o.endAt,
		Status:  StatusFinished,
	}
	var rp *simerr.RunawayPopulationError
	switch {
	case errors.As(err, &rp):
		r.Status = StatusRunaway
		r.Error = err.Error()
	case err != nil:
		r.Status = StatusFailed
		r.Error = err.Error()
	}
	o.idx.enqueue(req{kind: reqRunEnd, run: r}, &o.idx.dropRun)
}

func censusRows(c world.Census) ([]sampleRow, []fieldRow) {
	var samples []sampleRow
	var fields []fieldRow
	for _, cc := range c.Compartments {
		for sp, n := range cc.BySpecies {
			mats, ok := cc.ByMaturity[sp]
			if !ok {
				samples = append(samples, sampleRow{Time: c.Time, Compartment: cc.Name, Species: sp, Maturity: "-", Count: n})
				continue
			}
			for m, k := range mats {
				samples = append(samples, sampleRow{Time: c.Time, Compartment: cc.Name, Species: sp, Maturity: m, Count: k})
			}
		}
		for m, total := range cc.Fields {
			fields = append(fields, fieldRow{Time: c.Time, Compartment: cc.Name, Molecule: m, Total: total})
		}
	}
	return samples, fields
}

// counterRows flattens a counter snapshot into (name, key, value) rows.
func counterRows(c world.CounterSnapshot) []counterRow {
	var rows []counterRow
	add := func(name, key string, v uint64) {
		if v > 0 {
			rows = append(rows, counterRow{Name: name, Key: key, Value: v})
		}
	}
	addMap := func(name string, m map[string]uint64) {
		for k, v := range m {
			add(name, k, v)
		}
	}
	for _, p := range c.Priming {
		add("priming", p.Species+"/"+p.Compartment, p.Count)
	}
	addMap("deaths", c.Deaths)
	addMap("th1_killed", c.Th1Killed)
	addMap("dcm_peptides", c.DCMPeptides)
	addMap("generated", c.Generated)
	for _, m := range c.Migrations {
		add("migrations", m.From+">"+m.To+"/"+m.Species+"/"+m.Result, m.Count)
	}
	add("neurons_killed", "", c.NeuronsKilled)
	add("cns_dc_polarization", "type1", c.CNSDCType1)
	add("cns_dc_polarization", "type2", c.CNSDCType2)
	add("immunization_dcs", "", c.ImmunizationDCs)
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,seed,params_digest,params_json,started_at,status) VALUES(?,?,?,?,?,?)`)
	endRun, _ := s.db.Prepare(`UPDATE runs SET ended_at=?, end_time=?, status=?, error=? WHERE run_id=?`)
	insertSample, _ := s.db.Prepare(`INSERT OR REPLACE INTO samples(run_id,time,compartment,species,maturity,count) VALUES(?,?,?,?,?,?)`)
	insertField, _ := s.db.Prepare(`INSERT OR REPLACE INTO fields(run_id,time,compartment,molecule,total) VALUES(?,?,?,?,?)`)
	insertCounter, _ := s.db.Prepare(`INSERT OR REPLACE INTO counters(run_id,name,key,value) VALUES(?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(run_id,path,time,seed,agents) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, endRun, insertSample, insertField, insertCounter, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}
	exec := func(st *sql.Stmt, args ...any) bool {
		if st == nil {
			return false
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return false
		}
		opCount++
		return true
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		id := r.run.RunID
		switch r.kind {
		case reqRunStart:
			ru := r.run
			exec(insertRun, id, ru.Seed, ru.ParamsDigest, ru.ParamsJSON, ru.At, ru.Status)

		case reqRunEnd:
			ru := r.run
			exec(endRun, ru.At, ru.EndTime, ru.Status, ru.Error, id)

		case reqSamples:
			for _, sm := range r.samples {
				if !exec(insertSample, id, sm.Time, sm.Compartment, sm.Species, sm.Maturity, sm.Count) {
					break
				}
			}
			if tx == nil {
				continue
			}
			for _, f := range r.fields {
				if !exec(insertField, id, f.Time, f.Compartment, f.Molecule, f.Total) {
					break
				}
			}

		case reqCounters:
			for _, c := range r.counters {
				if !exec(insertCounter, id, c.Name, c.Key, int64(c.Value)) {
					break
				}
			}

		case reqSnapshot:
			sn := r.snapshot
			exec(insertSnapshot, id, sn.Path, sn.Time, sn.Seed, sn.Agents)
		}
		flushIfNeeded()
	}

	commit()
}
