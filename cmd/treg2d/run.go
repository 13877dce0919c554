package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"treg2d/internal/persistence/archive"
	"treg2d/internal/persistence/indexdb"
	persistlog "treg2d/internal/persistence/log"
	"treg2d/internal/persistence/snapshot"
	"treg2d/internal/sim/mathx"
	"treg2d/internal/sim/params"
	"treg2d/internal/sim/simerr"
	"treg2d/internal/sim/world"
)

type batchConfig struct {
	Params       params.Params
	BaseSeed     int64
	End          float64
	DataDir      string
	CensusLog    bool
	SegmentHours float64
	Snapshot     bool
	Index        *indexdb.SQLiteIndex
	Logger       *log.Logger
	KernelLogs   bool
}

// runReplicate runs replicate i to completion. A runaway population is
// reported in the returned meta rather than as an error so the rest of the
// batch keeps going.
func runReplicate(ctx context.Context, cfg batchConfig, i int) (archive.RunMeta, error) {
	meta := archive.RunMeta{
		Index:  i,
		RunID:  uuid.NewString(),
		Seed:   mathx.SeedFor(cfg.BaseSeed, i),
		Status: indexdb.StatusRunning,
	}
	runDir := filepath.Join(cfg.DataDir, meta.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		meta.Status, meta.Error = indexdb.StatusFailed, err.Error()
		return meta, err
	}

	kernelLog := log.New(io.Discard, "", 0)
	if cfg.KernelLogs {
		kernelLog = log.New(cfg.Logger.Writer(), fmt.Sprintf("[treg2d run %03d] ", i), cfg.Logger.Flags())
	}
	sim, err := world.New(cfg.Params, meta.Seed, world.WithLogger(kernelLog))
	if err != nil {
		meta.Status, meta.Error = indexdb.StatusFailed, err.Error()
		return meta, err
	}

	var observers []world.Observer
	if cfg.CensusLog {
		cl := persistlog.NewCensusLogger(runDir, meta.RunID, cfg.SegmentHours)
		defer cl.Close()
		observers = append(observers, cl)
	}
	var rec *indexdb.RunObserver
	if cfg.Index != nil {
		rec = cfg.Index.RecordRun(meta.RunID, meta.Seed, cfg.Params)
		observers = append(observers, rec)
	}
	if cfg.Snapshot {
		written := func(path string, snap snapshot.SnapshotV1) {
			meta.Snapshot = path
			if cfg.Index != nil {
				cfg.Index.RecordSnapshot(path, snap)
			}
		}
		observers = append(observers, &snapshot.Writer{
			Path:    filepath.Join(runDir, "final.snap.zst"),
			RunID:   meta.RunID,
			Params:  cfg.Params,
			Written: written,
		})
	}

	err = sim.Run(ctx, cfg.End, observers...)
	if rec != nil {
		rec.End(err)
	}
	meta.EndTime = sim.Now()
	meta.Agents = sim.Total()

	var runaway *simerr.RunawayPopulationError
	switch {
	case err == nil:
		meta.Status = indexdb.StatusFinished
		cfg.Logger.Printf("run %03d (%s, seed %d) finished at t=%.2f with %d agents", i, meta.RunID, meta.Seed, meta.EndTime, meta.Agents)
		return meta, nil
	case errors.As(err, &runaway):
		meta.Status, meta.Error = indexdb.StatusRunaway, err.Error()
		cfg.Logger.Printf("run %03d (%s, seed %d) runaway: %v", i, meta.RunID, meta.Seed, err)
		return meta, nil
	default:
		meta.Status, meta.Error = indexdb.StatusFailed, err.Error()
		return meta, fmt.Errorf("run %03d: %w", i, err)
	}
}
