package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"treg2d/internal/persistence/archive"
	"treg2d/internal/persistence/indexdb"
	"treg2d/internal/sim/params"
	"treg2d/internal/sim/simerr"
)

func main() {
	var (
		paramsPath = flag.String("params", "configs/params.yaml", "parameter document")
		seed       = flag.Int64("seed", 1, "base seed; replicate i runs with a seed derived from it")
		end        = flag.Float64("end", 1000, "simulated hours to run")
		runs       = flag.Int("runs", 1, "number of replicates")
		parallel   = flag.Int("parallel", 2, "replicates run concurrently")
		dataDir    = flag.String("data", "data/runs", "output directory")

		censusLog    = flag.Bool("census-log", true, "write zstd JSONL census logs per run")
		segmentHours = flag.Float64("segment-hours", 24, "simulated hours per census log file")
		index        = flag.Bool("index", true, "index runs into <data>/index.sqlite")
		writeSnap    = flag.Bool("snapshot", true, "write an end-of-run snapshot per run")
		archiveBatch = flag.Bool("archive", true, "collect the batch's snapshots under <data>/archives")
		verbose      = flag.Bool("v", false, "log kernel start and finish lines")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[treg2d] ", log.LstdFlags|log.Lmicroseconds)

	p, err := params.Load(*paramsPath)
	if err != nil {
		var ce *simerr.ConfigurationError
		if errors.As(err, &ce) {
			logger.Fatalf("configuration: %v", err)
		}
		logger.Fatalf("load params: %v", err)
	}
	if *runs < 1 {
		logger.Fatalf("-runs must be at least 1, got %d", *runs)
	}
	if *parallel < 1 {
		*parallel = 1
	}
	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("create data dir: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var idx *indexdb.SQLiteIndex
	if *index {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index.sqlite"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
	}

	cfg := batchConfig{
		Params:       p,
		BaseSeed:     *seed,
		End:          *end,
		DataDir:      *dataDir,
		CensusLog:    *censusLog,
		SegmentHours: *segmentHours,
		Snapshot:     *writeSnap,
		Index:        idx,
		Logger:       logger,
		KernelLogs:   *verbose,
	}

	batchID := uuid.NewString()
	started := time.Now()
	logger.Printf("batch %s: %d run(s) to t=%.0f, %d in parallel", batchID, *runs, *end, *parallel)

	results := make([]archive.RunMeta, *runs)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*parallel)
	for i := 0; i < *runs; i++ {
		i := i
		g.Go(func() error {
			meta, err := runReplicate(gctx, cfg, i)
			results[i] = meta
			return err
		})
	}
	batchErr := g.Wait()

	runaway, agents := 0, 0
	for _, r := range results {
		if r.Status == indexdb.StatusRunaway {
			runaway++
		}
		agents += r.Agents
	}
	logger.Printf("batch %s done in %s: %d run(s), %d runaway, %s agents at end",
		batchID, time.Since(started).Round(time.Millisecond), len(results), runaway, humanize.Comma(int64(agents)))

	if *archiveBatch && *writeSnap {
		digest, _ := indexdb.Digest(p)
		dir, err := archive.ArchiveBatch(*dataDir, archive.BatchMeta{
			BatchID:      batchID,
			ParamsDigest: digest,
			BaseSeed:     *seed,
			Runs:         completed(results),
		})
		if err != nil {
			logger.Printf("archive: %v", err)
		} else {
			logger.Printf("archived to %s", dir)
		}
	}

	if batchErr != nil {
		logger.Printf("batch failed: %v", batchErr)
	}
	if batchErr != nil || runaway > 0 {
		if idx != nil {
			_ = idx.Close()
		}
		os.Exit(1)
	}
}

// completed drops the slots of replicates that never started.
func completed(results []archive.RunMeta) []archive.RunMeta {
	out := make([]archive.RunMeta, 0, len(results))
	for _, r := range results {
		if r.RunID != "" {
			out = append(out, r)
		}
	}
	return out
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

