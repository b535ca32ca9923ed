package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mfmodell/internal/config"
	"mfmodell/lmfdb"
	"mfmodell/mapcache"
	"mfmodell/output"
	"mfmodell/prof"
	"mfmodell/reduction"
	"mfmodell/report"
	"mfmodell/search"
)

var (
	runLevels   string
	runElls     string
	runWorkers  int
	runFixtures string
	runOutDir   string
	runTag      string
	runMaxAP    int
	runNoCache  bool
	runReport   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sweep (ℓ, k, N) and write reductions",
	Long: `Runs the sweep described by the configuration. Flags override the
corresponding configuration values. For each ℓ two files are written:
mod_<ell>_<tag>.txt with one reduction per line and
mod_<ell>_<tag>_missing.txt listing forms whose Hecke field is unknown.`,
	RunE: runSweep,
}

func init() {
	runCmd.Flags().StringVar(&runLevels, "levels", "", "Levels, e.g. 1..100 or 11,23,37")
	runCmd.Flags().StringVar(&runElls, "ells", "", "Primes ℓ, e.g. 2,3,5")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Worker goroutines (0: configuration or CPU count)")
	runCmd.Flags().StringVar(&runFixtures, "fixtures", "", "Read newforms from a JSON fixture file instead of SQLite")
	runCmd.Flags().StringVar(&runOutDir, "out", "", "Output directory")
	runCmd.Flags().StringVar(&runTag, "tag", "", "Output file tag")
	runCmd.Flags().IntVar(&runMaxAP, "max-ap", -1, "Keep at most this many a_p per line (0: all)")
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "Do not read or write the reduction map cache")
	runCmd.Flags().BoolVar(&runReport, "report", false, "Render the HTML report after the sweep")
}

func applyRunFlags(c *config.Config) {
	if runLevels != "" {
		c.Levels = runLevels
	}
	if runElls != "" {
		c.Ells = runElls
	}
	if runWorkers > 0 {
		c.Workers = runWorkers
	}
	if runFixtures != "" {
		c.Database.Driver = "memory"
		c.Database.Fixtures = runFixtures
	}
	if runOutDir != "" {
		c.Output.Dir = runOutDir
	}
	if runTag != "" {
		c.Output.Tag = runTag
	}
	if runMaxAP >= 0 {
		c.Output.MaxAP = runMaxAP
	}
	if runNoCache {
		c.Cache.Disabled = true
	}
}

// openSource returns the configured newform source and its closer.
func openSource(c *config.Config) (lmfdb.Source, func() error, error) {
	switch c.Database.Driver {
	case "memory":
		fx, err := lmfdb.LoadFixtures(c.Database.Fixtures)
		if err != nil {
			return nil, nil, err
		}
		return lmfdb.NewMemory(fx...), func() error { return nil }, nil
	default:
		db, err := lmfdb.OpenSQLite(c.Database.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	}
}

func runSweep(cmd *cobra.Command, args []string) error {
	applyRunFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	plan, err := cfg.Plan()
	if err != nil {
		return err
	}

	src, closeSrc, err := openSource(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer closeSrc()

	rec := prof.NewRecorder()
	opts := reduction.Options{Recorder: rec, Logger: logger}
	if !cfg.Cache.Disabled {
		cache, err := mapcache.Open(cfg.Cache.Path)
		if err != nil {
			return err
		}
		defer cache.Close()
		opts.Cache = cache
	}
	pipeline := reduction.NewPipeline(src, opts)
	orch := search.New(src, pipeline, search.Options{Logger: logger, Recorder: rec})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	results, err := orch.Run(ctx, plan)
	if err != nil {
		return err
	}

	files := output.Files{Dir: cfg.Output.Dir, Tag: cfg.Output.Tag, MaxAP: cfg.Output.MaxAP, Append: cfg.Output.Append}
	var all []reduction.Record
	failed := 0
	for _, r := range results {
		recPath, defPath, err := files.Write(r.Ell, r.Records, r.Deferred)
		if err != nil {
			return err
		}
		logger.Info("wrote output",
			zap.Uint64("ell", r.Ell),
			zap.String("records", recPath),
			zap.String("missing", defPath))
		all = append(all, r.Records...)
		failed += len(r.Failures)
	}

	if runReport {
		if err := writeReport(cfg.Report.Path, cfg.Report.Title, report.Summarize(all)); err != nil {
			return err
		}
	}
	if failed > 0 {
		logger.Warn("some newforms could not be reduced", zap.Int("failures", failed))
	}
	return nil
}
