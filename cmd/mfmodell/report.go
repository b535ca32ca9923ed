package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mfmodell/output"
	"mfmodell/reduction"
	"mfmodell/report"
)

var reportCmd = &cobra.Command{
	Use:   "report [record files...]",
	Short: "Render an HTML chart of reduction multiplicities",
	Long: `Reads record files written by "run" and renders bar charts of the
number of reductions and their multiplicities per ℓ. Without arguments
every mod_*_<tag>.txt file in the output directory is read.`,
	RunE: renderReport,
}

func renderReport(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		var err error
		paths, err = filepath.Glob(filepath.Join(cfg.Output.Dir, fmt.Sprintf("mod_*_%s.txt", cfg.Output.Tag)))
		if err != nil {
			return err
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no record files found in %s", cfg.Output.Dir)
	}
	var all []reduction.Record
	for _, p := range paths {
		recs, err := output.ReadRecordFile(p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		all = append(all, recs...)
	}
	return writeReport(cfg.Report.Path, cfg.Report.Title, report.Summarize(all))
}

func writeReport(path, title string, sums []report.Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.Render(f, title, sums); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("wrote report", zap.String("path", path), zap.Int("ells", len(sums)))
	return nil
}
