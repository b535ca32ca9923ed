package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mfmodell/lmfdb"
)

var importCmd = &cobra.Command{
	Use:   "import <fixtures.json>...",
	Short: "Load JSON newform fixtures into the SQLite database",
	Args:  cobra.MinimumNArgs(1),
	RunE:  importFixtures,
}

func importFixtures(cmd *cobra.Command, args []string) error {
	db, err := lmfdb.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, path := range args {
		fx, err := lmfdb.LoadFixtures(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := db.Import(cmd.Context(), fx); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		logger.Info("imported fixtures",
			zap.String("file", path),
			zap.Int("forms", len(fx)),
			zap.String("database", db.Path()))
	}
	return nil
}
