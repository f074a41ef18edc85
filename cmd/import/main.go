// Package main loads Rebrickable CSV dumps into the reference catalog and
// rebuilds the set search index.
//
// Usage:
//
//	CATALOG_CSV_DIR=~/rebrickable go run ./cmd/import
//	go run ./cmd/import -catalog-csv-dir ~/rebrickable -data-path ~/brickcomplete
//
// Run it while the server is stopped; a running server holds the search index.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brickcomplete/brickcomplete-server/internal/config"
	"github.com/brickcomplete/brickcomplete-server/internal/importer"
	"github.com/brickcomplete/brickcomplete-server/internal/logger"
	"github.com/brickcomplete/brickcomplete-server/internal/search"
	"github.com/brickcomplete/brickcomplete-server/internal/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.Catalog.CSVDir == "" {
		return fmt.Errorf("CATALOG_CSV_DIR is required")
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := sqlite.Open(cfg.Catalog.DBPath, log.Logger)
	if err != nil {
		return err
	}
	defer catalog.Close()

	fmt.Printf("Importing %s into %s\n\n", cfg.Catalog.CSVDir, cfg.Catalog.DBPath)

	report, err := importer.New(catalog, log.Logger).ImportDir(ctx, cfg.Catalog.CSVDir)
	for _, t := range report.Tables {
		if t.Skipped {
			fmt.Printf("  %-20s skipped (no dump)\n", t.Table)
			continue
		}
		fmt.Printf("  %-20s %9d rows  %s\n", t.Table, t.Rows, t.Duration.Round(time.Millisecond))
	}
	if err != nil {
		return err
	}
	fmt.Printf("\nTotal: %d rows\n", report.Rows())

	sets, err := catalog.ListSets(ctx)
	if err != nil {
		return fmt.Errorf("list sets: %w", err)
	}

	index, err := search.NewSetIndex(search.Options{
		DataPath: cfg.Data.SearchPath(),
		Logger:   log.Logger,
	})
	if err != nil {
		return fmt.Errorf("open search index: %w", err)
	}
	defer index.Close()

	if err := index.Reindex(ctx, sets); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	fmt.Printf("Indexed %d sets\n", len(sets))

	return nil
}
