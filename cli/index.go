package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"productmatcher/database"
	"productmatcher/pipeline"
	"productmatcher/scanner"
)

var indexOpts struct {
	folder   string
	category string
	force    bool
	workers  int
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index a folder of product photos into the local catalog",
	Args:  cobra.NoArgs,
	RunE:  runIndex,
}

func init() {
	f := indexCmd.Flags()
	f.StringVar(&indexOpts.folder, "folder", "", "folder of product photos (required)")
	f.StringVar(&indexOpts.category, "category", "", "category stored with every indexed product")
	f.BoolVar(&indexOpts.force, "force", false, "re-index files even when unchanged")
	f.IntVar(&indexOpts.workers, "workers", 0, "concurrent images (default: 3/4 of CPUs)")
	_ = indexCmd.MarkFlagRequired("folder")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	folderInfo, err := os.Stat(indexOpts.folder)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("folder path does not exist: %s", indexOpts.folder)
		}
		return fmt.Errorf("cannot access folder path: %s (%w)", indexOpts.folder, err)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", indexOpts.folder)
	}

	dbPath := cfg.Catalog.DatabasePath
	lock := flock.New(dbPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("cannot acquire catalog lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another indexer is running (lock: %s)", lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	db, err := openCatalogDB(dbPath, true)
	if err != nil {
		return err
	}
	defer db.Close()

	e, err := startEngineAndWait(ctx, cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	startTime := time.Now()
	summary, err := scanner.ScanAndStoreFolder(ctx, db, pipeline.New(nil, e, nil), scanner.ScanOptions{
		FolderPath:   indexOpts.folder,
		Category:     indexOpts.category,
		ForceRewrite: indexOpts.force,
		MaxWorkers:   indexOpts.workers,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nScan completed successfully!\n")
	fmt.Printf("Total execution time: %v\n", time.Since(startTime))
	fmt.Printf("Database: %s\n", dbPath)

	stats, err := database.GetCatalogStats(ctx, db)
	if err == nil {
		fmt.Printf("\nSummary:\n")
		fmt.Printf("- Indexed this run: %d (unchanged: %d, errors: %d)\n", summary.Indexed, summary.Skipped, summary.Errors)
		fmt.Printf("- Products in catalog: %d\n", stats.TotalProducts)
	}
	return nil
}
