// Package scanner indexes a folder of product photos into the local catalog.
package scanner

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"productmatcher/database"
	"productmatcher/imageprocessor"
	"productmatcher/logging"
	"productmatcher/pipeline"
	"productmatcher/signalhandler"
	"productmatcher/types"
)

// Analyzer computes colors and an embedding for an image
type Analyzer interface {
	Analyze(ctx context.Context, raw types.RawImage) (*pipeline.Analysis, error)
}

// ScanAndStoreFolder indexes every image under options.FolderPath. Files
// whose stored modification time is current are skipped unless ForceRewrite
// is set. Cancelling ctx stops dispatching new files; in-flight files finish.
func ScanAndStoreFolder(ctx context.Context, db *sql.DB, analyzer Analyzer, options ScanOptions) (*ScanSummary, error) {
	out := options.Progress
	if out == nil {
		out = os.Stdout
	}
	workers := options.MaxWorkers
	if workers <= 0 {
		workers = signalhandler.GetOptimalProcs()
	}

	logging.DebugLog("Starting image scan on folder: %s", options.FolderPath)
	files, fileStats, err := collectImageFiles(options.FolderPath)
	if err != nil {
		return nil, fmt.Errorf("cannot scan folder %s: %w", options.FolderPath, err)
	}

	PrintStartupInfo(out, fileStats, options)

	var wg sync.WaitGroup
	resultsChan := make(chan ProcessImageResult, 100)
	semaphore := make(chan struct{}, workers)

	tracker := NewProgressTracker(fileStats, resultsChan, out)
	startTime := time.Now()

dispatch:
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			resultsChan <- processAndStoreImage(ctx, db, analyzer, p, options)
		}(path)
	}

	wg.Wait()
	close(resultsChan)
	tracker.Wait()
	tracker.Stop()

	elapsed := time.Since(startTime)
	PrintCompletionStats(out, tracker, elapsed)

	summary := tracker.Summary()
	summary.Elapsed = elapsed
	if err := ctx.Err(); err != nil {
		return &summary, fmt.Errorf("indexing interrupted: %w", err)
	}
	return &summary, nil
}

// processAndStoreImage analyzes a single image and stores it in the catalog
func processAndStoreImage(ctx context.Context, db *sql.DB, analyzer Analyzer, path string, options ScanOptions) (result ProcessImageResult) {
	format := imageprocessor.GetFileFormat(path)
	result = ProcessImageResult{
		Path:   path,
		IsRaw:  format == imageprocessor.FormatRAW,
		IsHEIC: format == imageprocessor.FormatHEIC,
	}

	// OpenCV and exiftool run through cgo and subprocesses; one bad file must not end the run
	defer func() {
		if r := recover(); r != nil {
			stackTrace := debug.Stack()
			result.Success = false
			result.Error = fmt.Errorf("panic while indexing: %v", r)
			logging.LogError("Panic while indexing %s: %v\nStack trace: %s", path, r, string(stackTrace))
		}
	}()

	absPath, err := filepath.Abs(path)
	if err != nil {
		result.Error = fmt.Errorf("cannot resolve path %s: %w", path, err)
		return result
	}

	fileInfo, err := os.Stat(absPath)
	if err != nil {
		result.Error = fmt.Errorf("cannot stat file %s: %w", path, err)
		return result
	}

	exists, unchanged, err := checkUnchanged(ctx, db, absPath, fileInfo)
	if err != nil {
		result.Error = err
		return result
	}
	if unchanged && !options.ForceRewrite {
		result.Success = true
		result.Skipped = true
		return result
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		result.Error = fmt.Errorf("cannot read file %s: %w", path, err)
		return result
	}

	analysis, err := analyzer.Analyze(ctx, types.RawImage{Data: data, Encoding: string(format)})
	if err != nil {
		result.Error = fmt.Errorf("failed to analyze image %s: %w", path, err)
		return result
	}

	product := types.Product{
		Name:       productName(absPath),
		Category:   options.Category,
		ImagePath:  absPath,
		Colors:     analysis.Colors,
		Embedding:  analysis.Embedding,
		ModifiedAt: fileInfo.ModTime().Format(time.RFC3339Nano),
	}

	// A changed file replaces its stale row
	if err := database.StoreProduct(ctx, db, product, options.ForceRewrite || exists); err != nil {
		result.Error = fmt.Errorf("cannot store data for %s: %w", path, err)
		return result
	}

	logging.DebugLog("Indexed %s (%dx%d, colors %v)", path, analysis.Width, analysis.Height, analysis.Colors)
	result.Success = true
	return result
}
