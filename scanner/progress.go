package scanner

import (
	"fmt"
	"io"
	"time"

	"productmatcher/logging"
)

// NewProgressTracker starts consuming results and printing progress to out
func NewProgressTracker(stats FileStats, resultsChan <-chan ProcessImageResult, out io.Writer) *ProgressTracker {
	tracker := &ProgressTracker{
		ticker:     time.NewTicker(500 * time.Millisecond),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		finished:   make(chan struct{}),
		out:        out,
		totalFiles: stats.totalFiles,
		rawFiles:   stats.rawFiles,
		heicFiles:  stats.heicFiles,
	}

	go tracker.displayProgress()
	go tracker.processResults(resultsChan)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	defer close(p.stopped)
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.mu.Lock()
			if p.errors > 0 {
				fmt.Fprintf(p.out, "\rProgress: %d/%d (Skipped: %d, Errors: %d)",
					p.processed, p.totalFiles, p.skipped, p.errors)
			} else {
				fmt.Fprintf(p.out, "\rProgress: %d/%d (Skipped: %d)",
					p.processed, p.totalFiles, p.skipped)
			}
			p.mu.Unlock()
		}
	}
}

// processResults updates the tracker state until resultsChan is closed
func (p *ProgressTracker) processResults(resultsChan <-chan ProcessImageResult) {
	defer close(p.finished)

	for result := range resultsChan {
		p.mu.Lock()
		p.processed++

		if result.IsRaw {
			p.rawProcessed++
		}
		if result.IsHEIC {
			p.heicProcessed++
		}

		switch {
		case !result.Success:
			p.errors++
			if result.IsRaw {
				p.rawErrors++
			}
			if result.IsHEIC {
				p.heicErrors++
			}
			if result.Error != nil {
				logging.LogImageProcessed(result.Path, false, result.Error.Error())
			}
		case result.Skipped:
			p.skipped++
		default:
			logging.LogImageProcessed(result.Path, true, "")
		}

		p.mu.Unlock()
	}
}

// Wait blocks until every result has been counted
func (p *ProgressTracker) Wait() {
	<-p.finished
}

// Stop ends the progress display and waits for it to exit
func (p *ProgressTracker) Stop() {
	p.ticker.Stop()
	close(p.done)
	<-p.stopped
}

// Summary returns the counts so far
func (p *ProgressTracker) Summary() ScanSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ScanSummary{
		Total:   p.totalFiles,
		Indexed: p.processed - p.skipped - p.errors,
		Skipped: p.skipped,
		Errors:  p.errors,
	}
}

// PrintStartupInfo displays information about the scan before starting
func PrintStartupInfo(out io.Writer, stats FileStats, options ScanOptions) {
	fmt.Fprintf(out, "Starting catalog indexing...\nTotal image files to process: %d (including %d RAW files and %d HEIC files)\n",
		stats.totalFiles, stats.rawFiles, stats.heicFiles)
	fmt.Fprintf(out, "Force rewrite mode: %v\n", options.ForceRewrite)

	if options.Category != "" {
		fmt.Fprintf(out, "Category: %s\n", options.Category)
	}

	logging.DebugLog("Found %d image files to process (%d RAW files, %d HEIC files)",
		stats.totalFiles, stats.rawFiles, stats.heicFiles)
}

// PrintCompletionStats displays statistics after scan completion
func PrintCompletionStats(out io.Writer, tracker *ProgressTracker, elapsed time.Duration) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()

	logging.DebugLog("Scan completed in %v. Processed: %d, Skipped: %d, Errors: %d, RAW files: %d, RAW errors: %d, HEIC files: %d, HEIC errors: %d",
		elapsed, tracker.processed, tracker.skipped, tracker.errors, tracker.rawProcessed, tracker.rawErrors,
		tracker.heicProcessed, tracker.heicErrors)

	fmt.Fprintln(out, "\nIndexing complete.")
	fmt.Fprintf(out, "Processed %d images in %v (%d unchanged).\n", tracker.processed, elapsed.Round(time.Second), tracker.skipped)

	if tracker.rawProcessed > 0 {
		fmt.Fprintf(out, "Successfully indexed %d/%d RAW image files.\n",
			tracker.rawProcessed-tracker.rawErrors, tracker.rawFiles)
	}

	if tracker.heicProcessed > 0 {
		fmt.Fprintf(out, "Successfully indexed %d/%d HEIC image files.\n",
			tracker.heicProcessed-tracker.heicErrors, tracker.heicFiles)
	}

	if tracker.errors > 0 {
		fmt.Fprintf(out, "Encountered %d errors during indexing.\n", tracker.errors)
		fmt.Fprintln(out, "Check the log file for details.")
	}
}
