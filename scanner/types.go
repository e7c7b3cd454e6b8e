package scanner

import (
	"io"
	"sync"
	"time"
)

// ScanOptions defines the options for indexing a folder
type ScanOptions struct {
	FolderPath   string
	Category     string
	ForceRewrite bool
	MaxWorkers   int       // defaults to signalhandler.GetOptimalProcs()
	Progress     io.Writer // progress and summary output, defaults to stdout
}

// ProcessImageResult holds the result of indexing one image
type ProcessImageResult struct {
	Path    string
	Success bool
	Skipped bool
	Error   error
	IsRaw   bool
	IsHEIC  bool
}

// FileStats tracks information about files to be processed
type FileStats struct {
	totalFiles int
	rawFiles   int
	heicFiles  int
}

// ScanSummary reports what an indexing run did
type ScanSummary struct {
	Total   int
	Indexed int
	Skipped int
	Errors  int
	Elapsed time.Duration
}

// ProgressTracker tracks progress of the scan operation
type ProgressTracker struct {
	processed     int
	skipped       int
	errors        int
	rawProcessed  int
	rawErrors     int
	heicProcessed int
	heicErrors    int
	ticker        *time.Ticker
	done          chan struct{}
	stopped       chan struct{}
	finished      chan struct{}
	mu            sync.Mutex
	out           io.Writer
	totalFiles    int
	rawFiles      int
	heicFiles     int
}
