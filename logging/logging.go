package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

var (
	logger    = log.New(os.Stderr, "", log.LstdFlags)
	output    io.Writer = os.Stderr
	logFile   *os.File
	debugMode bool
	mu        sync.Mutex
)

// SetupLogger mirrors all log output into the specified log file
func SetupLogger(logFilePath string) error {
	mu.Lock()
	defer mu.Unlock()

	// Check if a file is already attached
	if logFile != nil {
		return nil
	}

	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	logFile = f
	logger.SetOutput(io.MultiWriter(output, logFile))

	logger.Printf("--- ProductMatcher Log Started at %s ---", time.Now().Format(time.RFC3339))
	return nil
}

// CloseLogger detaches and closes the log file
func CloseLogger() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logger.Printf("--- ProductMatcher Log Closed at %s ---", time.Now().Format(time.RFC3339))
		logFile.Close()
		logFile = nil
		logger.SetOutput(output)
	}
}

// SetOutput replaces the console writer. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	output = w
	if logFile != nil {
		logger.SetOutput(io.MultiWriter(output, logFile))
	} else {
		logger.SetOutput(output)
	}
}

// SetDebug enables or disables DebugLog output
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	debugMode = enabled
}

// IsDebug reports whether debug logging is enabled
func IsDebug() bool {
	mu.Lock()
	defer mu.Unlock()
	return debugMode
}

// LogInfo logs an information message
func LogInfo(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	logger.Printf("INFO: "+format, args...)
}

// DebugLog logs a message if debug mode is enabled
func DebugLog(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if debugMode {
		logger.Printf("DEBUG: "+format, args...)
	}
}

// LogError logs an error message
func LogError(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	logger.Printf("ERROR: "+format, args...)
}

// LogWarning logs a warning message
func LogWarning(format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	logger.Printf("WARNING: "+format, args...)
}

// LogImageProcessed logs when a catalog image is indexed
func LogImageProcessed(path string, success bool, errMsg string) {
	if success {
		DebugLog("INDEXED: %s", path)
	} else {
		LogWarning("FAILED: %s - Error: %s", path, errMsg)
	}
}
