package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultThreshold is the similarity floor used when none is given
const DefaultThreshold = 0.4

// GetDefaultDatabasePath returns the default path for the local catalog database
func GetDefaultDatabasePath() string {
	return besideExecutable("catalog.db")
}

// GetDefaultModelPath returns the default path for the ONNX embedding model
func GetDefaultModelPath() string {
	return besideExecutable(filepath.Join("models", "dinov2-base.onnx"))
}

func besideExecutable(name string) string {
	exePath, err := os.Executable()
	if err != nil {
		// Fallback to current directory if executable path can't be determined
		return name
	}
	return filepath.Join(filepath.Dir(exePath), name)
}

// ParseThreshold parses and validates a similarity threshold in [0,1]
func ParseThreshold(thresholdStr string) (float64, error) {
	parsedThreshold, err := strconv.ParseFloat(thresholdStr, 64)
	if err != nil || parsedThreshold < 0 || parsedThreshold > 1 {
		return DefaultThreshold, fmt.Errorf("invalid threshold value '%s', using default (%.2f)", thresholdStr, DefaultThreshold)
	}
	return parsedThreshold, nil
}

// ParseCount parses a positive result count
func ParseCount(countStr string, def int) (int, error) {
	n, err := strconv.Atoi(countStr)
	if err != nil || n <= 0 {
		return def, fmt.Errorf("invalid count value '%s', using default (%d)", countStr, def)
	}
	return n, nil
}
