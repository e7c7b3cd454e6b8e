package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"0.35", 0.35, false},
		{"0", 0, false},
		{"1", 1, false},
		{"1.5", DefaultThreshold, true},
		{"-0.1", DefaultThreshold, true},
		{"abc", DefaultThreshold, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseThreshold(tt.in)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	n, err := ParseCount("10", 6)
	assert.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = ParseCount("0", 6)
	assert.Error(t, err)
	assert.Equal(t, 6, n)
}

func TestDefaultPaths(t *testing.T) {
	assert.Equal(t, "catalog.db", filepath.Base(GetDefaultDatabasePath()))
	assert.Equal(t, "dinov2-base.onnx", filepath.Base(GetDefaultModelPath()))
}
