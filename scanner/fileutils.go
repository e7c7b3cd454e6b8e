package scanner

import (
	"io/fs"
	"path/filepath"
	"strings"

	"productmatcher/imageprocessor"
	"productmatcher/logging"
)

// collectImageFiles walks root and returns the image files beneath it in walk order
func collectImageFiles(root string) ([]string, FileStats, error) {
	var (
		files []string
		stats FileStats
	)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logging.LogError("Error accessing path %s: %v", path, err)
			return nil
		}
		if d.IsDir() || !imageprocessor.IsImageFile(path) {
			return nil
		}

		files = append(files, path)
		stats.totalFiles++
		switch imageprocessor.GetFileFormat(path) {
		case imageprocessor.FormatRAW:
			stats.rawFiles++
		case imageprocessor.FormatHEIC:
			stats.heicFiles++
		}
		return nil
	})

	return files, stats, err
}

// productName derives a display name from a file name: "red_canvas-sneaker.jpg" -> "red canvas sneaker"
func productName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return base
	}
	return name
}
