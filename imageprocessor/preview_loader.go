package imageprocessor

import (
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"productmatcher/logging"

	"github.com/barasher/go-exiftool"
	"gocv.io/x/gocv"
)

// Embedded preview tags, largest first
var previewTags = []string{
	"LargestImagePreview",
	"PreviewImage",
	"JpgFromRaw",
	"OtherImage",
	"ThumbnailImage",
}

// ExiftoolPreviewLoader extracts the embedded JPEG preview from containers
// OpenCV cannot read (camera RAW, HEIC) and decodes that instead.
type ExiftoolPreviewLoader struct {
	TempDir string
}

// NewExiftoolPreviewLoader creates a preview loader using the system temp dir
func NewExiftoolPreviewLoader() *ExiftoolPreviewLoader {
	return &ExiftoolPreviewLoader{TempDir: os.TempDir()}
}

func (l *ExiftoolPreviewLoader) Name() string { return "exiftool-preview" }

func (l *ExiftoolPreviewLoader) CanLoad(format FormatType) bool {
	return format == FormatHEIC || format == FormatRAW || format == FormatTIFF
}

func (l *ExiftoolPreviewLoader) LoadImage(data []byte) (gocv.Mat, error) {
	// exiftool reads from files, so stage the upload in a temp file
	tmp, err := os.CreateTemp(l.TempDir, "upload_*.bin")
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return gocv.NewMat(), fmt.Errorf("failed to write temp file: %w", err)
	}
	tmp.Close()

	et, err := exiftool.NewExiftool(exiftool.ExtractAllBinaryMetadata())
	if err != nil {
		logging.LogError("Failed to initialize exiftool: %v", err)
		return gocv.NewMat(), err
	}
	defer et.Close()

	fileInfos := et.ExtractMetadata(tmp.Name())
	if len(fileInfos) == 0 {
		return gocv.NewMat(), fmt.Errorf("no metadata extracted")
	}
	fileInfo := fileInfos[0]
	if fileInfo.Err != nil {
		return gocv.NewMat(), fileInfo.Err
	}

	if camera, err := fileInfo.GetString("Make"); err == nil {
		model, _ := fileInfo.GetString("Model")
		logging.DebugLog("Upload taken with %s %s", camera, model)
	}

	for _, tag := range previewTags {
		preview, ok := binaryField(fileInfo, tag)
		if !ok {
			continue
		}
		img, err := NewOpenCVLoader().LoadImage(preview)
		if err == nil && !img.Empty() {
			logging.DebugLog("Decoded embedded %s (%d bytes)", tag, len(preview))
			return img, nil
		}
		img.Close()
	}

	return gocv.NewMat(), fmt.Errorf("no decodable embedded preview found")
}

// binaryField returns the bytes of a binary tag exported as "base64:..."
func binaryField(fm exiftool.FileMetadata, tag string) ([]byte, bool) {
	raw, err := fm.GetString(tag)
	if err != nil || !strings.HasPrefix(raw, "base64:") {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(raw, "base64:"))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

// checkExiftoolCommandAvailable checks if exiftool is available on the system
func checkExiftoolCommandAvailable() bool {
	_, err := exec.LookPath("exiftool")
	return err == nil
}
