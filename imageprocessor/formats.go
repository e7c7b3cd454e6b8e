package imageprocessor

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strings"
)

// FormatType represents a known image format type
type FormatType string

// Known image format constants
const (
	FormatUnknown FormatType = "unknown"
	FormatJPEG    FormatType = "jpeg"
	FormatPNG     FormatType = "png"
	FormatGIF     FormatType = "gif"
	FormatTIFF    FormatType = "tiff"
	FormatBMP     FormatType = "bmp"
	FormatWEBP    FormatType = "webp"
	FormatHEIC    FormatType = "heic"
	FormatRAW     FormatType = "raw"
)

// Map of extensions to format types
var formatExtensions = map[string]FormatType{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".gif":  FormatGIF,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".bmp":  FormatBMP,
	".webp": FormatWEBP,
	".heic": FormatHEIC,
	".heif": FormatHEIC,

	// RAW formats only ever decode through their embedded preview
	".dng": FormatRAW,
	".cr2": FormatRAW,
	".cr3": FormatRAW,
	".nef": FormatRAW,
	".arw": FormatRAW,
	".raf": FormatRAW,
}

// Map of MIME subtypes (as found in data URIs) to format types
var mimeSubtypes = map[string]FormatType{
	"jpeg":     FormatJPEG,
	"jpg":      FormatJPEG,
	"pjpeg":    FormatJPEG,
	"png":      FormatPNG,
	"gif":      FormatGIF,
	"tiff":     FormatTIFF,
	"bmp":      FormatBMP,
	"x-ms-bmp": FormatBMP,
	"webp":     FormatWEBP,
	"heic":     FormatHEIC,
	"heif":     FormatHEIC,
	"raw":      FormatRAW,
}

// IsImageFile checks if a file is a supported image based on extension
func IsImageFile(path string) bool {
	_, supported := formatExtensions[strings.ToLower(filepath.Ext(path))]
	return supported
}

// GetFileFormat returns the format type based on file extension
func GetFileFormat(path string) FormatType {
	format, exists := formatExtensions[strings.ToLower(filepath.Ext(path))]
	if !exists {
		return FormatUnknown
	}
	return format
}

// ParseFormat maps a declared encoding ("png", "image/png", "jpg") to a FormatType
func ParseFormat(declared string) FormatType {
	declared = strings.ToLower(strings.TrimSpace(declared))
	declared = strings.TrimPrefix(declared, "image/")
	if format, ok := mimeSubtypes[declared]; ok {
		return format
	}
	return FormatUnknown
}

// SniffFormat inspects the leading bytes of data
func SniffFormat(data []byte) FormatType {
	switch {
	case len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) &&
		(bytes.HasPrefix(data[8:12], []byte("heic")) || bytes.HasPrefix(data[8:12], []byte("heix")) ||
			bytes.HasPrefix(data[8:12], []byte("mif1"))):
		return FormatHEIC
	case len(data) >= 4 && (bytes.HasPrefix(data, []byte("II*\x00")) || bytes.HasPrefix(data, []byte("MM\x00*"))):
		return FormatTIFF
	}

	contentType := http.DetectContentType(data)
	return ParseFormat(strings.SplitN(contentType, ";", 2)[0])
}

// ParseDataURI splits an optional "data:image/<type>;base64," header from
// the base64 payload. It returns the payload and the declared MIME type
// (empty when there is no header).
func ParseDataURI(s string) (payload string, mimeType string) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		// Anything before a comma is treated as a header, as browsers produce
		if i := strings.IndexByte(s, ','); i >= 0 {
			return s[i+1:], ""
		}
		return s, ""
	}

	i := strings.IndexByte(s, ',')
	if i < 0 {
		return "", ""
	}
	header := s[len("data:"):i]
	mimeType = strings.SplitN(header, ";", 2)[0]
	return s[i+1:], mimeType
}
