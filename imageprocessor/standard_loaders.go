package imageprocessor

import (
	"bytes"
	"fmt"
	"image"

	// Decoders registered with image.Decode for the Go fallback loader
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"gocv.io/x/gocv"
)

// OpenCVLoader decodes through cv::imdecode
type OpenCVLoader struct {
	SupportedFormats []FormatType
}

// NewOpenCVLoader creates a loader for the formats OpenCV decodes natively
func NewOpenCVLoader() *OpenCVLoader {
	return &OpenCVLoader{
		SupportedFormats: []FormatType{FormatJPEG, FormatPNG, FormatBMP, FormatWEBP, FormatTIFF},
	}
}

func (l *OpenCVLoader) Name() string { return "opencv" }

func (l *OpenCVLoader) CanLoad(format FormatType) bool {
	return containsFormat(l.SupportedFormats, format)
}

// LoadImage decodes with IMReadColor, which drops alpha and expands
// grayscale to three channels, then reorders BGR to RGB.
func (l *OpenCVLoader) LoadImage(data []byte) (gocv.Mat, error) {
	bgr, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer bgr.Close()

	if bgr.Empty() {
		return gocv.NewMat(), fmt.Errorf("imdecode returned an empty image")
	}

	rgb := gocv.NewMat()
	gocv.CvtColor(bgr, &rgb, gocv.ColorBGRToRGB)
	return rgb, nil
}

// GoImageLoader decodes with the standard library and x/image decoders
type GoImageLoader struct {
	SupportedFormats []FormatType
}

// NewGoImageLoader creates a loader backed by image.Decode
func NewGoImageLoader() *GoImageLoader {
	return &GoImageLoader{
		SupportedFormats: []FormatType{FormatJPEG, FormatPNG, FormatGIF, FormatBMP, FormatWEBP, FormatTIFF},
	}
}

func (l *GoImageLoader) Name() string { return "go-image" }

func (l *GoImageLoader) CanLoad(format FormatType) bool {
	return containsFormat(l.SupportedFormats, format)
}

func (l *GoImageLoader) LoadImage(data []byte) (gocv.Mat, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.NewMat(), err
	}
	return gocvMatFromGoImage(img)
}

func containsFormat(formats []FormatType, format FormatType) bool {
	for _, f := range formats {
		if f == format {
			return true
		}
	}
	return false
}
