package imageprocessor

import (
	"errors"
	"image"
	"math"

	"productmatcher/types"

	"gocv.io/x/gocv"
)

const (
	// MaxFrameSide bounds both sides of a normalized frame
	MaxFrameSide = 512

	cropMargin   = 0.15
	cropFraction = 0.7
)

// CropRect returns the central region covering 70% of each dimension.
// math.Round rounds half away from zero.
func CropRect(width, height int) image.Rectangle {
	left := int(math.Round(cropMargin * float64(width)))
	top := int(math.Round(cropMargin * float64(height)))
	w := int(math.Round(cropFraction * float64(width)))
	h := int(math.Round(cropFraction * float64(height)))

	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if left+w > width {
		left = width - w
	}
	if top+h > height {
		top = height - h
	}

	return image.Rect(left, top, left+w, top+h)
}

// FitSize scales (w, h) so the larger side becomes MaxFrameSide, keeping aspect ratio
func FitSize(w, h int) image.Point {
	if w >= h {
		nh := int(math.Round(float64(h) * MaxFrameSide / float64(w)))
		if nh < 1 {
			nh = 1
		}
		return image.Point{X: MaxFrameSide, Y: nh}
	}
	nw := int(math.Round(float64(w) * MaxFrameSide / float64(h)))
	if nw < 1 {
		nw = 1
	}
	return image.Point{X: nw, Y: MaxFrameSide}
}

// NormalizeFrame center-crops grid and resizes the crop to fit inside a
// 512x512 box without padding. The caller owns the returned Mat.
func NormalizeFrame(grid gocv.Mat) (gocv.Mat, error) {
	if grid.Empty() || grid.Cols() == 0 || grid.Rows() == 0 {
		return gocv.NewMat(), types.DecodeError("normalize", errors.New("image has zero dimension"))
	}

	rect := CropRect(grid.Cols(), grid.Rows())
	crop := grid.Region(rect)
	defer crop.Close()

	size := FitSize(rect.Dx(), rect.Dy())
	interpolation := gocv.InterpolationArea
	if size.X > rect.Dx() {
		interpolation = gocv.InterpolationCubic
	}

	frame := gocv.NewMat()
	gocv.Resize(crop, &frame, size, 0, 0, interpolation)
	return frame, nil
}
