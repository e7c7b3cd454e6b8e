package imageprocessor

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// gocvMatFromGoImage converts a Go image to a 3-channel RGB Mat, dropping alpha
func gocvMatFromGoImage(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return gocv.NewMat(), fmt.Errorf("image has zero dimension %dx%d", width, height)
	}

	pix := make([]byte, 0, width*height*3)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			// Convert from 0-65535 to 0-255
			pix = append(pix, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}

	return gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, pix)
}

// rgbBytes returns the packed RGB bytes of a 3-channel Mat
func rgbBytes(m gocv.Mat) []byte {
	if m.IsContinuous() {
		return m.ToBytes()
	}
	clone := m.Clone()
	defer clone.Close()
	return clone.ToBytes()
}
