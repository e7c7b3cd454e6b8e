package imageprocessor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// fillFunc returns the color of pixel (x, y)
type fillFunc func(x, y int) color.RGBA

func solid(c color.RGBA) fillFunc {
	return func(int, int) color.RGBA { return c }
}

// newGrid builds an RGB Mat of the given size
func newGrid(t *testing.T, w, h int, fill fillFunc) gocv.Mat {
	t.Helper()
	pix := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := fill(x, y)
			pix = append(pix, c.R, c.G, c.B)
		}
	}
	m, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, pix)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

// encodePNG renders fill into PNG bytes
func encodePNG(t *testing.T, w, h int, fill fillFunc) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
	red   = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	green = color.RGBA{R: 30, G: 200, B: 30, A: 255}
	blue  = color.RGBA{R: 30, G: 30, B: 200, A: 255}
	gray  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)
