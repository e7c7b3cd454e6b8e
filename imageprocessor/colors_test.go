package imageprocessor

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileColors_OrderedByFrequency(t *testing.T) {
	// 100x100 downsamples 2:1 to the 50x50 sample grid, so even-aligned
	// regions keep their exact colors
	grid := newGrid(t, 100, 100, func(x, y int) color.RGBA {
		switch {
		case x < 50:
			return red // 1250 samples
		case y < 50:
			return green // 625 samples
		case y < 80:
			return blue // 375 samples
		case y < 90:
			return gray // 125 samples
		default:
			return white
		}
	})

	profile := ProfileColors(grid)
	assert.Equal(t, []string{"#c81e1e", "#1ec81e", "#1e1ec8"}, []string(profile))
}

func TestProfileColors_ExcludesBackground(t *testing.T) {
	almostWhite := color.RGBA{R: 245, G: 250, B: 241, A: 255}
	almostBlack := color.RGBA{R: 3, G: 14, B: 0, A: 255}
	// One channel outside the band keeps the pixel
	offWhite := color.RGBA{R: 245, G: 250, B: 200, A: 255}

	grid := newGrid(t, 100, 100, func(x, y int) color.RGBA {
		switch {
		case y < 40:
			return almostWhite
		case y < 80:
			return almostBlack
		default:
			return offWhite
		}
	})

	profile := ProfileColors(grid)
	assert.Equal(t, []string{"#f5fac8"}, []string(profile))
	assert.NotContains(t, profile, "#f5faf1")
	assert.NotContains(t, profile, "#030e00")
}

func TestProfileColors_BackgroundOnlyIsEmpty(t *testing.T) {
	for name, c := range map[string]color.RGBA{"white": white, "black": black} {
		t.Run(name, func(t *testing.T) {
			profile := ProfileColors(newGrid(t, 64, 48, solid(c)))
			assert.NotNil(t, profile)
			assert.Empty(t, profile)
		})
	}
}

func TestProfileColors_TiesKeepFirstSeenOrder(t *testing.T) {
	topRed := newGrid(t, 100, 100, func(x, y int) color.RGBA {
		if y < 50 {
			return red
		}
		return blue
	})
	topBlue := newGrid(t, 100, 100, func(x, y int) color.RGBA {
		if y < 50 {
			return blue
		}
		return red
	})

	assert.Equal(t, []string{"#c81e1e", "#1e1ec8"}, []string(ProfileColors(topRed)))
	assert.Equal(t, []string{"#1e1ec8", "#c81e1e"}, []string(ProfileColors(topBlue)))
}

func TestProfileColors_Deterministic(t *testing.T) {
	grid := newGrid(t, 333, 211, func(x, y int) color.RGBA {
		return color.RGBA{R: uint8(x * 7), G: uint8(y * 3), B: uint8(x ^ y), A: 255}
	})

	first := ProfileColors(grid)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ProfileColors(grid))
	}
	assert.LessOrEqual(t, len(first), MaxColors)
}

func TestHexColor(t *testing.T) {
	assert.Equal(t, "#000000", HexColor(0))
	assert.Equal(t, "#0a0b0c", HexColor(0x0a0b0c))
	assert.Equal(t, "#ffffff", HexColor(0xffffff))
}
