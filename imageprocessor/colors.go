package imageprocessor

import (
	"fmt"
	"image"
	"sort"

	"productmatcher/types"

	"gocv.io/x/gocv"
)

const (
	// ColorSampleSize is the side of the square grid colors are counted on
	ColorSampleSize = 50
	// MaxColors is the length cap of a ColorProfile
	MaxColors = 3

	nearWhite = 240
	nearBlack = 15
)

// colorCount is one entry of the counting table
type colorCount struct {
	rgb   uint32
	count int
}

// ProfileColors returns up to MaxColors dominant colors of an RGB grid,
// most frequent first. Near-white and near-black pixels are background
// and never counted. Ties keep first-seen order. An image made only of
// background pixels yields an empty profile.
func ProfileColors(grid gocv.Mat) types.ColorProfile {
	if grid.Empty() {
		return types.ColorProfile{}
	}

	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(grid, &small, image.Point{X: ColorSampleSize, Y: ColorSampleSize}, 0, 0, gocv.InterpolationArea)

	pix := rgbBytes(small)

	// Index into the table by packed 24-bit color; the table never exceeds the sample size
	index := make(map[uint32]int, ColorSampleSize*ColorSampleSize)
	table := make([]colorCount, 0, ColorSampleSize*ColorSampleSize)

	for i := 0; i+2 < len(pix); i += 3 {
		r, g, b := pix[i], pix[i+1], pix[i+2]
		if isBackground(r, g, b) {
			continue
		}
		key := uint32(r)<<16 | uint32(g)<<8 | uint32(b)
		if pos, ok := index[key]; ok {
			table[pos].count++
			continue
		}
		index[key] = len(table)
		table = append(table, colorCount{rgb: key, count: 1})
	}

	sort.SliceStable(table, func(i, j int) bool {
		return table[i].count > table[j].count
	})

	n := len(table)
	if n > MaxColors {
		n = MaxColors
	}
	profile := make(types.ColorProfile, n)
	for i := 0; i < n; i++ {
		profile[i] = HexColor(table[i].rgb)
	}
	return profile
}

// HexColor renders a packed 24-bit RGB value as "#rrggbb"
func HexColor(rgb uint32) string {
	return fmt.Sprintf("#%06x", rgb&0xffffff)
}

func isBackground(r, g, b uint8) bool {
	if r > nearWhite && g > nearWhite && b > nearWhite {
		return true
	}
	return r < nearBlack && g < nearBlack && b < nearBlack
}
