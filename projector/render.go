package projector

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Raster dimensions for query images. Fixed so identical questions
// produce byte-identical artifacts.
const (
	rasterWidth  = 1000
	rasterHeight = 200
)

// renderQuestion draws the question text onto a fixed-size white raster
// and returns it PNG-encoded. Long questions wrap at the raster edge.
func renderQuestion(text string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, rasterWidth, rasterHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(10, 10+face.Ascent),
	}

	lineHeight := face.Height + 2
	x := fixed.I(10)
	maxX := fixed.I(rasterWidth - 10)

	for _, r := range text {
		adv, ok := face.GlyphAdvance(r)
		if !ok {
			continue
		}
		if drawer.Dot.X+adv > maxX {
			drawer.Dot.X = x
			drawer.Dot.Y += fixed.I(lineHeight)
		}
		drawer.DrawString(string(r))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode query raster: %w", err)
	}
	return buf.Bytes(), nil
}
