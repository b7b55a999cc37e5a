// Package highlight draws element overlays on device screenshots.
package highlight

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/mj1618/wdadash/internal/geometry"
)

// Style controls how a highlighted box is painted.
type Style struct {
	Stroke      color.Color
	Fill        color.Color
	StrokeWidth int
}

// DefaultStyle is a 2px #1890ff outline over a 30% fill of the same blue.
var DefaultStyle = Style{
	Stroke:      color.NRGBA{R: 0x18, G: 0x90, B: 0xff, A: 0xff},
	Fill:        color.NRGBA{R: 24, G: 144, B: 255, A: 77},
	StrokeWidth: 2,
}

// Highlight returns a copy of img with the logical box drawn over it.
// ratio converts device points to image pixels (see geometry.PixelRatio).
func Highlight(img image.Image, box geometry.Box, ratio float64, style Style) *image.RGBA {
	rgba := ToRGBA(img)
	HighlightInPlace(rgba, box.ToPixels(ratio), style)
	return rgba
}

// HighlightInPlace strokes r on img with the line centred on its edges, then
// fills r on top, the way a canvas strokeRect followed by fillRect paints.
// Parts outside img are clipped.
func HighlightInPlace(img *image.RGBA, r image.Rectangle, style Style) {
	r = r.Canon()
	bounds := img.Bounds()
	if style.Stroke != nil && style.StrokeWidth > 0 {
		// lo pixels fall outside the edge and hi inside; odd widths lean in.
		lo := style.StrokeWidth / 2
		hi := style.StrokeWidth - lo
		src := image.NewUniform(style.Stroke)
		edges := []image.Rectangle{
			image.Rect(r.Min.X-lo, r.Min.Y-lo, r.Max.X+lo, r.Min.Y+hi), // top
			image.Rect(r.Min.X-lo, r.Max.Y-hi, r.Max.X+lo, r.Max.Y+lo), // bottom
			image.Rect(r.Min.X-lo, r.Min.Y+hi, r.Min.X+hi, r.Max.Y-hi), // left
			image.Rect(r.Max.X-hi, r.Min.Y+hi, r.Max.X+lo, r.Max.Y-hi), // right
		}
		for _, e := range edges {
			if e = e.Intersect(bounds); !e.Empty() {
				draw.Draw(img, e, src, e.Min, draw.Over)
			}
		}
	}
	if fill := r.Intersect(bounds); style.Fill != nil && !fill.Empty() {
		draw.Draw(img, fill, image.NewUniform(style.Fill), image.Point{}, draw.Over)
	}
}

// ToRGBA converts any image to a fresh RGBA copy.
func ToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}
