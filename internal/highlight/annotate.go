package highlight

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mj1618/wdadash/internal/model"
)

// LabelMode controls what text is drawn on each annotated element.
type LabelMode int

const (
	// LabelCoords draws "(x,y)" logical center coordinates.
	LabelCoords LabelMode = iota
	// LabelIDs draws "[id]" element IDs.
	LabelIDs
)

var (
	boxColor     = color.NRGBA{R: 24, G: 144, B: 255, A: 160}
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor = color.RGBA{R: 0, G: 0, B: 0, A: 200}
)

// Annotate draws a thin box and a label on every element that has bounds.
// Elements are in logical points; ratio converts them to image pixels.
func Annotate(img image.Image, elements []model.FlatElement, ratio float64, mode LabelMode) *image.RGBA {
	rgba := ToRGBA(img)
	for _, el := range elements {
		if el.Bounds == nil {
			continue
		}
		r := el.Bounds.ToPixels(ratio)
		HighlightInPlace(rgba, r, Style{Stroke: boxColor, StrokeWidth: 1})

		var label string
		switch mode {
		case LabelIDs:
			label = fmt.Sprintf("[%d]", el.ID)
		default:
			c := el.Bounds.Center()
			label = fmt.Sprintf("(%d,%d)", int(c.X), int(c.Y))
		}
		mid := image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
		drawTextWithOutline(rgba, label, mid.X, mid.Y, textColor, outlineColor)
	}
	return rgba
}

// drawTextWithOutline centers text on (x, y) with a one-pixel outline.
func drawTextWithOutline(img *image.RGBA, text string, x, y int, fg, outline color.Color) {
	// basicfont.Face7x13 glyphs are 7px wide; the baseline sits 11px below the top.
	offsetX := x - len(text)*7/2
	baseline := y + 13/2 - 2

	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}
	drawer.Src = image.NewUniform(outline)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			drawer.Dot = fixed.P(offsetX+dx, baseline+dy)
			drawer.DrawString(text)
		}
	}
	drawer.Src = image.NewUniform(fg)
	drawer.Dot = fixed.P(offsetX, baseline)
	drawer.DrawString(text)
}
