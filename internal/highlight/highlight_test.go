package highlight

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/wdadash/internal/geometry"
	"github.com/mj1618/wdadash/internal/model"
)

func whiteImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	return img
}

func TestHighlight_ScalesByPixelRatio(t *testing.T) {
	src := whiteImage(300, 300)
	out := Highlight(src, geometry.Box{X: 10, Y: 10, Width: 20, Height: 20}, 3, DefaultStyle)
	stroke := color.RGBA{R: 0x18, G: 0x90, B: 0xff, A: 0xff}

	// The 2px stroke straddles the pixel rectangle (30,30)-(90,90): the outer
	// half is pure stroke, the inner half sits under the fill.
	assert.Equal(t, stroke, out.RGBAAt(29, 29))
	assert.Equal(t, stroke, out.RGBAAt(90, 60))
	assert.Equal(t, stroke, out.RGBAAt(60, 90))
	edge := out.RGBAAt(30, 60)
	assert.InDelta(t, 0x18, int(edge.R), 2)
	assert.InDelta(t, 0x90, int(edge.G), 2)

	// Interior is blended, not opaque blue and not white.
	inner := out.RGBAAt(60, 60)
	assert.NotEqual(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, inner)
	assert.Greater(t, inner.R, uint8(0x18))
	assert.Equal(t, uint8(255), inner.B)

	// Outside untouched and source not mutated.
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(28, 28))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(91, 60))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, src.RGBAAt(60, 60))
}

func TestHighlightInPlace_FillPaintsOverStroke(t *testing.T) {
	img := whiteImage(20, 20)
	opaqueRed := color.RGBA{R: 255, A: 255}
	HighlightInPlace(img, image.Rect(5, 5, 15, 15), Style{
		Stroke:      color.RGBA{B: 255, A: 255},
		Fill:        opaqueRed,
		StrokeWidth: 2,
	})
	// Inner half of the stroke is covered by the later fill.
	assert.Equal(t, opaqueRed, img.RGBAAt(5, 10))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(4, 10))
}

func TestHighlightInPlace_ClipsOutside(t *testing.T) {
	img := whiteImage(10, 10)
	HighlightInPlace(img, image.Rect(50, 50, 60, 60), DefaultStyle)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(9, 9))

	HighlightInPlace(img, image.Rect(-5, -5, 5, 5), DefaultStyle)
	assert.NotEqual(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, img.RGBAAt(0, 0))
}

func TestAnnotate_SkipsElementsWithoutBounds(t *testing.T) {
	img := whiteImage(100, 100)
	box := geometry.Box{X: 10, Y: 10, Width: 30, Height: 30}
	out := Annotate(img, []model.FlatElement{{ID: 1}, {ID: 2, Bounds: &box}}, 1, LabelIDs)
	assert.Equal(t, boxColor.B, out.RGBAAt(10, 20).B)
	assert.NotEqual(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(10, 20))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, out.RGBAAt(90, 90))
}

func TestScale(t *testing.T) {
	img := whiteImage(400, 800)
	scaled := Scale(img, 200)
	assert.Equal(t, 200, scaled.Bounds().Dx())
	assert.Equal(t, 400, scaled.Bounds().Dy())

	assert.Same(t, img, Scale(img, 0))
	assert.Same(t, img, Scale(img, 1000))
}

func TestEncodeDecode(t *testing.T) {
	img := whiteImage(8, 8)
	for _, format := range []string{"png", "jpg"} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, img, format, 90))
		decoded, got, err := Decode(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, 8, decoded.Bounds().Dx())
		if format == "jpg" {
			assert.Equal(t, "jpeg", got)
		} else {
			assert.Equal(t, "png", got)
		}
	}
	assert.Error(t, Encode(&bytes.Buffer{}, img, "gif", 0))
	_, _, err := Decode([]byte("nope"))
	assert.Error(t, err)
	assert.Equal(t, "image/jpeg", ContentType("JPG"))
	assert.Equal(t, "image/png", ContentType(""))
}
