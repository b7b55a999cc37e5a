// Package geometry maps pointer positions between the three coordinate
// spaces the dashboard deals with: client space (a scaled screenshot or
// video element on the page), device logical space (WDA points), and
// physical image space (screenshot pixels).
package geometry

import (
	"image"
	"math"
)

// Point is a position in any of the coordinate spaces.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Size is a width/height pair, typically the device's logical window size.
type Size struct {
	Width  float64 `yaml:"width"  json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Rect is the bounding rectangle of the displayed element in client space,
// as reported by getBoundingClientRect.
type Rect struct {
	Left   float64 `yaml:"left"   json:"left"`
	Top    float64 `yaml:"top"    json:"top"`
	Width  float64 `yaml:"width"  json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// ClientToDevice converts a pointer position on the displayed element into
// device logical coordinates. A degenerate rect maps to the origin.
func ClientToDevice(rect Rect, logical Size, clientX, clientY float64) Point {
	if rect.Width <= 0 || rect.Height <= 0 {
		return Point{}
	}
	return Point{
		X: (clientX - rect.Left) / rect.Width * logical.Width,
		Y: (clientY - rect.Top) / rect.Height * logical.Height,
	}
}

// DeviceToClient is the inverse of ClientToDevice.
func DeviceToClient(rect Rect, logical Size, p Point) Point {
	if logical.Width <= 0 || logical.Height <= 0 {
		return Point{X: rect.Left, Y: rect.Top}
	}
	return Point{
		X: rect.Left + p.X/logical.Width*rect.Width,
		Y: rect.Top + p.Y/logical.Height*rect.Height,
	}
}

// PixelRatio is the scale between a captured screenshot's native width and
// the device's logical width (2 or 3 on retina devices).
func PixelRatio(imageWidth int, logical Size) float64 {
	if logical.Width <= 0 {
		return 1
	}
	return float64(imageWidth) / logical.Width
}

// DeviceToPixel converts a logical point into screenshot pixel coordinates.
func DeviceToPixel(p Point, ratio float64) Point {
	return Point{X: p.X * ratio, Y: p.Y * ratio}
}

// PixelToDevice converts a screenshot pixel position back to logical points.
func PixelToDevice(p Point, ratio float64) Point {
	if ratio == 0 {
		return p
	}
	return Point{X: p.X / ratio, Y: p.Y / ratio}
}

// Exceeds reports whether b moved further than threshold from a on either axis.
func Exceeds(a, b Point, threshold float64) bool {
	return math.Abs(b.X-a.X) > threshold || math.Abs(b.Y-a.Y) > threshold
}

// Box is a logical bounding box in device points.
type Box struct {
	X      int `yaml:"x"      json:"x"`
	Y      int `yaml:"y"      json:"y"`
	Width  int `yaml:"width"  json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Contains reports whether the point lies inside the box, edges included.
func (b Box) Contains(x, y float64) bool {
	return x >= float64(b.X) && x <= float64(b.X+b.Width) &&
		y >= float64(b.Y) && y <= float64(b.Y+b.Height)
}

// Area returns width*height.
func (b Box) Area() int {
	return b.Width * b.Height
}

// Center returns the box center in logical points.
func (b Box) Center() Point {
	return Point{
		X: float64(b.X) + float64(b.Width)/2,
		Y: float64(b.Y) + float64(b.Height)/2,
	}
}

// ToPixels converts the box into physical image pixels.
func (b Box) ToPixels(ratio float64) image.Rectangle {
	x0 := int(math.Round(float64(b.X) * ratio))
	y0 := int(math.Round(float64(b.Y) * ratio))
	x1 := int(math.Round(float64(b.X+b.Width) * ratio))
	y1 := int(math.Round(float64(b.Y+b.Height) * ratio))
	return image.Rect(x0, y0, x1, y1)
}
