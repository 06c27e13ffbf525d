// Package geom provides normalized frame geometry shared by the guidance pipeline.
package geom

import (
	"image"
	"math"
)

// Region is a rectangle in normalized frame coordinates, all components in [0,1].
type Region struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Box is the center form of a normalized rectangle.
type Box struct {
	CX float64 `json:"cx"`
	CY float64 `json:"cy"`
	W  float64 `json:"w"`
	H  float64 `json:"h"`
}

// Clamp01 limits v to [0,1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Clamp limits v to [lo,hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Region converts a center-form box to a clamped LTRB region.
func (b Box) Region() Region {
	return Region{
		Left:   Clamp01(b.CX - b.W/2),
		Top:    Clamp01(b.CY - b.H/2),
		Right:  Clamp01(b.CX + b.W/2),
		Bottom: Clamp01(b.CY + b.H/2),
	}
}

// Box converts the region to center form.
func (r Region) Box() Box {
	cx, cy := r.Center()
	return Box{CX: cx, CY: cy, W: r.Width(), H: r.Height()}
}

// Width returns the normalized width.
func (r Region) Width() float64 { return r.Right - r.Left }

// Height returns the normalized height.
func (r Region) Height() float64 { return r.Bottom - r.Top }

// Area returns the normalized area.
func (r Region) Area() float64 { return r.Width() * r.Height() }

// Center returns the normalized center point.
func (r Region) Center() (float64, float64) {
	return (r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2
}

// CenterDistance is the distance of the region center from the frame center.
func (r Region) CenterDistance() float64 {
	cx, cy := r.Center()
	return math.Hypot(cx-0.5, cy-0.5)
}

// Valid reports whether the region is non-empty and inside the unit square.
func (r Region) Valid() bool {
	if r.Left < 0 || r.Top < 0 || r.Right > 1 || r.Bottom > 1 {
		return false
	}
	return r.Left < r.Right && r.Top < r.Bottom
}

// Clamp limits every component to [0,1].
func (r Region) Clamp() Region {
	return Region{
		Left:   Clamp01(r.Left),
		Top:    Clamp01(r.Top),
		Right:  Clamp01(r.Right),
		Bottom: Clamp01(r.Bottom),
	}
}

// Translate moves the region by (dx,dy) keeping its size. A region pushed past an
// edge is slid back inside the frame.
func (r Region) Translate(dx, dy float64) Region {
	w, h := r.Width(), r.Height()
	left := Clamp(r.Left+dx, 0, math.Max(0, 1-w))
	top := Clamp(r.Top+dy, 0, math.Max(0, 1-h))
	return Region{Left: left, Top: top, Right: Clamp01(left + w), Bottom: Clamp01(top + h)}
}

// Pixels maps the region onto a width×height pixel grid. The result always holds at
// least one pixel.
func (r Region) Pixels(width, height int) image.Rectangle {
	w, h := float64(width), float64(height)
	l := Clamp(r.Left*w, 0, w-1)
	t := Clamp(r.Top*h, 0, h-1)
	rt := Clamp(r.Right*w, l+1, w)
	b := Clamp(r.Bottom*h, t+1, h)
	return image.Rect(int(math.Round(l)), int(math.Round(t)), int(math.Round(rt)), int(math.Round(b)))
}

// FromPixels converts a pixel rectangle on a width×height grid to a region.
func FromPixels(rect image.Rectangle, width, height int) Region {
	if width <= 0 || height <= 0 {
		return Region{}
	}
	w, h := float64(width), float64(height)
	return Region{
		Left:   float64(rect.Min.X) / w,
		Top:    float64(rect.Min.Y) / h,
		Right:  float64(rect.Max.X) / w,
		Bottom: float64(rect.Max.Y) / h,
	}.Clamp()
}
