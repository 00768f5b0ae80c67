// Package screen projects normalized gaze positions into screen pixels.
package screen

import (
	"image"

	"github.com/ayusman/gazekeys/internal/gaze"
)

// Sizer reports the current screen size in pixels.
type Sizer interface {
	ScreenSize() (width, height int, err error)
}

// Fixed is a Sizer with a constant size.
type Fixed struct {
	Width  int
	Height int
}

// ScreenSize implements Sizer.
func (f Fixed) ScreenSize() (int, int, error) {
	return f.Width, f.Height, nil
}

// Map scales p by the screen size and clamps the result to
// [0, width) x [0, height).
func Map(p gaze.Point, width, height int) image.Point {
	return image.Point{
		X: clamp(int(p.X*float64(width)), width),
		Y: clamp(int(p.Y*float64(height)), height),
	}
}

func clamp(v, size int) int {
	if size <= 0 || v < 0 {
		return 0
	}
	if v >= size {
		return size - 1
	}
	return v
}

// Mapper maps gaze points using a Sizer, falling back to a fixed size when
// the Sizer fails or reports an empty screen.
type Mapper struct {
	sizer    Sizer
	fallback Fixed
}

// NewMapper creates a Mapper. sizer may be nil.
func NewMapper(sizer Sizer, fallback Fixed) *Mapper {
	return &Mapper{sizer: sizer, fallback: fallback}
}

// Size returns the screen size to use for this frame.
func (m *Mapper) Size() (int, int) {
	if m.sizer != nil {
		if w, h, err := m.sizer.ScreenSize(); err == nil && w > 0 && h > 0 {
			return w, h
		}
	}
	return m.fallback.Width, m.fallback.Height
}

// Map projects p onto the current screen.
func (m *Mapper) Map(p gaze.Point) image.Point {
	w, h := m.Size()
	return Map(p, w, h)
}
