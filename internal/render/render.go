// Package render draws the keyboard overlay onto camera frames and shows
// them in a window.
package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ayusman/gazekeys/internal/keyboard"
	"github.com/ayusman/gazekeys/internal/session"
)

// EscapeKey is the key code that closes the window.
const EscapeKey = 27

var (
	keyColor        = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	highlightColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	progressColor   = color.RGBA{R: 0, G: 160, B: 0, A: 0}
	barColor        = color.RGBA{R: 50, G: 50, B: 50, A: 0}
	textColor       = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	suggestionColor = color.RGBA{R: 255, G: 255, B: 0, A: 0}
	statusColor     = color.RGBA{R: 255, G: 80, B: 80, A: 0}
)

const font = gocv.FontHersheySimplex

// Overlay draws the keyboard, the typed text and suggestions.
type Overlay struct {
	layout *keyboard.Layout
	// MaxSuggestions caps how many suggestions are listed.
	MaxSuggestions int
}

// NewOverlay creates an overlay for layout.
func NewOverlay(layout *keyboard.Layout) *Overlay {
	return &Overlay{layout: layout, MaxSuggestions: 10}
}

// Draw paints r onto frame in place. Frames without a face only get a
// status line.
func (o *Overlay) Draw(frame *gocv.Mat, r session.Result) {
	if !r.Face {
		gocv.PutText(frame, "no face", image.Pt(10, 30), font, 0.8, statusColor, 2)
		return
	}

	for _, k := range o.layout.Keys() {
		c := keyColor
		if r.Hovering && k.Label == r.Key {
			c = highlightColor
			drawProgress(frame, k.Rect, r.Progress)
		}
		gocv.Rectangle(frame, k.Rect, c, 2)
		gocv.PutText(frame, k.Label, image.Pt(k.Rect.Min.X+5, k.Rect.Min.Y+k.Rect.Dy()/2+5), font, 0.8, c, 2)
	}

	bar := image.Rect(50, 50, max(frame.Cols()-50, 51), 100)
	gocv.Rectangle(frame, bar, barColor, -1)
	gocv.PutText(frame, lastLine(r.Text), image.Pt(60, 90), font, 1, textColor, 2)

	for i, s := range r.Suggestions {
		if i >= o.MaxSuggestions {
			break
		}
		gocv.PutText(frame, s, image.Pt(50, 120+30*i), font, 0.8, suggestionColor, 2)
	}

	if !r.Enabled {
		gocv.PutText(frame, "paused", image.Pt(10, 30), font, 0.8, statusColor, 2)
	}
}

// drawProgress fills the bottom strip of rect in proportion to p.
func drawProgress(frame *gocv.Mat, rect image.Rectangle, p float64) {
	if p <= 0 {
		return
	}
	w := int(float64(rect.Dx()) * min(p, 1))
	if w == 0 {
		return
	}
	strip := image.Rect(rect.Min.X, rect.Max.Y-6, rect.Min.X+w, rect.Max.Y)
	gocv.Rectangle(frame, strip, progressColor, -1)
}

// lastLine returns the text after the final newline; PutText cannot wrap.
func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// EncodeJPEG encodes frame for streaming.
func EncodeJPEG(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
