// Package blink derives a debounced blink signal from eyelid landmarks.
package blink

import (
	"math"

	"github.com/ayusman/gazekeys/internal/detector"
)

// Default debounce parameters.
const (
	// DefaultRatioThreshold is the averaged eyelid gap, in normalized frame
	// units, below which a frame counts as blinking. It is uncalibrated.
	DefaultRatioThreshold = 0.25
	// DefaultWindow is the number of recent frames kept in the history.
	DefaultWindow = 5
	// DefaultMajority is the count of blinking frames that must be exceeded.
	DefaultMajority = 3
)

// History is a fixed-capacity FIFO of per-frame blink classifications.
type History struct {
	buf  []bool
	head int
	size int
}

// NewHistory creates a history holding at most capacity samples.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]bool, capacity)}
}

// Push appends a sample, evicting the oldest when full.
func (h *History) Push(v bool) {
	h.buf[(h.head+h.size)%len(h.buf)] = v
	if h.size < len(h.buf) {
		h.size++
		return
	}
	h.head = (h.head + 1) % len(h.buf)
}

// Len returns the number of stored samples.
func (h *History) Len() int { return h.size }

// Cap returns the history capacity.
func (h *History) Cap() int { return len(h.buf) }

// Count returns how many stored samples are true.
func (h *History) Count() int {
	n := 0
	for i := 0; i < h.size; i++ {
		if h.buf[(h.head+i)%len(h.buf)] {
			n++
		}
	}
	return n
}

// Values returns the samples oldest first.
func (h *History) Values() []bool {
	out := make([]bool, h.size)
	for i := range out {
		out[i] = h.buf[(h.head+i)%len(h.buf)]
	}
	return out
}

// Reset empties the history.
func (h *History) Reset() {
	h.head = 0
	h.size = 0
}

// Config holds blink detector tunables.
type Config struct {
	RatioThreshold float64
	Window         int
	Majority       int
}

// DefaultConfig returns the stock debounce configuration.
func DefaultConfig() Config {
	return Config{
		RatioThreshold: DefaultRatioThreshold,
		Window:         DefaultWindow,
		Majority:       DefaultMajority,
	}
}

// Detector classifies frames and debounces them into a blink state.
type Detector struct {
	config  Config
	history *History
}

// NewDetector creates a Detector with the given configuration.
func NewDetector(config Config) *Detector {
	return &Detector{
		config:  config,
		history: NewHistory(config.Window),
	}
}

// EyelidGap returns the average over both eyes of the vertical distance
// between the upper and lower lid centroids.
func EyelidGap(face *detector.FaceLandmarks) float64 {
	left := lidGap(face, detector.LeftUpperLid, detector.LeftLowerLid)
	right := lidGap(face, detector.RightUpperLid, detector.RightLowerLid)
	return (left + right) / 2
}

func lidGap(face *detector.FaceLandmarks, upper, lower [3]int) float64 {
	top := face.Mean(upper[:])
	bottom := face.Mean(lower[:])
	return math.Abs(top.Y - bottom.Y)
}

// Update classifies one frame, records it and returns the debounced state.
func (d *Detector) Update(face *detector.FaceLandmarks) bool {
	d.history.Push(EyelidGap(face) < d.config.RatioThreshold)
	return d.Blinking()
}

// Blinking reports whether more than Majority of the stored frames were blinks.
func (d *Detector) Blinking() bool {
	return d.history.Count() > d.config.Majority
}

// History exposes the classification history for inspection.
func (d *Detector) History() *History {
	return d.history
}

// Reconfigure applies new tunables. A changed window resets the history.
func (d *Detector) Reconfigure(config Config) {
	if config.Window != d.history.Cap() {
		d.history = NewHistory(config.Window)
	}
	d.config = config
}
