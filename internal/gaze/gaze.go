// Package gaze turns iris landmarks into a normalized gaze point.
package gaze

import (
	"github.com/ayusman/gazekeys/internal/detector"
)

// Point is a normalized gaze position in frame coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Estimator computes the gaze point as the midpoint of the two iris
// centroids, optionally smoothed with an exponential moving average.
type Estimator struct {
	alpha float64
	last  Point
	has   bool
}

// NewEstimator creates an Estimator. alpha is the weight of the newest sample
// in (0,1]; 1 (or anything out of range) disables smoothing.
func NewEstimator(alpha float64) *Estimator {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &Estimator{alpha: alpha}
}

// SetSmoothing changes the smoothing weight without dropping history.
func (e *Estimator) SetSmoothing(alpha float64) {
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	e.alpha = alpha
}

// Estimate returns the gaze point for this frame. ok is false when no face
// was detected; the smoothing history is left untouched in that case.
func (e *Estimator) Estimate(face *detector.FaceLandmarks) (p Point, ok bool) {
	if face == nil {
		return Point{}, false
	}

	left := face.Mean(detector.LeftIris[:])
	right := face.Mean(detector.RightIris[:])
	raw := Point{
		X: (left.X + right.X) / 2,
		Y: (left.Y + right.Y) / 2,
	}

	if !e.has || e.alpha == 1 {
		e.last = raw
		e.has = true
		return raw, true
	}

	e.last = Point{
		X: e.alpha*raw.X + (1-e.alpha)*e.last.X,
		Y: e.alpha*raw.Y + (1-e.alpha)*e.last.Y,
	}
	return e.last, true
}

// Reset forgets the smoothing history.
func (e *Estimator) Reset() {
	e.last = Point{}
	e.has = false
}
