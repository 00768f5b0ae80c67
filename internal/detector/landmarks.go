// Package detector provides face landmark detection interfaces and types for gaze tracking.
package detector

import (
	"errors"
	"fmt"
)

// Face mesh landmark indices following the MediaPipe Face Mesh numbering
// with refined iris landmarks enabled.
// See: https://developers.google.com/mediapipe/solutions/vision/face_landmarker
var (
	// LeftIris outlines the subject's left iris (image right after mirroring).
	LeftIris = [4]int{474, 475, 476, 477}
	// RightIris outlines the subject's right iris.
	RightIris = [4]int{469, 470, 471, 472}

	LeftUpperLid  = [3]int{386, 387, 388}
	LeftLowerLid  = [3]int{374, 373, 390}
	RightUpperLid = [3]int{159, 160, 161}
	RightLowerLid = [3]int{145, 144, 163}
)

// NumLandmarks is the point count produced by face mesh with refined iris landmarks.
const NumLandmarks = 478

// ErrTooFewLandmarks is returned when a landmark set cannot be indexed by the
// eye index table.
var ErrTooFewLandmarks = errors.New("landmark set smaller than eye index table")

// Point2D is a normalized image coordinate in [0,1].
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FaceLandmarks is one face's landmark set for a single frame.
type FaceLandmarks struct {
	Points []Point2D `json:"points"`
	Score  float64   `json:"score"`
}

// RequiredPoints returns the minimum landmark count the index table needs.
func RequiredPoints() int {
	highest := 0
	for _, group := range [][]int{
		LeftIris[:], RightIris[:],
		LeftUpperLid[:], LeftLowerLid[:],
		RightUpperLid[:], RightLowerLid[:],
	} {
		for _, i := range group {
			if i > highest {
				highest = i
			}
		}
	}
	return highest + 1
}

// Validate checks that the landmark set covers every index the gaze and blink
// stages read.
func (f *FaceLandmarks) Validate() error {
	if f == nil {
		return errors.New("nil landmark set")
	}
	if need := RequiredPoints(); len(f.Points) < need {
		return fmt.Errorf("%w: got %d points, need %d", ErrTooFewLandmarks, len(f.Points), need)
	}
	return nil
}

// Mean returns the centroid of the points at the given indices.
// Callers validate the set first.
func (f *FaceLandmarks) Mean(indices []int) Point2D {
	var sum Point2D
	for _, i := range indices {
		sum.X += f.Points[i].X
		sum.Y += f.Points[i].Y
	}
	n := float64(len(indices))
	return Point2D{X: sum.X / n, Y: sum.Y / n}
}
