package detector

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Detector defines the interface for face landmark detection implementations.
type Detector interface {
	// Detect analyzes an RGB video frame and returns the landmarks of the
	// most prominent face, or nil if no face is visible.
	Detect(frame *gocv.Mat) (*FaceLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// ScriptPath overrides the face mesh service script location.
	ScriptPath string

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// NumPoints is the landmark count the detector is known to emit.
	NumPoints int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		NumPoints:       NumLandmarks,
	}
}

// Validate fails when the detector's declared landmark count cannot serve the
// eye index table. It runs once at startup.
func (c Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence %.2f out of range [0,1]", c.MinConfidence)
	}
	if c.MinTrackingConf < 0 || c.MinTrackingConf > 1 {
		return fmt.Errorf("min tracking confidence %.2f out of range [0,1]", c.MinTrackingConf)
	}
	if need := RequiredPoints(); c.NumPoints < need {
		return fmt.Errorf("%w: detector emits %d points, need %d", ErrTooFewLandmarks, c.NumPoints, need)
	}
	return nil
}
