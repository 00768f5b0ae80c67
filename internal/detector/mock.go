package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results frame by frame.
type MockDetector struct {
	face     *FaceLandmarks
	sequence []*FaceLandmarks
	err      error
	calls    int
	closed   bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFace sets the face returned by every Detect call. nil means no face.
func (m *MockDetector) SetFace(face *FaceLandmarks) {
	m.face = face
	m.sequence = nil
}

// SetSequence makes Detect return the given faces in order, one per call.
// Once exhausted the last entry repeats.
func (m *MockDetector) SetSequence(faces []*FaceLandmarks) {
	m.sequence = faces
	m.calls = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls reports how many times Detect has run.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured face or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*FaceLandmarks, error) {
	defer func() { m.calls++ }()

	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		i := m.calls
		if i >= len(m.sequence) {
			i = len(m.sequence) - 1
		}
		return m.sequence[i], nil
	}
	return m.face, nil
}

// Close records that the detector was released.
func (m *MockDetector) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockDetector) Closed() bool {
	return m.closed
}

// Eyelid positions used by the synthetic faces. The open gap (0.40) sits
// above the default blink threshold and the closed gap (0.05) below it.
const (
	openUpperLidY   = 0.30
	openLowerLidY   = 0.70
	closedUpperLidY = 0.45
	closedLowerLidY = 0.50
	irisRadius      = 0.01
	irisHalfSpacing = 0.03
)

// FaceLookingAt returns a synthetic landmark set whose iris midpoint is (x, y).
// With eyesOpen false both eyelid gaps collapse so the frame reads as a blink.
func FaceLookingAt(x, y float64, eyesOpen bool) *FaceLandmarks {
	face := &FaceLandmarks{
		Points: make([]Point2D, NumLandmarks),
		Score:  0.95,
	}
	for i := range face.Points {
		face.Points[i] = Point2D{X: 0.5, Y: 0.5}
	}

	placeIris(face, LeftIris, x+irisHalfSpacing, y)
	placeIris(face, RightIris, x-irisHalfSpacing, y)

	upper, lower := openUpperLidY, openLowerLidY
	if !eyesOpen {
		upper, lower = closedUpperLidY, closedLowerLidY
	}
	for _, group := range []struct {
		idx [3]int
		y   float64
	}{
		{LeftUpperLid, upper},
		{LeftLowerLid, lower},
		{RightUpperLid, upper},
		{RightLowerLid, lower},
	} {
		for _, i := range group.idx {
			face.Points[i].Y = group.y
		}
	}

	return face
}

// placeIris sets four iris points around (cx, cy) so their mean is exactly the centre.
func placeIris(face *FaceLandmarks, iris [4]int, cx, cy float64) {
	offsets := [4]Point2D{
		{X: irisRadius, Y: 0},
		{X: 0, Y: irisRadius},
		{X: -irisRadius, Y: 0},
		{X: 0, Y: -irisRadius},
	}
	for k, i := range iris {
		face.Points[i] = Point2D{X: cx + offsets[k].X, Y: cy + offsets[k].Y}
	}
}
