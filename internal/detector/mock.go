package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the recognition results.
type MockDetector struct {
	mu     sync.Mutex
	result *Result
	err    error
	calls  int
	closed bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetResult sets the result that will be returned by Recognize.
func (m *MockDetector) SetResult(r *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = r
}

// SetError sets the error that will be returned by Recognize.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Recognize returns a copy of the pre-configured result, or the configured error.
func (m *MockDetector) Recognize(frame *gocv.Mat) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return EmptyResult(), nil
	}
	return m.result.Clone(), nil
}

// Calls returns how many times Recognize was invoked.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the mock closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// EmptyResult returns a Result with no hands.
func EmptyResult() *Result {
	return &Result{
		Gestures:           [][]Category{},
		Handedness:         [][]Category{},
		HandLandmarks:      [][]NormalizedLandmark{},
		HandWorldLandmarks: [][]Landmark{},
	}
}

// ClosedFistResult returns a single right hand making a closed fist, as
// recognized in the fist.jpg reference image. Only the wrist landmark is set.
func ClosedFistResult() *Result {
	return &Result{
		Gestures: [][]Category{{
			{Index: -1, Score: 0.90, Label: "Closed_Fist"},
		}},
		Handedness: [][]Category{{
			{Index: 0, Score: 0.9893, Label: "Right", DisplayName: "Right"},
		}},
		HandLandmarks: [][]NormalizedLandmark{{
			{X: 0.477, Y: 0.661, Z: 0.0},
		}},
		HandWorldLandmarks: [][]Landmark{{
			{X: -0.009, Y: 0.082, Z: 0.006},
		}},
	}
}

// OpenPalmResult returns a single right hand with all fingers extended and a
// full set of 21 landmarks.
func OpenPalmResult() *Result {
	points := [NumLandmarks]NormalizedLandmark{}

	// Wrist at base
	points[Wrist] = NormalizedLandmark{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb extended to the side
	points[ThumbCMC] = NormalizedLandmark{X: 0.55, Y: 0.75, Z: 0.02}
	points[ThumbMCP] = NormalizedLandmark{X: 0.62, Y: 0.70, Z: 0.03}
	points[ThumbIP] = NormalizedLandmark{X: 0.68, Y: 0.65, Z: 0.03}
	points[ThumbTip] = NormalizedLandmark{X: 0.73, Y: 0.60, Z: 0.03}

	// Index finger extended upward
	points[IndexMCP] = NormalizedLandmark{X: 0.55, Y: 0.68, Z: 0.0}
	points[IndexPIP] = NormalizedLandmark{X: 0.57, Y: 0.55, Z: 0.0}
	points[IndexDIP] = NormalizedLandmark{X: 0.58, Y: 0.45, Z: 0.0}
	points[IndexTip] = NormalizedLandmark{X: 0.58, Y: 0.35, Z: 0.0}

	// Middle finger extended upward (slightly longer)
	points[MiddleMCP] = NormalizedLandmark{X: 0.50, Y: 0.66, Z: 0.0}
	points[MiddlePIP] = NormalizedLandmark{X: 0.50, Y: 0.52, Z: 0.0}
	points[MiddleDIP] = NormalizedLandmark{X: 0.50, Y: 0.40, Z: 0.0}
	points[MiddleTip] = NormalizedLandmark{X: 0.50, Y: 0.28, Z: 0.0}

	// Ring finger extended upward
	points[RingMCP] = NormalizedLandmark{X: 0.45, Y: 0.68, Z: 0.0}
	points[RingPIP] = NormalizedLandmark{X: 0.43, Y: 0.55, Z: 0.0}
	points[RingDIP] = NormalizedLandmark{X: 0.42, Y: 0.45, Z: 0.0}
	points[RingTip] = NormalizedLandmark{X: 0.42, Y: 0.35, Z: 0.0}

	// Pinky finger extended upward
	points[PinkyMCP] = NormalizedLandmark{X: 0.40, Y: 0.70, Z: 0.0}
	points[PinkyPIP] = NormalizedLandmark{X: 0.37, Y: 0.60, Z: 0.0}
	points[PinkyDIP] = NormalizedLandmark{X: 0.35, Y: 0.50, Z: 0.0}
	points[PinkyTip] = NormalizedLandmark{X: 0.34, Y: 0.42, Z: 0.0}

	// World landmarks: same shape in metres, centred on the palm.
	world := make([]Landmark, NumLandmarks)
	for i, p := range points {
		world[i] = Landmark{
			X: (p.X - 0.5) * 0.2,
			Y: (p.Y - 0.6) * 0.2,
			Z: p.Z * 0.2,
		}
	}

	return &Result{
		Gestures: [][]Category{{
			{Index: -1, Score: 0.87, Label: "Open_Palm"},
			{Index: -1, Score: 0.08, Label: "None"},
		}},
		Handedness: [][]Category{{
			{Index: 1, Score: 0.97, Label: "Right", DisplayName: "Right"},
		}},
		HandLandmarks:      [][]NormalizedLandmark{points[:]},
		HandWorldLandmarks: [][]Landmark{world},
	}
}
