// Package detector provides hand gesture recognition interfaces and result types.
package detector

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Category is a single classification produced by the recognizer.
type Category struct {
	Index       int32   `json:"index"`
	Score       float32 `json:"score"`
	Label       string  `json:"category_name"`
	DisplayName string  `json:"display_name,omitempty"`
}

// NormalizedLandmark is a point with x and y normalized to [0,1] by image
// width and height. Z uses roughly the same scale as x.
type NormalizedLandmark struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Landmark is a point in metres relative to the hand's geometric center.
type Landmark struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Result holds everything recognized in one image, indexed by detected hand.
//
// The four groups are independent: they normally share one length, but
// nothing requires it.
type Result struct {
	Gestures           [][]Category           `json:"gestures"`
	Handedness         [][]Category           `json:"handedness"`
	HandLandmarks      [][]NormalizedLandmark `json:"hand_landmarks"`
	HandWorldLandmarks [][]Landmark           `json:"hand_world_landmarks"`
}

// NumHands returns the longest outer length among the four groups.
func (r *Result) NumHands() int {
	if r == nil {
		return 0
	}
	return max(len(r.Gestures), len(r.Handedness), len(r.HandLandmarks), len(r.HandWorldLandmarks))
}

// Empty reports whether no hands were recognized.
func (r *Result) Empty() bool {
	return r.NumHands() == 0
}

// TopGesture returns the first gesture category for the given hand.
// Categories are ordered by descending score.
func (r *Result) TopGesture(hand int) (Category, bool) {
	if r == nil || hand < 0 || hand >= len(r.Gestures) || len(r.Gestures[hand]) == 0 {
		return Category{}, false
	}
	return r.Gestures[hand][0], true
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	return &Result{
		Gestures:           cloneGroups(r.Gestures),
		Handedness:         cloneGroups(r.Handedness),
		HandLandmarks:      cloneGroups(r.HandLandmarks),
		HandWorldLandmarks: cloneGroups(r.HandWorldLandmarks),
	}
}

func cloneGroups[T any](groups [][]T) [][]T {
	if groups == nil {
		return nil
	}
	out := make([][]T, len(groups))
	for i, g := range groups {
		out[i] = append([]T(nil), g...)
	}
	return out
}
