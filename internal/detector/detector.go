package detector

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// Detector defines the interface for gesture recognition implementations.
type Detector interface {
	// Recognize analyzes a video frame and returns the recognized hands.
	// Returns an empty Result if no hands are detected.
	Recognize(frame *gocv.Mat) (*Result, error)

	// Close releases any resources held by the detector.
	Close() error
}

// ClassifierOptions controls which categories a classifier head reports.
type ClassifierOptions struct {
	// DisplayNamesLocale selects the locale for display names (default: "en").
	DisplayNamesLocale string

	// MaxResults caps the categories kept per hand. Values <= 0 keep all.
	MaxResults int

	// ScoreThreshold drops categories scoring below it.
	ScoreThreshold float32

	// CategoryAllowlist keeps only these labels when non-empty.
	CategoryAllowlist []string

	// CategoryDenylist drops these labels. Mutually exclusive with the allowlist.
	CategoryDenylist []string
}

// Options holds configuration options for gesture recognition.
type Options struct {
	// NumHands is the maximum number of hands to detect (default: 2).
	NumHands int

	// MinHandDetectionConfidence is the palm detection threshold (0.0-1.0).
	MinHandDetectionConfidence float32

	// MinHandPresenceConfidence is the hand presence threshold (0.0-1.0).
	MinHandPresenceConfidence float32

	// MinTrackingConfidence is the tracking threshold (0.0-1.0).
	MinTrackingConfidence float32

	// Gestures configures the gesture classifier.
	Gestures ClassifierOptions

	// Handedness configures the handedness classifier.
	Handedness ClassifierOptions
}

// ErrInvalidOptions is returned by Options.Validate.
var ErrInvalidOptions = errors.New("invalid options")

// DefaultOptions returns Options with sensible default values.
func DefaultOptions() Options {
	return Options{
		NumHands:                   2,
		MinHandDetectionConfidence: 0.5,
		MinHandPresenceConfidence:  0.5,
		MinTrackingConfidence:      0.5,
		Gestures:                   ClassifierOptions{MaxResults: -1},
		Handedness:                 ClassifierOptions{MaxResults: -1},
	}
}

// Validate checks that the options are in range.
func (o Options) Validate() error {
	if o.NumHands < 1 {
		return fmt.Errorf("%w: num hands must be at least 1, got %d", ErrInvalidOptions, o.NumHands)
	}

	confidences := []struct {
		name  string
		value float32
	}{
		{"min hand detection confidence", o.MinHandDetectionConfidence},
		{"min hand presence confidence", o.MinHandPresenceConfidence},
		{"min tracking confidence", o.MinTrackingConfidence},
	}
	for _, c := range confidences {
		if c.value < 0 || c.value > 1 {
			return fmt.Errorf("%w: %s must be in [0,1], got %v", ErrInvalidOptions, c.name, c.value)
		}
	}

	if err := o.Gestures.validate(); err != nil {
		return fmt.Errorf("gesture classifier: %w", err)
	}
	if err := o.Handedness.validate(); err != nil {
		return fmt.Errorf("handedness classifier: %w", err)
	}
	return nil
}

func (c ClassifierOptions) validate() error {
	if len(c.CategoryAllowlist) > 0 && len(c.CategoryDenylist) > 0 {
		return fmt.Errorf("%w: category allowlist and denylist are mutually exclusive", ErrInvalidOptions)
	}
	return nil
}
