package app

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/gesturebridge/internal/capi"
	"github.com/ayusman/gesturebridge/internal/detector"
)

// RunningMode selects how a Recognizer accepts frames.
type RunningMode int

const (
	// ModeImage recognizes independent still images.
	ModeImage RunningMode = iota
	// ModeVideo recognizes decoded video frames with increasing timestamps.
	ModeVideo
)

func (m RunningMode) String() string {
	switch m {
	case ModeImage:
		return "image"
	case ModeVideo:
		return "video"
	default:
		return fmt.Sprintf("RunningMode(%d)", int(m))
	}
}

// Recognizer errors.
var (
	ErrClosed         = errors.New("recognizer is closed")
	ErrWrongMode      = errors.New("operation not supported in this running mode")
	ErrTimestampOrder = errors.New("timestamps must be monotonically increasing")
)

// Recognizer runs a Detector under a fixed running mode and options.
// A Recognizer is safe for concurrent use; calls are serialized.
type Recognizer struct {
	detector detector.Detector
	options  detector.Options
	mode     RunningMode

	mu            sync.Mutex
	lastTimestamp int64
	haveTimestamp bool
	closed        bool
}

// NewRecognizer creates a Recognizer that owns d. Close closes d.
func NewRecognizer(d detector.Detector, options detector.Options, mode RunningMode) (*Recognizer, error) {
	if d == nil {
		return nil, errors.New("detector is required")
	}
	if mode != ModeImage && mode != ModeVideo {
		return nil, fmt.Errorf("unknown running mode %v", mode)
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	return &Recognizer{
		detector: d,
		options:  options,
		mode:     mode,
	}, nil
}

// Mode returns the running mode the recognizer was created with.
func (r *Recognizer) Mode() RunningMode {
	return r.mode
}

// Options returns the options the recognizer applies to each result.
func (r *Recognizer) Options() detector.Options {
	return r.options
}

// RecognizeImage recognizes hands in a single image.
func (r *Recognizer) RecognizeImage(frame *gocv.Mat) (*detector.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if r.mode != ModeImage {
		return nil, fmt.Errorf("recognize image in %s mode: %w", r.mode, ErrWrongMode)
	}
	return r.recognize(frame)
}

// RecognizeForVideo recognizes hands in a video frame. timestampMs must be
// strictly greater than the timestamp of the previous frame.
func (r *Recognizer) RecognizeForVideo(frame *gocv.Mat, timestampMs int64) (*detector.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if r.mode != ModeVideo {
		return nil, fmt.Errorf("recognize video frame in %s mode: %w", r.mode, ErrWrongMode)
	}
	if r.haveTimestamp && timestampMs <= r.lastTimestamp {
		return nil, fmt.Errorf("%w: got %d after %d", ErrTimestampOrder, timestampMs, r.lastTimestamp)
	}

	result, err := r.recognize(frame)
	if err != nil {
		return nil, err
	}
	r.lastTimestamp = timestampMs
	r.haveTimestamp = true
	return result, nil
}

// RecognizeInto recognizes an image and converts the result into rec,
// replacing whatever rec held before. rec is left untouched on error.
func (r *Recognizer) RecognizeInto(frame *gocv.Mat, rec *capi.Record) error {
	if rec == nil {
		return errors.New("record is required")
	}
	result, err := r.RecognizeImage(frame)
	if err != nil {
		return err
	}
	rec.Convert(result)
	return nil
}

// Close releases the detector. Further calls return ErrClosed.
func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.detector.Close()
}

func (r *Recognizer) recognize(frame *gocv.Mat) (*detector.Result, error) {
	result, err := r.detector.Recognize(frame)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	return detector.ApplyOptions(result, r.options), nil
}
