// Package capture provides frame sources for gesture recognition using GoCV (OpenCV).
package capture

import (
	"errors"

	"gocv.io/x/gocv"
)

var (
	// ErrSourceNotOpen is returned when reading from a source that is not open.
	ErrSourceNotOpen = errors.New("frame source is not open")

	// ErrExhausted is returned when a non-looping source has no more frames.
	ErrExhausted = errors.New("no more frames")
)

// Source produces video frames for recognition.
type Source interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller must close the returned Mat.
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
}
