package capture

import (
	"errors"
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// ErrEmptyImage is returned when an image decodes to no pixels.
var ErrEmptyImage = errors.New("image is empty")

// LoadImage reads and decodes an image file as BGR.
// The caller must close the returned Mat.
func LoadImage(path string) (*gocv.Mat, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("load image %s: %w", path, ErrEmptyImage)
	}
	return &mat, nil
}

// DecodeImage decodes encoded image bytes (JPEG, PNG, ...) as BGR.
// The caller must close the returned Mat.
func DecodeImage(data []byte) (*gocv.Mat, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("decode image: %w", ErrEmptyImage)
	}
	return &mat, nil
}

// EncodeJPEG encodes a frame as JPEG bytes.
func EncodeJPEG(frame *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases native memory that Close frees.
	return append([]byte(nil), buf.GetBytes()...), nil
}
