// Package testdata generates synthetic frames and images for tests.
package testdata

import (
	"fmt"
	"path/filepath"

	"gocv.io/x/gocv"
)

// Frame returns a BGR frame filled with a colour derived from seed, so that
// consecutive frames differ. The caller must close it.
func Frame(width, height, seed int) gocv.Mat {
	color := gocv.NewScalar(float64(seed*37%256), float64(seed*71%256), float64(seed*113%256), 0)
	return gocv.NewMatWithSizeFromScalar(color, height, width, gocv.MatTypeCV8UC3)
}

// JPEG returns a synthetic frame encoded as JPEG.
func JPEG(width, height, seed int) ([]byte, error) {
	frame := Frame(width, height, seed)
	defer frame.Close()

	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame %d: %w", seed, err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}

// WriteSequence writes n synthetic JPEG frames into dir and returns their
// paths in order.
func WriteSequence(dir string, n, width, height int) ([]string, error) {
	paths := make([]string, 0, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("frame-%03d.jpg", i))

		frame := Frame(width, height, i)
		ok := gocv.IMWrite(path, frame)
		frame.Close()
		if !ok {
			return nil, fmt.Errorf("write frame %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// LoadSequence decodes the given image files in order.
func LoadSequence(paths []string) ([]*gocv.Mat, error) {
	var frames []*gocv.Mat
	for _, path := range paths {
		mat := gocv.IMRead(path, gocv.IMReadColor)
		if mat.Empty() {
			mat.Close()
			// Clean up already loaded frames
			for _, f := range frames {
				f.Close()
			}
			return nil, fmt.Errorf("load frame %s: empty image", path)
		}
		frames = append(frames, &mat)
	}
	return frames, nil
}
