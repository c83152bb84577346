package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// FileSource plays back a list of image files as frames.
type FileSource struct {
	paths []string
	loop  bool
	index int
	open  bool
	mu    sync.Mutex
}

// NewFileSource creates a FileSource over paths. When loop is set, playback
// restarts from the first file after the last.
func NewFileSource(paths []string, loop bool) *FileSource {
	return &FileSource{
		paths: append([]string(nil), paths...),
		loop:  loop,
	}
}

// Open rewinds the source to the first file.
func (s *FileSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.paths) == 0 {
		return fmt.Errorf("file source: no image paths")
	}
	s.open = true
	s.index = 0
	return nil
}

// Close stops playback.
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// ReadFrame decodes the next file.
func (s *FileSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, ErrSourceNotOpen
	}

	if s.index >= len(s.paths) {
		if !s.loop {
			return nil, ErrExhausted
		}
		s.index = 0
	}

	path := s.paths[s.index]
	s.index++
	return LoadImage(path)
}

// IsOpen reports whether the source is open.
func (s *FileSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}
