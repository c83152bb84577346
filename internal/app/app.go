// Package app wires frame sources, the gesture recognizer and the results
// journal together.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/gesturebridge/internal/capture"
	"github.com/ayusman/gesturebridge/internal/detector"
	"github.com/ayusman/gesturebridge/internal/store"
)

// Source labels recorded with journaled results.
const (
	SourceCamera = "camera"
	SourceUpload = "upload"
)

// Config holds configuration options for the application.
type Config struct {
	Store *store.Store
	// Source feeds the pipeline. Defaults to the camera at CameraID.
	Source     capture.Source
	SourceName string
	CameraID   int
	FPS        int
	Options    detector.Options
}

// Event is published for every non-empty recognition.
type Event struct {
	// ID is the journal id, empty when no store is configured.
	ID          string           `json:"id,omitempty"`
	Source      string           `json:"source"`
	TimestampMs int64            `json:"timestamp_ms"`
	Result      *detector.Result `json:"result"`
}

// App owns the detector and runs the recognition pipeline.
type App struct {
	config   Config
	source   capture.Source
	detector detector.Detector
	images   *Recognizer

	enabled bool
	mu      sync.RWMutex
	stopCh  chan struct{}
	doneCh  chan struct{}

	subMu       sync.RWMutex
	subscribers map[int]func(Event)
	nextSubID   int

	stats pipelineStats
}

// New creates a new App. The MediaPipe detector is used when its service is
// installed; otherwise the app falls back to the mock detector.
func New(config Config) (*App, error) {
	if config.Options.NumHands == 0 {
		config.Options = detector.DefaultOptions()
	}
	if err := config.Options.Validate(); err != nil {
		return nil, err
	}
	if config.FPS <= 0 {
		config.FPS = capture.DefaultFPS
	}

	source := config.Source
	if source == nil {
		source = capture.NewCamera(config.CameraID)
		if config.SourceName == "" {
			config.SourceName = SourceCamera
		}
	}

	a := &App{
		config:      config,
		source:      source,
		enabled:     true,
		subscribers: make(map[int]func(Event)),
	}

	var d detector.Detector
	if mp, err := detector.NewMediaPipeDetector(config.Options); err == nil {
		d = mp
		log.Println("Using MediaPipe gesture recognizer")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		d = detector.NewMockDetector()
	}
	if err := a.SetDetector(d); err != nil {
		return nil, err
	}

	return a, nil
}

// SetDetector replaces the detector. It fails while the pipeline is running.
func (a *App) SetDetector(d detector.Detector) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return errors.New("cannot replace detector while pipeline is running")
	}
	images, err := NewRecognizer(shared{d}, a.config.Options, ModeImage)
	if err != nil {
		return err
	}
	a.detector = d
	a.images = images
	return nil
}

// shared keeps recognizers from closing the detector the App owns.
type shared struct {
	detector.Detector
}

func (shared) Close() error { return nil }

// SetEnabled pauses or resumes frame processing without stopping the source.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frame processing is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Subscribe registers fn to receive every published Event. The returned
// function removes the subscription.
func (a *App) Subscribe(fn func(Event)) (unsubscribe func()) {
	a.subMu.Lock()
	defer a.subMu.Unlock()

	id := a.nextSubID
	a.nextSubID++
	a.subscribers[id] = fn

	return func() {
		a.subMu.Lock()
		defer a.subMu.Unlock()
		delete(a.subscribers, id)
	}
}

func (a *App) publish(ev Event) {
	a.subMu.RLock()
	defer a.subMu.RUnlock()
	for _, fn := range a.subscribers {
		fn(ev)
	}
}

// RecognizeFrame recognizes a still image, journals a non-empty result and
// publishes it. An empty result is returned but neither stored nor published.
func (a *App) RecognizeFrame(frame *gocv.Mat, source string) (*Event, error) {
	a.mu.RLock()
	images := a.images
	a.mu.RUnlock()

	result, err := images.RecognizeImage(frame)
	if err != nil {
		return nil, err
	}
	return a.record(source, 0, result)
}

// record journals and publishes a recognized result.
func (a *App) record(source string, timestampMs int64, result *detector.Result) (*Event, error) {
	ev := &Event{Source: source, TimestampMs: timestampMs, Result: result}
	if result.Empty() {
		return ev, nil
	}

	if a.config.Store != nil {
		stored := &store.Result{Source: source, Data: result}
		if err := a.config.Store.Results().Create(stored); err != nil {
			return nil, fmt.Errorf("journal result: %w", err)
		}
		ev.ID = stored.ID
	}

	a.publish(*ev)
	return ev, nil
}

// Start opens the source and begins the recognition pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.source.Open(); err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	if cam, ok := a.source.(*capture.Camera); ok {
		cam.SetFPS(a.config.FPS)
	}

	video, err := NewRecognizer(shared{a.detector}, a.config.Options, ModeVideo)
	if err != nil {
		a.source.Close()
		return err
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(video, a.stopCh, a.doneCh)

	log.Printf("Recognition pipeline started (%d fps)", a.config.FPS)
	return nil
}

// Stop halts the pipeline and closes the source. The detector stays open so
// the app can be restarted or keep serving still images.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh = nil
	a.doneCh = nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	<-doneCh

	if err := a.source.Close(); err != nil {
		log.Printf("Error closing source: %v", err)
	}
	log.Println("Recognition pipeline stopped")
}

// Done is closed when the running pipeline exits, either because Stop was
// called or because the source ran out of frames. It is nil when stopped.
func (a *App) Done() <-chan struct{} {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.doneCh
}

// Running reports whether the pipeline goroutine has been started.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Close stops the pipeline and shuts down the detector.
func (a *App) Close() error {
	a.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.images.Close(); err != nil {
		return err
	}
	if err := a.detector.Close(); err != nil {
		return fmt.Errorf("close detector: %w", err)
	}
	return nil
}

// Source returns the frame source feeding the pipeline.
func (a *App) Source() capture.Source {
	return a.source
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Stats returns pipeline counters since the app was created.
func (a *App) Stats() Stats {
	return a.stats.snapshot()
}
