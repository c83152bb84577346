package app

import (
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/ayusman/gesturebridge/internal/capture"
)

// Stats counts pipeline activity.
type Stats struct {
	Frames     int64 `json:"frames"`
	Recognized int64 `json:"recognized"`
	Errors     int64 `json:"errors"`
}

type pipelineStats struct {
	frames     atomic.Int64
	recognized atomic.Int64
	errors     atomic.Int64
}

func (s *pipelineStats) snapshot() Stats {
	return Stats{
		Frames:     s.frames.Load(),
		Recognized: s.recognized.Load(),
		Errors:     s.errors.Load(),
	}
}

// runPipeline reads frames from the source at the configured rate and feeds
// them to a video-mode recognizer.
//
// Each frame gets a timestamp in milliseconds since the pipeline started,
// bumped by one when two ticks land in the same millisecond so the recognizer
// always sees increasing timestamps. Non-empty results are journaled and
// published. The loop ends on stop or when the source is exhausted.
func (a *App) runPipeline(video *Recognizer, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer video.Close()

	start := time.Now()
	lastTimestamp := int64(-1)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.source.ReadFrame()
			if errors.Is(err, capture.ErrExhausted) {
				log.Println("Frame source exhausted")
				return
			}
			if err != nil {
				a.stats.errors.Add(1)
				log.Printf("Error reading frame: %v", err)
				continue
			}
			a.stats.frames.Add(1)

			timestamp := time.Since(start).Milliseconds()
			if timestamp <= lastTimestamp {
				timestamp = lastTimestamp + 1
			}
			lastTimestamp = timestamp

			result, err := video.RecognizeForVideo(frame, timestamp)
			frame.Close()
			if err != nil {
				a.stats.errors.Add(1)
				log.Printf("Error recognizing frame: %v", err)
				continue
			}
			if result.Empty() {
				continue
			}

			a.stats.recognized.Add(1)
			if _, err := a.record(a.config.SourceName, timestamp, result); err != nil {
				a.stats.errors.Add(1)
				log.Printf("Error recording result: %v", err)
			}
		}
	}
}
