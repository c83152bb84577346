// Package config loads gesturebridge settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeshaw/envdecode"

	"github.com/ayusman/gesturebridge/internal/detector"
)

// DatabaseName is the journal file created inside DataDir.
const DatabaseName = "gesturebridge.db"

// Config holds process-wide settings. Defaults come from the struct tags.
type Config struct {
	// Addr is the HTTP listen address. ENV: GESTUREBRIDGE_ADDR
	Addr string `env:"GESTUREBRIDGE_ADDR,default=:8080"`
	// DataDir holds the results journal. ENV: GESTUREBRIDGE_DATA_DIR
	DataDir string `env:"GESTUREBRIDGE_DATA_DIR"`
	// StaticDir is served at / when set. ENV: GESTUREBRIDGE_STATIC_DIR
	StaticDir string `env:"GESTUREBRIDGE_STATIC_DIR"`

	// RecognizeRPS limits image uploads per client. Zero disables the limit.
	RecognizeRPS   float64 `env:"GESTUREBRIDGE_RECOGNIZE_RPS,default=5"`
	RecognizeBurst int     `env:"GESTUREBRIDGE_RECOGNIZE_BURST,default=10"`

	CameraID int `env:"GESTUREBRIDGE_CAMERA_ID,default=0"`
	FPS      int `env:"GESTUREBRIDGE_FPS,default=15"`

	NumHands                   int     `env:"GESTUREBRIDGE_NUM_HANDS,default=2"`
	MinHandDetectionConfidence float64 `env:"GESTUREBRIDGE_MIN_DETECTION_CONFIDENCE,default=0.5"`
	MinHandPresenceConfidence  float64 `env:"GESTUREBRIDGE_MIN_PRESENCE_CONFIDENCE,default=0.5"`
	MinTrackingConfidence      float64 `env:"GESTUREBRIDGE_MIN_TRACKING_CONFIDENCE,default=0.5"`
	GestureScoreThreshold      float64 `env:"GESTUREBRIDGE_GESTURE_SCORE_THRESHOLD,default=0"`
	GestureMaxResults          int     `env:"GESTUREBRIDGE_GESTURE_MAX_RESULTS,default=-1"`
	// GestureAllowlist is a comma separated list of gesture labels.
	GestureAllowlist string `env:"GESTUREBRIDGE_GESTURE_ALLOWLIST"`
	GestureDenylist  string `env:"GESTUREBRIDGE_GESTURE_DENYLIST"`
}

// Load decodes the environment into a Config and fills in DataDir.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".gesturebridge")
	}

	return cfg, nil
}

// DatabasePath returns the journal location inside DataDir.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, DatabaseName)
}

// DetectorOptions converts the recognizer settings into validated
// detector options.
func (c Config) DetectorOptions() (detector.Options, error) {
	opts := detector.DefaultOptions()
	opts.NumHands = c.NumHands
	opts.MinHandDetectionConfidence = float32(c.MinHandDetectionConfidence)
	opts.MinHandPresenceConfidence = float32(c.MinHandPresenceConfidence)
	opts.MinTrackingConfidence = float32(c.MinTrackingConfidence)
	opts.Gestures.ScoreThreshold = float32(c.GestureScoreThreshold)
	opts.Gestures.MaxResults = c.GestureMaxResults
	opts.Gestures.CategoryAllowlist = splitList(c.GestureAllowlist)
	opts.Gestures.CategoryDenylist = splitList(c.GestureDenylist)

	if err := opts.Validate(); err != nil {
		return detector.Options{}, err
	}
	return opts, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
