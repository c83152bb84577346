package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/gesturebridge/internal/app"
	"github.com/ayusman/gesturebridge/internal/capi"
	"github.com/ayusman/gesturebridge/internal/capture"
	"github.com/ayusman/gesturebridge/internal/config"
	"github.com/ayusman/gesturebridge/internal/detector"
	"github.com/ayusman/gesturebridge/internal/server"
	"github.com/ayusman/gesturebridge/internal/store"
)

const usage = `Usage: gesturebridge [flags] [command]

Commands:
  serve            run the HTTP API and camera pipeline (default)
  recognize IMAGE  recognize an image file and print its C record as JSON
  replay ID        convert a journaled result and print its C record as JSON

Flags:
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory holding the results journal")
	flag.StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "directory of static files to serve")
	flag.IntVar(&cfg.CameraID, "camera", cfg.CameraID, "camera device id")
	flag.IntVar(&cfg.FPS, "fps", cfg.FPS, "camera frames per second")
	flag.IntVar(&cfg.NumHands, "num-hands", cfg.NumHands, "maximum number of hands to recognize")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "serve"
	}

	switch command {
	case "serve":
		err = serve(cfg)
	case "recognize":
		if flag.NArg() != 2 {
			flag.Usage()
			os.Exit(2)
		}
		err = recognize(cfg, flag.Arg(1), os.Stdout)
	case "replay":
		if flag.NArg() != 2 {
			flag.Usage()
			os.Exit(2)
		}
		err = replay(cfg, flag.Arg(1), os.Stdout)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func openStore(cfg config.Config) (*store.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}
	return st, nil
}

func serve(cfg config.Config) error {
	fmt.Println("gesturebridge - Hand Gesture Recognition")

	opts, err := cfg.DetectorOptions()
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	application, err := app.New(app.Config{
		Store:    st,
		CameraID: cfg.CameraID,
		FPS:      cfg.FPS,
		Options:  opts,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer application.Close()

	// Uploads keep working without a camera.
	if err := application.Start(); err != nil {
		log.Printf("Camera pipeline unavailable: %v", err)
	}

	webDir := cfg.StaticDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:      webDir,
		Store:          st,
		App:            application,
		RecognizeRPS:   cfg.RecognizeRPS,
		RecognizeBurst: cfg.RecognizeBurst,
	})
	defer srv.Close()

	httpServer := &http.Server{Addr: cfg.Addr, Handler: srv}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
	}
	return nil
}

func recognize(cfg config.Config, path string, w io.Writer) error {
	opts, err := cfg.DetectorOptions()
	if err != nil {
		return err
	}

	d, err := detector.NewMediaPipeDetector(opts)
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}
	recognizer, err := app.NewRecognizer(d, opts, app.ModeImage)
	if err != nil {
		d.Close()
		return err
	}
	defer recognizer.Close()

	frame, err := capture.LoadImage(path)
	if err != nil {
		return err
	}
	defer frame.Close()

	var rec capi.Record
	defer rec.Release()
	if err := recognizer.RecognizeInto(frame, &rec); err != nil {
		return err
	}

	return writeRecord(w, filepath.Base(path), &rec)
}

func replay(cfg config.Config, id string, w io.Writer) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := st.Results().GetByID(id)
	if err != nil {
		return fmt.Errorf("load result %s: %w", id, err)
	}

	rec := capi.NewRecord(res.Data)
	defer rec.Release()

	return writeRecord(w, res.ID, rec)
}

// recordOutput is the JSON printed for a converted record.
type recordOutput struct {
	Name                    string `json:"name"`
	GesturesCount           uint32 `json:"gestures_count"`
	HandednessCount         uint32 `json:"handedness_count"`
	HandLandmarksCount      uint32 `json:"hand_landmarks_count"`
	HandWorldLandmarksCount uint32 `json:"hand_world_landmarks_count"`
	capi.View
}

func writeRecord(w io.Writer, name string, rec *capi.Record) error {
	layout := rec.Layout()
	out := recordOutput{
		Name:                    name,
		GesturesCount:           layout.GesturesCount,
		HandednessCount:         layout.HandednessCount,
		HandLandmarksCount:      layout.HandLandmarksCount,
		HandWorldLandmarksCount: layout.HandWorldLandmarksCount,
		View:                    rec.View(),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and DATA_DIR/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	candidates := []string{"web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}
