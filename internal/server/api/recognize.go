package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/gesturebridge/internal/app"
	"github.com/ayusman/gesturebridge/internal/capture"
)

// MaxImageBytes limits the size of an uploaded image.
const MaxImageBytes = 10 << 20

// FrameRecognizer recognizes and journals a single frame. *app.App
// implements it.
type FrameRecognizer interface {
	RecognizeFrame(frame *gocv.Mat, source string) (*app.Event, error)
}

// RecognizeHandler handles POST /api/recognize with an encoded image body.
type RecognizeHandler struct {
	recognizer FrameRecognizer
	limiter    *clientLimiter
}

// NewRecognizeHandler creates a new RecognizeHandler.
func NewRecognizeHandler(r FrameRecognizer) *RecognizeHandler {
	return &RecognizeHandler{recognizer: r}
}

// SetRateLimit limits each client to rps uploads per second with the given
// burst. A non-positive rps or burst removes the limit.
func (h *RecognizeHandler) SetRateLimit(rps float64, burst int) {
	h.limiter = newClientLimiter(rps, burst)
}

// ServeHTTP implements the http.Handler interface.
func (h *RecognizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.limiter.Allow(clientKey(r), time.Now()) {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxImageBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Image too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to read image")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "Image is required")
		return
	}

	frame, err := capture.DecodeImage(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid image")
		return
	}
	defer frame.Close()

	source := r.URL.Query().Get("source")
	if source == "" {
		source = app.SourceUpload
	}

	ev, err := h.recognizer.RecognizeFrame(frame, source)
	if err != nil {
		if errors.Is(err, app.ErrClosed) {
			writeError(w, http.StatusServiceUnavailable, "Recognizer is closed")
			return
		}
		log.Printf("recognize upload: %v", err)
		writeError(w, http.StatusInternalServerError, "Recognition failed")
		return
	}

	writeJSON(w, http.StatusOK, ev)
}
