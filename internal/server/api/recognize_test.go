package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/gesturebridge/internal/app"
	"github.com/ayusman/gesturebridge/internal/capture"
	"github.com/ayusman/gesturebridge/internal/detector"
)

type fakeRecognizer struct {
	result  *detector.Result
	err     error
	sources []string
	sizes   []int
}

func (f *fakeRecognizer) RecognizeFrame(frame *gocv.Mat, source string) (*app.Event, error) {
	f.sources = append(f.sources, source)
	f.sizes = append(f.sizes, frame.Cols())
	if f.err != nil {
		return nil, f.err
	}
	return &app.Event{ID: "result-1", Source: source, Result: f.result}, nil
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	data, err := capture.EncodeJPEG(&frame)
	if err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return data
}

func TestRecognizeHandler(t *testing.T) {
	image := testJPEG(t)

	t.Run("recognizes uploaded image", func(t *testing.T) {
		fake := &fakeRecognizer{result: detector.ClosedFistResult()}
		handler := NewRecognizeHandler(fake)

		req := httptest.NewRequest(http.MethodPost, "/api/recognize", bytes.NewReader(image))
		req.Header.Set("Content-Type", "image/jpeg")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}

		var ev app.Event
		if err := json.NewDecoder(rec.Body).Decode(&ev); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if ev.ID != "result-1" {
			t.Errorf("expected id result-1, got %q", ev.ID)
		}
		if top, ok := ev.Result.TopGesture(0); !ok || top.Label != "Closed_Fist" {
			t.Errorf("expected Closed_Fist, got %+v", ev.Result)
		}
		if len(fake.sources) != 1 || fake.sources[0] != app.SourceUpload {
			t.Errorf("expected upload source, got %v", fake.sources)
		}
		if fake.sizes[0] != 64 {
			t.Errorf("expected decoded width 64, got %d", fake.sizes[0])
		}
	})

	t.Run("source from query", func(t *testing.T) {
		fake := &fakeRecognizer{result: detector.EmptyResult()}
		handler := NewRecognizeHandler(fake)

		req := httptest.NewRequest(http.MethodPost, "/api/recognize?source=doorbell", bytes.NewReader(image))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if fake.sources[0] != "doorbell" {
			t.Errorf("expected doorbell source, got %q", fake.sources[0])
		}
	})

	tests := []struct {
		name   string
		method string
		body   []byte
		err    error
		want   int
	}{
		{name: "wrong method", method: http.MethodGet, want: http.StatusMethodNotAllowed},
		{name: "empty body", method: http.MethodPost, want: http.StatusBadRequest},
		{name: "not an image", method: http.MethodPost, body: []byte("hello"), want: http.StatusBadRequest},
		{name: "recognizer closed", method: http.MethodPost, body: image, err: app.ErrClosed, want: http.StatusServiceUnavailable},
		{name: "recognizer failure", method: http.MethodPost, body: image, err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewRecognizeHandler(&fakeRecognizer{err: tt.err})

			req := httptest.NewRequest(tt.method, "/api/recognize", bytes.NewReader(tt.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRecognizeHandler_RateLimit(t *testing.T) {
	image := testJPEG(t)
	handler := NewRecognizeHandler(&fakeRecognizer{result: detector.EmptyResult()})
	handler.SetRateLimit(0.001, 2)

	post := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/recognize", bytes.NewReader(image))
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := post("10.0.0.1:5000"); code != http.StatusOK {
			t.Fatalf("request %d: expected status %d, got %d", i, http.StatusOK, code)
		}
	}
	if code := post("10.0.0.1:5001"); code != http.StatusTooManyRequests {
		t.Errorf("expected status %d after burst, got %d", http.StatusTooManyRequests, code)
	}
	if code := post("10.0.0.2:5000"); code != http.StatusOK {
		t.Errorf("expected other client to be allowed, got %d", code)
	}
}
