package main

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/gesturebridge/internal/detector"
)

func TestDecodeResult(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		want := detector.OpenPalmResult()
		data, err := json.Marshal(want)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		got, err := decodeResult(string(data))
		if err != nil {
			t.Fatalf("decodeResult() error = %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("result mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing groups decode as nil", func(t *testing.T) {
		got, err := decodeResult(`{"gestures":[[{"category_name":"Victory","score":0.8}]]}`)
		if err != nil {
			t.Fatalf("decodeResult() error = %v", err)
		}
		if got.NumHands() != 1 || got.HandLandmarks != nil {
			t.Errorf("unexpected result %+v", got)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		if _, err := decodeResult("{"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestNewRecognizer_InvalidHands(t *testing.T) {
	if _, err := newRecognizer(0); err == nil {
		t.Error("expected error for zero hands")
	}
}
