// Command libgesturebridge builds the C shared library:
//
//	go build -buildmode=c-shared -o libgesturebridge.so ./cmd/libgesturebridge
//
// Every function reporting an error through error_msg stores a malloc'd string
// there when error_msg is not NULL; the caller frees it with free().
package main

/*
#cgo CFLAGS: -I${SRCDIR}/../../internal/capi
#include <stdint.h>
#include <stdlib.h>
#include "gesture_recognizer_result.h"
*/
import "C"

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime/cgo"
	"unsafe"

	"github.com/ayusman/gesturebridge/internal/app"
	"github.com/ayusman/gesturebridge/internal/capi"
	"github.com/ayusman/gesturebridge/internal/capture"
	"github.com/ayusman/gesturebridge/internal/detector"
)

func main() {}

func setError(errorMsg **C.char, err error) {
	if errorMsg != nil {
		*errorMsg = C.CString(err.Error())
	}
}

// gesture_recognizer_create starts an image-mode recognizer keeping at most
// num_hands hands. It returns 0 on failure.
//
//export gesture_recognizer_create
func gesture_recognizer_create(numHands C.int, errorMsg **C.char) C.uintptr_t {
	r, err := newRecognizer(int(numHands))
	if err != nil {
		setError(errorMsg, err)
		return 0
	}
	return C.uintptr_t(cgo.NewHandle(r))
}

// gesture_recognizer_recognize_image recognizes the image file at path and
// converts the result into *result, which the caller later passes to
// gesture_recognizer_close_result. Returns 0 on success, -1 on failure.
//
//export gesture_recognizer_recognize_image
func gesture_recognizer_recognize_image(recognizer C.uintptr_t, path *C.char, result *C.GestureRecognizerResult, errorMsg **C.char) C.int {
	if path == nil || result == nil {
		setError(errorMsg, errors.New("path and result are required"))
		return -1
	}
	r, err := lookup(recognizer)
	if err != nil {
		setError(errorMsg, err)
		return -1
	}

	frame, err := capture.LoadImage(C.GoString(path))
	if err != nil {
		setError(errorMsg, err)
		return -1
	}
	defer frame.Close()

	res, err := r.RecognizeImage(frame)
	if err != nil {
		setError(errorMsg, err)
		return -1
	}
	capi.Convert(res, unsafe.Pointer(result))
	return 0
}

// gesture_recognizer_close shuts the recognizer down and invalidates its
// handle. Returns 0 on success, -1 on failure.
//
//export gesture_recognizer_close
func gesture_recognizer_close(recognizer C.uintptr_t, errorMsg **C.char) C.int {
	r, err := lookup(recognizer)
	if err != nil {
		setError(errorMsg, err)
		return -1
	}
	cgo.Handle(recognizer).Delete()

	if err := r.Close(); err != nil {
		setError(errorMsg, err)
		return -1
	}
	return 0
}

// gesture_recognizer_result_convert_json fills *result from a JSON encoded
// recognition result. Returns 0 on success, -1 on failure.
//
//export gesture_recognizer_result_convert_json
func gesture_recognizer_result_convert_json(data *C.char, result *C.GestureRecognizerResult, errorMsg **C.char) C.int {
	if data == nil || result == nil {
		setError(errorMsg, errors.New("data and result are required"))
		return -1
	}
	res, err := decodeResult(C.GoString(data))
	if err != nil {
		setError(errorMsg, err)
		return -1
	}
	capi.Convert(res, unsafe.Pointer(result))
	return 0
}

// gesture_recognizer_close_result frees everything a successful convert or
// recognize call stored in *result. Calling it again is a no-op.
//
//export gesture_recognizer_close_result
func gesture_recognizer_close_result(result *C.GestureRecognizerResult) {
	capi.Release(unsafe.Pointer(result))
}

func newRecognizer(numHands int) (*app.Recognizer, error) {
	opts := detector.DefaultOptions()
	opts.NumHands = numHands
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	d, err := detector.NewMediaPipeDetector(opts)
	if err != nil {
		return nil, fmt.Errorf("create detector: %w", err)
	}
	r, err := app.NewRecognizer(d, opts, app.ModeImage)
	if err != nil {
		d.Close()
		return nil, err
	}
	return r, nil
}

// lookup resolves a handle without panicking on values C made up.
func lookup(handle C.uintptr_t) (r *app.Recognizer, err error) {
	if handle == 0 {
		return nil, errors.New("invalid recognizer handle")
	}
	defer func() {
		if recover() != nil {
			r, err = nil, errors.New("invalid recognizer handle")
		}
	}()

	r, ok := cgo.Handle(handle).Value().(*app.Recognizer)
	if !ok {
		return nil, errors.New("invalid recognizer handle")
	}
	return r, nil
}

func decodeResult(data string) (*detector.Result, error) {
	var res detector.Result
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}
