// Package capi converts recognition results into the flat C record that is
// handed across the foreign-function boundary, and releases it again.
//
// Every array reachable from a converted GestureRecognizerResult lives on the
// C heap and is owned by that record until Release is called.
package capi

/*
#include <stdlib.h>
#include "gesture_recognizer_result.h"
*/
import "C"

import (
	"sync/atomic"
	"unsafe"

	"github.com/ayusman/gesturebridge/internal/detector"
)

// outstanding counts C allocations made by Convert that Release has not yet
// freed.
var outstanding atomic.Int64

// Outstanding returns the number of live C allocations owned by converted
// records across the process.
func Outstanding() int64 {
	return outstanding.Load()
}

// cmalloc never returns nil: cgo aborts the process when malloc fails and
// substitutes a 1-byte block for zero-sized requests.
func cmalloc(size uintptr) unsafe.Pointer {
	outstanding.Add(1)
	return C.malloc(C.size_t(size))
}

func cstring(s string) *C.char {
	outstanding.Add(1)
	return C.CString(s)
}

func cfree(p unsafe.Pointer) {
	if p == nil {
		return
	}
	outstanding.Add(-1)
	C.free(p)
}

// Convert deep-copies src into the GestureRecognizerResult pointed to by out.
// The previous contents of out are overwritten without being released, so out
// must be zeroed or already released. A nil src converts as an empty result.
func Convert(src *detector.Result, out unsafe.Pointer) {
	convert(src, (*C.GestureRecognizerResult)(out))
}

// Release frees everything Convert allocated for the record at rec and zeroes
// it. Releasing a zeroed record is a no-op.
func Release(rec unsafe.Pointer) {
	release((*C.GestureRecognizerResult)(rec))
}

func convert(src *detector.Result, out *C.GestureRecognizerResult) {
	if src == nil {
		src = &detector.Result{}
	}

	// Fields are assigned to out only once every allocation has succeeded.
	var r C.GestureRecognizerResult
	r.gestures, r.gestures_categories_counts, r.gestures_count = convertCategories(src.Gestures)
	r.handedness, r.handedness_categories_counts, r.handedness_count = convertCategories(src.Handedness)
	r.hand_landmarks, r.hand_landmarks_count = convertNormalizedLandmarks(src.HandLandmarks)
	r.hand_world_landmarks, r.hand_world_landmarks_count = convertLandmarks(src.HandWorldLandmarks)

	*out = r
}

// convertCategories returns NULL arrays for an empty group. Index and
// DisplayName are not part of the C record and are dropped.
func convertCategories(hands [][]detector.Category) (**C.Category, *C.uint32_t, C.uint32_t) {
	if len(hands) == 0 {
		return nil, nil, 0
	}

	outerPtr := (**C.Category)(cmalloc(uintptr(len(hands)) * unsafe.Sizeof((*C.Category)(nil))))
	countsPtr := (*C.uint32_t)(cmalloc(uintptr(len(hands)) * unsafe.Sizeof(C.uint32_t(0))))
	outer := unsafe.Slice(outerPtr, len(hands))
	counts := unsafe.Slice(countsPtr, len(hands))

	for i, categories := range hands {
		innerPtr := (*C.Category)(cmalloc(uintptr(len(categories)) * unsafe.Sizeof(C.Category{})))
		inner := unsafe.Slice(innerPtr, len(categories))
		for j, c := range categories {
			inner[j] = C.Category{
				category_name: cstring(c.Label),
				score:         C.float(c.Score),
			}
		}
		outer[i] = innerPtr
		counts[i] = C.uint32_t(len(categories))
	}

	return outerPtr, countsPtr, C.uint32_t(len(hands))
}

func convertNormalizedLandmarks(hands [][]detector.NormalizedLandmark) (*C.NormalizedLandmarks, C.uint32_t) {
	outerPtr := (*C.NormalizedLandmarks)(cmalloc(uintptr(len(hands)) * unsafe.Sizeof(C.NormalizedLandmarks{})))
	outer := unsafe.Slice(outerPtr, len(hands))

	for i, landmarks := range hands {
		innerPtr := (*C.NormalizedLandmark)(cmalloc(uintptr(len(landmarks)) * unsafe.Sizeof(C.NormalizedLandmark{})))
		inner := unsafe.Slice(innerPtr, len(landmarks))
		for j, lm := range landmarks {
			inner[j] = C.NormalizedLandmark{x: C.float(lm.X), y: C.float(lm.Y), z: C.float(lm.Z)}
		}
		outer[i] = C.NormalizedLandmarks{
			landmarks:       innerPtr,
			landmarks_count: C.uint32_t(len(landmarks)),
		}
	}

	return outerPtr, C.uint32_t(len(hands))
}

func convertLandmarks(hands [][]detector.Landmark) (*C.Landmarks, C.uint32_t) {
	outerPtr := (*C.Landmarks)(cmalloc(uintptr(len(hands)) * unsafe.Sizeof(C.Landmarks{})))
	outer := unsafe.Slice(outerPtr, len(hands))

	for i, landmarks := range hands {
		innerPtr := (*C.Landmark)(cmalloc(uintptr(len(landmarks)) * unsafe.Sizeof(C.Landmark{})))
		inner := unsafe.Slice(innerPtr, len(landmarks))
		for j, lm := range landmarks {
			inner[j] = C.Landmark{x: C.float(lm.X), y: C.float(lm.Y), z: C.float(lm.Z)}
		}
		outer[i] = C.Landmarks{
			landmarks:       innerPtr,
			landmarks_count: C.uint32_t(len(landmarks)),
		}
	}

	return outerPtr, C.uint32_t(len(hands))
}

func release(r *C.GestureRecognizerResult) {
	if r == nil {
		return
	}

	releaseCategories(r.gestures, r.gestures_categories_counts, r.gestures_count)
	r.gestures = nil
	r.gestures_categories_counts = nil
	r.gestures_count = 0

	releaseCategories(r.handedness, r.handedness_categories_counts, r.handedness_count)
	r.handedness = nil
	r.handedness_categories_counts = nil
	r.handedness_count = 0

	if r.hand_landmarks != nil {
		for _, hand := range unsafe.Slice(r.hand_landmarks, int(r.hand_landmarks_count)) {
			cfree(unsafe.Pointer(hand.landmarks))
		}
		cfree(unsafe.Pointer(r.hand_landmarks))
	}
	r.hand_landmarks = nil
	r.hand_landmarks_count = 0

	if r.hand_world_landmarks != nil {
		for _, hand := range unsafe.Slice(r.hand_world_landmarks, int(r.hand_world_landmarks_count)) {
			cfree(unsafe.Pointer(hand.landmarks))
		}
		cfree(unsafe.Pointer(r.hand_world_landmarks))
	}
	r.hand_world_landmarks = nil
	r.hand_world_landmarks_count = 0
}

// releaseCategories frees names, then per-hand arrays, then the outer and
// counts arrays. Category names are only reachable through counts, so a record
// with a NULL counts array only has its arrays freed.
func releaseCategories(outer **C.Category, counts *C.uint32_t, n C.uint32_t) {
	if outer != nil {
		var sizes []C.uint32_t
		if counts != nil {
			sizes = unsafe.Slice(counts, int(n))
		}
		for i, inner := range unsafe.Slice(outer, int(n)) {
			if inner == nil {
				continue
			}
			if sizes != nil {
				for _, c := range unsafe.Slice(inner, int(sizes[i])) {
					cfree(unsafe.Pointer(c.category_name))
				}
			}
			cfree(unsafe.Pointer(inner))
		}
	}
	cfree(unsafe.Pointer(outer))
	cfree(unsafe.Pointer(counts))
}
