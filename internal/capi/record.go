package capi

/*
#include "gesture_recognizer_result.h"
*/
import "C"

import (
	"unsafe"

	"github.com/ayusman/gesturebridge/internal/detector"
)

// Record is a Go-owned GestureRecognizerResult.
//
// The zero value is an empty record. A Record is not safe for concurrent use;
// distinct records share no storage.
type Record struct {
	c C.GestureRecognizerResult
}

// NewRecord converts src into a new Record. The caller must Release it.
func NewRecord(src *detector.Result) *Record {
	r := &Record{}
	r.Convert(src)
	return r
}

// Convert releases whatever r currently holds and repopulates it from src.
func (r *Record) Convert(src *detector.Result) {
	release(&r.c)
	convert(src, &r.c)
}

// Release frees every C allocation held by r. It may be called any number of
// times.
func (r *Record) Release() {
	release(&r.c)
}

// Ptr returns a pointer to the underlying GestureRecognizerResult for passing
// to C. C code must not retain it past the call.
func (r *Record) Ptr() unsafe.Pointer {
	return unsafe.Pointer(&r.c)
}

// Layout describes the pointer and count fields of a record as a C caller
// sees them.
type Layout struct {
	GesturesCount              uint32
	GesturesCategoriesCounts   []uint32
	GesturesNull               bool
	HandednessCount            uint32
	HandednessCategoriesCounts []uint32
	HandednessNull             bool
	HandLandmarksCount         uint32
	HandLandmarksCounts        []uint32
	HandLandmarksNull          bool
	HandWorldLandmarksCount    uint32
	HandWorldLandmarksCounts   []uint32
	HandWorldLandmarksNull     bool
}

// Layout reads the record's counts and pointer nullness.
func (r *Record) Layout() Layout {
	return readLayout(&r.c)
}

// ReadLayout reads the Layout of the GestureRecognizerResult at rec.
func ReadLayout(rec unsafe.Pointer) Layout {
	return readLayout((*C.GestureRecognizerResult)(rec))
}

func readLayout(c *C.GestureRecognizerResult) Layout {
	l := Layout{
		GesturesCount:           uint32(c.gestures_count),
		GesturesNull:            c.gestures == nil,
		HandednessCount:         uint32(c.handedness_count),
		HandednessNull:          c.handedness == nil,
		HandLandmarksCount:      uint32(c.hand_landmarks_count),
		HandLandmarksNull:       c.hand_landmarks == nil,
		HandWorldLandmarksCount: uint32(c.hand_world_landmarks_count),
		HandWorldLandmarksNull:  c.hand_world_landmarks == nil,
	}

	l.GesturesCategoriesCounts = copyCounts(c.gestures_categories_counts, c.gestures_count)
	l.HandednessCategoriesCounts = copyCounts(c.handedness_categories_counts, c.handedness_count)

	if c.hand_landmarks != nil {
		for _, hand := range unsafe.Slice(c.hand_landmarks, int(c.hand_landmarks_count)) {
			l.HandLandmarksCounts = append(l.HandLandmarksCounts, uint32(hand.landmarks_count))
		}
	}
	if c.hand_world_landmarks != nil {
		for _, hand := range unsafe.Slice(c.hand_world_landmarks, int(c.hand_world_landmarks_count)) {
			l.HandWorldLandmarksCounts = append(l.HandWorldLandmarksCounts, uint32(hand.landmarks_count))
		}
	}

	return l
}

func copyCounts(counts *C.uint32_t, n C.uint32_t) []uint32 {
	if counts == nil {
		return nil
	}
	out := make([]uint32, 0, int(n))
	for _, v := range unsafe.Slice(counts, int(n)) {
		out = append(out, uint32(v))
	}
	return out
}

// Category is a classification as read back from a record.
type Category struct {
	CategoryName string  `json:"category_name"`
	Score        float32 `json:"score"`
}

// Point is a landmark as read back from a record.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// View is a Go copy of everything a C caller can read from a record,
// indexed by (hand, entry).
type View struct {
	Gestures           [][]Category `json:"gestures"`
	Handedness         [][]Category `json:"handedness"`
	HandLandmarks      [][]Point    `json:"hand_landmarks"`
	HandWorldLandmarks [][]Point    `json:"hand_world_landmarks"`
}

// View copies the record's contents into Go memory. The View stays valid
// after the record is released.
func (r *Record) View() View {
	return readView(&r.c)
}

// ReadView copies the contents of the GestureRecognizerResult at rec.
func ReadView(rec unsafe.Pointer) View {
	return readView((*C.GestureRecognizerResult)(rec))
}

func readView(c *C.GestureRecognizerResult) View {
	v := View{
		Gestures:           readCategories(c.gestures, c.gestures_categories_counts, c.gestures_count),
		Handedness:         readCategories(c.handedness, c.handedness_categories_counts, c.handedness_count),
		HandLandmarks:      [][]Point{},
		HandWorldLandmarks: [][]Point{},
	}

	if c.hand_landmarks != nil {
		for _, hand := range unsafe.Slice(c.hand_landmarks, int(c.hand_landmarks_count)) {
			points := make([]Point, 0, int(hand.landmarks_count))
			if hand.landmarks != nil {
				for _, lm := range unsafe.Slice(hand.landmarks, int(hand.landmarks_count)) {
					points = append(points, Point{X: float32(lm.x), Y: float32(lm.y), Z: float32(lm.z)})
				}
			}
			v.HandLandmarks = append(v.HandLandmarks, points)
		}
	}
	if c.hand_world_landmarks != nil {
		for _, hand := range unsafe.Slice(c.hand_world_landmarks, int(c.hand_world_landmarks_count)) {
			points := make([]Point, 0, int(hand.landmarks_count))
			if hand.landmarks != nil {
				for _, lm := range unsafe.Slice(hand.landmarks, int(hand.landmarks_count)) {
					points = append(points, Point{X: float32(lm.x), Y: float32(lm.y), Z: float32(lm.z)})
				}
			}
			v.HandWorldLandmarks = append(v.HandWorldLandmarks, points)
		}
	}

	return v
}

func readCategories(outer **C.Category, counts *C.uint32_t, n C.uint32_t) [][]Category {
	hands := [][]Category{}
	if outer == nil || counts == nil {
		return hands
	}
	sizes := unsafe.Slice(counts, int(n))
	for i, inner := range unsafe.Slice(outer, int(n)) {
		categories := make([]Category, 0, int(sizes[i]))
		if inner != nil {
			for _, c := range unsafe.Slice(inner, int(sizes[i])) {
				categories = append(categories, Category{
					CategoryName: C.GoString(c.category_name),
					Score:        float32(c.score),
				})
			}
		}
		hands = append(hands, categories)
	}
	return hands
}
