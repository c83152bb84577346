package capi

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ayusman/gesturebridge/internal/detector"
)

// expectedAllocations mirrors the allocation plan of convert: classification
// groups allocate nothing when empty, landmark groups always allocate their
// outer array.
func expectedAllocations(r *detector.Result) int64 {
	var n int64
	for _, group := range [][][]detector.Category{r.Gestures, r.Handedness} {
		if len(group) == 0 {
			continue
		}
		n += 2 // outer array + counts array
		for _, hand := range group {
			n += 1 + int64(len(hand))
		}
	}
	n += 1 + int64(len(r.HandLandmarks))
	n += 1 + int64(len(r.HandWorldLandmarks))
	return n
}

// viewOf builds the View a correct conversion of r must produce.
func viewOf(r *detector.Result) View {
	v := View{}
	for _, hand := range r.Gestures {
		v.Gestures = append(v.Gestures, categoriesOf(hand))
	}
	for _, hand := range r.Handedness {
		v.Handedness = append(v.Handedness, categoriesOf(hand))
	}
	for _, hand := range r.HandLandmarks {
		points := []Point{}
		for _, lm := range hand {
			points = append(points, Point{X: lm.X, Y: lm.Y, Z: lm.Z})
		}
		v.HandLandmarks = append(v.HandLandmarks, points)
	}
	for _, hand := range r.HandWorldLandmarks {
		points := []Point{}
		for _, lm := range hand {
			points = append(points, Point{X: lm.X, Y: lm.Y, Z: lm.Z})
		}
		v.HandWorldLandmarks = append(v.HandWorldLandmarks, points)
	}
	return v
}

func categoriesOf(hand []detector.Category) []Category {
	out := []Category{}
	for _, c := range hand {
		out = append(out, Category{CategoryName: c.Label, Score: c.Score})
	}
	return out
}

func innerLengths[T any](groups [][]T) []uint32 {
	var out []uint32
	for _, g := range groups {
		out = append(out, uint32(len(g)))
	}
	return out
}

// randomResult builds a jagged result whose four groups have independent
// outer lengths.
func randomResult(rng *rand.Rand) *detector.Result {
	r := &detector.Result{}
	for range rng.IntN(4) {
		r.Gestures = append(r.Gestures, randomCategories(rng))
	}
	for range rng.IntN(4) {
		r.Handedness = append(r.Handedness, randomCategories(rng))
	}
	for range rng.IntN(4) {
		var hand []detector.NormalizedLandmark
		for range rng.IntN(detector.NumLandmarks + 1) {
			hand = append(hand, detector.NormalizedLandmark{X: rng.Float32(), Y: rng.Float32(), Z: rng.Float32() - 0.5})
		}
		r.HandLandmarks = append(r.HandLandmarks, hand)
	}
	for range rng.IntN(4) {
		var hand []detector.Landmark
		for range rng.IntN(detector.NumLandmarks + 1) {
			hand = append(hand, detector.Landmark{X: rng.Float32() - 0.5, Y: rng.Float32() - 0.5, Z: rng.Float32() - 0.5})
		}
		r.HandWorldLandmarks = append(r.HandWorldLandmarks, hand)
	}
	return r
}

func randomCategories(rng *rand.Rand) []detector.Category {
	var categories []detector.Category
	for i := range rng.IntN(5) {
		categories = append(categories, detector.Category{
			Index:       int32(i),
			Score:       rng.Float32(),
			Label:       fmt.Sprintf("label_%d_%d", i, rng.IntN(1000)),
			DisplayName: "display",
		})
	}
	return categories
}

func TestRecord_ClosedFist(t *testing.T) {
	before := Outstanding()

	src := detector.ClosedFistResult()
	rec := NewRecord(src)

	layout := rec.Layout()
	if layout.GesturesCount != 1 {
		t.Errorf("gestures_count = %d, want 1", layout.GesturesCount)
	}
	if diff := cmp.Diff([]uint32{1}, layout.GesturesCategoriesCounts); diff != "" {
		t.Errorf("gestures_categories_counts mismatch (-want +got):\n%s", diff)
	}
	if layout.HandednessCount != 1 {
		t.Errorf("handedness_count = %d, want 1", layout.HandednessCount)
	}
	if layout.HandLandmarksCount != 1 || layout.HandWorldLandmarksCount != 1 {
		t.Errorf("landmark counts = %d/%d, want 1/1", layout.HandLandmarksCount, layout.HandWorldLandmarksCount)
	}

	view := rec.View()
	if got := view.Gestures[0][0]; got != (Category{CategoryName: "Closed_Fist", Score: 0.90}) {
		t.Errorf("gestures[0][0] = %+v", got)
	}
	if got := view.Handedness[0][0]; got != (Category{CategoryName: "Right", Score: 0.9893}) {
		t.Errorf("handedness[0][0] = %+v", got)
	}
	if got := view.HandLandmarks[0][0]; got != (Point{X: 0.477, Y: 0.661, Z: 0.0}) {
		t.Errorf("hand_landmarks[0][0] = %+v", got)
	}
	if got := view.HandWorldLandmarks[0][0]; got != (Point{X: -0.009, Y: 0.082, Z: 0.006}) {
		t.Errorf("hand_world_landmarks[0][0] = %+v", got)
	}

	if got := Outstanding() - before; got != expectedAllocations(src) {
		t.Errorf("allocations = %d, want %d", got, expectedAllocations(src))
	}

	rec.Release()

	want := Layout{
		GesturesNull:           true,
		HandednessNull:         true,
		HandLandmarksNull:      true,
		HandWorldLandmarksNull: true,
	}
	if diff := cmp.Diff(want, rec.Layout()); diff != "" {
		t.Errorf("layout after release mismatch (-want +got):\n%s", diff)
	}
	if Outstanding() != before {
		t.Errorf("leaked %d allocations", Outstanding()-before)
	}
}

func TestConvert_Shape(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for i := range 200 {
		src := randomResult(rng)

		t.Run(fmt.Sprintf("result_%d", i), func(t *testing.T) {
			before := Outstanding()

			var rec Record
			Convert(src, rec.Ptr())

			layout := ReadLayout(rec.Ptr())
			if int(layout.GesturesCount) != len(src.Gestures) {
				t.Errorf("gestures_count = %d, want %d", layout.GesturesCount, len(src.Gestures))
			}
			if int(layout.HandednessCount) != len(src.Handedness) {
				t.Errorf("handedness_count = %d, want %d", layout.HandednessCount, len(src.Handedness))
			}
			if int(layout.HandLandmarksCount) != len(src.HandLandmarks) {
				t.Errorf("hand_landmarks_count = %d, want %d", layout.HandLandmarksCount, len(src.HandLandmarks))
			}
			if int(layout.HandWorldLandmarksCount) != len(src.HandWorldLandmarks) {
				t.Errorf("hand_world_landmarks_count = %d, want %d", layout.HandWorldLandmarksCount, len(src.HandWorldLandmarks))
			}

			inner := []struct {
				name string
				got  []uint32
				want []uint32
			}{
				{"gestures", layout.GesturesCategoriesCounts, innerLengths(src.Gestures)},
				{"handedness", layout.HandednessCategoriesCounts, innerLengths(src.Handedness)},
				{"hand_landmarks", layout.HandLandmarksCounts, innerLengths(src.HandLandmarks)},
				{"hand_world_landmarks", layout.HandWorldLandmarksCounts, innerLengths(src.HandWorldLandmarks)},
			}
			for _, c := range inner {
				if diff := cmp.Diff(c.want, c.got, cmpopts.EquateEmpty()); diff != "" {
					t.Errorf("%s inner counts mismatch (-want +got):\n%s", c.name, diff)
				}
			}

			if layout.GesturesNull != (len(src.Gestures) == 0) {
				t.Errorf("gestures null = %v with %d hands", layout.GesturesNull, len(src.Gestures))
			}
			if layout.HandednessNull != (len(src.Handedness) == 0) {
				t.Errorf("handedness null = %v with %d hands", layout.HandednessNull, len(src.Handedness))
			}
			if layout.HandLandmarksNull || layout.HandWorldLandmarksNull {
				t.Error("landmark groups must never be null after conversion")
			}

			if diff := cmp.Diff(viewOf(src), ReadView(rec.Ptr()), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("view mismatch (-want +got):\n%s", diff)
			}

			if got := Outstanding() - before; got != expectedAllocations(src) {
				t.Errorf("allocations = %d, want %d", got, expectedAllocations(src))
			}

			Release(rec.Ptr())
			if Outstanding() != before {
				t.Errorf("leaked %d allocations", Outstanding()-before)
			}
		})
	}
}

func TestConvert_FieldFidelity(t *testing.T) {
	scores := []float32{
		0,
		float32(math.Copysign(0, -1)),
		math.SmallestNonzeroFloat32,
		math.MaxFloat32,
		float32(math.Inf(1)),
		float32(math.NaN()),
		0.9893,
		1.0 / 3.0,
	}
	labels := []string{"", "Closed_Fist", "ñandú 手", "with spaces and\ttabs", "Thumb_Up"}

	var categories []detector.Category
	for i, s := range scores {
		categories = append(categories, detector.Category{
			Index: int32(i),
			Score: s,
			Label: labels[i%len(labels)],
		})
	}

	var landmarks []detector.NormalizedLandmark
	var world []detector.Landmark
	for _, s := range scores {
		landmarks = append(landmarks, detector.NormalizedLandmark{X: s, Y: -s, Z: s / 2})
		world = append(world, detector.Landmark{X: -s, Y: s, Z: s * 2})
	}

	src := &detector.Result{
		Gestures:           [][]detector.Category{categories},
		Handedness:         [][]detector.Category{categories[:2]},
		HandLandmarks:      [][]detector.NormalizedLandmark{landmarks},
		HandWorldLandmarks: [][]detector.Landmark{world},
	}

	rec := NewRecord(src)
	defer rec.Release()
	view := rec.View()

	sameBits := func(a, b float32) bool {
		return math.Float32bits(a) == math.Float32bits(b)
	}

	for j, c := range categories {
		got := view.Gestures[0][j]
		if got.CategoryName != c.Label {
			t.Errorf("gesture %d name = %q, want %q", j, got.CategoryName, c.Label)
		}
		if !sameBits(got.Score, c.Score) {
			t.Errorf("gesture %d score bits = %x, want %x", j, math.Float32bits(got.Score), math.Float32bits(c.Score))
		}
	}

	for j, lm := range landmarks {
		got := view.HandLandmarks[0][j]
		if !sameBits(got.X, lm.X) || !sameBits(got.Y, lm.Y) || !sameBits(got.Z, lm.Z) {
			t.Errorf("landmark %d = %+v, want %+v", j, got, lm)
		}
	}
	for j, lm := range world {
		got := view.HandWorldLandmarks[0][j]
		if !sameBits(got.X, lm.X) || !sameBits(got.Y, lm.Y) || !sameBits(got.Z, lm.Z) {
			t.Errorf("world landmark %d = %+v, want %+v", j, got, lm)
		}
	}
}

func TestConvert_DoesNotAliasSource(t *testing.T) {
	label := []byte("Victory")
	src := &detector.Result{
		Gestures: [][]detector.Category{{{Score: 0.5, Label: string(label)}}},
	}

	rec := NewRecord(src)
	defer rec.Release()

	src.Gestures[0][0].Label = "Changed"
	src.Gestures[0][0].Score = 0.1
	src.Gestures = nil

	view := rec.View()
	if view.Gestures[0][0].CategoryName != "Victory" || view.Gestures[0][0].Score != 0.5 {
		t.Errorf("record changed with its source: %+v", view.Gestures[0][0])
	}
}

func TestConvert_DoesNotMutateSource(t *testing.T) {
	src := detector.OpenPalmResult()
	want := src.Clone()

	rec := NewRecord(src)
	rec.Release()

	if diff := cmp.Diff(want, src); diff != "" {
		t.Errorf("source mutated (-want +got):\n%s", diff)
	}
}

func TestConvert_Empty(t *testing.T) {
	tests := []struct {
		name string
		src  *detector.Result
	}{
		{name: "nil result", src: nil},
		{name: "zero value", src: &detector.Result{}},
		{name: "empty groups", src: detector.EmptyResult()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := Outstanding()

			rec := NewRecord(tt.src)

			want := Layout{
				GesturesNull:   true,
				HandednessNull: true,
			}
			if diff := cmp.Diff(want, rec.Layout()); diff != "" {
				t.Errorf("layout mismatch (-want +got):\n%s", diff)
			}
			if got := Outstanding() - before; got != 2 {
				t.Errorf("allocations = %d, want 2 (landmark outer arrays)", got)
			}

			rec.Release()
			if Outstanding() != before {
				t.Errorf("leaked %d allocations", Outstanding()-before)
			}
		})
	}
}

func TestConvert_EmptyInnerGroups(t *testing.T) {
	before := Outstanding()

	src := &detector.Result{
		Gestures:           [][]detector.Category{{}, {{Score: 0.4, Label: "Victory"}}},
		Handedness:         [][]detector.Category{{}},
		HandLandmarks:      [][]detector.NormalizedLandmark{{}},
		HandWorldLandmarks: [][]detector.Landmark{{}, {}},
	}

	rec := NewRecord(src)

	layout := rec.Layout()
	if diff := cmp.Diff([]uint32{0, 1}, layout.GesturesCategoriesCounts); diff != "" {
		t.Errorf("gestures counts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{0, 0}, layout.HandWorldLandmarksCounts); diff != "" {
		t.Errorf("world landmark counts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(viewOf(src), rec.View(), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("view mismatch (-want +got):\n%s", diff)
	}

	rec.Release()
	if Outstanding() != before {
		t.Errorf("leaked %d allocations", Outstanding()-before)
	}
}

func TestRelease_Idempotent(t *testing.T) {
	before := Outstanding()

	rec := NewRecord(detector.OpenPalmResult())
	rec.Release()
	afterFirst := rec.Layout()

	rec.Release()
	Release(rec.Ptr())

	if diff := cmp.Diff(afterFirst, rec.Layout()); diff != "" {
		t.Errorf("second release changed the record (-want +got):\n%s", diff)
	}
	if Outstanding() != before {
		t.Errorf("allocation count = %d, want %d", Outstanding(), before)
	}
}

func TestRelease_ZeroRecord(t *testing.T) {
	before := Outstanding()

	var rec Record
	rec.Release()
	Release(rec.Ptr())
	Release(nil)

	if Outstanding() != before {
		t.Errorf("allocation count = %d, want %d", Outstanding(), before)
	}
}

func TestRecord_ConvertReleasesPrevious(t *testing.T) {
	before := Outstanding()

	rec := NewRecord(detector.OpenPalmResult())
	rec.Convert(detector.ClosedFistResult())

	if got := Outstanding() - before; got != expectedAllocations(detector.ClosedFistResult()) {
		t.Errorf("allocations = %d, want %d", got, expectedAllocations(detector.ClosedFistResult()))
	}
	if got := rec.View().Gestures[0][0].CategoryName; got != "Closed_Fist" {
		t.Errorf("expected Closed_Fist after reconversion, got %q", got)
	}

	rec.Release()
	if Outstanding() != before {
		t.Errorf("leaked %d allocations", Outstanding()-before)
	}
}

func TestRecord_Independence(t *testing.T) {
	orders := []struct {
		name  string
		first int
	}{
		{name: "release A then B", first: 0},
		{name: "release B then A", first: 1},
	}

	for _, tt := range orders {
		t.Run(tt.name, func(t *testing.T) {
			before := Outstanding()

			sources := []*detector.Result{detector.ClosedFistResult(), detector.OpenPalmResult()}
			records := []*Record{NewRecord(sources[0]), NewRecord(sources[1])}

			first, second := records[tt.first], records[1-tt.first]
			first.Release()

			if diff := cmp.Diff(viewOf(sources[1-tt.first]), second.View(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("remaining record corrupted (-want +got):\n%s", diff)
			}

			second.Release()
			if Outstanding() != before {
				t.Errorf("leaked %d allocations", Outstanding()-before)
			}
		})
	}
}

func TestRecord_ConcurrentDistinctRecords(t *testing.T) {
	before := Outstanding()

	var wg sync.WaitGroup
	errs := make(chan error, 8)

	for w := range 8 {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(seed, seed+1))
			var rec Record
			for range 50 {
				src := randomResult(rng)
				rec.Convert(src)
				if diff := cmp.Diff(viewOf(src), rec.View(), cmpopts.EquateEmpty()); diff != "" {
					errs <- fmt.Errorf("worker %d: view mismatch:\n%s", seed, diff)
					rec.Release()
					return
				}
			}
			rec.Release()
		}(uint64(w))
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	if Outstanding() != before {
		t.Errorf("leaked %d allocations", Outstanding()-before)
	}
}

func TestView_OutlivesRelease(t *testing.T) {
	rec := NewRecord(detector.ClosedFistResult())
	view := rec.View()
	rec.Release()

	if view.Gestures[0][0].CategoryName != "Closed_Fist" {
		t.Errorf("view lost its data after release: %+v", view.Gestures)
	}
}
