package detector

import (
	"slices"
	"sort"
)

// ApplyOptions returns a copy of r keeping at most opts.NumHands hands, with
// the gesture and handedness categories filtered by the classifier options.
// Landmark values are copied unchanged.
func ApplyOptions(r *Result, opts Options) *Result {
	if r == nil {
		return nil
	}
	out := r.Clone()
	if opts.NumHands > 0 {
		out.Gestures = limitHands(out.Gestures, opts.NumHands)
		out.Handedness = limitHands(out.Handedness, opts.NumHands)
		out.HandLandmarks = limitHands(out.HandLandmarks, opts.NumHands)
		out.HandWorldLandmarks = limitHands(out.HandWorldLandmarks, opts.NumHands)
	}
	out.Gestures = filterGroups(out.Gestures, opts.Gestures)
	out.Handedness = filterGroups(out.Handedness, opts.Handedness)
	return out
}

func limitHands[T any](groups [][]T, n int) [][]T {
	if len(groups) > n {
		return groups[:n]
	}
	return groups
}

func filterGroups(hands [][]Category, opts ClassifierOptions) [][]Category {
	for i, categories := range hands {
		hands[i] = filterCategories(categories, opts)
	}
	return hands
}

// filterCategories keeps hand slots even when every category is filtered out,
// so hand indices stay aligned across groups.
func filterCategories(categories []Category, opts ClassifierOptions) []Category {
	kept := make([]Category, 0, len(categories))
	for _, c := range categories {
		if c.Score < opts.ScoreThreshold {
			continue
		}
		if len(opts.CategoryAllowlist) > 0 && !slices.Contains(opts.CategoryAllowlist, c.Label) {
			continue
		}
		if slices.Contains(opts.CategoryDenylist, c.Label) {
			continue
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Score > kept[j].Score
	})

	if opts.MaxResults > 0 && len(kept) > opts.MaxResults {
		kept = kept[:opts.MaxResults]
	}
	return kept
}
