// Package assessment combines swipe results across passes and derives
// per-dimension scores.
package assessment

import (
	"sort"

	"github.com/EasterCompany/pulse-service/interfaces"
)

// Merge folds a new batch of results into the previous set. A full pass
// (empty dimension) replaces everything. A refinement pass for dimension
// removes every earlier entry for it, even when next is empty.
func Merge(prev, next []interfaces.AssessmentResult, dimension string) []interfaces.AssessmentResult {
	if dimension == "" {
		return append([]interfaces.AssessmentResult{}, next...)
	}
	merged := Without(prev, dimension)
	return append(merged, next...)
}

// Without returns a copy of results with every entry for dimension removed.
func Without(results []interfaces.AssessmentResult, dimension string) []interfaces.AssessmentResult {
	out := make([]interfaces.AssessmentResult, 0, len(results))
	for _, r := range results {
		if r.Dimension != dimension {
			out = append(out, r)
		}
	}
	return out
}

// DimensionScore is the mean score of one dimension.
type DimensionScore struct {
	Dimension string  `json:"dimension"`
	Score     float64 `json:"score"`
	Count     int     `json:"count"`
}

// Scores returns the mean score per dimension. Dimensions listed in order
// come first in that order and score 0 when no result exists; any other
// dimension present in results follows alphabetically.
func Scores(results []interfaces.AssessmentResult, order []string) []DimensionScore {
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, r := range results {
		sums[r.Dimension] += r.Score
		counts[r.Dimension]++
	}

	seen := make(map[string]bool, len(order))
	out := make([]DimensionScore, 0, len(order)+len(counts))
	for _, d := range order {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, score(d, sums[d], counts[d]))
	}

	var extra []string
	for d := range counts {
		if !seen[d] {
			extra = append(extra, d)
		}
	}
	sort.Strings(extra)
	for _, d := range extra {
		out = append(out, score(d, sums[d], counts[d]))
	}
	return out
}

func score(dimension string, sum, count int) DimensionScore {
	s := DimensionScore{Dimension: dimension, Count: count}
	if count > 0 {
		s.Score = float64(sum) / float64(count)
	}
	return s
}
