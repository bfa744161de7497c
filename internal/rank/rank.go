// Package rank orders scored resorts and selects the narrative flags for
// the day's recommendation.
package rank

import (
	"errors"
	"sort"

	"snownotify/internal/catalog"
	"snownotify/internal/forecast"
	"snownotify/internal/score"
)

// ErrEmptyCatalog is returned when there is nothing to rank.
var ErrEmptyCatalog = errors.New("no resorts to rank")

const (
	// Gap between the top two scores above which tomorrow is flagged as
	// likely the best pick, provided confidence in the top resort holds.
	bestDayGap           = 12.0
	bestDayMinConfidence = 0.7

	// Below this score no resort is worth the drive.
	notWorthThreshold = 35.0

	alternatesWanted = 2
)

// Flag is a narrative condition evaluated over the ranked results.
type Flag string

const (
	FlagLikelyBestDay Flag = "likely-best-day"
	FlagNotWorthGoing Flag = "not-worth-going"
)

// ResortResult is one resort's scored outcome for the target day.
type ResortResult struct {
	Resort     catalog.Resort
	Score      float64
	Confidence float64

	Low  score.PointScore
	High score.PointScore

	WeatherLow  forecast.PointWeather
	WeatherHigh forecast.PointWeather
}

// Recommendation is the ordered result set for one run.
type Recommendation struct {
	Results    []ResortResult // sorted best first
	Top        ResortResult
	Alternates []ResortResult // up to two
	Flags      []Flag
}

// HasFlag reports whether the recommendation carries the given flag.
func (r *Recommendation) HasFlag(f Flag) bool {
	for _, have := range r.Flags {
		if have == f {
			return true
		}
	}
	return false
}

// Rank orders results by score descending. Ties break on confidence
// descending, then on the order of the input (catalog order) via the stable
// sort. Both narrative flags are always evaluated, never short-circuited.
func Rank(results []ResortResult) (*Recommendation, error) {
	if len(results) == 0 {
		return nil, ErrEmptyCatalog
	}

	sorted := make([]ResortResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})

	rec := &Recommendation{
		Results: sorted,
		Top:     sorted[0],
	}
	for i := 1; i < len(sorted) && i <= alternatesWanted; i++ {
		rec.Alternates = append(rec.Alternates, sorted[i])
	}

	likelyBest := len(sorted) >= 2 &&
		sorted[0].Score-sorted[1].Score >= bestDayGap &&
		sorted[0].Confidence >= bestDayMinConfidence

	notWorth := true
	for _, r := range sorted {
		if r.Score >= notWorthThreshold {
			notWorth = false
		}
	}

	if likelyBest {
		rec.Flags = append(rec.Flags, FlagLikelyBestDay)
	}
	if notWorth {
		rec.Flags = append(rec.Flags, FlagNotWorthGoing)
	}

	return rec, nil
}

// SelectWithCoverage picks the display set: the top n overall, extended by
// the best resort of any type (alpine/xc) the top n leaves out.
func SelectWithCoverage(sorted []ResortResult, n int) []ResortResult {
	if len(sorted) <= n {
		return sorted
	}

	selected := make([]ResortResult, n)
	copy(selected, sorted[:n])

	inTop := make(map[string]bool)
	for _, r := range selected {
		inTop[r.Resort.Type] = true
	}

	for _, missing := range []string{catalog.TypeAlpine, catalog.TypeXC} {
		if inTop[missing] {
			continue
		}
		for _, r := range sorted[n:] {
			if r.Resort.Type == missing {
				selected = append(selected, r)
				break
			}
		}
	}

	return selected
}
