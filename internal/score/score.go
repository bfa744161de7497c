// Package score implements the suitability scoring engine for ski resorts.
//
// A point score starts from a neutral base of 50, earns additive bonuses for
// snow depth and fresh snowfall, and pays penalties for strong gusts, heavy
// precipitation and temperatures outside the comfortable band. Absent snow
// fields contribute nothing; they lower confidence instead. The final point
// score is clamped to [0,100].
package score

import (
	"errors"
	"fmt"
	"math"

	"snownotify/internal/forecast"
)

// ErrMalformedWeather is returned for inputs the formula is not defined
// over: non-finite values, negative gusts or negative precipitation.
var ErrMalformedWeather = errors.New("malformed point weather")

const (
	base = 50.0

	depthCapCm    = 60.0
	depthWeight   = 0.6
	freshCapCm    = 30.0
	freshWeight   = 0.4
	gustFreeKmh   = 35.0
	gustWeight    = 0.8
	precipFreeMm  = 8.0
	precipWeight  = 1.0
	warmFreeC     = 4.0
	warmWeight    = 3.0
	coldFreeC     = 18.0
	coldWeight    = 1.0
	lowWeight     = 0.45
	highWeight    = 0.55
)

// PointScore is the derived suitability value for a single sample point.
type PointScore struct {
	Value       float64
	HasSnowData bool
}

// Point computes the score for one sample point, rounded to one decimal.
// Inputs closer together than the rounding granularity (0.05 score, under
// 0.1cm of depth) map to the same value.
func Point(w forecast.PointWeather) (PointScore, error) {
	if err := validate(w); err != nil {
		return PointScore{}, err
	}

	s := base

	if w.SnowDepthCm != nil {
		s += clamp(*w.SnowDepthCm, 0, depthCapCm) * depthWeight
	}
	if w.SnowfallCm != nil {
		s += clamp(*w.SnowfallCm, 0, freshCapCm) * freshWeight
	}

	s -= math.Max(0, w.WindGustKmh-gustFreeKmh) * gustWeight
	s -= math.Max(0, w.PrecipMm-precipFreeMm) * precipWeight
	s -= math.Max(0, w.TempAvgC-warmFreeC) * warmWeight
	s -= math.Max(0, -w.TempAvgC-coldFreeC) * coldWeight

	s = clamp(s, 0, 100)

	return PointScore{
		Value:       math.Round(s*10) / 10,
		HasSnowData: w.HasSnowData(),
	}, nil
}

// Resort combines the two point scores. The high-elevation point carries
// more weight because it is the more reliable signal for snow persistence.
func Resort(low, high float64) float64 {
	return lowWeight*low + highWeight*high
}

// confidenceTable keys on (low has snow data, high has snow data). Kept as
// a table so all four cases stay auditable.
var confidenceTable = map[[2]bool]float64{
	{true, true}:   1.0,
	{true, false}:  0.7,
	{false, true}:  0.7,
	{false, false}: 0.4,
}

// Confidence reports how much of the snow-specific data was available.
func Confidence(lowHasSnowData, highHasSnowData bool) float64 {
	return confidenceTable[[2]bool{lowHasSnowData, highHasSnowData}]
}

func validate(w forecast.PointWeather) error {
	for name, v := range map[string]float64{
		"temperature":   w.TempAvgC,
		"wind gust":     w.WindGustKmh,
		"precipitation": w.PrecipMm,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrMalformedWeather, name)
		}
	}
	if w.WindGustKmh < 0 {
		return fmt.Errorf("%w: negative wind gust %.1f", ErrMalformedWeather, w.WindGustKmh)
	}
	if w.PrecipMm < 0 {
		return fmt.Errorf("%w: negative precipitation %.1f", ErrMalformedWeather, w.PrecipMm)
	}
	for name, v := range map[string]*float64{
		"snow depth": w.SnowDepthCm,
		"snowfall":   w.SnowfallCm,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return fmt.Errorf("%w: %s is not finite", ErrMalformedWeather, name)
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
