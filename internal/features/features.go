// Package features derives display-only weather features for a resort.
// Nothing here feeds back into scoring.
package features

import (
	"math"

	"snownotify/internal/forecast"
)

// Features summarizes a resort's conditions for the message body.
type Features struct {
	Snow24Cm *float64 // tomorrow's snowfall
	Snow48Cm *float64 // tomorrow plus the day after
	RainMm   float64  // max of the two points over the window
	TempMinC float64
	TempMaxC float64
	WindMax  float64

	SlushRisk bool // near-freezing with rain
	RainRisk  bool // warm enough that precipitation falls as rain
}

// Compute builds display features from the two point records for the target
// day plus the per-day snowfall series of the high point (index 0 = today).
func Compute(low, high forecast.PointWeather, snowfallByDay []*float64) Features {
	f := Features{
		RainMm:   math.Max(low.PrecipMm, high.PrecipMm),
		TempMinC: math.Min(low.TempAvgC, high.TempAvgC),
		TempMaxC: math.Max(low.TempAvgC, high.TempAvgC),
		WindMax:  math.Max(low.WindGustKmh, high.WindGustKmh),
	}

	if len(snowfallByDay) > 1 && snowfallByDay[1] != nil {
		v := *snowfallByDay[1]
		f.Snow24Cm = &v
	}
	if len(snowfallByDay) > 2 && (snowfallByDay[1] != nil || snowfallByDay[2] != nil) {
		var sum float64
		if snowfallByDay[1] != nil {
			sum += *snowfallByDay[1]
		}
		if snowfallByDay[2] != nil {
			sum += *snowfallByDay[2]
		}
		f.Snow48Cm = &sum
	}

	f.SlushRisk = f.TempMaxC >= -0.5 && f.TempMaxC <= 2.0 && f.RainMm > 0.5
	f.RainRisk = f.RainMm > 1.0 && f.TempMaxC > 1.0

	return f
}
