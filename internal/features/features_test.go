package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snownotify/internal/forecast"
)

func fptr(v float64) *float64 { return &v }

func point(temp, wind, precip float64) forecast.PointWeather {
	return forecast.PointWeather{TempAvgC: temp, WindGustKmh: wind, PrecipMm: precip}
}

func TestComputeAggregatesAcrossPoints(t *testing.T) {
	f := Compute(point(2, 20, 3), point(-5, 35, 1), nil)

	assert.Equal(t, -5.0, f.TempMinC)
	assert.Equal(t, 2.0, f.TempMaxC)
	assert.Equal(t, 35.0, f.WindMax)
	assert.Equal(t, 3.0, f.RainMm)
	assert.Nil(t, f.Snow24Cm)
	assert.Nil(t, f.Snow48Cm)
}

func TestComputeSnowfallWindows(t *testing.T) {
	series := []*float64{fptr(1), fptr(12), fptr(5)}
	f := Compute(point(-3, 10, 0), point(-6, 15, 0), series)

	require.NotNil(t, f.Snow24Cm)
	assert.Equal(t, 12.0, *f.Snow24Cm)
	require.NotNil(t, f.Snow48Cm)
	assert.Equal(t, 17.0, *f.Snow48Cm)

	// Holes in the series are treated as zero for the 48h sum, but a fully
	// absent pair yields no value at all.
	f = Compute(point(-3, 10, 0), point(-6, 15, 0), []*float64{nil, nil, fptr(4)})
	assert.Nil(t, f.Snow24Cm)
	require.NotNil(t, f.Snow48Cm)
	assert.Equal(t, 4.0, *f.Snow48Cm)

	f = Compute(point(-3, 10, 0), point(-6, 15, 0), []*float64{nil, nil, nil})
	assert.Nil(t, f.Snow48Cm)
}

func TestRiskFlags(t *testing.T) {
	tests := []struct {
		name      string
		tempMax   float64
		rain      float64
		slush     bool
		rainRisk  bool
	}{
		{"near freezing with rain", 1.0, 0.8, true, false},
		{"warm rain", 4.0, 2.0, false, true},
		{"cold and dry", -6.0, 0.0, false, false},
		{"warm rain near freezing band edge", 2.0, 1.5, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Compute(point(tt.tempMax, 10, tt.rain), point(tt.tempMax-2, 10, 0), nil)
			assert.Equal(t, tt.slush, f.SlushRisk)
			assert.Equal(t, tt.rainRisk, f.RainRisk)
		})
	}
}
