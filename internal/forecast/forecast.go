// Package forecast retrieves Open-Meteo forecasts for resort sample points
// and normalizes them into per-day records for the activity window.
package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"snownotify/internal/cache"
	"snownotify/internal/catalog"
	"snownotify/internal/client"
)

const (
	// Activity window, local time. Hourly variables are aggregated over
	// 09:00-16:00 inclusive.
	windowStartHour = 9
	windowEndHour   = 16

	batchSize          = 40
	maxParallelBatches = 4

	hourlyVars = "temperature_2m,wind_gusts_10m,precipitation,snowfall,weather_code"
	dailyVars  = "snow_depth_max,snowfall_sum"

	// DateKey is the layout used to key per-day weather maps.
	DateKey = "2006-01-02"
)

// PointWeather is the normalized weather for one sample point on one day.
// Snow fields are nil when the provider did not report them; absence is
// never substituted with zero.
type PointWeather struct {
	Date        string   `json:"date"`
	TempAvgC    float64  `json:"tempAvgC"`
	WindGustKmh float64  `json:"windGustKmh"`
	PrecipMm    float64  `json:"precipMm"`
	SnowDepthCm *float64 `json:"snowDepthCm,omitempty"`
	SnowfallCm  *float64 `json:"snowfallCm,omitempty"`
	Condition   string   `json:"condition,omitempty"`
}

// HasSnowData reports whether any snow-specific field was available.
func (w PointWeather) HasSnowData() bool {
	return w.SnowDepthCm != nil || w.SnowfallCm != nil
}

// ResortWeather holds per-day weather for both points of a resort.
type ResortWeather struct {
	Low  map[string]PointWeather `json:"low"`
	High map[string]PointWeather `json:"high"`
}

// Result is the outcome of fetching weather for all resorts.
type Result struct {
	Weather map[string]ResortWeather `json:"weather"` // resort id -> weather
	Failed  []string                 `json:"failed"`  // resort ids with no usable data

	PointsTotal int `json:"pointsTotal"`
	PointsOK    int `json:"pointsOk"`
	Batches     int `json:"batches"`
}

// Fetcher retrieves forecasts via the shared REST client. An optional cache
// short-circuits repeat fetches for the same day and point set.
type Fetcher struct {
	client *client.Client
	cache  cache.Cache
	log    logrus.FieldLogger
}

func NewFetcher(c *client.Client, cc cache.Cache, log logrus.FieldLogger) *Fetcher {
	return &Fetcher{client: c, cache: cc, log: log}
}

type batchPoint struct {
	resortID  string
	pointType string // "low" or "high"
	lat, lon  float64
}

// Open-Meteo response for a single location. Batch requests return a JSON
// array of these; single-location requests return a bare object.
type apiResponse struct {
	Hourly struct {
		Time          []string   `json:"time"`
		Temperature2m []*float64 `json:"temperature_2m"`
		WindGusts10m  []*float64 `json:"wind_gusts_10m"`
		Precipitation []*float64 `json:"precipitation"`
		Snowfall      []*float64 `json:"snowfall"`
		WeatherCode   []*int     `json:"weather_code"`
	} `json:"hourly"`
	HourlyUnits map[string]string `json:"hourly_units"`
	Daily       struct {
		Time         []string   `json:"time"`
		SnowDepthMax []*float64 `json:"snow_depth_max"`
		SnowfallSum  []*float64 `json:"snowfall_sum"`
	} `json:"daily"`
	DailyUnits map[string]string `json:"daily_units"`
}

// FetchAll fetches weather for all resorts using batched requests. Batches
// run concurrently; a failed batch marks its points failed rather than
// aborting the run. An error is returned only when no point succeeded.
func (f *Fetcher) FetchAll(ctx context.Context, resorts []catalog.Resort, timezone string, days int) (*Result, error) {
	points := make([]batchPoint, 0, len(resorts)*2)
	for _, r := range resorts {
		points = append(points,
			batchPoint{resortID: r.ID, pointType: "low", lat: r.Low.Lat, lon: r.Low.Lon},
			batchPoint{resortID: r.ID, pointType: "high", lat: r.High.Lat, lon: r.High.Lon},
		)
	}

	key := cacheKey(points, timezone, days)
	if f.cache != nil {
		var cached Result
		found, err := f.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			f.log.WithError(err).Warn("forecast cache read failed")
		} else if found {
			f.log.WithField("key", key).Info("forecast served from cache")
			return &cached, nil
		}
	}

	f.log.WithFields(logrus.Fields{"points": len(points), "resorts": len(resorts)}).Info("fetching weather")

	type batchResult struct {
		weather map[int]map[string]PointWeather // offset within batch -> per-day weather
		err     error
	}

	nBatches := (len(points) + batchSize - 1) / batchSize
	results := make([]batchResult, nBatches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelBatches)
	for b := 0; b < nBatches; b++ {
		b := b
		start := b * batchSize
		end := start + batchSize
		if end > len(points) {
			end = len(points)
		}
		batch := points[start:end]
		g.Go(func() error {
			weather, err := f.fetchBatch(gctx, batch, timezone, days)
			results[b] = batchResult{weather: weather, err: err}
			// Batch failures are partial failures, not run failures.
			return nil
		})
	}
	_ = g.Wait()

	byResort := make(map[string]map[string]map[string]PointWeather) // id -> point type -> day -> weather
	pointsOK := 0
	for b, br := range results {
		if br.err != nil {
			f.log.WithError(br.err).WithField("batch", b).Error("batch request failed")
			continue
		}
		for offset, dayWeather := range br.weather {
			p := points[b*batchSize+offset]
			if byResort[p.resortID] == nil {
				byResort[p.resortID] = make(map[string]map[string]PointWeather)
			}
			byResort[p.resortID][p.pointType] = dayWeather
			pointsOK++
		}
	}

	res := &Result{
		Weather:     make(map[string]ResortWeather),
		PointsTotal: len(points),
		PointsOK:    pointsOK,
		Batches:     nBatches,
	}
	for _, r := range resorts {
		data := byResort[r.ID]
		if len(data["low"]) == 0 && len(data["high"]) == 0 {
			res.Failed = append(res.Failed, r.ID)
			continue
		}
		res.Weather[r.ID] = ResortWeather{Low: data["low"], High: data["high"]}
	}

	if pointsOK == 0 {
		return nil, errors.New("no forecast data for any point")
	}

	if len(res.Failed) > 0 {
		f.log.WithField("resorts", res.Failed).Warn("no forecast for some resorts")
	}
	f.log.WithFields(logrus.Fields{"batches": nBatches, "ok": pointsOK, "total": len(points)}).Info("forecast fetched")

	if f.cache != nil {
		if err := f.cache.SetJSON(ctx, key, res, cacheTTL()); err != nil {
			f.log.WithError(err).Warn("forecast cache write failed")
		}
	}

	return res, nil
}

func (f *Fetcher) fetchBatch(ctx context.Context, batch []batchPoint, timezone string, days int) (map[int]map[string]PointWeather, error) {
	lats := make([]string, len(batch))
	lons := make([]string, len(batch))
	for i, p := range batch {
		lats[i] = fmt.Sprintf("%.4f", p.lat)
		lons[i] = fmt.Sprintf("%.4f", p.lon)
	}

	urlStr := fmt.Sprintf("?latitude=%s&longitude=%s&hourly=%s&daily=%s&timezone=%s&forecast_days=%d",
		strings.Join(lats, ","), strings.Join(lons, ","), hourlyVars, dailyVars, timezone, days)

	req, err := f.client.NewRequest(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if _, err := f.client.Do(req, &raw); err != nil {
		return nil, fmt.Errorf("open-meteo request: %w", err)
	}

	var responses []apiResponse
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &responses); err != nil {
			return nil, fmt.Errorf("decoding batch response: %w", err)
		}
	} else {
		var single apiResponse
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		responses = []apiResponse{single}
	}

	if len(responses) != len(batch) {
		f.log.WithFields(logrus.Fields{"got": len(responses), "want": len(batch)}).Warn("response length mismatch")
	}

	out := make(map[int]map[string]PointWeather)
	for i := range responses {
		if i >= len(batch) {
			break
		}
		dayWeather := parsePoint(&responses[i])
		if len(dayWeather) > 0 {
			out[i] = dayWeather
		}
	}
	return out, nil
}

// parsePoint aggregates one location's hourly series into per-day records.
// Days missing any required aggregate (temperature, gust, precipitation)
// over the window are dropped.
func parsePoint(resp *apiResponse) map[string]PointWeather {
	h := resp.Hourly
	if len(h.Time) == 0 {
		return nil
	}

	type acc struct {
		tempSum   float64
		tempN     int
		gustMax   float64
		gustSeen  bool
		precipSum float64
		precipN   int
		codes     map[int]int
		// Snowfall over the full calendar day, fallback when the daily
		// series is unavailable.
		snowfallSum  float64
		snowfallSeen bool
	}
	byDay := make(map[string]*acc)

	for i, ts := range h.Time {
		t, err := time.Parse("2006-01-02T15:04", ts)
		if err != nil {
			continue
		}
		day := t.Format(DateKey)
		a := byDay[day]
		if a == nil {
			a = &acc{codes: make(map[int]int)}
			byDay[day] = a
		}

		if i < len(h.Snowfall) && h.Snowfall[i] != nil {
			a.snowfallSum += *h.Snowfall[i]
			a.snowfallSeen = true
		}

		if t.Hour() < windowStartHour || t.Hour() > windowEndHour {
			continue
		}
		if i < len(h.Temperature2m) && h.Temperature2m[i] != nil {
			a.tempSum += *h.Temperature2m[i]
			a.tempN++
		}
		if i < len(h.WindGusts10m) && h.WindGusts10m[i] != nil {
			if !a.gustSeen || *h.WindGusts10m[i] > a.gustMax {
				a.gustMax = *h.WindGusts10m[i]
			}
			a.gustSeen = true
		}
		if i < len(h.Precipitation) && h.Precipitation[i] != nil {
			a.precipSum += *h.Precipitation[i]
			a.precipN++
		}
		if i < len(h.WeatherCode) && h.WeatherCode[i] != nil {
			a.codes[*h.WeatherCode[i]]++
		}
	}

	dailyDepth := indexDaily(resp.Daily.Time, resp.Daily.SnowDepthMax)
	dailySnowfall := indexDaily(resp.Daily.Time, resp.Daily.SnowfallSum)
	depthUnit := resp.DailyUnits["snow_depth_max"]
	dailySnowfallUnit := resp.DailyUnits["snowfall_sum"]
	hourlySnowfallUnit := resp.HourlyUnits["snowfall"]

	out := make(map[string]PointWeather)
	for day, a := range byDay {
		if a.tempN == 0 || !a.gustSeen || a.precipN == 0 {
			continue
		}

		w := PointWeather{
			Date:        day,
			TempAvgC:    round1(a.tempSum / float64(a.tempN)),
			WindGustKmh: round1(a.gustMax),
			PrecipMm:    round1(a.precipSum),
			Condition:   conditionLabel(a.codes),
		}

		if v, ok := dailyDepth[day]; ok {
			cm := round1(toCm(v, depthUnit))
			w.SnowDepthCm = &cm
		}
		if v, ok := dailySnowfall[day]; ok {
			cm := round1(toCm(v, dailySnowfallUnit))
			w.SnowfallCm = &cm
		} else if a.snowfallSeen {
			cm := round1(toCm(a.snowfallSum, hourlySnowfallUnit))
			w.SnowfallCm = &cm
		}

		out[day] = w
	}

	return out
}

func indexDaily(times []string, values []*float64) map[string]float64 {
	out := make(map[string]float64)
	for i, ts := range times {
		if i >= len(values) || values[i] == nil {
			continue
		}
		out[ts] = *values[i]
	}
	return out
}

// toCm converts snow values to cm based on the unit reported by the API.
func toCm(v float64, unit string) float64 {
	switch unit {
	case "m":
		return v * 100
	case "mm":
		return v / 10
	default:
		return v
	}
}

// conditionLabel maps the dominant weather code over the window to a
// normalized label. Mapping based on Open-Meteo weather codes (simplified).
func conditionLabel(codes map[int]int) string {
	best, bestCount := -1, 0
	keys := make([]int, 0, len(codes))
	for c := range codes {
		keys = append(keys, c)
	}
	sort.Ints(keys)
	for _, c := range keys {
		if codes[c] > bestCount {
			best, bestCount = c, codes[c]
		}
	}

	switch {
	case best < 0:
		return ""
	case best == 0:
		return "clear"
	case best >= 1 && best <= 3:
		return "cloudy"
	case best == 45 || best == 48:
		return "fog"
	case (best >= 51 && best <= 67) || (best >= 80 && best <= 82):
		return "rain"
	case (best >= 71 && best <= 77) || best == 85 || best == 86:
		return "snow"
	case best >= 95:
		return "storm"
	default:
		return "unknown"
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func cacheKey(points []batchPoint, timezone string, days int) string {
	h := fnv.New32a()
	for _, p := range points {
		fmt.Fprintf(h, "%s:%s:%.4f:%.4f;", p.resortID, p.pointType, p.lat, p.lon)
	}
	fmt.Fprintf(h, "%s:%d", timezone, days)
	return fmt.Sprintf("forecast:%s:%08x", time.Now().UTC().Format(DateKey), h.Sum32())
}

func cacheTTL() time.Duration {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return midnight.Sub(now)
}
