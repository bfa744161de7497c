// Package advisor wires the daily pipeline: season gate, forecast fetch,
// scoring, ranking, formatting and delivery.
package advisor

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"snownotify/internal/catalog"
	"snownotify/internal/features"
	"snownotify/internal/forecast"
	"snownotify/internal/message"
	"snownotify/internal/rank"
	"snownotify/internal/score"
)

// Outcome distinguishes a run that sent a message from one that skipped.
type Outcome int

const (
	OutcomeSent Outcome = iota
	OutcomeDryRun
	OutcomeOutOfSeason
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeDryRun:
		return "dry-run"
	case OutcomeOutOfSeason:
		return "out-of-season"
	}
	return "unknown"
}

// Season months, Nov-Mar.
var seasonMonths = map[time.Month]bool{
	time.November: true, time.December: true, time.January: true,
	time.February: true, time.March: true,
}

// Notifier is the delivery sink for the formatted message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Options are the per-run CLI switches.
type Options struct {
	DryRun bool
	Force  bool
}

// Advisor runs the pipeline once per invocation; it holds no state across
// runs.
type Advisor struct {
	Catalog  *catalog.Catalog
	Fetcher  *forecast.Fetcher
	Notifier Notifier
	Log      logrus.FieldLogger

	Location     *time.Location
	Timezone     string
	ForecastDays int

	// Out receives the message on dry runs.
	Out io.Writer
	// Now is the clock, overridable in tests.
	Now func() time.Time
}

const displayTop = 3

// Run executes one advisory cycle and reports how it ended.
func (a *Advisor) Run(ctx context.Context, opts Options) (Outcome, error) {
	if a.Now == nil {
		a.Now = time.Now
	}
	now := a.Now().In(a.Location)

	if !seasonMonths[now.Month()] && !opts.Force {
		a.Log.WithField("month", now.Month().String()).Info("out of season, skipping")
		return OutcomeOutOfSeason, nil
	}

	if len(a.Catalog.Resorts) == 0 {
		return 0, fmt.Errorf("ranking resorts: %w", rank.ErrEmptyCatalog)
	}

	tomorrow := now.AddDate(0, 0, 1)
	targetDay := tomorrow.Format(forecast.DateKey)
	a.Log.WithField("date", targetDay).Info("building advisory")

	fetched, err := a.Fetcher.FetchAll(ctx, a.Catalog.Resorts, a.Timezone, a.ForecastDays)
	if err != nil {
		return 0, fmt.Errorf("fetching forecasts: %w", err)
	}

	results, dropped := a.scoreResorts(fetched, targetDay)

	rec, err := rank.Rank(results)
	if err != nil {
		return 0, fmt.Errorf("ranking resorts: %w", err)
	}

	selected := rank.SelectWithCoverage(rec.Results, displayTop)
	feats := a.computeFeatures(fetched, selected, targetDay)

	missing := missingNames(a.Catalog.Resorts, fetched.Failed, dropped)
	text := message.Format(tomorrow, rec, selected, feats, missing)

	if opts.DryRun {
		fmt.Fprintln(a.Out, text)
		return OutcomeDryRun, nil
	}

	if err := a.Notifier.Send(ctx, text); err != nil {
		return 0, fmt.Errorf("sending notification: %w", err)
	}
	a.Log.WithFields(logrus.Fields{"top": rec.Top.Resort.ID, "score": rec.Top.Score}).Info("notification sent")
	return OutcomeSent, nil
}

// scoreResorts builds a ResortResult per resort with a usable point pair
// for the target day. Resorts with malformed or missing data are dropped
// with a logged reason, never scored on substitutes.
func (a *Advisor) scoreResorts(fetched *forecast.Result, targetDay string) (results []rank.ResortResult, dropped []string) {
	for _, r := range a.Catalog.Resorts {
		weather, ok := fetched.Weather[r.ID]
		if !ok {
			continue
		}
		low, okLow := weather.Low[targetDay]
		high, okHigh := weather.High[targetDay]
		if !okLow || !okHigh {
			a.Log.WithField("resort", r.ID).Warn("incomplete point pair for target day")
			dropped = append(dropped, r.ID)
			continue
		}

		lowScore, err := score.Point(low)
		if err != nil {
			a.Log.WithError(err).WithField("resort", r.ID).Warn("unscorable low point")
			dropped = append(dropped, r.ID)
			continue
		}
		highScore, err := score.Point(high)
		if err != nil {
			a.Log.WithError(err).WithField("resort", r.ID).Warn("unscorable high point")
			dropped = append(dropped, r.ID)
			continue
		}

		results = append(results, rank.ResortResult{
			Resort:      r,
			Score:       score.Resort(lowScore.Value, highScore.Value),
			Confidence:  score.Confidence(lowScore.HasSnowData, highScore.HasSnowData),
			Low:         lowScore,
			High:        highScore,
			WeatherLow:  low,
			WeatherHigh: high,
		})
	}
	return results, dropped
}

func (a *Advisor) computeFeatures(fetched *forecast.Result, selected []rank.ResortResult, targetDay string) map[string]features.Features {
	feats := make(map[string]features.Features, len(selected))
	for _, r := range selected {
		weather, ok := fetched.Weather[r.Resort.ID]
		if !ok {
			continue
		}
		feats[r.Resort.ID] = features.Compute(r.WeatherLow, r.WeatherHigh, snowfallSeries(weather.High, a.Now().In(a.Location), a.ForecastDays))
	}
	return feats
}

// snowfallSeries returns the high point's snowfall per day starting today,
// spanning the full forecast horizon, with nil holes for days the provider
// left out or that were dropped during aggregation.
func snowfallSeries(high map[string]forecast.PointWeather, now time.Time, days int) []*float64 {
	series := make([]*float64, days)
	for i := range series {
		day := now.AddDate(0, 0, i).Format(forecast.DateKey)
		if w, ok := high[day]; ok {
			series[i] = w.SnowfallCm
		}
	}
	return series
}

func missingNames(resorts []catalog.Resort, failed, dropped []string) []string {
	ids := make(map[string]bool, len(failed)+len(dropped))
	for _, id := range failed {
		ids[id] = true
	}
	for _, id := range dropped {
		ids[id] = true
	}

	var names []string
	for _, r := range resorts {
		if ids[r.ID] {
			names = append(names, r.Name)
		}
	}
	return names
}
