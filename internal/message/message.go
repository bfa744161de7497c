// Package message renders a ranked recommendation into the notification
// text. It only renders what the ranker decided; flags and ordering are
// never re-derived here.
package message

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"snownotify/internal/catalog"
	"snownotify/internal/features"
	"snownotify/internal/rank"
)

var titler = cases.Title(language.English)

// Format renders the full message for one run. selected is the display
// subset chosen by the ranker; feats is keyed by resort id; missing lists
// resorts without forecast data.
func Format(target time.Time, rec *rank.Recommendation, selected []rank.ResortResult,
	feats map[string]features.Features, missing []string) string {
	lines := []string{
		fmt.Sprintf("🟦 Ski forecast for %s (09:00-16:00)", target.Format("Mon 02.01")),
	}

	if rec.HasFlag(rank.FlagLikelyBestDay) {
		lines = append(lines, "✅ Likely the best day of the week")
	}
	if rec.HasFlag(rank.FlagNotWorthGoing) {
		lines = append(lines, "⛔️ Not worth going: every resort scores below 35")
	}

	blocks := make([]string, 0, len(selected))
	for _, r := range selected {
		f, ok := feats[r.Resort.ID]
		block := resortLine(r, f, ok)
		if costs := costsLine(r.Resort); costs != "" {
			block += "\n" + costs
		}
		blocks = append(blocks, block)
	}

	lines = append(lines, "")
	lines = append(lines, strings.Join(blocks, "\n\n"))

	if len(missing) > 0 {
		lines = append(lines, "", "⚠️ No forecast: "+strings.Join(missing, ", "))
	}

	return strings.Join(lines, "\n")
}

// resortLine formats the one-line summary:
// icon Name — score — 🚗 Nmin — snow24 Ncm, T -8..-3, wind 20, rain 2, Snow
func resortLine(r rank.ResortResult, f features.Features, haveFeatures bool) string {
	parts := []string{
		fmt.Sprintf("%s %s", r.Resort.Icon(), r.Resort.Name),
		fmt.Sprintf("%.0f", r.Score),
		fmt.Sprintf("🚗 %d min", r.Resort.DriveTimeMin),
	}

	var details []string
	if haveFeatures {
		if f.Snow24Cm != nil && *f.Snow24Cm > 0 {
			details = append(details, fmt.Sprintf("snow24 %.0fcm", *f.Snow24Cm))
		} else if r.WeatherHigh.SnowDepthCm != nil {
			details = append(details, fmt.Sprintf("depth %.0fcm", *r.WeatherHigh.SnowDepthCm))
		}
		details = append(details, fmt.Sprintf("T %+.0f..%+.0f", f.TempMinC, f.TempMaxC))
		details = append(details, fmt.Sprintf("wind %.0f", f.WindMax))
		if f.RainMm >= 0.1 {
			details = append(details, fmt.Sprintf("rain %.0f", f.RainMm))
		}
		switch {
		case f.SlushRisk:
			details = append(details, "(slush)")
		case f.RainRisk:
			details = append(details, "(rain)")
		}
	} else {
		if r.WeatherHigh.SnowDepthCm != nil {
			details = append(details, fmt.Sprintf("depth %.0fcm", *r.WeatherHigh.SnowDepthCm))
		}
		details = append(details, fmt.Sprintf("T %+.0f", r.WeatherHigh.TempAvgC))
		details = append(details, fmt.Sprintf("wind %.0f", r.WeatherHigh.WindGustKmh))
	}

	if c := r.WeatherHigh.Condition; c != "" && c != "unknown" {
		details = append(details, titler.String(c))
	}

	if len(details) == 0 {
		parts = append(parts, "-")
	} else {
		parts = append(parts, strings.Join(details, ", "))
	}

	return strings.Join(parts, " — ")
}

// costsLine formats the access/skipass cost line, or "" when there is
// nothing to show. Cross-country resorts never show a skipass.
func costsLine(r catalog.Resort) string {
	var parts []string

	var access []string
	if r.Costs.RequiresFerry {
		if r.Costs.FerryRoundtripEUR > 0 {
			access = append(access, fmt.Sprintf("ferry €%.0f", r.Costs.FerryRoundtripEUR))
		} else {
			access = append(access, "ferry")
		}
	}
	if r.Costs.RequiresATVignette {
		access = append(access, "AT vignette")
	}
	if r.Costs.RequiresCHVignette {
		access = append(access, "CH vignette")
	}
	if len(access) > 0 {
		parts = append(parts, strings.Join(access, " + "))
	}

	if r.Type == catalog.TypeAlpine && r.Costs.SkipassDayEUR > 0 {
		parts = append(parts, fmt.Sprintf("Skipass €%.0f", r.Costs.SkipassDayEUR))
	}

	if len(parts) == 0 {
		return ""
	}
	return "↳ 💶 " + strings.Join(parts, " | ")
}
