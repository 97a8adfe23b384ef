package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// HRZones represents athlete's heart rate zones
type HRZones struct {
	RestingHR float64
	MaxHR     float64
}

// DefaultZones returns sensible defaults if not configured
func DefaultZones() HRZones {
	return HRZones{
		RestingHR: 50,
		MaxHR:     185,
	}
}

// TRIMP calculates Training Impulse (Banister model)
// TRIMP = duration (min) * ΔHR ratio * e^(b * ΔHR ratio)
// where b = 1.92 for men, 1.67 for women (using male default)
func TRIMP(durationSeconds, avgHR float64, zones HRZones) float64 {
	if avgHR <= 0 || durationSeconds <= 0 {
		return 0
	}

	// Heart rate reserve ratio
	hrReserve := zones.MaxHR - zones.RestingHR
	if hrReserve <= 0 {
		return 0
	}

	hrRatio := (avgHR - zones.RestingHR) / hrReserve
	if hrRatio < 0 {
		hrRatio = 0
	}
	if hrRatio > 1 {
		hrRatio = 1
	}

	b := 1.92
	return durationSeconds / 60 * hrRatio * math.Exp(b*hrRatio)
}

// HRSS calculates Heart Rate Stress Score, used as training load when no
// power is available. Normalized to ~100 for a 1-hour threshold effort.
func HRSS(durationSeconds, avgHR float64, zones HRZones) float64 {
	thresholdTRIMP := 100.0
	return TRIMP(durationSeconds, avgHR, zones) / thresholdTRIMP * 100
}

// DailyLoad is the training stress of one activity or day
type DailyLoad struct {
	Date time.Time `json:"date"`
	Load float64   `json:"load"`
}

// PMCState is one day of the performance management chart
type PMCState struct {
	Date time.Time `json:"date"`
	Load float64   `json:"load"`
	ATL  float64   `json:"atl"` // Acute Training Load - "Fatigue"
	CTL  float64   `json:"ctl"` // Chronic Training Load - "Fitness"
	TSB  float64   `json:"tsb"` // Training Stress Balance (CTL - ATL) - "Form"
}

// Freshness alert levels
const (
	AlertDetrainingRisk = "DETRAINING_RISK"
	AlertVeryFresh      = "VERY_FRESH"
	AlertFresh          = "FRESH"
	AlertFatigued       = "FATIGUED"
	AlertOverreaching   = "OVERREACHING"
)

// FreshnessAlert is advisory output of a PMC update; it never alters state
type FreshnessAlert struct {
	Level   string   `json:"level"`
	Message string   `json:"message"`
	TSB     float64  `json:"tsb"`
	Delta   *float64 `json:"tsb_delta,omitempty"` // change over the lookback window
}

// PMCUpdate is the result of applying one load to an athlete's history
type PMCUpdate struct {
	// Rows to append, oldest first: backfilled zero-load days then the update day
	Appended []PMCState      `json:"appended"`
	Current  PMCState        `json:"current"`
	Alert    *FreshnessAlert `json:"alert"`
}

// Day truncates t to its calendar date in UTC
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// step applies one day of load to the previous state
func step(prev PMCState, date time.Time, load float64, cfg PMCConfig) PMCState {
	atl := prev.ATL + (load-prev.ATL)/cfg.ATLDays
	ctl := prev.CTL + (load-prev.CTL)/cfg.CTLDays
	return PMCState{Date: date, Load: load, ATL: atl, CTL: ctl, TSB: ctl - atl}
}

// UpdatePMC applies load on date to history, which must be ordered by date
// and may hold several rows for one day (the last one wins). Days between
// the latest state and date are backfilled as zero-load days first. A second
// load on the latest day is summed with that day's load and recomputed from
// the previous day. history itself is never modified.
func UpdatePMC(history []PMCState, date time.Time, load float64, cfg PMCConfig) (PMCUpdate, error) {
	if math.IsNaN(load) || math.IsInf(load, 0) || load < 0 {
		return PMCUpdate{}, invalid(ModulePMC, "load", -1, "load must be a non-negative number, got %v", load)
	}
	date = Day(date)
	days := latestPerDay(history)

	var base PMCState
	hasBase := false
	if n := len(days); n > 0 {
		last := days[n-1]
		switch {
		case date.Before(last.Date):
			return PMCUpdate{}, invalid(ModulePMC, "date", -1, "%s precedes latest state %s", date.Format("2006-01-02"), last.Date.Format("2006-01-02"))
		case date.Equal(last.Date):
			load += last.Load
			if n > 1 {
				base, hasBase = days[n-2], true
			}
		default:
			base, hasBase = last, true
		}
	}

	var appended []PMCState
	if hasBase {
		for d := base.Date.AddDate(0, 0, 1); d.Before(date); d = d.AddDate(0, 0, 1) {
			base = step(base, d, 0, cfg)
			appended = append(appended, base)
		}
	}
	current := step(base, date, load, cfg)
	appended = append(appended, current)

	timeline := append(trimDay(days, date), appended...)
	return PMCUpdate{
		Appended: appended,
		Current:  current,
		Alert:    EvaluateFreshness(timeline, cfg),
	}, nil
}

// latestPerDay keeps the last row of each date in order
func latestPerDay(history []PMCState) []PMCState {
	out := make([]PMCState, 0, len(history))
	for _, s := range history {
		s.Date = Day(s.Date)
		if n := len(out); n > 0 && out[n-1].Date.Equal(s.Date) {
			out[n-1] = s
			continue
		}
		out = append(out, s)
	}
	return out
}

func trimDay(days []PMCState, date time.Time) []PMCState {
	if n := len(days); n > 0 && days[n-1].Date.Equal(date) {
		return days[:n-1]
	}
	return days
}

// EvaluateFreshness classifies the latest TSB of a day-by-day timeline
func EvaluateFreshness(timeline []PMCState, cfg PMCConfig) *FreshnessAlert {
	if len(timeline) == 0 {
		return nil
	}
	cur := timeline[len(timeline)-1]

	var delta *float64
	if cfg.DetrainingLookback > 0 {
		target := cur.Date.AddDate(0, 0, -cfg.DetrainingLookback)
		for i := len(timeline) - 1; i >= 0; i-- {
			if timeline[i].Date.Equal(target) {
				d := cur.TSB - timeline[i].TSB
				delta = &d
				break
			}
			if timeline[i].Date.Before(target) {
				break
			}
		}
	}

	alert := func(level, msg string) *FreshnessAlert {
		return &FreshnessAlert{Level: level, Message: msg, TSB: cur.TSB, Delta: delta}
	}
	switch {
	case cur.TSB > cfg.FreshTSB && delta != nil && *delta > cfg.DetrainingDelta:
		return alert(AlertDetrainingRisk, fmt.Sprintf("TSB rose %.1f in %d days, fitness may be fading", *delta, cfg.DetrainingLookback))
	case cur.TSB > cfg.VeryFreshTSB:
		return alert(AlertVeryFresh, "very fresh, consider adding load")
	case cur.TSB > cfg.FreshTSB:
		return alert(AlertFresh, "fresh and ready to race")
	case cur.TSB < cfg.OverreachingTSB:
		return alert(AlertOverreaching, "deep fatigue, schedule recovery")
	case cur.TSB < cfg.FatiguedTSB:
		return alert(AlertFatigued, "accumulated fatigue")
	}
	return nil
}

// ReplayPMC computes the full day-by-day chart from a set of loads, summing
// loads that fall on the same day and decaying through empty days.
func ReplayPMC(loads []DailyLoad, cfg PMCConfig) []PMCState {
	if len(loads) == 0 {
		return nil
	}

	sorted := append([]DailyLoad(nil), loads...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	loadMap := make(map[string]float64)
	for _, dl := range sorted {
		loadMap[dl.Date.Format("2006-01-02")] += dl.Load
	}

	startDate := Day(sorted[0].Date)
	endDate := Day(sorted[len(sorted)-1].Date)

	var states []PMCState
	var prev PMCState
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		prev = step(prev, d, loadMap[d.Format("2006-01-02")], cfg)
		states = append(states, prev)
	}
	return states
}

// FormDescription returns a human-readable description of TSB
func FormDescription(tsb float64) string {
	switch {
	case tsb > 25:
		return "Very fresh (possibly detrained)"
	case tsb > 10:
		return "Fresh and ready to race"
	case tsb > 0:
		return "Neutral - good for training"
	case tsb > -10:
		return "Slightly fatigued"
	case tsb > -25:
		return "Tired but building fitness"
	default:
		return "Very fatigued - rest needed"
	}
}
