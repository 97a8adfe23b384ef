package analysis

import (
	"gonum.org/v1/gonum/stat"
)

// Traffic light status for daily readiness
const (
	ReadinessGreen  = "GREEN"
	ReadinessYellow = "YELLOW"
	ReadinessRed    = "RED"
)

// Overreaching status derived from the current streak of depressed days
const (
	OverreachingNormal  = "NORMAL"
	OverreachingWarning = "WARNING"
	OverreachingFOR     = "FOR"  // functional overreaching
	OverreachingNFOR    = "NFOR" // non-functional overreaching
)

// Day-to-day stability of the baseline window
const (
	StabilityStable   = "STABLE"
	StabilityModerate = "MODERATE"
	StabilityUnstable = "UNSTABLE"
)

// minBaselineDays and minOverreachingDays guard against tiny histories
const (
	minBaselineDays     = 3
	minOverreachingDays = 5
	overreachingWindow  = 21
	depressedDeviation  = -15.0
)

// HRVBaseline summarises recent daily RMSSD values
type HRVBaseline struct {
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	CVPercent  float64 `json:"cv_percent"`
	Stability  string  `json:"stability"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
	SampleSize int     `json:"sample_size"`
}

// Readiness is the daily HRV-guided training recommendation
type Readiness struct {
	Baseline         HRVBaseline `json:"baseline"`
	Current          float64     `json:"current"`
	DeviationPercent float64     `json:"deviation_percent"`
	Status           string      `json:"status"`
	Overreaching     string      `json:"overreaching"`
	DaysDepressed    int         `json:"days_depressed"`
}

// HRVBaselineFrom computes the baseline over the last BaselineDays values
func HRVBaselineFrom(daily []float64, cfg ReadinessConfig) (HRVBaseline, error) {
	if len(daily) < minBaselineDays {
		return HRVBaseline{}, insufficient(ModuleHRV, minBaselineDays, len(daily))
	}
	window := daily
	if cfg.BaselineDays > 0 && len(window) > cfg.BaselineDays {
		window = window[len(window)-cfg.BaselineDays:]
	}
	mean, std := stat.MeanStdDev(window, nil)
	b := HRVBaseline{
		Mean:       mean,
		StdDev:     std,
		LowerBound: mean * (1 - cfg.NormalRange),
		UpperBound: mean * (1 + cfg.NormalRange),
		SampleSize: len(window),
	}
	if mean > 0 {
		b.CVPercent = std / mean * 100
	}
	switch {
	case b.CVPercent < cfg.StableCV:
		b.Stability = StabilityStable
	case b.CVPercent <= cfg.ModerateCV:
		b.Stability = StabilityModerate
	default:
		b.Stability = StabilityUnstable
	}
	return b, nil
}

// TrafficLight classifies current against the baseline mean
func TrafficLight(current, baseline float64, cfg ReadinessConfig) (status string, deviation float64) {
	if baseline <= 0 {
		return ReadinessYellow, 0
	}
	deviation = (current - baseline) / baseline * 100
	switch {
	case deviation >= cfg.GreenDeviation:
		return ReadinessGreen, deviation
	case deviation >= cfg.YellowDeviation:
		return ReadinessYellow, deviation
	default:
		return ReadinessRed, deviation
	}
}

// Overreaching counts the current run of depressed days, newest first, over
// the last three weeks of history.
func Overreaching(daily []float64, baseline float64) (status string, days int) {
	valid := make([]float64, 0, len(daily))
	for _, v := range daily {
		if v > 0 {
			valid = append(valid, v)
		}
	}
	if len(valid) > overreachingWindow {
		valid = valid[len(valid)-overreachingWindow:]
	}
	if len(valid) < minOverreachingDays || baseline <= 0 {
		return OverreachingNormal, 0
	}
	for i := len(valid) - 1; i >= 0; i-- {
		if (valid[i]-baseline)/baseline*100 >= depressedDeviation {
			break
		}
		days++
	}
	switch {
	case days >= 11:
		return OverreachingNFOR, days
	case days >= 3:
		return OverreachingFOR, days
	case days >= 1:
		return OverreachingWarning, days
	}
	return OverreachingNormal, 0
}

// AssessReadiness evaluates today's value against the prior history.
// history excludes today.
func AssessReadiness(history []float64, today float64, cfg ReadinessConfig) (Readiness, error) {
	baseline, err := HRVBaselineFrom(history, cfg)
	if err != nil {
		return Readiness{}, err
	}
	status, dev := TrafficLight(today, baseline.Mean, cfg)
	over, days := Overreaching(append(append([]float64(nil), history...), today), baseline.Mean)
	return Readiness{
		Baseline:         baseline,
		Current:          today,
		DeviationPercent: dev,
		Status:           status,
		Overreaching:     over,
		DaysDepressed:    days,
	}, nil
}
