package service

import (
	"fmt"
	"time"

	"velolab/internal/analysis"
)

// Payload is one analysis request. Every block is optional; modules whose
// inputs are missing are skipped.
type Payload struct {
	AthleteID string `json:"athlete_id,omitempty"`

	RRData      []analysis.RRSample    `json:"rr_data,omitempty"`
	RRIntervals []float64              `json:"rr_intervals,omitempty"` // bare intervals, beats placed cumulatively
	PowerData   []analysis.PowerSample `json:"power_data,omitempty"`
	HeartRate   []analysis.Point       `json:"hr_data,omitempty"`

	AltitudeM    *float64 `json:"altitude_m,omitempty"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
	WeightKg     *float64 `json:"weight_kg,omitempty"` // overrides the configured athlete weight

	Efforts    []analysis.Effort   `json:"efforts,omitempty"`
	PriorPMC   []analysis.PMCState `json:"prior_pmc,omitempty"`
	Load       *float64            `json:"load,omitempty"`
	Date       string              `json:"date,omitempty"`        // YYYY-MM-DD or RFC3339
	HRVHistory []float64           `json:"hrv_history,omitempty"` // daily RMSSD, oldest first
}

// RR returns the RR samples, deriving timestamps from bare intervals if needed
func (p *Payload) RR() []analysis.RRSample {
	if len(p.RRData) > 0 {
		return p.RRData
	}
	if len(p.RRIntervals) > 0 {
		return analysis.RRFromIntervals(p.RRIntervals)
	}
	return nil
}

// HasSignals reports whether the payload carries anything to analyze
func (p *Payload) HasSignals() bool {
	return len(p.RRData) > 0 || len(p.RRIntervals) > 0 || len(p.PowerData) > 0 ||
		len(p.Efforts) > 0 || p.Load != nil
}

// ParseDate returns the payload date as a UTC day, or today when unset
func (p *Payload) ParseDate(now time.Time) (time.Time, error) {
	if p.Date == "" {
		return analysis.Day(now), nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, p.Date); err == nil {
			return analysis.Day(t), nil
		}
	}
	return time.Time{}, &analysis.InvalidInputError{
		Module: analysis.ModulePMC,
		Field:  "date",
		Index:  -1,
		Reason: fmt.Sprintf("%q is not YYYY-MM-DD or RFC3339", p.Date),
	}
}

// cacheView is the part of a payload that determines the cacheable result
type cacheView struct {
	RR         []analysis.RRSample     `json:"rr"`
	Power      []analysis.PowerSample  `json:"power"`
	HeartRate  []analysis.Point        `json:"hr"`
	Altitude   *float64                `json:"alt"`
	Temp       *float64                `json:"temp"`
	Efforts    []analysis.Effort       `json:"efforts"`
	HRVHistory []float64               `json:"hrv_history"`
	Config     analysis.Config         `json:"config"`
	FTP        float64                 `json:"ftp"`
	Body       analysis.MetabolicInput `json:"body"`
}

// ModuleStatus reports the outcome of one module
type ModuleStatus struct {
	OK        bool   `json:"ok"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

// SeriesSummary describes a preprocessed signal
type SeriesSummary struct {
	Samples      int     `json:"samples"`
	Segments     int     `json:"segments"`
	Removed      int     `json:"removed"`
	Interpolated int     `json:"interpolated"`
	DurationS    float64 `json:"duration_s"`
	Quality      float64 `json:"quality"`
}

// EfficiencySummary holds power:HR coupling metrics
type EfficiencySummary struct {
	EfficiencyFactor float64 `json:"efficiency_factor"`
	Decoupling       float64 `json:"decoupling_pct"`
	CardiacDrift     float64 `json:"cardiac_drift_bpm"`
	SteadyStatePct   float64 `json:"steady_state_pct"`
	Pairs            int     `json:"pairs"`
}

// Result is the analysis record. Every module result is independently
// nullable; Status holds an entry for every module that was attempted.
type Result struct {
	RequestID string                  `json:"request_id"`
	AthleteID string                  `json:"athlete_id,omitempty"`
	Status    map[string]ModuleStatus `json:"status"`
	Cached    bool                    `json:"cached"`

	RRSeries    *SeriesSummary `json:"rr_series,omitempty"`
	PowerSeries *SeriesSummary `json:"power_series,omitempty"`

	DFA        []analysis.DFAWindow       `json:"dfa,omitempty"`
	VT1        *analysis.VT1Result        `json:"vt1,omitempty"`
	HRV        *analysis.HRVMetrics       `json:"hrv,omitempty"`
	Readiness  *analysis.Readiness        `json:"readiness,omitempty"`
	Power      *analysis.PowerSummary     `json:"power,omitempty"`
	NP         *analysis.NPCorrection     `json:"np_correction,omitempty"`
	CP         *analysis.CPModel          `json:"critical_power,omitempty"`
	WPrime     *WPrimeSummary             `json:"w_prime,omitempty"`
	Efficiency *EfficiencySummary         `json:"efficiency,omitempty"`
	PMC        *analysis.PMCUpdate        `json:"pmc,omitempty"`
	Efforts    []analysis.Effort          `json:"efforts,omitempty"`
	Profile    *analysis.PowerProfile     `json:"power_profile,omitempty"`
	Metabolic  *analysis.MetabolicProfile `json:"metabolic,omitempty"`
}

// WPrimeSummary is the W' balance without the per-sample trace
type WPrimeSummary struct {
	Min        float64 `json:"min"`
	MinAt      float64 `json:"min_at"`
	MaxDeficit float64 `json:"max_deficit"`
	Exhausted  bool    `json:"exhausted"`
}

// OK reports whether every attempted module succeeded
func (r *Result) OK() bool {
	for _, s := range r.Status {
		if !s.OK {
			return false
		}
	}
	return true
}
