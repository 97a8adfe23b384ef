package analysis

import (
	"math"
	"sort"
	"time"
)

// PerformanceState is one day of the Banister impulse-response model
type PerformanceState struct {
	Date        time.Time `json:"date"`
	Load        float64   `json:"load"`
	Fitness     float64   `json:"fitness"`
	Fatigue     float64   `json:"fatigue"`
	Performance float64   `json:"performance"` // fitness - fatigue
}

// BanisterPerformance runs the fitness-fatigue model over daily loads. Each
// component decays by exp(-1/tau) per day and gains load*k*(1-exp(-1/tau)),
// so with equal gains it tracks the PMC. Fatigue usually carries the larger
// gain. Missing days are filled with zero load between the first and last date.
func BanisterPerformance(loads []DailyLoad, cfg BanisterConfig) []PerformanceState {
	if len(loads) == 0 {
		return nil
	}

	sorted := append([]DailyLoad(nil), loads...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	byDay := make(map[string]float64, len(sorted))
	for _, dl := range sorted {
		byDay[dl.Date.Format(time.DateOnly)] += dl.Load
	}

	decayFit := math.Exp(-1 / cfg.TauFitness)
	decayFat := math.Exp(-1 / cfg.TauFatigue)

	var states []PerformanceState
	var fitness, fatigue float64
	end := Day(sorted[len(sorted)-1].Date)
	for d := Day(sorted[0].Date); !d.After(end); d = d.AddDate(0, 0, 1) {
		load := byDay[d.Format(time.DateOnly)]
		fitness = fitness*decayFit + load*cfg.KFitness*(1-decayFit)
		fatigue = fatigue*decayFat + load*cfg.KFatigue*(1-decayFat)
		states = append(states, PerformanceState{
			Date:        d,
			Load:        load,
			Fitness:     fitness,
			Fatigue:     fatigue,
			Performance: fitness - fatigue,
		})
	}
	return states
}

// PeakPerformance returns the day with the highest modelled performance
func PeakPerformance(states []PerformanceState) (PerformanceState, bool) {
	if len(states) == 0 {
		return PerformanceState{}, false
	}
	best := states[0]
	for _, s := range states[1:] {
		if s.Performance > best.Performance {
			best = s
		}
	}
	return best, true
}
