package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"velolab/internal/analysis"
	"velolab/internal/metrics"
)

// AddLoad appends one day's load to the athlete's stored chart
func (a *Analyzer) AddLoad(ctx context.Context, athleteID string, date time.Time, load float64) (analysis.PMCUpdate, error) {
	if a.store == nil {
		return analysis.PMCUpdate{}, ErrNoStore
	}
	if athleteID == "" {
		return analysis.PMCUpdate{}, &analysis.InvalidInputError{Module: analysis.ModulePMC, Field: "athlete_id", Index: -1, Reason: "athlete id is required"}
	}

	start := time.Now()
	update, err := a.store.AppendPMC(ctx, athleteID, date, load, a.cfg.PMC)
	metrics.ModuleRuns.WithLabelValues(analysis.ModulePMC, errorKind(err)).Inc()
	metrics.ModuleDuration.WithLabelValues(analysis.ModulePMC).Observe(time.Since(start).Seconds())
	if err != nil {
		return analysis.PMCUpdate{}, fmt.Errorf("appending load: %w", err)
	}

	metrics.CurrentTSB.WithLabelValues(athleteID).Set(update.Current.TSB)
	a.logger.Info("pmc updated",
		zap.String("athlete_id", athleteID),
		zap.String("date", update.Current.Date.Format(time.DateOnly)),
		zap.Int("appended", len(update.Appended)),
	)
	return update, nil
}

// History returns the athlete's chart with the freshness alert of its last day
func (a *Analyzer) History(ctx context.Context, athleteID string, from, to time.Time) ([]analysis.PMCState, *analysis.FreshnessAlert, error) {
	if a.store == nil {
		return nil, nil, ErrNoStore
	}
	states, err := a.store.PMCHistory(ctx, athleteID, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("loading history: %w", err)
	}
	return states, analysis.EvaluateFreshness(states, a.cfg.PMC), nil
}

// Replay recomputes the athlete's chart from its recorded daily loads and
// appends the result as a new revision. The replay runs through the last
// stored day so no older row outlives it.
func (a *Analyzer) Replay(ctx context.Context, athleteID string) ([]analysis.PMCState, error) {
	if a.store == nil {
		return nil, ErrNoStore
	}
	loads, err := a.store.DailyLoads(ctx, athleteID)
	if err != nil {
		return nil, fmt.Errorf("loading daily loads: %w", err)
	}
	if len(loads) == 0 {
		return nil, nil
	}
	latest, err := a.store.LatestPMC(ctx, athleteID)
	if err != nil {
		return nil, fmt.Errorf("loading latest state: %w", err)
	}
	loads = append(loads, analysis.DailyLoad{Date: latest.Date})

	states := analysis.ReplayPMC(loads, a.cfg.PMC)
	if err := a.store.SupersedePMC(ctx, athleteID, states); err != nil {
		return nil, fmt.Errorf("storing replayed history: %w", err)
	}
	if len(states) > 0 {
		metrics.CurrentTSB.WithLabelValues(athleteID).Set(states[len(states)-1].TSB)
	}
	a.logger.Info("pmc replayed", zap.String("athlete_id", athleteID), zap.Int("days", len(states)))
	return states, nil
}

// Performance runs the Banister fitness-fatigue model over the athlete's
// recorded daily loads through the last stored day.
func (a *Analyzer) Performance(ctx context.Context, athleteID string) ([]analysis.PerformanceState, error) {
	if a.store == nil {
		return nil, ErrNoStore
	}
	loads, err := a.store.DailyLoads(ctx, athleteID)
	if err != nil {
		return nil, fmt.Errorf("loading daily loads: %w", err)
	}
	if len(loads) == 0 {
		return nil, nil
	}
	latest, err := a.store.LatestPMC(ctx, athleteID)
	if err != nil {
		return nil, fmt.Errorf("loading latest state: %w", err)
	}
	loads = append(loads, analysis.DailyLoad{Date: latest.Date})

	start := time.Now()
	states := analysis.BanisterPerformance(loads, a.cfg.Banister)
	metrics.ModuleRuns.WithLabelValues(analysis.ModuleBanister, KindOK).Inc()
	metrics.ModuleDuration.WithLabelValues(analysis.ModuleBanister).Observe(time.Since(start).Seconds())
	return states, nil
}
