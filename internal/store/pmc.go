package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"velolab/internal/analysis"
)

// LatestPMC returns the current state of the athlete's most recent day
func (db *DB) LatestPMC(ctx context.Context, athleteID string) (*analysis.PMCState, error) {
	row := db.QueryRowContext(ctx, `
		SELECT date, load, atl, ctl, tsb
		FROM pmc_states
		WHERE athlete_id = ?
		ORDER BY date DESC, id DESC
		LIMIT 1
	`, athleteID)

	s, err := scanPMCState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoPMCState
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// PMCHistory returns one state per day (the latest row of each date) within
// [from, to], ordered by date. Zero times leave the range open.
func (db *DB) PMCHistory(ctx context.Context, athleteID string, from, to time.Time) ([]analysis.PMCState, error) {
	lo, hi := "0000-01-01", "9999-12-31"
	if !from.IsZero() {
		lo = analysis.Day(from).Format(dateLayout)
	}
	if !to.IsZero() {
		hi = analysis.Day(to).Format(dateLayout)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT p.date, p.load, p.atl, p.ctl, p.tsb
		FROM pmc_states p
		JOIN (
			SELECT MAX(id) AS id FROM pmc_states
			WHERE athlete_id = ? AND date BETWEEN ? AND ?
			GROUP BY date
		) latest ON latest.id = p.id
		ORDER BY p.date
	`, athleteID, lo, hi)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPMCStates(rows)
}

// AppendPMC applies a day's load to the athlete's timeline and persists the
// new rows. Updates for one athlete are serialised so concurrent callers
// always build on each other's results.
func (db *DB) AppendPMC(ctx context.Context, athleteID string, date time.Time, load float64, cfg analysis.PMCConfig) (analysis.PMCUpdate, error) {
	lock := db.athleteLock(athleteID)
	lock.Lock()
	defer lock.Unlock()

	history, err := db.recentHistory(ctx, athleteID, date, cfg.DetrainingLookback+1)
	if err != nil {
		return analysis.PMCUpdate{}, fmt.Errorf("loading pmc history: %w", err)
	}

	update, err := analysis.UpdatePMC(history, date, load, cfg)
	if err != nil {
		return analysis.PMCUpdate{}, err
	}

	if err := db.insertPMC(ctx, athleteID, update.Appended, false); err != nil {
		return analysis.PMCUpdate{}, err
	}
	return update, nil
}

// SupersedePMC appends states as a newer revision of the athlete's timeline.
// Earlier rows are kept; reads return the latest row of each date.
func (db *DB) SupersedePMC(ctx context.Context, athleteID string, states []analysis.PMCState) error {
	lock := db.athleteLock(athleteID)
	lock.Lock()
	defer lock.Unlock()

	return db.insertPMC(ctx, athleteID, states)
}

// DailyLoads returns the load recorded for each day of the timeline
func (db *DB) DailyLoads(ctx context.Context, athleteID string) ([]analysis.DailyLoad, error) {
	states, err := db.PMCHistory(ctx, athleteID, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	loads := make([]analysis.DailyLoad, 0, len(states))
	for _, s := range states {
		if s.Load > 0 {
			loads = append(loads, analysis.DailyLoad{Date: s.Date, Load: s.Load})
		}
	}
	return loads, nil
}

// recentHistory loads enough of the timeline to update date: the latest day
// and the lookback days before it, plus the previous day if the latest day
// is being amended.
func (db *DB) recentHistory(ctx context.Context, athleteID string, date time.Time, lookback int) ([]analysis.PMCState, error) {
	latest, err := db.LatestPMC(ctx, athleteID)
	if errors.Is(err, ErrNoPMCState) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	anchor := analysis.Day(date)
	if latest.Date.Before(anchor) {
		anchor = latest.Date
	}
	return db.PMCHistory(ctx, athleteID, anchor.AddDate(0, 0, -lookback), time.Time{})
}

func (db *DB) insertPMC(ctx context.Context, athleteID string, states []analysis.PMCState) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pmc_states (athlete_id, date, load, atl, ctl, tsb)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range states {
		if _, err := stmt.ExecContext(ctx, athleteID, analysis.Day(s.Date).Format(dateLayout), s.Load, s.ATL, s.CTL, s.TSB); err != nil {
			return fmt.Errorf("inserting pmc state %s: %w", s.Date.Format(dateLayout), err)
		}
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPMCState(row rowScanner) (analysis.PMCState, error) {
	var s analysis.PMCState
	var date string
	if err := row.Scan(&date, &s.Load, &s.ATL, &s.CTL, &s.TSB); err != nil {
		return s, err
	}

	var parseErr error
	s.Date, parseErr = time.Parse(dateLayout, date)
	if parseErr != nil {
		return s, fmt.Errorf("parsing date %q: %w", date, parseErr)
	}
	return s, nil
}

func scanPMCStates(rows *sql.Rows) ([]analysis.PMCState, error) {
	var states []analysis.PMCState
	for rows.Next() {
		s, err := scanPMCState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, rows.Err()
}
