package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Strava tokens, one row per velolab athlete
		`CREATE TABLE IF NOT EXISTS strava_tokens (
			athlete_id TEXT PRIMARY KEY,
			strava_athlete_id INTEGER NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			scope TEXT NOT NULL DEFAULT '',
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// PMC timeline, append-only. Several rows may share a date; the
		// highest id for a date is the current state of that day.
		`CREATE TABLE IF NOT EXISTS pmc_states (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			athlete_id TEXT NOT NULL,
			date TEXT NOT NULL,
			load REAL NOT NULL,
			atl REAL NOT NULL,
			ctl REAL NOT NULL,
			tsb REAL NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pmc_states_athlete_date ON pmc_states(athlete_id, date, id)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
