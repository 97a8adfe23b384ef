package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// StravaToken returns the tokens linked to an athlete
func (db *DB) StravaToken(ctx context.Context, athleteID string) (*StravaToken, error) {
	row := db.QueryRowContext(ctx, `
		SELECT athlete_id, strava_athlete_id, access_token, refresh_token, expires_at, scope
		FROM strava_tokens
		WHERE athlete_id = ?
	`, athleteID)

	var tok StravaToken
	var expiresAt int64
	err := row.Scan(&tok.AthleteID, &tok.StravaAthleteID, &tok.AccessToken, &tok.RefreshToken, &expiresAt, &tok.Scope)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoStravaToken
	}
	if err != nil {
		return nil, fmt.Errorf("reading strava token: %w", err)
	}
	tok.ExpiresAt = time.Unix(expiresAt, 0)
	return &tok, nil
}

// LinkStrava stores the tokens of a completed authorisation, replacing any
// earlier link of the athlete
func (db *DB) LinkStrava(ctx context.Context, tok *StravaToken) error {
	if tok.AthleteID == "" {
		return errors.New("linking strava: athlete id is required")
	}
	lock := db.athleteLock(tok.AthleteID)
	lock.Lock()
	defer lock.Unlock()

	_, err := db.ExecContext(ctx, `
		INSERT INTO strava_tokens (athlete_id, strava_athlete_id, access_token, refresh_token, expires_at, scope)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(athlete_id) DO UPDATE SET
			strava_athlete_id = excluded.strava_athlete_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			scope = excluded.scope,
			updated_at = CURRENT_TIMESTAMP
	`, tok.AthleteID, tok.StravaAthleteID, tok.AccessToken, tok.RefreshToken, tok.ExpiresAt.Unix(), tok.Scope)
	if err != nil {
		return fmt.Errorf("linking strava: %w", err)
	}
	return nil
}

// RotateStravaToken records a refreshed token pair. The link and its scope
// are unchanged.
func (db *DB) RotateStravaToken(ctx context.Context, athleteID, accessToken, refreshToken string, expiresAt time.Time) error {
	lock := db.athleteLock(athleteID)
	lock.Lock()
	defer lock.Unlock()

	res, err := db.ExecContext(ctx, `
		UPDATE strava_tokens
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE athlete_id = ?
	`, accessToken, refreshToken, expiresAt.Unix(), athleteID)
	if err != nil {
		return fmt.Errorf("rotating strava token: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNoStravaToken
	}
	return nil
}

// UnlinkStrava removes an athlete's tokens. Unlinking an athlete without a
// link is not an error.
func (db *DB) UnlinkStrava(ctx context.Context, athleteID string) error {
	lock := db.athleteLock(athleteID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := db.ExecContext(ctx, `DELETE FROM strava_tokens WHERE athlete_id = ?`, athleteID); err != nil {
		return fmt.Errorf("unlinking strava: %w", err)
	}
	return nil
}
