package store

import "time"

// StravaToken links a velolab athlete to a Strava account
type StravaToken struct {
	AthleteID       string    `db:"athlete_id"`
	StravaAthleteID int64     `db:"strava_athlete_id"`
	AccessToken     string    `db:"access_token"`
	RefreshToken    string    `db:"refresh_token"`
	ExpiresAt       time.Time `db:"expires_at"`
	Scope           string    `db:"scope"` // as granted, comma separated
}

const dateLayout = "2006-01-02"
