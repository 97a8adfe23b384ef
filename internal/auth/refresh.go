package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"velolab/internal/store"
)

// refreshBuffer is how long before expiry a token is refreshed
const refreshBuffer = 60 * time.Second

// TokenSource refreshes an athlete's Strava tokens as needed and persists
// each new token to the store so the next run starts from it.
type TokenSource struct {
	config    *oauth2.Config
	db        *store.DB
	athleteID string
	logger    *zap.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenSource loads the athlete's tokens and wraps them in a refreshing
// source. It fails with store.ErrNoStravaToken when the athlete never linked
// Strava.
func NewTokenSource(ctx context.Context, cfg *oauth2.Config, db *store.DB, athleteID string, logger *zap.Logger) (*TokenSource, error) {
	stored, err := db.StravaToken(ctx, athleteID)
	if err != nil {
		return nil, fmt.Errorf("loading strava tokens: %w", err)
	}
	return &TokenSource{
		config:    cfg,
		db:        db,
		athleteID: athleteID,
		logger:    logger.With(zap.String("athlete_id", athleteID)),
		token: &oauth2.Token{
			AccessToken:  stored.AccessToken,
			RefreshToken: stored.RefreshToken,
			Expiry:       stored.ExpiresAt,
			TokenType:    "Bearer",
		},
	}, nil
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if time.Until(ts.token.Expiry) > refreshBuffer {
		return ts.token, nil
	}

	// An expired copy forces the oauth2 source to refresh
	expired := *ts.token
	expired.Expiry = time.Now().Add(-time.Second)

	ctx := context.Background()
	newToken, err := ts.config.TokenSource(ctx, &expired).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing strava token: %w", err)
	}

	if err := ts.db.RotateStravaToken(ctx, ts.athleteID, newToken.AccessToken, newToken.RefreshToken, newToken.Expiry); err != nil {
		return nil, fmt.Errorf("persisting refreshed token: %w", err)
	}
	ts.logger.Info("refreshed strava token", zap.Time("expires_at", newToken.Expiry))

	ts.token = newToken
	return newToken, nil
}

// IsExpired checks if the current token is expired or will expire within the buffer
func (ts *TokenSource) IsExpired() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return time.Until(ts.token.Expiry) <= refreshBuffer
}
