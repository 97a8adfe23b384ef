package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrNoStravaToken is returned when an athlete has not linked Strava
var ErrNoStravaToken = errors.New("no strava token stored")

// ErrNoPMCState is returned when an athlete has no PMC history yet
var ErrNoPMCState = errors.New("no pmc state stored")

// DB wraps the SQLite handle holding PMC timelines and Strava tokens
type DB struct {
	*sql.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open opens the SQLite database at path, creating it if necessary
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite serialises writers; one connection keeps :memory: databases coherent
	sqlDB.SetMaxOpenConns(1)

	db, err := wrap(sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func wrap(sqlDB *sql.DB) (*DB, error) {
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := migrate(sqlDB); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &DB{DB: sqlDB, locks: make(map[string]*sync.Mutex)}, nil
}

// athleteLock returns the mutex serialising PMC updates for one athlete
func (db *DB) athleteLock(athleteID string) *sync.Mutex {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.locks == nil {
		db.locks = make(map[string]*sync.Mutex)
	}
	l, ok := db.locks[athleteID]
	if !ok {
		l = &sync.Mutex{}
		db.locks[athleteID] = l
	}
	return l
}
