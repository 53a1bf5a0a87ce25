package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zonecast/synchub/internal/core"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned for missing rows.
var ErrNotFound = core.ErrNotFound

// DB is the SQLite implementation of core.Store.
type DB struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

var _ core.Store = (*DB)(nil)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS connections (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS players (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		connection_id   TEXT NOT NULL REFERENCES connections(id) ON DELETE CASCADE,
		name            TEXT NOT NULL,
		audio_output_id TEXT NOT NULL,
		created_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (connection_id, audio_output_id)
	)`,
	`CREATE TABLE IF NOT EXISTS audio_zones (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audio_zone_players (
		audio_zone_id INTEGER NOT NULL REFERENCES audio_zones(id) ON DELETE CASCADE,
		player_id     INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
		PRIMARY KEY (audio_zone_id, player_id)
	)`,
	`CREATE TABLE IF NOT EXISTS session_playlists (
		id INTEGER PRIMARY KEY AUTOINCREMENT
	)`,
	`CREATE TABLE IF NOT EXISTS session_playlist_tracks (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		playlist_id INTEGER NOT NULL REFERENCES session_playlists(id) ON DELETE CASCADE,
		position    INTEGER NOT NULL,
		track_id    TEXT NOT NULL,
		source      TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		name                 TEXT NOT NULL,
		active               INTEGER NOT NULL DEFAULT 0,
		playing              INTEGER NOT NULL DEFAULT 0,
		position             INTEGER,
		seek                 REAL,
		volume               REAL,
		target_type          TEXT,
		target_audio_zone_id INTEGER,
		target_connection_id TEXT,
		target_output_id     TEXT,
		playlist_id          INTEGER NOT NULL REFERENCES session_playlists(id),
		quality              TEXT
	)`,
}

// Open opens or creates the database file at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	log.Info().Str("module", "storage").Str("path", path).Msg("database opened")
	return &DB{db: db, path: path}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Path() string { return d.path }

// Ping checks the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// inTx runs fn in a transaction and commits when it returns nil.
func (d *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
