// Package metastore persists locally-owned metadata in SQLite: external
// album/artist metadata blobs, lyrics, image-path registrations, play
// history and dynamic playlist definitions with their cached resolutions.
package metastore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog/log"
)

// migrations upgrade the schema one user_version step at a time. Index i
// migrates version i to i+1. Each step runs in its own transaction.
var migrations = []string{
	// 0 -> 1: base metadata tables.
	`
	CREATE TABLE IF NOT EXISTS albums (
		folder_uri VARCHAR NOT NULL,
		mbid VARCHAR NULL UNIQUE,
		title VARCHAR NOT NULL,
		artist VARCHAR NULL,
		last_modified DATETIME NOT NULL,
		data BLOB NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS album_mbid ON albums (mbid);
	CREATE UNIQUE INDEX IF NOT EXISTS album_name ON albums (title, artist);

	CREATE TABLE IF NOT EXISTS artists (
		name VARCHAR NOT NULL UNIQUE,
		mbid VARCHAR NULL UNIQUE,
		last_modified DATETIME NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (name)
	);
	CREATE UNIQUE INDEX IF NOT EXISTS artist_mbid ON artists (mbid);

	CREATE TABLE IF NOT EXISTS songs (
		uri VARCHAR NOT NULL UNIQUE,
		lyrics VARCHAR NOT NULL,
		synced BOOL NOT NULL,
		last_modified DATETIME NOT NULL,
		PRIMARY KEY (uri)
	);

	CREATE TABLE IF NOT EXISTS songs_history (
		id INTEGER NOT NULL,
		uri VARCHAR NOT NULL,
		timestamp DATETIME NOT NULL,
		PRIMARY KEY (id)
	);
	CREATE INDEX IF NOT EXISTS song_history_last ON songs_history (uri, timestamp DESC);

	CREATE TABLE IF NOT EXISTS artists_history (
		id INTEGER NOT NULL,
		name VARCHAR NOT NULL,
		timestamp DATETIME NOT NULL,
		PRIMARY KEY (id)
	);
	CREATE INDEX IF NOT EXISTS artists_history_last ON artists_history (name, timestamp DESC);

	CREATE TABLE IF NOT EXISTS albums_history (
		id INTEGER NOT NULL,
		title VARCHAR NOT NULL,
		timestamp DATETIME NOT NULL,
		PRIMARY KEY (id)
	);
	CREATE INDEX IF NOT EXISTS albums_history_last ON albums_history (title, timestamp DESC);

	CREATE TABLE IF NOT EXISTS images (
		key VARCHAR NOT NULL,
		is_thumbnail INTEGER NOT NULL,
		filename VARCHAR NOT NULL,
		last_modified DATETIME NOT NULL,
		PRIMARY KEY (key, is_thumbnail)
	);
	`,

	// 1 -> 2: journaling switched to WAL. The mode itself is set on the
	// connection string; this step only exists to keep version numbering
	// aligned with databases written by earlier builds.
	``,

	// 2 -> 3: albums_history learns mbid and artist for better lookups.
	`
	ALTER TABLE albums_history ADD COLUMN mbid VARCHAR NULL;
	ALTER TABLE albums_history ADD COLUMN artist VARCHAR NULL;
	`,

	// 3 -> 4: dynamic playlist definitions and cached resolutions.
	`
	CREATE TABLE IF NOT EXISTS queries (
		name VARCHAR NOT NULL,
		cover_name VARCHAR NULL,
		last_modified DATETIME NOT NULL,
		last_queued DATETIME NULL,
		play_count INTEGER NOT NULL,
		bson BLOB NOT NULL,
		last_refresh DATETIME NULL,
		auto_refresh VARCHAR NOT NULL,
		"limit" INTEGER NULL,
		PRIMARY KEY (name)
	);

	CREATE TABLE IF NOT EXISTS query_results (
		query_name VARCHAR NOT NULL,
		uri VARCHAR NOT NULL
	);
	CREATE INDEX IF NOT EXISTS query_results_key ON query_results (query_name);
	`,
}

// Store is the SQLite-backed metadata store. Reads go straight to the
// pooled connection; all writes funnel through a single worker goroutine
// so write transactions never contend.
type Store struct {
	db     *sql.DB
	writes chan writeReq
	done   chan struct{}
}

type writeReq struct {
	op    func(tx *sql.Tx) error
	reply chan error
}

// Open opens (creating if needed) the store at path and applies pending
// migrations. A migration failure leaves the database untouched beyond the
// already-committed steps and must be treated as fatal.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create metastore directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open metastore: %w", err)
	}
	// WAL lets readers run alongside the write worker, so the pool is not
	// pinned to a single connection.
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		writes: make(chan writeReq),
		done:   make(chan struct{}),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	go s.writeWorker()

	log.Info().Str("path", path).Msg("Metadata store opened")
	return s, nil
}

// Close shuts down the write worker and closes the database. Callers must
// not submit writes after Close.
func (s *Store) Close() error {
	close(s.writes)
	<-s.done
	return s.db.Close()
}

func (s *Store) migrate() error {
	for {
		var version int
		if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		if version >= len(migrations) {
			return nil
		}

		log.Info().Int("from", version).Int("to", version+1).Msg("Migrating metadata store")
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration: %w", err)
		}
		if stmts := migrations[version]; stmts != "" {
			if _, err := tx.Exec(stmts); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration to version %d failed: %w", version+1, err)
			}
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to bump schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration: %w", err)
		}
	}
}

// write runs op inside a transaction on the write worker and blocks until
// it committed or rolled back.
func (s *Store) write(op func(tx *sql.Tx) error) error {
	reply := make(chan error, 1)
	s.writes <- writeReq{op: op, reply: reply}
	return <-reply
}

func (s *Store) writeWorker() {
	defer close(s.done)
	for req := range s.writes {
		req.reply <- s.runWrite(req.op)
	}
}

func (s *Store) runWrite(op func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin write transaction: %w", err)
	}
	if err := op(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit write transaction: %w", err)
	}
	return nil
}
