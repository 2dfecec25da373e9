package metastore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// FindLyrics returns the cached lyrics of a song, or nil when none are
// cached. A negative-cache entry (lyrics were searched for but not found)
// also returns nil.
func (s *Store) FindLyrics(uri string) (*Lyrics, error) {
	var text string
	var synced bool
	err := s.db.QueryRow("SELECT lyrics, synced FROM songs WHERE uri = ?", uri).Scan(&text, &synced)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query lyrics: %w", err)
	}
	if text == "" {
		return nil, nil
	}
	return &Lyrics{Text: text, Synced: synced}, nil
}

// WriteLyrics stores lyrics for a song, replacing any previous entry.
// Passing nil records a negative-cache entry so providers are not queried
// again for a song known to have no lyrics.
func (s *Store) WriteLyrics(uri string, lyrics *Lyrics) error {
	return s.write(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM songs WHERE uri = ?", uri); err != nil {
			return fmt.Errorf("failed to replace lyrics: %w", err)
		}

		text := ""
		synced := false
		if lyrics != nil {
			text = lyrics.Text
			synced = lyrics.Synced
		}
		_, err := tx.Exec(
			"INSERT INTO songs (uri, lyrics, synced, last_modified) VALUES (?,?,?,?)",
			uri, text, synced, time.Now().UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("failed to insert lyrics: %w", err)
		}
		return nil
	})
}
