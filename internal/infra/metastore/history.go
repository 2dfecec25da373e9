package metastore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/calliope-player/calliope/internal/domain/song"
)

// HistoryEntry is one played song with its most recent play time.
type HistoryEntry struct {
	URI      string
	PlayedAt time.Time
}

// AlbumHistoryEntry is one played album.
type AlbumHistoryEntry struct {
	Title  string
	Artist string
}

// AddToHistory records a playback of the song, along with its album and
// artist, in one transaction.
func (s *Store) AddToHistory(info song.Info) error {
	return s.write(func(tx *sql.Tx) error {
		ts := time.Now().UTC().Format(time.RFC3339)
		if _, err := tx.Exec(
			"INSERT INTO songs_history (uri, timestamp) VALUES (?,?)", info.URI, ts,
		); err != nil {
			return fmt.Errorf("failed to record song history: %w", err)
		}
		if info.Album != "" {
			if _, err := tx.Exec(
				"INSERT INTO albums_history (title, artist, timestamp) VALUES (?,?,?)",
				info.Album, nullable(info.AlbumArtist), ts,
			); err != nil {
				return fmt.Errorf("failed to record album history: %w", err)
			}
		}
		if info.ArtistTag != "" {
			if _, err := tx.Exec(
				"INSERT INTO artists_history (name, timestamp) VALUES (?,?)",
				info.ArtistTag, ts,
			); err != nil {
				return fmt.Errorf("failed to record artist history: %w", err)
			}
		}
		return nil
	})
}

// LastSongs returns up to n most recently played songs, newest first.
func (s *Store) LastSongs(n int) ([]HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT uri, MAX(timestamp) AS last_played
		FROM songs_history
		GROUP BY uri ORDER BY last_played DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query song history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var ts string
		if err := rows.Scan(&entry.URI, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan song history: %w", err)
		}
		entry.PlayedAt, _ = time.Parse(time.RFC3339, ts)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// LastAlbums returns up to n most recently played albums, newest first.
func (s *Store) LastAlbums(n int) ([]AlbumHistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT title, artist, MAX(timestamp) AS last_played
		FROM albums_history
		GROUP BY title ORDER BY last_played DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query album history: %w", err)
	}
	defer rows.Close()

	var entries []AlbumHistoryEntry
	for rows.Next() {
		var entry AlbumHistoryEntry
		var artist sql.NullString
		var ts string
		if err := rows.Scan(&entry.Title, &artist, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan album history: %w", err)
		}
		entry.Artist = artist.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// LastArtists returns up to n most recently played artist names, newest
// first.
func (s *Store) LastArtists(n int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT name, MAX(timestamp) AS last_played
		FROM artists_history
		GROUP BY name ORDER BY last_played DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query artist history: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		var ts string
		if err := rows.Scan(&name, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan artist history: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ClearHistory wipes all three history tables in one transaction.
func (s *Store) ClearHistory() error {
	return s.write(func(tx *sql.Tx) error {
		for _, table := range []string{"songs_history", "albums_history", "artists_history"} {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}
