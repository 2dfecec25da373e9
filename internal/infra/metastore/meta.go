package metastore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// FindAlbumMeta looks up cached metadata for an album, by MBID when the key
// carries one, otherwise by title and artist. Returns nil when the record
// is absent.
func (s *Store) FindAlbumMeta(key AlbumKey) (*AlbumMeta, error) {
	var row *sql.Row
	switch {
	case key.MBID != "":
		row = s.db.QueryRow("SELECT data FROM albums WHERE mbid = ?", key.MBID)
	case key.Title != "" && key.Artist != "":
		row = s.db.QueryRow("SELECT data FROM albums WHERE title = ? AND artist = ?", key.Title, key.Artist)
	default:
		return nil, nil
	}

	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query album meta: %w", err)
	}

	var meta AlbumMeta
	if err := bson.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode album meta: %w", err)
	}
	return &meta, nil
}

// WriteAlbumMeta stores album metadata, replacing any previous record under
// the same key. Returns ErrInsufficientKey when the key addresses nothing.
func (s *Store) WriteAlbumMeta(key AlbumKey, folderURI string, meta *AlbumMeta) error {
	data, err := bson.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode album meta: %w", err)
	}

	return s.write(func(tx *sql.Tx) error {
		switch {
		case key.MBID != "":
			if _, err := tx.Exec("DELETE FROM albums WHERE mbid = ?", key.MBID); err != nil {
				return fmt.Errorf("failed to replace album meta: %w", err)
			}
		case key.Title != "" && key.Artist != "":
			if _, err := tx.Exec("DELETE FROM albums WHERE title = ? AND artist = ?", key.Title, key.Artist); err != nil {
				return fmt.Errorf("failed to replace album meta: %w", err)
			}
		default:
			return ErrInsufficientKey
		}

		_, err := tx.Exec(
			"INSERT INTO albums (folder_uri, mbid, title, artist, last_modified, data) VALUES (?,?,?,?,?,?)",
			folderURI, nullable(key.MBID), key.Title, nullable(key.Artist),
			time.Now().UTC().Format(time.RFC3339), data,
		)
		if err != nil {
			return fmt.Errorf("failed to insert album meta: %w", err)
		}
		return nil
	})
}

// FindArtistMeta looks up cached metadata for an artist, by MBID when the
// key carries one, otherwise by name. Returns nil when absent.
func (s *Store) FindArtistMeta(key ArtistKey) (*ArtistMeta, error) {
	var row *sql.Row
	switch {
	case key.MBID != "":
		row = s.db.QueryRow("SELECT data FROM artists WHERE mbid = ?", key.MBID)
	case key.Name != "":
		row = s.db.QueryRow("SELECT data FROM artists WHERE name = ?", key.Name)
	default:
		return nil, nil
	}

	var data []byte
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query artist meta: %w", err)
	}

	var meta ArtistMeta
	if err := bson.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode artist meta: %w", err)
	}
	return &meta, nil
}

// WriteArtistMeta stores artist metadata, replacing any previous record
// under the same key.
func (s *Store) WriteArtistMeta(key ArtistKey, meta *ArtistMeta) error {
	if key.MBID == "" && key.Name == "" {
		return ErrInsufficientKey
	}
	data, err := bson.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode artist meta: %w", err)
	}

	return s.write(func(tx *sql.Tx) error {
		if key.MBID != "" {
			if _, err := tx.Exec("DELETE FROM artists WHERE mbid = ?", key.MBID); err != nil {
				return fmt.Errorf("failed to replace artist meta: %w", err)
			}
		} else {
			if _, err := tx.Exec("DELETE FROM artists WHERE name = ?", key.Name); err != nil {
				return fmt.Errorf("failed to replace artist meta: %w", err)
			}
		}

		_, err := tx.Exec(
			"INSERT INTO artists (name, mbid, last_modified, data) VALUES (?,?,?,?)",
			key.Name, nullable(key.MBID),
			time.Now().UTC().Format(time.RFC3339), data,
		)
		if err != nil {
			return fmt.Errorf("failed to insert artist meta: %w", err)
		}
		return nil
	})
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
