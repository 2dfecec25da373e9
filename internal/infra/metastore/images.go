package metastore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DynamicPlaylistImageKey namespaces a dynamic playlist's cover image so it
// cannot collide with song or folder URIs.
func DynamicPlaylistImageKey(name string) string {
	return "dynamic_playlist:" + name
}

// NewImageFilename mints a fresh unique filename for a downloaded image.
func NewImageFilename() string {
	return uuid.New().String() + ".png"
}

// FindImage returns the registered filename for an image key. The second
// return value distinguishes "never tried" (false) from a registration; an
// empty filename with found true means a lookup already failed and should
// not be retried.
func (s *Store) FindImage(key string, thumbnail bool) (string, bool, error) {
	var filename string
	err := s.db.QueryRow(
		"SELECT filename FROM images WHERE key = ? AND is_thumbnail = ?",
		key, boolToInt(thumbnail),
	).Scan(&filename)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to query image key: %w", err)
	}
	return filename, true, nil
}

// FindCover looks up the cover image for a song URI, falling back to the
// containing folder's cover.
func (s *Store) FindCover(trackURI string, thumbnail bool) (string, bool, error) {
	if filename, found, err := s.FindImage(trackURI, thumbnail); err != nil || found {
		return filename, found, err
	}
	if idx := strings.LastIndexByte(trackURI, '/'); idx > 0 {
		return s.FindImage(trackURI[:idx], thumbnail)
	}
	return "", false, nil
}

// RegisterImage records the filename backing an image key. An empty
// filename records a failed lookup.
func (s *Store) RegisterImage(key, filename string, thumbnail bool) error {
	return s.write(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"DELETE FROM images WHERE key = ? AND is_thumbnail = ?",
			key, boolToInt(thumbnail),
		); err != nil {
			return fmt.Errorf("failed to replace image key: %w", err)
		}
		if _, err := tx.Exec(
			"INSERT INTO images (key, is_thumbnail, filename, last_modified) VALUES (?,?,?,?)",
			key, boolToInt(thumbnail), filename, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("failed to insert image key: %w", err)
		}
		return nil
	})
}

// UnregisterImage drops an image key registration.
func (s *Store) UnregisterImage(key string, thumbnail bool) error {
	return s.write(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"DELETE FROM images WHERE key = ? AND is_thumbnail = ?",
			key, boolToInt(thumbnail),
		); err != nil {
			return fmt.Errorf("failed to delete image key: %w", err)
		}
		return nil
	})
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
