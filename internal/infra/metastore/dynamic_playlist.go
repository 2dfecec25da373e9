package metastore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/calliope-player/calliope/internal/domain/playlist"
)

const dynamicPlaylistColumns = `bson, name, last_modified, last_queued, play_count, auto_refresh, last_refresh, "limit"`

// InsertDynamicPlaylist persists a dynamic playlist definition. When
// overwriteName is non-empty the playlist previously stored under that name
// is replaced, which covers both editing in place and renaming in one
// atomic call; a rename also migrates the playlist's cover image key and
// its cached resolution. The
// uniqueness check runs inside the same transaction, so two concurrent
// inserts of the same name cannot both succeed: the loser gets
// ErrKeyAlreadyExists.
func (s *Store) InsertDynamicPlaylist(dp *playlist.DynamicPlaylist, overwriteName string) error {
	data, err := dp.EncodeDefinition()
	if err != nil {
		return err
	}
	autoRefresh := dp.AutoRefresh
	if autoRefresh == "" {
		autoRefresh = playlist.RefreshNone
	}

	return s.write(func(tx *sql.Tx) error {
		if overwriteName != "" {
			if _, err := tx.Exec("DELETE FROM queries WHERE name = ?", overwriteName); err != nil {
				return fmt.Errorf("failed to remove overwritten playlist: %w", err)
			}
			if overwriteName != dp.Name {
				if _, err := tx.Exec(
					"UPDATE images SET key = ? WHERE key = ?",
					DynamicPlaylistImageKey(dp.Name),
					DynamicPlaylistImageKey(overwriteName),
				); err != nil {
					return fmt.Errorf("failed to migrate playlist image key: %w", err)
				}
				if _, err := tx.Exec(
					"UPDATE query_results SET query_name = ? WHERE query_name = ?",
					dp.Name, overwriteName,
				); err != nil {
					return fmt.Errorf("failed to migrate cached results: %w", err)
				}
			}
		}

		// The overwriting path has already freed its own name; any row still
		// holding the target name belongs to another playlist.
		var count int
		if err := tx.QueryRow("SELECT COUNT(name) FROM queries WHERE name = ?", dp.Name).Scan(&count); err != nil {
			return fmt.Errorf("failed to check playlist name: %w", err)
		}
		if count > 0 {
			return ErrKeyAlreadyExists
		}

		_, err := tx.Exec(`
			INSERT INTO queries
			(name, last_modified, last_queued, play_count, bson, auto_refresh, last_refresh, "limit")
			VALUES (?,?,?,?,?,?,?,?)`,
			dp.Name,
			time.Now().UTC().Format(time.RFC3339),
			nullableTime(dp.LastQueued),
			dp.PlayCount,
			data,
			string(autoRefresh),
			nullableTime(dp.LastRefresh),
			nullableInt(dp.Limit),
		)
		if err != nil {
			return fmt.Errorf("failed to insert playlist: %w", err)
		}
		return nil
	})
}

// DynamicPlaylist loads one playlist by name, or nil when absent.
func (s *Store) DynamicPlaylist(name string) (*playlist.DynamicPlaylist, error) {
	row := s.db.QueryRow("SELECT "+dynamicPlaylistColumns+" FROM queries WHERE name = ?", name)
	dp, err := scanDynamicPlaylist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return dp, nil
}

// DynamicPlaylists loads all stored playlists.
func (s *Store) DynamicPlaylists() ([]playlist.DynamicPlaylist, error) {
	rows, err := s.db.Query("SELECT " + dynamicPlaylistColumns + " FROM queries ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []playlist.DynamicPlaylist
	for rows.Next() {
		dp, err := scanDynamicPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *dp)
	}
	return playlists, rows.Err()
}

// DeleteDynamicPlaylist drops a playlist, its cached resolution and its
// cover image registrations in one transaction.
func (s *Store) DeleteDynamicPlaylist(name string) error {
	return s.write(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM queries WHERE name = ?", name); err != nil {
			return fmt.Errorf("failed to delete playlist: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM query_results WHERE query_name = ?", name); err != nil {
			return fmt.Errorf("failed to delete playlist results: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM images WHERE key = ?", DynamicPlaylistImageKey(name)); err != nil {
			return fmt.Errorf("failed to delete playlist image keys: %w", err)
		}
		return nil
	})
}

// CacheDynamicPlaylistResults replaces the playlist's cached resolution
// with the given URIs, in order, and stamps last_refresh.
func (s *Store) CacheDynamicPlaylistResults(name string, uris []string) error {
	return s.write(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM query_results WHERE query_name = ?", name); err != nil {
			return fmt.Errorf("failed to clear previous results: %w", err)
		}
		stmt, err := tx.Prepare("INSERT INTO query_results (query_name, uri) VALUES (?,?)")
		if err != nil {
			return fmt.Errorf("failed to prepare result insert: %w", err)
		}
		defer stmt.Close()
		for _, uri := range uris {
			if _, err := stmt.Exec(name, uri); err != nil {
				return fmt.Errorf("failed to insert result row: %w", err)
			}
		}
		if _, err := tx.Exec(
			"UPDATE queries SET last_refresh = ? WHERE name = ?",
			time.Now().UTC().Format(time.RFC3339), name,
		); err != nil {
			return fmt.Errorf("failed to stamp refresh time: %w", err)
		}
		return nil
	})
}

// CachedDynamicPlaylistResults returns the cached resolution in stored
// order.
func (s *Store) CachedDynamicPlaylistResults(name string) ([]string, error) {
	rows, err := s.db.Query("SELECT uri FROM query_results WHERE query_name = ? ORDER BY rowid", name)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached results: %w", err)
	}
	defer rows.Close()

	var uris []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("failed to scan cached result: %w", err)
		}
		uris = append(uris, uri)
	}
	return uris, rows.Err()
}

// TouchDynamicPlaylistQueued bumps the playlist's play count and stamps
// the time it was last queued.
func (s *Store) TouchDynamicPlaylistQueued(name string) error {
	return s.write(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"UPDATE queries SET last_queued = ?, play_count = play_count + 1 WHERE name = ?",
			time.Now().UTC().Format(time.RFC3339), name,
		); err != nil {
			return fmt.Errorf("failed to record queueing: %w", err)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDynamicPlaylist(row rowScanner) (*playlist.DynamicPlaylist, error) {
	var (
		data                                 []byte
		dp                                   playlist.DynamicPlaylist
		lastModified                         string
		lastQueued, lastRefresh, autoRefresh sql.NullString
		limit                                sql.NullInt64
	)
	if err := row.Scan(&data, &dp.Name, &lastModified, &lastQueued, &dp.PlayCount, &autoRefresh, &lastRefresh, &limit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan playlist row: %w", err)
	}

	if err := dp.DecodeDefinition(data); err != nil {
		return nil, fmt.Errorf("failed to decode playlist %q: %w", dp.Name, err)
	}

	var err error
	dp.AutoRefresh, err = playlist.ParseAutoRefresh(autoRefresh.String)
	if err != nil {
		return nil, fmt.Errorf("playlist %q: %w", dp.Name, err)
	}
	dp.LastModified, _ = time.Parse(time.RFC3339, lastModified)
	if lastQueued.Valid {
		dp.LastQueued, _ = time.Parse(time.RFC3339, lastQueued.String)
	}
	if lastRefresh.Valid {
		dp.LastRefresh, _ = time.Parse(time.RFC3339, lastRefresh.String)
	}
	if limit.Valid {
		dp.Limit = int(limit.Int64)
	}
	return &dp, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
