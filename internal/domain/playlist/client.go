package playlist

import (
	"errors"
	"io"
	"net"

	"github.com/calliope-player/calliope/internal/domain/song"
)

// ErrOutOfRange reports a paging window whose start lies past the end of the
// result set. Implementations translate the server's argument error into
// this sentinel so that paging loops can terminate cleanly.
var ErrOutOfRange = errors.New("window out of range")

// Client is the protocol surface the playlist engine needs. Implemented by
// the infra MPD client.
type Client interface {
	// FindWindow runs a database find with the given filter expression,
	// returning songs in the half-open window [start, end).
	FindWindow(filter string, start, end int) ([]song.Info, error)

	// StickerFindWindow matches objects of objectType whose sticker key
	// compares to value under op, returning matched names (song URIs, tag
	// values or playlist names) in the window [start, end).
	StickerFindWindow(objectType, key, op, value string, start, end int) ([]string, error)

	// PlaylistSongs returns the contents of a stored playlist.
	PlaylistSongs(name string) ([]song.Info, error)

	// SongByURI returns the song at the given URI.
	SongByURI(uri string) (song.Info, error)

	// SongStickers returns all sticker key-value pairs of one song.
	SongStickers(uri string) (map[string]string, error)

	// Tag type negotiation for bulk fetches.
	TagTypesClear() error
	TagTypesEnable(tags ...string) error
	TagTypesAll() error

	// QueueAdd appends URIs to the play queue.
	QueueAdd(uris []string) error

	// Play starts playback at the given queue position.
	Play(pos int) error
}

// IsConnError reports whether err was a transport failure rather than a
// server-side rejection. Transport failures are surfaced to the caller so a
// reconnect can be attempted.
func IsConnError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
