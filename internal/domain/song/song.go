// Package song defines the shared song and sticker value types exchanged
// between the MPD protocol layer and the playlist engine.
package song

import (
	"strconv"
	"time"

	"github.com/fhs/gompd/v2/mpd"
)

// NoTrack is the sentinel track number for songs without a track tag.
const NoTrack int64 = -1

// Info holds the display and sorting fields of one song, keyed by its MPD
// URI. Instances are immutable once built from a server response.
type Info struct {
	URI         string
	Title       string
	Album       string
	AlbumArtist string
	// ArtistTag is the raw artist tag as reported by the server, without
	// any multi-artist splitting.
	ArtistTag string
	// Track is NoTrack when the song carries no track tag.
	Track    int64
	Duration float64
	// ReleaseDate is the raw originaldate tag (ISO 8601 date or prefix
	// thereof); empty when absent. Prefix forms compare correctly as
	// plain strings.
	ReleaseDate string
	// LastModified is zero when the server did not report one.
	LastModified time.Time

	// Queue placement, set only for songs fetched from the play queue.
	QueueID  int
	QueuePos int
}

// FromAttrs builds an Info from an MPD attribute map.
func FromAttrs(attrs mpd.Attrs) Info {
	info := Info{
		URI:         attrs["file"],
		Title:       attrs["Title"],
		Album:       attrs["Album"],
		AlbumArtist: attrs["AlbumArtist"],
		ArtistTag:   attrs["Artist"],
		Track:       NoTrack,
		ReleaseDate: attrs["OriginalDate"],
		QueueID:     -1,
		QueuePos:    -1,
	}

	if track, err := strconv.ParseInt(attrs["Track"], 10, 64); err == nil {
		info.Track = track
	}
	if dur, err := strconv.ParseFloat(attrs["duration"], 64); err == nil {
		info.Duration = dur
	} else if dur, err := strconv.Atoi(attrs["Time"]); err == nil {
		info.Duration = float64(dur)
	}
	if lm, err := time.Parse(time.RFC3339, attrs["Last-Modified"]); err == nil {
		info.LastModified = lm
	}
	if id, err := strconv.Atoi(attrs["Id"]); err == nil {
		info.QueueID = id
	}
	if pos, err := strconv.Atoi(attrs["Pos"]); err == nil {
		info.QueuePos = pos
	}

	return info
}
