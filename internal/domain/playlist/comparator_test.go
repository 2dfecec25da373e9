package playlist_test

import (
	"testing"
	"time"

	"github.com/calliope-player/calliope/internal/domain/playlist"
	"github.com/calliope-player/calliope/internal/domain/song"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestComparatorRatingNullsLast(t *testing.T) {
	rated := playlist.Entry{Stickers: song.Stickers{Rating: intPtr(8)}}
	lower := playlist.Entry{Stickers: song.Stickers{Rating: intPtr(4)}}
	unrated := playlist.Entry{}

	asc := playlist.BuildComparator([]playlist.OrderingKey{playlist.OrderAscRating})
	if asc(lower, rated) >= 0 {
		t.Error("ascending: lower rating must sort first")
	}
	if asc(rated, unrated) >= 0 {
		t.Error("ascending: unrated must sort last")
	}
	if asc(unrated, rated) <= 0 {
		t.Error("ascending: unrated must sort last (reversed args)")
	}

	desc := playlist.BuildComparator([]playlist.OrderingKey{playlist.OrderDescRating})
	if desc(rated, lower) >= 0 {
		t.Error("descending: higher rating must sort first")
	}
	if desc(rated, unrated) >= 0 {
		t.Error("descending: unrated must still sort last")
	}
}

func TestComparatorTrackSentinel(t *testing.T) {
	tracked := playlist.Entry{Song: song.Info{Track: 3}}
	untracked := playlist.Entry{Song: song.Info{Track: song.NoTrack}}

	compare := playlist.BuildComparator([]playlist.OrderingKey{playlist.OrderTrack})
	if compare(tracked, untracked) >= 0 {
		t.Error("songs without a track number must sort last")
	}
	if compare(untracked, tracked) <= 0 {
		t.Error("songs without a track number must sort last (reversed args)")
	}
	if compare(untracked, untracked) != 0 {
		t.Error("two untracked songs must compare equal")
	}
}

func TestComparatorAlbumTitleNullsLast(t *testing.T) {
	a := playlist.Entry{Song: song.Info{Album: "Aja"}}
	z := playlist.Entry{Song: song.Info{Album: "Zuma"}}
	none := playlist.Entry{}

	desc := playlist.BuildComparator([]playlist.OrderingKey{playlist.OrderDescAlbumTitle})
	if desc(z, a) >= 0 {
		t.Error("descending: later album title must sort first")
	}
	if desc(a, none) >= 0 {
		t.Error("descending: missing album must sort last")
	}
}

func TestComparatorLastModified(t *testing.T) {
	older := playlist.Entry{Song: song.Info{LastModified: time.Unix(1600000000, 0)}}
	newer := playlist.Entry{Song: song.Info{LastModified: time.Unix(1700000000, 0)}}
	never := playlist.Entry{}

	desc := playlist.BuildComparator([]playlist.OrderingKey{playlist.OrderDescLastModified})
	if desc(newer, older) >= 0 {
		t.Error("descending: newer modification must sort first")
	}
	if desc(older, never) >= 0 {
		t.Error("descending: missing timestamp must sort last")
	}
}

func TestComparatorMultiKeyFallThrough(t *testing.T) {
	first := playlist.Entry{
		Song:     song.Info{Album: "Kind of Blue", Track: 1},
		Stickers: song.Stickers{PlayCount: int64Ptr(10)},
	}
	second := playlist.Entry{
		Song:     song.Info{Album: "Kind of Blue", Track: 2},
		Stickers: song.Stickers{PlayCount: int64Ptr(10)},
	}

	compare := playlist.BuildComparator([]playlist.OrderingKey{
		playlist.OrderDescPlayCount,
		playlist.OrderAscAlbumTitle,
		playlist.OrderTrack,
	})
	if compare(first, second) >= 0 {
		t.Error("equal leading keys must fall through to track ordering")
	}
	if compare(first, first) != 0 {
		t.Error("identical entries must compare equal")
	}
}

func TestComparatorEmptyOrdering(t *testing.T) {
	compare := playlist.BuildComparator(nil)
	a := playlist.Entry{Song: song.Info{URI: "a"}}
	b := playlist.Entry{Song: song.Info{URI: "b"}}
	if compare(a, b) != 0 {
		t.Error("empty ordering must treat all entries as equal")
	}
}
