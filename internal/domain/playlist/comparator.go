package playlist

import (
	"cmp"
	"math"

	"github.com/calliope-player/calliope/internal/domain/song"
)

// Entry pairs a resolved song with its stickers for sorting.
type Entry struct {
	Song     song.Info
	Stickers song.Stickers
}

// cmpNullsLast compares two optional values, sorting absent ones last in
// both directions.
func cmpNullsLast[T cmp.Ordered](a, b *T, desc bool) int {
	switch {
	case a != nil && b != nil:
		if desc {
			return cmp.Compare(*b, *a)
		}
		return cmp.Compare(*a, *b)
	case a != nil:
		return -1
	case b != nil:
		return 1
	}
	return 0
}

// cmpStringNullsLast treats the empty string as absent.
func cmpStringNullsLast(a, b string, desc bool) int {
	var pa, pb *string
	if a != "" {
		pa = &a
	}
	if b != "" {
		pb = &b
	}
	return cmpNullsLast(pa, pb, desc)
}

func cmpTimeNullsLast(a, b *song.Info, desc bool) int {
	var pa, pb *int64
	if !a.LastModified.IsZero() {
		ua := a.LastModified.Unix()
		pa = &ua
	}
	if !b.LastModified.IsZero() {
		ub := b.LastModified.Unix()
		pb = &ub
	}
	return cmpNullsLast(pa, pb, desc)
}

func cmpTrack(a, b *song.Info) int {
	ta, tb := a.Track, b.Track
	if ta < 0 {
		ta = math.MaxInt64
	}
	if tb < 0 {
		tb = math.MaxInt64
	}
	return cmp.Compare(ta, tb)
}

// BuildComparator compiles an ordering chain into a single comparison
// function. Key selection happens once here rather than per comparison.
// OrderRandom never reaches the comparator: callers shuffle instead, so it
// is skipped if present.
func BuildComparator(ordering []OrderingKey) func(a, b Entry) int {
	steps := make([]func(a, b Entry) int, 0, len(ordering))
	for _, key := range ordering {
		switch key {
		case OrderAscAlbumTitle:
			steps = append(steps, func(a, b Entry) int {
				return cmpStringNullsLast(a.Song.Album, b.Song.Album, false)
			})
		case OrderDescAlbumTitle:
			steps = append(steps, func(a, b Entry) int {
				return cmpStringNullsLast(a.Song.Album, b.Song.Album, true)
			})
		case OrderTrack:
			steps = append(steps, func(a, b Entry) int {
				return cmpTrack(&a.Song, &b.Song)
			})
		case OrderAscReleaseDate:
			steps = append(steps, func(a, b Entry) int {
				return cmpStringNullsLast(a.Song.ReleaseDate, b.Song.ReleaseDate, false)
			})
		case OrderDescReleaseDate:
			steps = append(steps, func(a, b Entry) int {
				return cmpStringNullsLast(a.Song.ReleaseDate, b.Song.ReleaseDate, true)
			})
		case OrderAscArtistTag:
			steps = append(steps, func(a, b Entry) int {
				return cmpStringNullsLast(a.Song.ArtistTag, b.Song.ArtistTag, false)
			})
		case OrderDescArtistTag:
			steps = append(steps, func(a, b Entry) int {
				return cmpStringNullsLast(a.Song.ArtistTag, b.Song.ArtistTag, true)
			})
		case OrderAscRating:
			steps = append(steps, func(a, b Entry) int {
				return cmpNullsLast(a.Stickers.Rating, b.Stickers.Rating, false)
			})
		case OrderDescRating:
			steps = append(steps, func(a, b Entry) int {
				return cmpNullsLast(a.Stickers.Rating, b.Stickers.Rating, true)
			})
		case OrderAscLastModified:
			steps = append(steps, func(a, b Entry) int {
				return cmpTimeNullsLast(&a.Song, &b.Song, false)
			})
		case OrderDescLastModified:
			steps = append(steps, func(a, b Entry) int {
				return cmpTimeNullsLast(&a.Song, &b.Song, true)
			})
		case OrderAscPlayCount:
			steps = append(steps, func(a, b Entry) int {
				return cmpNullsLast(a.Stickers.PlayCount, b.Stickers.PlayCount, false)
			})
		case OrderDescPlayCount:
			steps = append(steps, func(a, b Entry) int {
				return cmpNullsLast(a.Stickers.PlayCount, b.Stickers.PlayCount, true)
			})
		case OrderAscSkipCount:
			steps = append(steps, func(a, b Entry) int {
				return cmpNullsLast(a.Stickers.SkipCount, b.Stickers.SkipCount, false)
			})
		case OrderDescSkipCount:
			steps = append(steps, func(a, b Entry) int {
				return cmpNullsLast(a.Stickers.SkipCount, b.Stickers.SkipCount, true)
			})
		case OrderRandom:
			// Handled by shuffling before sorting.
		}
	}

	return func(a, b Entry) int {
		for _, step := range steps {
			if res := step(a, b); res != 0 {
				return res
			}
		}
		return 0
	}
}
