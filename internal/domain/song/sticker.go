package song

import (
	"strconv"
	"strings"
	"time"
)

// Sticker keys follow the myMPD schema so both clients can share a server.
const (
	StickerRating      = "rating"
	StickerLike        = "like"
	StickerElapsed     = "elapsed"
	StickerLastPlayed  = "lastPlayed"
	StickerLastSkipped = "lastSkipped"
	StickerPlayCount   = "playCount"
	StickerSkipCount   = "skipCount"
)

// Thumbs is the three-state like status.
type Thumbs int

const (
	ThumbsDown Thumbs = iota
	ThumbsSideways
	ThumbsUp
)

// Stickers is the per-song mutable attribute bag parsed from the server's
// flat sticker key-value pairs. The server remains the system of record;
// this type is never persisted locally. Nil pointer fields mean the sticker
// was absent or unparsable.
type Stickers struct {
	Rating      *int
	Like        Thumbs
	Elapsed     *int64
	LastPlayed  *time.Time
	LastSkipped *time.Time
	PlayCount   *int64
	SkipCount   *int64
}

// ParseStickers builds a Stickers from the raw key-value pairs of one song.
// Unknown keys and malformed values are skipped.
func ParseStickers(kv map[string]string) Stickers {
	var s Stickers
	s.Like = ThumbsSideways
	for key, val := range kv {
		val = strings.TrimSpace(val)
		switch key {
		case StickerRating:
			if rating, err := strconv.Atoi(val); err == nil {
				s.Rating = &rating
			}
		case StickerLike:
			if like, err := strconv.Atoi(val); err == nil && like >= 0 && like <= 2 {
				s.Like = Thumbs(like)
			}
		case StickerElapsed:
			if elapsed, err := strconv.ParseInt(val, 10, 64); err == nil {
				s.Elapsed = &elapsed
			}
		case StickerLastPlayed:
			if ts, err := strconv.ParseInt(val, 10, 64); err == nil {
				t := time.Unix(ts, 0).UTC()
				s.LastPlayed = &t
			}
		case StickerLastSkipped:
			if ts, err := strconv.ParseInt(val, 10, 64); err == nil {
				t := time.Unix(ts, 0).UTC()
				s.LastSkipped = &t
			}
		case StickerPlayCount:
			if count, err := strconv.ParseInt(val, 10, 64); err == nil {
				s.PlayCount = &count
			}
		case StickerSkipCount:
			if count, err := strconv.ParseInt(val, 10, 64); err == nil {
				s.SkipCount = &count
			}
		}
	}
	return s
}
