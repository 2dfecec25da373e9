package song_test

import (
	"testing"
	"time"

	"github.com/fhs/gompd/v2/mpd"

	"github.com/calliope-player/calliope/internal/domain/song"
)

func TestFromAttrs(t *testing.T) {
	attrs := mpd.Attrs{
		"file":          "music/jazz/take_five.flac",
		"Title":         "Take Five",
		"Album":         "Time Out",
		"AlbumArtist":   "The Dave Brubeck Quartet",
		"Artist":        "The Dave Brubeck Quartet",
		"Track":         "3",
		"duration":      "324.507",
		"OriginalDate":  "1959-12-14",
		"Last-Modified": "2024-03-01T10:30:00Z",
		"Id":            "42",
		"Pos":           "7",
	}

	info := song.FromAttrs(attrs)

	if info.URI != "music/jazz/take_five.flac" {
		t.Errorf("expected URI %q, got %q", attrs["file"], info.URI)
	}
	if info.Title != "Take Five" {
		t.Errorf("expected title %q, got %q", attrs["Title"], info.Title)
	}
	if info.Track != 3 {
		t.Errorf("expected track 3, got %d", info.Track)
	}
	if info.Duration != 324.507 {
		t.Errorf("expected duration 324.507, got %f", info.Duration)
	}
	if info.ReleaseDate != "1959-12-14" {
		t.Errorf("expected release date 1959-12-14, got %q", info.ReleaseDate)
	}

	want := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	if !info.LastModified.Equal(want) {
		t.Errorf("expected last modified %v, got %v", want, info.LastModified)
	}
	if info.QueueID != 42 {
		t.Errorf("expected queue id 42, got %d", info.QueueID)
	}
	if info.QueuePos != 7 {
		t.Errorf("expected queue pos 7, got %d", info.QueuePos)
	}
}

func TestFromAttrsMissingFields(t *testing.T) {
	info := song.FromAttrs(mpd.Attrs{
		"file": "music/untitled.mp3",
		"Time": "180",
	})

	if info.Track != song.NoTrack {
		t.Errorf("expected track sentinel %d, got %d", song.NoTrack, info.Track)
	}
	if info.Duration != 180 {
		t.Errorf("expected Time fallback duration 180, got %f", info.Duration)
	}
	if !info.LastModified.IsZero() {
		t.Errorf("expected zero last modified, got %v", info.LastModified)
	}
	if info.QueueID != -1 || info.QueuePos != -1 {
		t.Errorf("expected queue placement -1/-1, got %d/%d", info.QueueID, info.QueuePos)
	}
}

func TestParseStickers(t *testing.T) {
	stickers := song.ParseStickers(map[string]string{
		"rating":      "8",
		"like":        "2",
		"elapsed":     "120",
		"lastPlayed":  "1700000000",
		"lastSkipped": "1690000000",
		"playCount":   "15",
		"skipCount":   "2",
	})

	if stickers.Rating == nil || *stickers.Rating != 8 {
		t.Errorf("expected rating 8, got %v", stickers.Rating)
	}
	if stickers.Like != song.ThumbsUp {
		t.Errorf("expected like %d, got %d", song.ThumbsUp, stickers.Like)
	}
	if stickers.Elapsed == nil || *stickers.Elapsed != 120 {
		t.Errorf("expected elapsed 120, got %v", stickers.Elapsed)
	}
	if stickers.LastPlayed == nil || stickers.LastPlayed.Unix() != 1700000000 {
		t.Errorf("expected lastPlayed 1700000000, got %v", stickers.LastPlayed)
	}
	if stickers.PlayCount == nil || *stickers.PlayCount != 15 {
		t.Errorf("expected play count 15, got %v", stickers.PlayCount)
	}
	if stickers.SkipCount == nil || *stickers.SkipCount != 2 {
		t.Errorf("expected skip count 2, got %v", stickers.SkipCount)
	}
}

func TestParseStickersIgnoresMalformed(t *testing.T) {
	stickers := song.ParseStickers(map[string]string{
		"rating":    "not a number",
		"like":      "9",
		"playCount": "",
		"mood":      "mellow",
	})

	if stickers.Rating != nil {
		t.Errorf("expected nil rating, got %v", *stickers.Rating)
	}
	if stickers.Like != song.ThumbsSideways {
		t.Errorf("expected neutral like, got %d", stickers.Like)
	}
	if stickers.PlayCount != nil {
		t.Errorf("expected nil play count, got %v", *stickers.PlayCount)
	}
}
