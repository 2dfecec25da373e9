package playlist_test

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/calliope-player/calliope/internal/domain/playlist"
	"github.com/calliope-player/calliope/internal/domain/song"
)

// fakeClient implements playlist.Client in memory and records the calls the
// engine makes.
type fakeClient struct {
	library        map[string]song.Info
	findResults    map[string][]song.Info
	stickerResults map[string][]string
	stickers       map[string]map[string]string
	playlists      map[string][]song.Info

	findFilters      []string
	stickerQueries   []string
	stickerValues    map[string]string
	stickerListCalls int
	tagOps           []string
	queued           [][]string
	playedAt         []int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		library:        make(map[string]song.Info),
		findResults:    make(map[string][]song.Info),
		stickerResults: make(map[string][]string),
		stickers:       make(map[string]map[string]string),
		playlists:      make(map[string][]song.Info),
		stickerValues:  make(map[string]string),
	}
}

func stickerQueryKey(objectType, key, op string) string {
	return objectType + "/" + key + "/" + op
}

func (c *fakeClient) FindWindow(filter string, start, end int) ([]song.Info, error) {
	c.findFilters = append(c.findFilters, filter)
	list := c.findResults[filter]
	if start >= len(list) {
		return nil, fmt.Errorf("find: %w", playlist.ErrOutOfRange)
	}
	if end > len(list) {
		end = len(list)
	}
	return list[start:end], nil
}

func (c *fakeClient) StickerFindWindow(objectType, key, op, value string, start, end int) ([]string, error) {
	qk := stickerQueryKey(objectType, key, op)
	c.stickerQueries = append(c.stickerQueries, qk)
	c.stickerValues[qk] = value
	list := c.stickerResults[qk]
	if start >= len(list) {
		return nil, fmt.Errorf("sticker find: %w", playlist.ErrOutOfRange)
	}
	if end > len(list) {
		end = len(list)
	}
	return list[start:end], nil
}

func (c *fakeClient) PlaylistSongs(name string) ([]song.Info, error) {
	return c.playlists[name], nil
}

func (c *fakeClient) SongByURI(uri string) (song.Info, error) {
	info, ok := c.library[uri]
	if !ok {
		return song.Info{}, fmt.Errorf("no such song %q", uri)
	}
	return info, nil
}

func (c *fakeClient) SongStickers(uri string) (map[string]string, error) {
	c.stickerListCalls++
	return c.stickers[uri], nil
}

func (c *fakeClient) TagTypesClear() error {
	c.tagOps = append(c.tagOps, "clear")
	return nil
}

func (c *fakeClient) TagTypesEnable(tags ...string) error {
	c.tagOps = append(c.tagOps, "enable:"+strings.Join(tags, ","))
	return nil
}

func (c *fakeClient) TagTypesAll() error {
	c.tagOps = append(c.tagOps, "all")
	return nil
}

func (c *fakeClient) QueueAdd(uris []string) error {
	batch := make([]string, len(uris))
	copy(batch, uris)
	c.queued = append(c.queued, batch)
	return nil
}

func (c *fakeClient) Play(pos int) error {
	c.playedAt = append(c.playedAt, pos)
	return nil
}

func (c *fakeClient) addSong(uri string) song.Info {
	info := song.Info{URI: uri, Track: song.NoTrack, QueueID: -1, QueuePos: -1}
	c.library[uri] = info
	return info
}

func sortedURIs(uris []string) []string {
	out := make([]string, len(uris))
	copy(out, uris)
	sort.Strings(out)
	return out
}

func TestResolveQueryClausesCombined(t *testing.T) {
	client := newFakeClient()
	filter := "((album contains 'Jazz') AND (base 'music'))"
	client.findResults[filter] = []song.Info{
		client.addSong("music/a.flac"),
		client.addSong("music/b.flac"),
	}

	resolver := playlist.NewResolver(client)
	uris, err := resolver.Resolve([]playlist.Rule{
		playlist.QueryRule{Lhs: playlist.LhsAlbum, Op: playlist.TagContains, Value: "Jazz"},
		playlist.QueryRule{Lhs: playlist.LhsBase, Value: "music"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	got := sortedURIs(uris)
	if len(got) != 2 || got[0] != "music/a.flac" || got[1] != "music/b.flac" {
		t.Errorf("unexpected URIs: %v", got)
	}
	if client.findFilters[0] != filter {
		t.Errorf("expected combined filter %q, got %q", filter, client.findFilters[0])
	}
}

func TestResolveStickerIntersection(t *testing.T) {
	client := newFakeClient()
	client.findResults["(album contains 'Jazz')"] = []song.Info{
		client.addSong("a.flac"),
		client.addSong("b.flac"),
		client.addSong("c.flac"),
	}
	client.stickerResults[stickerQueryKey("song", "rating", "gt")] = []string{
		"b.flac", "c.flac", "d.flac",
	}

	resolver := playlist.NewResolver(client)
	uris, err := resolver.Resolve([]playlist.Rule{
		playlist.QueryRule{Lhs: playlist.LhsAlbum, Op: playlist.TagContains, Value: "Jazz"},
		playlist.StickerRule{
			Target: playlist.TargetSong,
			Key:    song.StickerRating,
			Op:     playlist.OpIntGreaterThan,
			Value:  "6",
		},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	got := sortedURIs(uris)
	if len(got) != 2 || got[0] != "b.flac" || got[1] != "c.flac" {
		t.Errorf("expected intersection b,c, got %v", got)
	}
}

func TestResolveEmptyIntersectionShortCircuits(t *testing.T) {
	client := newFakeClient()
	client.findResults[playlist.MatchAllFilter] = []song.Info{
		client.addSong("a.flac"),
		client.addSong("b.flac"),
	}
	client.stickerResults[stickerQueryKey("song", "rating", "gt")] = []string{"z.flac"}
	client.stickerResults[stickerQueryKey("song", "playCount", "gt")] = []string{"a.flac"}

	resolver := playlist.NewResolver(client)
	uris, err := resolver.Resolve([]playlist.Rule{
		playlist.StickerRule{
			Target: playlist.TargetSong,
			Key:    song.StickerRating,
			Op:     playlist.OpIntGreaterThan,
			Value:  "6",
		},
		playlist.StickerRule{
			Target: playlist.TargetSong,
			Key:    song.StickerPlayCount,
			Op:     playlist.OpIntGreaterThan,
			Value:  "3",
		},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(uris) != 0 {
		t.Errorf("expected empty result, got %v", uris)
	}
	if len(client.stickerQueries) != 1 {
		t.Errorf("expected resolution to stop after the first empty intersection, queries: %v", client.stickerQueries)
	}
}

func TestResolveWithoutQueryClausesMatchesAll(t *testing.T) {
	client := newFakeClient()
	client.findResults[playlist.MatchAllFilter] = []song.Info{client.addSong("a.flac")}
	client.stickerResults[stickerQueryKey("song", "rating", "gt")] = []string{"a.flac"}

	resolver := playlist.NewResolver(client)
	uris, err := resolver.Resolve([]playlist.Rule{
		playlist.StickerRule{
			Target: playlist.TargetSong,
			Key:    song.StickerRating,
			Op:     playlist.OpIntGreaterThan,
			Value:  "6",
		},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if client.findFilters[0] != playlist.MatchAllFilter {
		t.Errorf("expected match-all filter, got %q", client.findFilters[0])
	}
	if len(uris) != 1 || uris[0] != "a.flac" {
		t.Errorf("unexpected URIs: %v", uris)
	}
}

func TestResolveRelativeStickerValueConverted(t *testing.T) {
	client := newFakeClient()
	client.findResults[playlist.MatchAllFilter] = []song.Info{client.addSong("a.flac")}
	qk := stickerQueryKey("song", "lastPlayed", "gt")
	client.stickerResults[qk] = []string{"a.flac"}

	resolver := playlist.NewResolver(client)
	if _, err := resolver.Resolve([]playlist.Rule{
		playlist.StickerRule{
			Target: playlist.TargetSong,
			Key:    song.StickerLastPlayed,
			Op:     playlist.OpIntGreaterThan,
			Value:  "604800",
		},
	}); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	sent, err := strconv.ParseInt(client.stickerValues[qk], 10, 64)
	if err != nil {
		t.Fatalf("sticker value %q is not a timestamp", client.stickerValues[qk])
	}
	expected := time.Now().Add(-604800 * time.Second).Unix()
	if diff := sent - expected; diff < -5 || diff > 5 {
		t.Errorf("expected timestamp near %d, got %d", expected, sent)
	}
}

func TestResolvePagesUntilShortPage(t *testing.T) {
	client := newFakeClient()
	filter := "(base 'music')"
	songs := make([]song.Info, 300)
	for i := range songs {
		songs[i] = client.addSong(fmt.Sprintf("music/s%03d.flac", i))
	}
	client.findResults[filter] = songs

	resolver := playlist.NewResolver(client)
	uris, err := resolver.Resolve([]playlist.Rule{
		playlist.QueryRule{Lhs: playlist.LhsBase, Value: "music"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(uris) != 300 {
		t.Errorf("expected 300 URIs, got %d", len(uris))
	}
	if len(client.findFilters) != 3 {
		t.Errorf("expected 3 windowed calls, got %d", len(client.findFilters))
	}
}

func TestResolvePagingStopsOnOutOfRange(t *testing.T) {
	client := newFakeClient()
	filter := "(base 'music')"
	songs := make([]song.Info, 256)
	for i := range songs {
		songs[i] = client.addSong(fmt.Sprintf("music/s%03d.flac", i))
	}
	client.findResults[filter] = songs

	resolver := playlist.NewResolver(client)
	uris, err := resolver.Resolve([]playlist.Rule{
		playlist.QueryRule{Lhs: playlist.LhsBase, Value: "music"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	// Two full windows plus the rejected third request.
	if len(uris) != 256 {
		t.Errorf("expected 256 URIs, got %d", len(uris))
	}
	if len(client.findFilters) != 3 {
		t.Errorf("expected 3 windowed calls, got %d", len(client.findFilters))
	}
}

func TestResolveAlbumStickerExpansion(t *testing.T) {
	client := newFakeClient()
	client.findResults[playlist.MatchAllFilter] = []song.Info{
		client.addSong("d.flac"),
		client.addSong("e.flac"),
		client.addSong("f.flac"),
	}
	client.stickerResults[stickerQueryKey("album", "rating", "gt")] = []string{"Time Out"}
	client.findResults["(album == 'Time Out')"] = []song.Info{
		client.library["d.flac"],
		client.library["e.flac"],
	}

	resolver := playlist.NewResolver(client)
	uris, err := resolver.Resolve([]playlist.Rule{
		playlist.StickerRule{
			Target: playlist.TargetAlbum,
			Key:    song.StickerRating,
			Op:     playlist.OpIntGreaterThan,
			Value:  "8",
		},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	got := sortedURIs(uris)
	if len(got) != 2 || got[0] != "d.flac" || got[1] != "e.flac" {
		t.Errorf("expected album expansion to d,e, got %v", got)
	}
}

func TestResolvePlaylistStickerExpansion(t *testing.T) {
	client := newFakeClient()
	client.findResults[playlist.MatchAllFilter] = []song.Info{
		client.addSong("x.flac"),
		client.addSong("z.flac"),
	}
	client.stickerResults[stickerQueryKey("playlist", "like", "eq")] = []string{"favourites"}
	client.playlists["favourites"] = []song.Info{
		client.library["x.flac"],
		client.addSong("y.flac"),
	}

	resolver := playlist.NewResolver(client)
	uris, err := resolver.Resolve([]playlist.Rule{
		playlist.StickerRule{
			Target: playlist.TargetPlaylist,
			Key:    song.StickerLike,
			Op:     playlist.OpIntEquals,
			Value:  "2",
		},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(uris) != 1 || uris[0] != "x.flac" {
		t.Errorf("expected playlist expansion intersection x, got %v", uris)
	}
}
