package playlist_test

import (
	"testing"

	"github.com/calliope-player/calliope/internal/domain/playlist"
	"github.com/calliope-player/calliope/internal/domain/song"
)

type fakeCatalog struct {
	playlists []playlist.DynamicPlaylist
}

func (c *fakeCatalog) DynamicPlaylists() ([]playlist.DynamicPlaylist, error) {
	return c.playlists, nil
}

func TestSweepRefreshesOnlyStalePlaylists(t *testing.T) {
	client := newFakeClient()
	client.findResults["(base 'music')"] = []song.Info{
		client.addSong("music/a.flac"),
	}

	store := newFakeStore()
	catalog := &fakeCatalog{
		playlists: []playlist.DynamicPlaylist{
			{
				Name: "stale",
				Rules: []playlist.Rule{
					playlist.QueryRule{Lhs: playlist.LhsBase, Value: "music"},
				},
				AutoRefresh: playlist.RefreshDaily,
			},
			{
				Name: "manual",
				Rules: []playlist.Rule{
					playlist.QueryRule{Lhs: playlist.LhsBase, Value: "music"},
				},
				AutoRefresh: playlist.RefreshNone,
			},
		},
	}

	fetcher := playlist.NewFetcher(client, store)
	refresher, err := playlist.NewRefresher(fetcher, catalog, "@every 15m")
	if err != nil {
		t.Fatalf("failed to create refresher: %v", err)
	}

	refresher.Sweep()

	if _, ok := store.cached["stale"]; !ok {
		t.Error("stale playlist should have been re-resolved and cached")
	}
	if _, ok := store.cached["manual"]; ok {
		t.Error("RefreshNone playlist must not be touched by the sweep")
	}
}

func TestNewRefresherRejectsBadSchedule(t *testing.T) {
	fetcher := playlist.NewFetcher(newFakeClient(), newFakeStore())
	if _, err := playlist.NewRefresher(fetcher, &fakeCatalog{}, "whenever"); err == nil {
		t.Error("expected error for invalid cron schedule")
	}
}
