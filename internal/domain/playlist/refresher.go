package playlist

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Catalog lists the persisted dynamic playlists. Implemented by the
// metadata store.
type Catalog interface {
	DynamicPlaylists() ([]DynamicPlaylist, error)
}

// Refresher periodically re-resolves stale dynamic playlists so their
// cached results track library and sticker changes. Sweeps never overlap;
// within a sweep playlists refresh one at a time.
type Refresher struct {
	fetcher *Fetcher
	catalog Catalog
	cron    *cron.Cron

	// now is overridable for tests.
	now func() time.Time
}

// NewRefresher creates a refresher sweeping on the given cron schedule
// (e.g. "@every 15m").
func NewRefresher(fetcher *Fetcher, catalog Catalog, schedule string) (*Refresher, error) {
	r := &Refresher{
		fetcher: fetcher,
		catalog: catalog,
		now:     time.Now,
	}
	r.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := r.cron.AddFunc(schedule, r.Sweep); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start begins sweeping in the background.
func (r *Refresher) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

// Sweep re-resolves every playlist whose cached results are stale.
func (r *Refresher) Sweep() {
	playlists, err := r.catalog.DynamicPlaylists()
	if err != nil {
		log.Error().Err(err).Msg("Refresh sweep failed to list playlists")
		return
	}

	now := r.now()
	for _, dp := range playlists {
		if !dp.NeedsRefresh(now) {
			continue
		}
		log.Info().Str("playlist", dp.Name).Msg("Auto-refreshing dynamic playlist")
		stream, err := r.fetcher.Fetch(dp, true)
		if err != nil {
			log.Error().Err(err).Str("playlist", dp.Name).Msg("Auto-refresh failed")
			continue
		}
		for {
			if _, ok := stream.Next(); !ok {
				break
			}
		}
	}
}
