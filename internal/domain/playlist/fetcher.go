package playlist

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/calliope-player/calliope/internal/domain/song"
)

// ResultBatch is one slice of a resolved dynamic playlist delivered to the
// consumer. An empty Songs slice marks the end of the stream.
type ResultBatch struct {
	Playlist string
	Songs    []song.Info
}

// Queuing brackets a queue-enqueue operation so consumers can show busy
// state.
type Queuing struct {
	Playlist   string
	InProgress bool
}

// ResultStore persists resolved URI lists between sessions. Implemented by
// the metadata store.
type ResultStore interface {
	CacheDynamicPlaylistResults(name string, uris []string) error
	CachedDynamicPlaylistResults(name string) ([]string, error)
	TouchDynamicPlaylistQueued(name string) error
}

// BatchStream is a lazy, finite iterator over the batches of one fetch.
// After the last song batch it yields exactly one empty sentinel batch.
// It is not restartable and not safe for concurrent use.
type BatchStream struct {
	playlist string
	songs    []song.Info
	offset   int
	done     bool
}

// Next returns the next batch. The second return value is false once the
// sentinel has been consumed.
func (s *BatchStream) Next() (ResultBatch, bool) {
	if s.done {
		return ResultBatch{}, false
	}
	if s.offset < len(s.songs) {
		end := s.offset + BatchSize
		if end > len(s.songs) {
			end = len(s.songs)
		}
		batch := ResultBatch{Playlist: s.playlist, Songs: s.songs[s.offset:end]}
		s.offset = end
		return batch, true
	}
	s.done = true
	return ResultBatch{Playlist: s.playlist}, true
}

// Fetcher orchestrates full fetch cycles: resolution, hydration, ordering
// and result caching.
type Fetcher struct {
	client   Client
	resolver *Resolver
	store    ResultStore
}

// NewFetcher creates a fetcher. store may be nil, in which case caching and
// cached fetches are unavailable.
func NewFetcher(client Client, store ResultStore) *Fetcher {
	return &Fetcher{
		client:   client,
		resolver: NewResolver(client),
		store:    store,
	}
}

// displayTags returns the tag types to re-enable for hydration: the three
// display tags plus whatever the ordering chain needs.
func displayTags(ordering []OrderingKey) []string {
	tags := []string{"album", "artist", "albumartist"}
	for _, key := range ordering {
		switch key {
		case OrderTrack:
			tags = append(tags, "track")
		case OrderAscReleaseDate, OrderDescReleaseDate:
			tags = append(tags, "originaldate")
		}
	}
	return tags
}

func hasRandom(ordering []OrderingKey) bool {
	for _, key := range ordering {
		if key == OrderRandom {
			return true
		}
	}
	return false
}

// Fetch resolves a dynamic playlist fresh from the server. When cache is
// true the resolved URI list is persisted for later cached fetches and
// queueing; a cache write failure only logs. Tag types are cleared for the
// duration of the cycle to keep resolution responses small and always
// restored before returning.
func (f *Fetcher) Fetch(dp DynamicPlaylist, cache bool) (*BatchStream, error) {
	if err := f.client.TagTypesClear(); err != nil {
		return nil, fmt.Errorf("failed to clear tag types: %w", err)
	}
	defer func() {
		if err := f.client.TagTypesAll(); err != nil {
			log.Error().Err(err).Msg("Failed to restore tag types")
		}
	}()

	uris, err := f.resolver.Resolve(dp.Rules)
	if err != nil {
		return nil, err
	}

	if err := f.client.TagTypesEnable(displayTags(dp.Ordering)...); err != nil {
		return nil, fmt.Errorf("failed to enable display tag types: %w", err)
	}

	entries, err := f.hydrate(uris, true)
	if err != nil {
		return nil, err
	}

	if hasRandom(dp.Ordering) {
		rand.Shuffle(len(entries), func(i, j int) {
			entries[i], entries[j] = entries[j], entries[i]
		})
	} else {
		compare := BuildComparator(dp.Ordering)
		sort.SliceStable(entries, func(i, j int) bool {
			return compare(entries[i], entries[j]) < 0
		})
	}
	if dp.Limit > 0 && len(entries) > dp.Limit {
		entries = entries[:dp.Limit]
	}

	songs := make([]song.Info, len(entries))
	for i, entry := range entries {
		songs[i] = entry.Song
	}

	if cache && f.store != nil {
		ordered := make([]string, len(songs))
		for i, s := range songs {
			ordered[i] = s.URI
		}
		if err := f.store.CacheDynamicPlaylistResults(dp.Name, ordered); err != nil {
			log.Error().Err(err).Str("playlist", dp.Name).Msg("Failed to cache resolved playlist, queuing will be stale")
		}
	}

	return &BatchStream{playlist: dp.Name, songs: songs}, nil
}

// FetchCached rehydrates the last cached resolution in its stored order.
// Stickers are not fetched again.
func (f *Fetcher) FetchCached(name string) (*BatchStream, error) {
	if f.store == nil {
		return nil, fmt.Errorf("no result store configured")
	}
	uris, err := f.store.CachedDynamicPlaylistResults(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached playlist %q: %w", name, err)
	}

	entries, err := f.hydrate(uris, false)
	if err != nil {
		return nil, err
	}
	songs := make([]song.Info, len(entries))
	for i, entry := range entries {
		songs[i] = entry.Song
	}
	return &BatchStream{playlist: name, songs: songs}, nil
}

// Stream drains a batch stream onto a channel, sentinel included.
func (f *Fetcher) Stream(stream *BatchStream, ch chan<- ResultBatch) {
	for {
		batch, ok := stream.Next()
		if !ok {
			return
		}
		ch <- batch
	}
}

// QueueCached appends the cached resolution of a playlist to the play
// queue in batches, bracketed by Queuing events. When play is true,
// playback starts at the first appended position.
func (f *Fetcher) QueueCached(name string, play bool, events chan<- Queuing) error {
	if f.store == nil {
		return fmt.Errorf("no result store configured")
	}
	if events != nil {
		events <- Queuing{Playlist: name, InProgress: true}
		defer func() {
			events <- Queuing{Playlist: name, InProgress: false}
		}()
	}

	uris, err := f.store.CachedDynamicPlaylistResults(name)
	if err != nil {
		return fmt.Errorf("failed to load cached playlist %q: %w", name, err)
	}
	for start := 0; start < len(uris); start += BatchSize {
		end := start + BatchSize
		if end > len(uris) {
			end = len(uris)
		}
		if err := f.client.QueueAdd(uris[start:end]); err != nil {
			return fmt.Errorf("failed to queue playlist %q: %w", name, err)
		}
	}
	if play && len(uris) > 0 {
		if err := f.client.Play(0); err != nil {
			return fmt.Errorf("failed to start playback: %w", err)
		}
	}

	if err := f.store.TouchDynamicPlaylistQueued(name); err != nil {
		log.Error().Err(err).Str("playlist", name).Msg("Failed to record queueing")
	}
	return nil
}

// hydrate fetches song info, and optionally stickers, for each URI. Songs
// the server no longer knows are skipped; transport failures abort.
func (f *Fetcher) hydrate(uris []string, withStickers bool) ([]Entry, error) {
	entries := make([]Entry, 0, len(uris))
	for _, uri := range uris {
		info, err := f.client.SongByURI(uri)
		if err != nil {
			if IsConnError(err) {
				return nil, fmt.Errorf("hydration failed: %w", err)
			}
			log.Warn().Err(err).Str("uri", uri).Msg("Skipping unknown song")
			continue
		}
		entry := Entry{Song: info}
		if withStickers {
			kv, err := f.client.SongStickers(uri)
			if err != nil {
				if IsConnError(err) {
					return nil, fmt.Errorf("sticker hydration failed: %w", err)
				}
				log.Warn().Err(err).Str("uri", uri).Msg("Failed to fetch stickers")
			}
			entry.Stickers = song.ParseStickers(kv)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
