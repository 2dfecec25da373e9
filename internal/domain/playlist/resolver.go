package playlist

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/calliope-player/calliope/internal/domain/song"
)

const (
	// BatchSize is the window size for paged server fetches and the size of
	// streamed result batches.
	BatchSize = 128

	// fetchLimit caps runaway paging loops.
	fetchLimit = 10_000_000
)

// Resolver turns a rule set into the set of song URIs matching all clauses.
type Resolver struct {
	client Client

	// now is overridable for tests.
	now func() time.Time
}

// NewResolver creates a resolver on top of the given protocol client.
func NewResolver(client Client) *Resolver {
	return &Resolver{client: client, now: time.Now}
}

// Resolve evaluates rules into concrete URIs. Query clauses are ANDed into
// a single server-side filter; each sticker clause is evaluated separately
// and intersected into the result. The returned order is unspecified.
//
// Server-side rejections of individual pages end that clause's paging and
// keep whatever was accumulated; transport failures abort resolution and
// are returned so the caller can reconnect.
func (r *Resolver) Resolve(rules []Rule) ([]string, error) {
	now := r.now()

	var queryTerms []string
	var stickerClauses []StickerRule
	for _, rule := range rules {
		switch rule := rule.(type) {
		case StickerRule:
			stickerClauses = append(stickerClauses, rule)
		case QueryRule:
			queryTerms = append(queryTerms, rule.FilterTerm())
		case LastModifiedRule:
			queryTerms = append(queryTerms, rule.At(now).FilterTerm())
		}
	}

	matched := make(map[string]struct{})
	err := r.pageFind(CombineFilters(queryTerms), func(s song.Info) {
		matched[s.URI] = struct{}{}
	})
	if err != nil {
		return nil, err
	}
	log.Debug().Int("count", len(matched)).Msg("Resolved query clauses")

	for _, clause := range stickerClauses {
		set := make(map[string]struct{})
		if err := r.resolveStickerClause(clause, now, set); err != nil {
			return nil, err
		}
		log.Debug().
			Str("key", clause.Key).
			Int("count", len(set)).
			Msg("Resolved sticker clause")

		for uri := range matched {
			if _, ok := set[uri]; !ok {
				delete(matched, uri)
			}
		}
		if len(matched) == 0 {
			return nil, nil
		}
	}

	uris := make([]string, 0, len(matched))
	for uri := range matched {
		uris = append(uris, uri)
	}
	return uris, nil
}

// resolveStickerClause collects the URIs matching one sticker clause into
// set, expanding non-song sticker objects to the songs they cover.
func (r *Resolver) resolveStickerClause(clause StickerRule, now time.Time, set map[string]struct{}) error {
	value := clause.Value
	if clause.Key == song.StickerLastPlayed || clause.Key == song.StickerLastSkipped {
		// The stored value is relative seconds; the server compares against
		// absolute unix timestamps.
		secs, err := strconv.ParseInt(clause.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid relative time in sticker rule: %w", err)
		}
		value = strconv.FormatInt(now.Add(-time.Duration(secs)*time.Second).Unix(), 10)
	}

	return r.pageStickerFind(clause.Target.ObjectType(), clause.Key, clause.Op.MPDSyntax(), value, func(name string) error {
		switch clause.Target {
		case TargetSong:
			set[name] = struct{}{}
			return nil
		case TargetPlaylist:
			songs, err := r.client.PlaylistSongs(name)
			if err != nil {
				if IsConnError(err) {
					return err
				}
				log.Warn().Err(err).Str("playlist", name).Msg("Failed to expand playlist sticker match")
				return nil
			}
			for _, s := range songs {
				set[s.URI] = struct{}{}
			}
			return nil
		default:
			// Album and artist matches expand through a tag find.
			term := fmt.Sprintf("(%s == %s)", clause.Target.ObjectType(), quoteFilterValue(name))
			return r.pageFind(term, func(s song.Info) {
				set[s.URI] = struct{}{}
			})
		}
	})
}

// pageFind walks a find query in BatchSize windows until a short page.
func (r *Resolver) pageFind(filter string, visit func(song.Info)) error {
	for start := 0; start < fetchLimit; start += BatchSize {
		page, err := r.client.FindWindow(filter, start, start+BatchSize)
		if err != nil {
			if errors.Is(err, ErrOutOfRange) {
				return nil
			}
			if IsConnError(err) {
				return fmt.Errorf("find paging failed: %w", err)
			}
			log.Warn().Err(err).Str("filter", filter).Msg("Find page rejected, keeping partial result")
			return nil
		}
		for _, s := range page {
			visit(s)
		}
		if len(page) < BatchSize {
			return nil
		}
	}
	return nil
}

// pageStickerFind walks a sticker find in BatchSize windows until a short
// page.
func (r *Resolver) pageStickerFind(objectType, key, op, value string, visit func(string) error) error {
	for start := 0; start < fetchLimit; start += BatchSize {
		page, err := r.client.StickerFindWindow(objectType, key, op, value, start, start+BatchSize)
		if err != nil {
			if errors.Is(err, ErrOutOfRange) {
				return nil
			}
			if IsConnError(err) {
				return fmt.Errorf("sticker find paging failed: %w", err)
			}
			log.Warn().Err(err).Str("key", key).Msg("Sticker find page rejected, keeping partial result")
			return nil
		}
		for _, name := range page {
			if err := visit(name); err != nil {
				return err
			}
		}
		if len(page) < BatchSize {
			return nil
		}
	}
	return nil
}
