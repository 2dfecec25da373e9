// Package mpd wraps the gompd client with reconnection logic and the
// protocol surface the playlist engine and daemon need.
package mpd

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/calliope-player/calliope/internal/domain/playlist"
	"github.com/calliope-player/calliope/internal/domain/song"
)

// queueCacheSize bounds the queue song-identity cache. Queue ids are only
// reused after a server restart, so old entries age out naturally.
const queueCacheSize = 16384

// Client wraps the MPD client with reconnection logic. It implements
// playlist.Client.
type Client struct {
	mu       sync.RWMutex
	client   *mpd.Client
	watcher  *mpd.Watcher
	host     string
	port     int
	password string

	// queueSongs caches parsed song info by queue id so queue change
	// handling does not re-parse unchanged entries. Read-through only,
	// never a source of truth.
	queueSongs *lru.Cache[int, song.Info]
}

// NewClient creates a new MPD client wrapper.
func NewClient(host string, port int, password string) *Client {
	queueSongs, _ := lru.New[int, song.Info](queueCacheSize)
	return &Client{
		host:       host,
		port:       port,
		password:   password,
		queueSongs: queueSongs,
	}
}

// Connect establishes connection to MPD.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connectLocked()
}

// connectLocked establishes connection (must hold lock).
func (c *Client) connectLocked() error {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	log.Info().Str("addr", addr).Msg("Connecting to MPD")

	client, err := mpd.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to MPD: %w", err)
	}

	if c.password != "" {
		if err := client.Command("password %s", c.password).OK(); err != nil {
			client.Close()
			return fmt.Errorf("MPD authentication failed: %w", err)
		}
	}

	c.client = client
	log.Info().Msg("Connected to MPD")
	return nil
}

// ensureConnected checks connection and reconnects if needed.
func (c *Client) ensureConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return c.connectLocked()
	}

	if err := c.client.Ping(); err != nil {
		log.Warn().Err(err).Msg("MPD connection lost, reconnecting...")
		c.client.Close()
		c.client = nil
		return c.connectLocked()
	}

	return nil
}

// Close closes the MPD connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watcher != nil {
		c.watcher.Close()
		c.watcher = nil
	}

	if c.client != nil {
		err := c.client.Close()
		c.client = nil
		return err
	}
	return nil
}

// Ping checks if the connection is alive.
func (c *Client) Ping() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.client == nil {
		return fmt.Errorf("not connected")
	}
	return c.client.Ping()
}

// IsArgumentError reports whether err is an MPD argument error (ACK error
// code 2). Paging loops rely on it: a window starting past the end of the
// result set is rejected as a bad argument, not as an empty page.
func IsArgumentError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "[2@")
}

// FindWindow runs a database find with the given filter expression,
// returning songs in the half-open window [start, end).
func (c *Client) FindWindow(filter string, start, end int) ([]song.Info, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	attrs, err := c.client.Command("find %s window %d:%d", filter, start, end).AttrsList("file")
	if err != nil {
		if IsArgumentError(err) {
			return nil, fmt.Errorf("find window %d:%d: %w", start, end, playlist.ErrOutOfRange)
		}
		return nil, fmt.Errorf("find failed: %w", err)
	}

	songs := make([]song.Info, 0, len(attrs))
	for _, attr := range attrs {
		songs = append(songs, song.FromAttrs(attr))
	}
	return songs, nil
}

// StickerResponseKey returns the attribute that names each match in a
// sticker find response. Songs are reported under "file"; every other
// sticker type is reported under the type itself ("playlist", "album").
func StickerResponseKey(objectType string) string {
	if objectType == "song" {
		return "file"
	}
	return objectType
}

// StickerFindWindow matches objects of objectType whose sticker key compares
// to value under op, returning the matched names in the window [start, end).
func (c *Client) StickerFindWindow(objectType, key, op, value string, start, end int) ([]string, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	responseKey := StickerResponseKey(objectType)
	attrs, err := c.client.Command(
		"sticker find %s %s %s %s %s window %d:%d",
		objectType, "", key, op, value, start, end,
	).AttrsList(responseKey)
	if err != nil {
		if IsArgumentError(err) {
			return nil, fmt.Errorf("sticker find window %d:%d: %w", start, end, playlist.ErrOutOfRange)
		}
		return nil, fmt.Errorf("sticker find failed: %w", err)
	}

	names := make([]string, 0, len(attrs))
	for _, attr := range attrs {
		names = append(names, attr[responseKey])
	}
	return names, nil
}

// PlaylistSongs returns the contents of a stored playlist.
func (c *Client) PlaylistSongs(name string) ([]song.Info, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	attrs, err := c.client.PlaylistContents(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read playlist %q: %w", name, err)
	}

	songs := make([]song.Info, 0, len(attrs))
	for _, attr := range attrs {
		songs = append(songs, song.FromAttrs(attr))
	}
	return songs, nil
}

// SongByURI returns the song at the given URI.
func (c *Client) SongByURI(uri string) (song.Info, error) {
	if err := c.ensureConnected(); err != nil {
		return song.Info{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	filter := playlist.QueryRule{Lhs: playlist.LhsFile, Value: uri}.FilterTerm()
	attrs, err := c.client.Command("find %s window 0:1", filter).AttrsList("file")
	if err != nil {
		return song.Info{}, fmt.Errorf("failed to look up %q: %w", uri, err)
	}
	if len(attrs) == 0 {
		return song.Info{}, fmt.Errorf("no song at %q", uri)
	}
	return song.FromAttrs(attrs[0]), nil
}

// SongStickers returns all sticker key-value pairs of one song. A song
// without stickers yields an empty map.
func (c *Client) SongStickers(uri string) (map[string]string, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	lines, err := c.client.Command("sticker list song %s", uri).Strings("sticker")
	if err != nil {
		// Songs the sticker database has never seen are not an error.
		if IsArgumentError(err) || strings.Contains(err.Error(), "no such sticker") {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to list stickers of %q: %w", uri, err)
	}

	stickers := make(map[string]string, len(lines))
	for _, line := range lines {
		if name, value, ok := strings.Cut(line, "="); ok {
			stickers[name] = value
		}
	}
	return stickers, nil
}

// TagTypesClear disables all tag types on this connection.
func (c *Client) TagTypesClear() error {
	return c.tagTypes("tagtypes clear")
}

// TagTypesEnable enables the given tag types on this connection.
func (c *Client) TagTypesEnable(tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	args := make([]interface{}, len(tags))
	for i, tag := range tags {
		args[i] = tag
	}
	return c.tagTypes("tagtypes enable"+strings.Repeat(" %s", len(tags)), args...)
}

// TagTypesAll re-enables every tag type on this connection.
func (c *Client) TagTypesAll() error {
	return c.tagTypes("tagtypes all")
}

func (c *Client) tagTypes(format string, args ...interface{}) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.client.Command(format, args...).OK(); err != nil {
		return fmt.Errorf("tagtypes command failed: %w", err)
	}
	return nil
}

// QueueAdd appends URIs to the play queue in one command list.
func (c *Client) QueueAdd(uris []string) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	cl := c.client.BeginCommandList()
	for _, uri := range uris {
		cl.Add(uri)
	}
	if err := cl.End(); err != nil {
		return fmt.Errorf("failed to add %d songs to queue: %w", len(uris), err)
	}
	return nil
}

// Play starts playback. If pos is -1, resumes current track.
func (c *Client) Play(pos int) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if pos < 0 {
		return c.client.Play(-1)
	}
	return c.client.Play(pos)
}

// Clear clears the play queue.
func (c *Client) Clear() error {
	if err := c.ensureConnected(); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.client.Clear()
}

// Queue returns the current play queue. Song info is cached by queue id, so
// repeated fetches after small queue edits only parse the changed entries.
func (c *Client) Queue() ([]song.Info, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	attrs, err := c.client.PlaylistInfo(-1, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}

	songs := make([]song.Info, 0, len(attrs))
	for _, attr := range attrs {
		info := song.FromAttrs(attr)
		if cached, ok := c.queueSongs.Get(info.QueueID); ok && cached.URI == info.URI {
			cached.QueuePos = info.QueuePos
			songs = append(songs, cached)
			continue
		}
		if info.QueueID >= 0 {
			c.queueSongs.Add(info.QueueID, info)
		}
		songs = append(songs, info)
	}
	return songs, nil
}

// Status returns the current MPD status.
func (c *Client) Status() (mpd.Attrs, error) {
	if err := c.ensureConnected(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.client.Status()
}

// CurrentSong returns the currently playing song.
func (c *Client) CurrentSong() (song.Info, error) {
	if err := c.ensureConnected(); err != nil {
		return song.Info{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	attrs, err := c.client.CurrentSong()
	if err != nil {
		return song.Info{}, fmt.Errorf("failed to read current song: %w", err)
	}
	return song.FromAttrs(attrs), nil
}

// Watch starts watching for MPD subsystem changes.
// Returns a channel that receives subsystem names when they change.
func (c *Client) Watch(subsystems ...string) (<-chan string, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)

	watcher, err := mpd.NewWatcher("tcp", addr, c.password, subsystems...)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	c.mu.Lock()
	c.watcher = watcher
	c.mu.Unlock()

	ch := make(chan string, 10)

	go func() {
		defer close(ch)
		for {
			select {
			case subsystem, ok := <-watcher.Event:
				if !ok {
					return
				}
				ch <- subsystem
			case err := <-watcher.Error:
				log.Error().Err(err).Msg("MPD watcher error")
				// Try to reconnect after a delay
				time.Sleep(time.Second)
			}
		}
	}()

	return ch, nil
}
