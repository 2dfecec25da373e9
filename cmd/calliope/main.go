// Package main is the entry point for the Calliope player backend.
package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/calliope-player/calliope/internal/domain/playlist"
	"github.com/calliope-player/calliope/internal/infra/metastore"
	"github.com/calliope-player/calliope/internal/infra/mpd"
	"github.com/calliope-player/calliope/internal/version"
)

// Config is the daemon configuration, populated from CALLIOPE_* environment
// variables and overridable by command line flags.
type Config struct {
	MPDHost         string `envconfig:"MPD_HOST" default:"localhost"`
	MPDPort         int    `envconfig:"MPD_PORT" default:"6600"`
	MPDPassword     string `envconfig:"MPD_PASSWORD"`
	DBPath          string `envconfig:"DB_PATH"`
	RefreshSchedule string `envconfig:"REFRESH_SCHEDULE" default:"@every 15m"`
	Debug           bool   `envconfig:"DEBUG"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("calliope", &cfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to read environment configuration")
	}
	if cfg.DBPath == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			cfg.DBPath = filepath.Join(dir, "calliope", "metadata.db")
		} else {
			cfg.DBPath = "metadata.db"
		}
	}

	// Command line flags override the environment.
	pflag.StringVar(&cfg.MPDHost, "mpd-host", cfg.MPDHost, "MPD host")
	pflag.IntVar(&cfg.MPDPort, "mpd-port", cfg.MPDPort, "MPD port")
	pflag.StringVar(&cfg.MPDPassword, "mpd-password", cfg.MPDPassword, "MPD password")
	pflag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the metadata database")
	pflag.StringVar(&cfg.RefreshSchedule, "refresh-schedule", cfg.RefreshSchedule, "Cron schedule of the playlist auto-refresh sweep")
	pflag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug logging")
	pflag.Parse()

	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Dynamic Playlist Engine")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Str("mpd_host", cfg.MPDHost).
		Int("mpd_port", cfg.MPDPort).
		Bool("password_set", cfg.MPDPassword != "").
		Str("db", cfg.DBPath).
		Str("refresh_schedule", cfg.RefreshSchedule).
		Msg("Configuration")

	// Open metadata store
	store, err := metastore.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open metadata store")
	}
	defer store.Close()

	// Create MPD client
	mpdClient := mpd.NewClient(cfg.MPDHost, cfg.MPDPort, cfg.MPDPassword)
	if err := mpdClient.Connect(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MPD")
	}
	defer mpdClient.Close()

	// Verify MPD connection
	if err := mpdClient.Ping(); err != nil {
		log.Fatal().Err(err).Msg("MPD ping failed")
	}
	log.Info().Msg("MPD connection verified")

	// Create playlist engine
	fetcher := playlist.NewFetcher(mpdClient, store)
	refresher, err := playlist.NewRefresher(fetcher, store, cfg.RefreshSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create playlist refresher")
	}
	refresher.Start()
	defer refresher.Stop()

	// Watch MPD subsystems
	events, err := mpdClient.Watch("player", "playlist", "database")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start MPD watcher")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	lastSongID := -1
	for {
		select {
		case subsystem, ok := <-events:
			if !ok {
				log.Error().Msg("MPD watcher closed")
				return
			}
			switch subsystem {
			case "player":
				lastSongID = recordPlayback(mpdClient, store, lastSongID)
			case "playlist":
				queue, err := mpdClient.Queue()
				if err != nil {
					log.Warn().Err(err).Msg("Failed to refresh queue")
					continue
				}
				log.Debug().Int("length", len(queue)).Msg("Queue changed")
			case "database":
				log.Info().Msg("Library updated, cached playlists may be stale")
			}

		case <-sigCh:
			log.Info().Msg("Shutting down...")
			return
		}
	}
}

// recordPlayback adds the current song to the play history when playback
// moved to a new queue entry. Returns the song id to compare against next
// time.
func recordPlayback(client *mpd.Client, store *metastore.Store, lastSongID int) int {
	status, err := client.Status()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read player status")
		return lastSongID
	}
	if status["state"] != "play" {
		return lastSongID
	}
	id, err := strconv.Atoi(status["songid"])
	if err != nil || id == lastSongID {
		return lastSongID
	}

	info, err := client.CurrentSong()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read current song")
		return lastSongID
	}
	if info.URI == "" {
		return lastSongID
	}
	if err := store.AddToHistory(info); err != nil {
		log.Warn().Err(err).Str("uri", info.URI).Msg("Failed to record play history")
	}
	return id
}
