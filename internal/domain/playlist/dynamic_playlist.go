package playlist

import "time"

// DynamicPlaylist is a named, persisted rule set together with its ordering,
// result limit and refresh policy. Resolution against the server turns it
// into a concrete song list.
type DynamicPlaylist struct {
	Name        string
	Description string
	Rules       []Rule
	Ordering    []OrderingKey
	// Limit caps the resolved song list; zero means unlimited.
	Limit       int
	AutoRefresh AutoRefresh

	LastModified time.Time
	// LastQueued is zero when the playlist has never been queued.
	LastQueued time.Time
	PlayCount  int64
	// LastRefresh is zero when no resolution has been cached yet.
	LastRefresh time.Time
}

// NeedsRefresh reports whether the cached resolution is stale under the
// playlist's auto refresh policy. RefreshNone playlists never auto-refresh.
func (dp *DynamicPlaylist) NeedsRefresh(now time.Time) bool {
	if dp.AutoRefresh == RefreshNone || dp.AutoRefresh == "" {
		return false
	}
	if dp.LastRefresh.IsZero() {
		return true
	}
	return now.Sub(dp.LastRefresh) >= dp.AutoRefresh.Interval()
}
