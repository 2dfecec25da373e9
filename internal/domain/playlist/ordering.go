package playlist

import (
	"fmt"
	"time"
)

// OrderingKey is one sort key of a dynamic playlist. Keys are applied in
// order; ties on one key fall through to the next.
type OrderingKey int

const (
	OrderAscAlbumTitle OrderingKey = iota
	OrderDescAlbumTitle
	OrderTrack
	OrderAscReleaseDate
	OrderDescReleaseDate
	OrderAscArtistTag
	OrderDescArtistTag
	OrderAscRating
	OrderDescRating
	OrderAscLastModified
	OrderDescLastModified
	OrderAscPlayCount
	OrderDescPlayCount
	OrderAscSkipCount
	OrderDescSkipCount
	OrderRandom
)

var orderingNames = map[OrderingKey]string{
	OrderAscAlbumTitle:    "AscAlbumTitle",
	OrderDescAlbumTitle:   "DescAlbumTitle",
	OrderTrack:            "Track",
	OrderAscReleaseDate:   "AscReleaseDate",
	OrderDescReleaseDate:  "DescReleaseDate",
	OrderAscArtistTag:     "AscArtistTag",
	OrderDescArtistTag:    "DescArtistTag",
	OrderAscRating:        "AscRating",
	OrderDescRating:       "DescRating",
	OrderAscLastModified:  "AscLastModified",
	OrderDescLastModified: "DescLastModified",
	OrderAscPlayCount:     "AscPlayCount",
	OrderDescPlayCount:    "DescPlayCount",
	OrderAscSkipCount:     "AscSkipCount",
	OrderDescSkipCount:    "DescSkipCount",
	OrderRandom:           "Random",
}

func (k OrderingKey) String() string {
	if name, ok := orderingNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OrderingKey(%d)", int(k))
}

// ParseOrderingKey is the inverse of String.
func ParseOrderingKey(s string) (OrderingKey, error) {
	for key, name := range orderingNames {
		if name == s {
			return key, nil
		}
	}
	return 0, fmt.Errorf("unknown ordering key %q", s)
}

// AutoRefresh is the staleness policy of a dynamic playlist's cached
// resolution.
type AutoRefresh string

const (
	RefreshNone    AutoRefresh = "None"
	RefreshHourly  AutoRefresh = "Hourly"
	RefreshDaily   AutoRefresh = "Daily"
	RefreshWeekly  AutoRefresh = "Weekly"
	RefreshMonthly AutoRefresh = "Monthly"
	RefreshYearly  AutoRefresh = "Yearly"
)

// Interval returns the staleness threshold, or zero for RefreshNone.
func (a AutoRefresh) Interval() time.Duration {
	switch a {
	case RefreshHourly:
		return 3600 * time.Second
	case RefreshDaily:
		return 86400 * time.Second
	case RefreshWeekly:
		return 604800 * time.Second
	case RefreshMonthly:
		return 2592000 * time.Second
	case RefreshYearly:
		return 31536000 * time.Second
	}
	return 0
}

// ParseAutoRefresh validates the stored policy string.
func ParseAutoRefresh(s string) (AutoRefresh, error) {
	switch AutoRefresh(s) {
	case RefreshNone, RefreshHourly, RefreshDaily, RefreshWeekly, RefreshMonthly, RefreshYearly:
		return AutoRefresh(s), nil
	}
	return "", fmt.Errorf("unknown auto refresh policy %q", s)
}
