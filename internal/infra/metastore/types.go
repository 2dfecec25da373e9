package metastore

import "errors"

// Sentinel errors shared by the DAO methods.
var (
	// ErrKeyAlreadyExists is returned when inserting a dynamic playlist
	// under a name that is already taken.
	ErrKeyAlreadyExists = errors.New("key already exists")

	// ErrInsufficientKey is returned when a metadata record carries neither
	// an MBID nor enough tags to address it.
	ErrInsufficientKey = errors.New("insufficient key")
)

// AlbumKey addresses an album metadata record, preferring the MBID when
// present and falling back to title plus artist.
type AlbumKey struct {
	MBID   string
	Title  string
	Artist string
}

// ArtistKey addresses an artist metadata record.
type ArtistKey struct {
	MBID string
	Name string
}

// AlbumMeta is externally sourced album metadata cached locally.
type AlbumMeta struct {
	MBID     string   `bson:"mbid,omitempty"`
	Wiki     string   `bson:"wiki,omitempty"`
	Rating   int      `bson:"rating,omitempty"`
	Tags     []string `bson:"tags,omitempty"`
	ImageURL string   `bson:"imageUrl,omitempty"`
}

// ArtistMeta is externally sourced artist metadata cached locally.
type ArtistMeta struct {
	MBID     string   `bson:"mbid,omitempty"`
	Bio      string   `bson:"bio,omitempty"`
	Tags     []string `bson:"tags,omitempty"`
	Similar  []string `bson:"similar,omitempty"`
	ImageURL string   `bson:"imageUrl,omitempty"`
}

// Lyrics is a cached lyrics document for one song.
type Lyrics struct {
	Text   string
	Synced bool
}
