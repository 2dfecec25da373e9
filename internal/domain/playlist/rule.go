// Package playlist implements dynamic playlists: persisted rule sets that are
// resolved against the MPD database into concrete song lists on demand.
package playlist

import (
	"fmt"
	"strings"
	"time"
)

// Rule is one clause of a dynamic playlist. The set of implementations is
// closed: StickerRule, QueryRule and LastModifiedRule. Every consumer
// switches exhaustively over these three.
type Rule interface {
	isRule()
}

// StickerTarget is the MPD sticker object type a sticker clause matches
// against. Matches on anything other than songs are expanded to song URIs
// during resolution.
type StickerTarget int

const (
	TargetSong StickerTarget = iota
	TargetAlbum
	TargetArtist
	TargetPlaylist
)

// ObjectType returns the sticker object type name used on the wire.
func (t StickerTarget) ObjectType() string {
	switch t {
	case TargetSong:
		return "song"
	case TargetAlbum:
		return "album"
	case TargetArtist:
		return "artist"
	case TargetPlaylist:
		return "playlist"
	}
	return "song"
}

func (t StickerTarget) String() string {
	switch t {
	case TargetSong:
		return "Song"
	case TargetAlbum:
		return "Album"
	case TargetArtist:
		return "Artist"
	case TargetPlaylist:
		return "Playlist"
	}
	return "Song"
}

// ParseStickerTarget is the inverse of String.
func ParseStickerTarget(s string) (StickerTarget, error) {
	switch s {
	case "Song":
		return TargetSong, nil
	case "Album":
		return TargetAlbum, nil
	case "Artist":
		return TargetArtist, nil
	case "Playlist":
		return TargetPlaylist, nil
	}
	return 0, fmt.Errorf("unknown sticker target %q", s)
}

// StickerOp is the comparison operator of a sticker clause. String operators
// compare lexicographically; the Int variants compare numerically on the
// server side.
type StickerOp int

const (
	OpLessThan StickerOp = iota
	OpGreaterThan
	OpContains
	OpStartsWith
	OpIntEquals
	OpIntLessThan
	OpIntGreaterThan
)

// MPDSyntax returns the operator token understood by the sticker find
// command.
func (op StickerOp) MPDSyntax() string {
	switch op {
	case OpLessThan:
		return "<"
	case OpGreaterThan:
		return ">"
	case OpContains:
		return "contains"
	case OpStartsWith:
		return "starts_with"
	case OpIntEquals:
		return "eq"
	case OpIntLessThan:
		return "lt"
	case OpIntGreaterThan:
		return "gt"
	}
	return "eq"
}

func (op StickerOp) String() string {
	switch op {
	case OpLessThan:
		return "LessThan"
	case OpGreaterThan:
		return "GreaterThan"
	case OpContains:
		return "Contains"
	case OpStartsWith:
		return "StartsWith"
	case OpIntEquals:
		return "IntEquals"
	case OpIntLessThan:
		return "IntLessThan"
	case OpIntGreaterThan:
		return "IntGreaterThan"
	}
	return "IntEquals"
}

// ParseStickerOp is the inverse of String.
func ParseStickerOp(s string) (StickerOp, error) {
	switch s {
	case "LessThan":
		return OpLessThan, nil
	case "GreaterThan":
		return OpGreaterThan, nil
	case "Contains":
		return OpContains, nil
	case "StartsWith":
		return OpStartsWith, nil
	case "IntEquals":
		return OpIntEquals, nil
	case "IntLessThan":
		return OpIntLessThan, nil
	case "IntGreaterThan":
		return OpIntGreaterThan, nil
	}
	return 0, fmt.Errorf("unknown sticker operator %q", s)
}

// StickerRule matches objects whose sticker Key compares to Value under Op.
// Value is always stored as a string; numeric comparisons are requested
// through the Int operators. For the lastPlayed and lastSkipped keys the
// value holds a number of seconds relative to resolution time.
type StickerRule struct {
	Target StickerTarget
	Key    string
	Op     StickerOp
	Value  string
}

func (StickerRule) isRule() {}

// TagOp is the comparison operator of a tag-based query clause.
type TagOp int

const (
	TagEquals TagOp = iota
	TagNotEquals
	TagContains
	TagStartsWith
)

// filterOp returns the filter expression operator token.
func (op TagOp) filterOp() string {
	switch op {
	case TagEquals:
		return "=="
	case TagNotEquals:
		return "!="
	case TagContains:
		return "contains"
	case TagStartsWith:
		return "starts_with"
	}
	return "=="
}

func (op TagOp) String() string {
	switch op {
	case TagEquals:
		return "Equals"
	case TagNotEquals:
		return "NotEquals"
	case TagContains:
		return "Contains"
	case TagStartsWith:
		return "StartsWith"
	}
	return "Equals"
}

// ParseTagOp is the inverse of String.
func ParseTagOp(s string) (TagOp, error) {
	switch s {
	case "Equals":
		return TagEquals, nil
	case "NotEquals":
		return TagNotEquals, nil
	case "Contains":
		return TagContains, nil
	case "StartsWith":
		return TagStartsWith, nil
	}
	return 0, fmt.Errorf("unknown tag operator %q", s)
}

// QueryLhs is the left-hand side of a query clause.
type QueryLhs int

const (
	LhsFile QueryLhs = iota
	LhsBase
	LhsLastMod
	LhsAnyTag
	LhsAlbum
	LhsArtist
	LhsAlbumArtist
)

func (lhs QueryLhs) String() string {
	switch lhs {
	case LhsFile:
		return "File"
	case LhsBase:
		return "Base"
	case LhsLastMod:
		return "LastMod"
	case LhsAnyTag:
		return "Any"
	case LhsAlbum:
		return "Album"
	case LhsArtist:
		return "Artist"
	case LhsAlbumArtist:
		return "AlbumArtist"
	}
	return "Any"
}

// ParseQueryLhs is the inverse of String.
func ParseQueryLhs(s string) (QueryLhs, error) {
	switch s {
	case "File":
		return LhsFile, nil
	case "Base":
		return LhsBase, nil
	case "LastMod":
		return LhsLastMod, nil
	case "Any":
		return LhsAnyTag, nil
	case "Album":
		return LhsAlbum, nil
	case "Artist":
		return LhsArtist, nil
	case "AlbumArtist":
		return LhsAlbumArtist, nil
	}
	return 0, fmt.Errorf("unknown query lhs %q", s)
}

// QueryRule matches songs through the server's filter expression syntax.
// Op only applies to the tag-based left-hand sides; File always compares
// with equality, Base is a path prefix match and LastMod takes a unix
// timestamp lower bound.
type QueryRule struct {
	Lhs   QueryLhs
	Op    TagOp
	Value string
}

func (QueryRule) isRule() {}

// FilterTerm compiles the clause to a parenthesized filter expression term.
func (r QueryRule) FilterTerm() string {
	switch r.Lhs {
	case LhsFile:
		return fmt.Sprintf("(file == %s)", quoteFilterValue(r.Value))
	case LhsBase:
		return fmt.Sprintf("(base %s)", quoteFilterValue(r.Value))
	case LhsLastMod:
		return fmt.Sprintf("(modified-since %s)", quoteFilterValue(r.Value))
	case LhsAnyTag:
		return fmt.Sprintf("(any %s %s)", r.Op.filterOp(), quoteFilterValue(r.Value))
	case LhsAlbum:
		return fmt.Sprintf("(album %s %s)", r.Op.filterOp(), quoteFilterValue(r.Value))
	case LhsArtist:
		return fmt.Sprintf("(artist %s %s)", r.Op.filterOp(), quoteFilterValue(r.Value))
	case LhsAlbumArtist:
		return fmt.Sprintf("(albumartist %s %s)", r.Op.filterOp(), quoteFilterValue(r.Value))
	}
	return ""
}

// LastModifiedRule matches songs whose database entry changed within the
// last Within seconds. The clause is converted to an absolute modified-since
// bound at resolution time.
type LastModifiedRule struct {
	Within int64
}

func (LastModifiedRule) isRule() {}

// At converts the relative bound to an absolute query clause.
func (r LastModifiedRule) At(now time.Time) QueryRule {
	return QueryRule{
		Lhs:   LhsLastMod,
		Value: fmt.Sprintf("%d", now.Add(-time.Duration(r.Within)*time.Second).Unix()),
	}
}

// MatchAllFilter is a filter expression that matches every song in the
// database. Used when a rule set carries no query clauses so that sticker
// clauses still intersect against the full library.
const MatchAllFilter = "(modified-since '0')"

// CombineFilters ANDs already-parenthesized filter terms into one
// expression. An empty input yields MatchAllFilter.
func CombineFilters(terms []string) string {
	switch len(terms) {
	case 0:
		return MatchAllFilter
	case 1:
		return terms[0]
	}
	return "(" + strings.Join(terms, " AND ") + ")"
}

// quoteFilterValue single-quotes a value for use inside a filter
// expression, escaping backslashes and quotes.
func quoteFilterValue(v string) string {
	var b strings.Builder
	b.Grow(len(v) + 2)
	b.WriteByte('\'')
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '\\', '\'':
			b.WriteByte('\\')
		}
		b.WriteByte(v[i])
	}
	b.WriteByte('\'')
	return b.String()
}
