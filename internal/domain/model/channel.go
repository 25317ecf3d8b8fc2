package model

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// HandlePrefix marks a channel identifier as a human-chosen alias that must be
// resolved to a stable id before the public feed can be fetched.
const HandlePrefix = "@"

const maxIdentifierLength = 128

var ErrInvalidChannelID = errors.New("invalid channel identifier")

// ChannelIdentifier is either a handle ("@name") or a stable channel id.
type ChannelIdentifier string

// ParseChannelIdentifier validates the raw path segment of a feed request.
func ParseChannelIdentifier(raw string) (ChannelIdentifier, error) {
	if raw == "" || len(raw) > maxIdentifierLength {
		return "", ErrInvalidChannelID
	}

	body := raw
	handle := strings.HasPrefix(raw, HandlePrefix)
	if handle {
		body = raw[len(HandlePrefix):]
		if body == "" {
			return "", ErrInvalidChannelID
		}
	}

	for _, r := range body {
		switch {
		case r == '-' || r == '_':
		case r == '.' && handle:
		case handle && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
		default:
			return "", ErrInvalidChannelID
		}
	}

	return ChannelIdentifier(raw), nil
}

// IsHandle reports whether the identifier needs resolution.
func (c ChannelIdentifier) IsHandle() bool {
	return strings.HasPrefix(string(c), HandlePrefix)
}

// Key returns the form used for cache and directory lookups.
// Handles are case-insensitive upstream, stable ids are not.
func (c ChannelIdentifier) Key() string {
	if c.IsHandle() {
		return strings.ToLower(string(c))
	}
	return string(c)
}

func (c ChannelIdentifier) String() string {
	return string(c)
}

// ChannelMeta describes the mirrored channel.
type ChannelMeta struct {
	ID          string
	Handle      string
	Title       string
	Description string
	URL         string
}

// VideoStub is the numeric metadata page extraction knows about a video.
type VideoStub struct {
	ID              string
	DurationSeconds uint64
	Views           uint64
	Likes           *uint64
}

// ExtractionRecord is the result of scraping a channel's video page.
type ExtractionRecord struct {
	Channel ChannelMeta
	Videos  []VideoStub
}

// MediaExtension carries the media:group payload of a public feed entry.
// Counters are nil when the provider omitted them.
type MediaExtension struct {
	Title       string
	Description string
	Thumbnail   string
	Views       *uint64
	Likes       *uint64
}

// FeedEntry is one entry of the provider's public syndication feed.
type FeedEntry struct {
	ID          string
	Title       string
	Description string
	PublishedAt time.Time
	UpdatedAt   time.Time
	Extension   MediaExtension
}

// FeedRecord is the provider's public feed, in provider order.
type FeedRecord struct {
	ChannelID string
	Entries   []FeedEntry
}

// CanonicalVideo is the join of a VideoStub and a FeedEntry sharing one id.
type CanonicalVideo struct {
	ID              string
	Title           string
	Description     string
	Thumbnail       string
	DurationSeconds uint64
	Views           uint64
	Likes           *uint64
	PublishedAt     time.Time
	UpdatedAt       time.Time
}

// CanonicalFeed is the merged channel representation, newest video first.
// Values handed out by the feed cache are shared and must not be mutated.
type CanonicalFeed struct {
	Channel   ChannelMeta
	Videos    []CanonicalVideo
	FetchedAt time.Time
}

// Clone returns a copy whose video slice can be modified freely.
func (f *CanonicalFeed) Clone() *CanonicalFeed {
	if f == nil {
		return nil
	}
	out := *f
	out.Videos = make([]CanonicalVideo, len(f.Videos))
	copy(out.Videos, f.Videos)
	return &out
}
