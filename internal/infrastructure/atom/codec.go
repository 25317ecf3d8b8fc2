// Package atom serializes canonical feeds as Atom 1.0 documents.
package atom

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/tubefeed/internal/domain/model"
	"github.com/hszk-dev/tubefeed/internal/domain/repository"
)

// ContentType is the media type of documents produced by Codec.
const ContentType = "application/atom+xml; charset=utf-8"

const generator = "tubefeed"

type feedXML struct {
	XMLName    xml.Name   `xml:"feed"`
	Xmlns      string     `xml:"xmlns,attr"`
	XmlnsMedia string     `xml:"xmlns:media,attr"`
	ID         string     `xml:"id"`
	Title      string     `xml:"title"`
	Subtitle   string     `xml:"subtitle,omitempty"`
	Updated    string     `xml:"updated"`
	Generator  string     `xml:"generator"`
	Links      []linkXML  `xml:"link"`
	Author     authorXML  `xml:"author"`
	Entries    []entryXML `xml:"entry"`
}

type linkXML struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr,omitempty"`
}

type authorXML struct {
	Name string `xml:"name"`
	URI  string `xml:"uri,omitempty"`
}

type entryXML struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Link      linkXML       `xml:"link"`
	Published string        `xml:"published"`
	Updated   string        `xml:"updated"`
	Summary   textXML       `xml:"summary"`
	Thumbnail *thumbnailXML `xml:"media:thumbnail,omitempty"`
}

type textXML struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type thumbnailXML struct {
	URL string `xml:"url,attr"`
}

// Codec implements repository.FeedCodec for Atom.
type Codec struct {
	selfBaseURL string
	siteBaseURL string
}

// NewCodec creates a codec. selfBaseURL is the public address of this
// service, siteBaseURL the provider's site used for watch links.
func NewCodec(selfBaseURL, siteBaseURL string) *Codec {
	return &Codec{
		selfBaseURL: strings.TrimRight(selfBaseURL, "/") + "/",
		siteBaseURL: strings.TrimRight(siteBaseURL, "/"),
	}
}

func (c *Codec) ContentType() string {
	return ContentType
}

// FeedID returns the stable Atom id for a feed identity.
func FeedID(identity string) string {
	return "urn:uuid:" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("tubefeed:"+identity)).String()
}

// Serialize renders feed as an Atom document.
func (c *Codec) Serialize(identity, query string, feed *model.CanonicalFeed) ([]byte, error) {
	if feed == nil {
		return nil, fmt.Errorf("serialize %s: nil feed", identity)
	}

	self := c.selfBaseURL + url.PathEscape(feed.Channel.ID)
	if query != "" {
		self += "?" + query
	}
	channelURL := c.siteBaseURL + "/channel/" + url.PathEscape(feed.Channel.ID)

	doc := feedXML{
		Xmlns:      "http://www.w3.org/2005/Atom",
		XmlnsMedia: "http://search.yahoo.com/mrss/",
		ID:         FeedID(identity),
		Title:      feed.Channel.Title,
		Subtitle:   feed.Channel.Description,
		Updated:    formatTime(latestUpdate(feed)),
		Generator:  generator,
		Links: []linkXML{
			{Href: self, Rel: "self", Type: "application/atom+xml"},
			{Href: channelURL, Rel: "alternate", Type: "text/html"},
		},
		Author:  authorXML{Name: feed.Channel.Title, URI: channelURL},
		Entries: make([]entryXML, 0, len(feed.Videos)),
	}

	for _, v := range feed.Videos {
		entry := entryXML{
			ID:        "yt:video:" + v.ID,
			Title:     v.Title,
			Link:      linkXML{Href: c.siteBaseURL + "/watch?v=" + url.QueryEscape(v.ID), Rel: "alternate"},
			Published: formatTime(v.PublishedAt),
			Updated:   formatTime(v.UpdatedAt),
			Summary:   textXML{Type: "text", Value: v.Description},
		}
		if v.Thumbnail != "" {
			entry.Thumbnail = &thumbnailXML{URL: v.Thumbnail}
		}
		doc.Entries = append(doc.Entries, entry)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", identity, err)
	}
	return append([]byte(xml.Header), out...), nil
}

// latestUpdate is the newest entry update, or the fetch time for an empty feed.
func latestUpdate(feed *model.CanonicalFeed) time.Time {
	var latest time.Time
	for _, v := range feed.Videos {
		if v.UpdatedAt.After(latest) {
			latest = v.UpdatedAt
		}
	}
	if latest.IsZero() {
		return feed.FetchedAt
	}
	return latest
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

var _ repository.FeedCodec = (*Codec)(nil)
