package usecase

import (
	"sort"
	"time"

	"github.com/hszk-dev/tubefeed/internal/domain/model"
)

// Reconcile inner-joins extraction stubs and public feed entries on video id.
// Entries present on one side only are dropped. The result is ordered newest
// first; entries published at the same instant keep their feed order.
func Reconcile(ext *model.ExtractionRecord, feed *model.FeedRecord, fetchedAt time.Time) *model.CanonicalFeed {
	out := &model.CanonicalFeed{
		Channel:   ext.Channel,
		Videos:    []model.CanonicalVideo{},
		FetchedAt: fetchedAt,
	}
	if out.Channel.ID == "" {
		out.Channel.ID = feed.ChannelID
	}

	stubs := make(map[string]model.VideoStub, len(ext.Videos))
	for _, v := range ext.Videos {
		stubs[v.ID] = v
	}

	for _, entry := range feed.Entries {
		stub, ok := stubs[entry.ID]
		if !ok {
			continue
		}
		out.Videos = append(out.Videos, merge(stub, entry))
	}

	sort.SliceStable(out.Videos, func(i, j int) bool {
		return out.Videos[i].PublishedAt.After(out.Videos[j].PublishedAt)
	})

	return out
}

// merge takes text and timestamps from the feed entry and numbers from the stub.
// Counters the page did not show fall back to the feed's media extension.
func merge(stub model.VideoStub, entry model.FeedEntry) model.CanonicalVideo {
	v := model.CanonicalVideo{
		ID:              stub.ID,
		Title:           entry.Title,
		Description:     entry.Description,
		Thumbnail:       entry.Extension.Thumbnail,
		DurationSeconds: stub.DurationSeconds,
		Views:           stub.Views,
		Likes:           stub.Likes,
		PublishedAt:     entry.PublishedAt,
		UpdatedAt:       entry.UpdatedAt,
	}

	if entry.Extension.Title != "" {
		v.Title = entry.Extension.Title
	}
	if entry.Extension.Description != "" {
		v.Description = entry.Extension.Description
	}
	if v.Likes == nil && entry.Extension.Likes != nil {
		likes := *entry.Extension.Likes
		v.Likes = &likes
	}
	if v.Views == 0 && entry.Extension.Views != nil {
		v.Views = *entry.Extension.Views
	}

	return v
}
