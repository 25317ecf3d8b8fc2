package usecase

import "github.com/hszk-dev/tubefeed/internal/domain/model"

// Identity names a channel under a filter. Equal filters give equal
// identities regardless of how their parameters were ordered.
func Identity(channelID string, spec model.FilterSpec) string {
	return channelID + spec.Encode()
}

// Finalize pairs a filtered feed with its identity for serialization.
func Finalize(feed *model.CanonicalFeed, spec model.FilterSpec) (string, *model.CanonicalFeed) {
	return Identity(feed.Channel.ID, spec), feed
}
