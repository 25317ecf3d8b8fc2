package usecase

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/hszk-dev/tubefeed/internal/domain/model"
)

// adKeywords are matched against a normalized description line padded with
// one space on each side, so " ad " only hits the whole word.
var adKeywords = []string{
	"sponsor",
	"promo code",
	"use code",
	"discount code",
	"coupon",
	"% off",
	"affiliate",
	"free trial",
	" ad ",
	"#ad ",
	"paid promotion",
}

// ApplyFilter selects the videos of feed matching spec and rewrites their
// text. feed is not modified.
func ApplyFilter(feed *model.CanonicalFeed, spec model.FilterSpec) *model.CanonicalFeed {
	out := &model.CanonicalFeed{
		Channel:   feed.Channel,
		Videos:    make([]model.CanonicalVideo, 0, len(feed.Videos)),
		FetchedAt: feed.FetchedAt,
	}

	for _, v := range feed.Videos {
		if !matches(v, spec) {
			continue
		}
		v.Description = rewriteDescription(v)
		if spec.LikeViewRatio {
			v.Title = annotateTitle(v)
		}
		out.Videos = append(out.Videos, v)
	}

	if spec.Count != nil && len(out.Videos) > *spec.Count {
		out.Videos = out.Videos[:*spec.Count]
	}

	return out
}

func matches(v model.CanonicalVideo, spec model.FilterSpec) bool {
	if spec.Duration != nil && !spec.Duration.Contains(v.DurationSeconds) {
		return false
	}
	if spec.Views != nil && !spec.Views.Contains(v.Views) {
		return false
	}
	if spec.Likes != nil {
		if v.Likes == nil || !spec.Likes.Contains(*v.Likes) {
			return false
		}
	}
	return true
}

// annotateTitle appends the like/view percentage when it can be computed.
func annotateTitle(v model.CanonicalVideo) string {
	if v.Likes == nil || v.Views == 0 {
		return v.Title
	}
	ratio := float64(*v.Likes) / float64(v.Views) * 100
	return fmt.Sprintf("%s [%.1f%%]", v.Title, ratio)
}

func rewriteDescription(v model.CanonicalVideo) string {
	var kept []string
	for _, line := range strings.Split(v.Description, "\n") {
		if isAdLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(infoLine(v) + "\n\n" + strings.Join(kept, "\n"))
}

// infoLine summarizes the counters, e.g. "1,234 views, 56 likes, 10:05 duration".
func infoLine(v model.CanonicalVideo) string {
	parts := []string{formatCount(v.Views) + " views"}
	if v.Likes != nil {
		parts = append(parts, formatCount(*v.Likes)+" likes")
	}
	parts = append(parts, formatDuration(v.DurationSeconds)+" duration")
	return strings.Join(parts, ", ")
}

func formatCount(n uint64) string {
	if n > math.MaxInt64 {
		return strconv.FormatUint(n, 10)
	}
	return humanize.Comma(int64(n))
}

// formatDuration renders HH:MM:SS, or MM:SS below one hour.
func formatDuration(seconds uint64) string {
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func isAdLine(line string) bool {
	norm := " " + stripNonASCII(strings.ToLower(strings.TrimSpace(line))) + " "
	for _, kw := range adKeywords {
		if strings.Contains(norm, kw) {
			return true
		}
	}
	return false
}

func stripNonASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 127 {
			return -1
		}
		return r
	}, s)
}
