package model

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

var ErrInvalidFilterSyntax = errors.New("invalid filter syntax")

// Query parameter names accepted on feed requests.
const (
	ParamCount         = "c"
	ParamDuration      = "d"
	ParamViews         = "v"
	ParamLikes         = "l"
	ParamLikeViewRatio = "lvr"
)

// Range is an inclusive numeric range. An unbounded side is stored as 0 or
// math.MaxUint64 respectively.
type Range struct {
	Min uint64
	Max uint64
}

// ParseRange parses "min-max" where either side may be omitted, but not both.
func ParseRange(s string) (Range, error) {
	before, after, found := strings.Cut(s, "-")
	if !found {
		return Range{}, fmt.Errorf("%w: range %q is missing '-'", ErrInvalidFilterSyntax, s)
	}
	if before == "" && after == "" {
		return Range{}, fmt.Errorf("%w: range needs a start or an end", ErrInvalidFilterSyntax)
	}

	r := Range{Min: 0, Max: math.MaxUint64}
	if before != "" {
		v, err := strconv.ParseUint(before, 10, 64)
		if err != nil {
			return Range{}, fmt.Errorf("%w: range start %q", ErrInvalidFilterSyntax, before)
		}
		r.Min = v
	}
	if after != "" {
		v, err := strconv.ParseUint(after, 10, 64)
		if err != nil {
			return Range{}, fmt.Errorf("%w: range end %q", ErrInvalidFilterSyntax, after)
		}
		r.Max = v
	}
	if r.Min > r.Max {
		return Range{}, fmt.Errorf("%w: range start %d is above end %d", ErrInvalidFilterSyntax, r.Min, r.Max)
	}

	return r, nil
}

// Contains reports whether v lies within the range, both ends included.
func (r Range) Contains(v uint64) bool {
	return v >= r.Min && v <= r.Max
}

// String renders the range in its query form, omitting unbounded sides, so
// "0-600" and "-600" share one representation.
func (r Range) String() string {
	var b strings.Builder
	if r.Min != 0 {
		b.WriteString(strconv.FormatUint(r.Min, 10))
	}
	b.WriteByte('-')
	if r.Max != math.MaxUint64 {
		b.WriteString(strconv.FormatUint(r.Max, 10))
	}
	return b.String()
}

// FilterSpec selects and decorates the videos of a canonical feed.
type FilterSpec struct {
	Count         *int
	Duration      *Range
	Views         *Range
	Likes         *Range
	LikeViewRatio bool
}

// ParseFilterSpec reads a FilterSpec from request query parameters.
// Unknown parameters are ignored.
func ParseFilterSpec(q url.Values) (FilterSpec, error) {
	var spec FilterSpec

	if q.Has(ParamCount) {
		n, err := strconv.Atoi(q.Get(ParamCount))
		if err != nil || n < 0 {
			return FilterSpec{}, fmt.Errorf("%w: count %q", ErrInvalidFilterSyntax, q.Get(ParamCount))
		}
		spec.Count = &n
	}

	ranges := []struct {
		param string
		dst   **Range
	}{
		{ParamDuration, &spec.Duration},
		{ParamViews, &spec.Views},
		{ParamLikes, &spec.Likes},
	}
	for _, rg := range ranges {
		if !q.Has(rg.param) {
			continue
		}
		r, err := ParseRange(q.Get(rg.param))
		if err != nil {
			return FilterSpec{}, fmt.Errorf("parameter %s: %w", rg.param, err)
		}
		*rg.dst = &r
	}

	spec.LikeViewRatio = q.Has(ParamLikeViewRatio)
	return spec, nil
}

// Encode returns the short canonical token string of the active fields in a
// fixed order: count, duration, views, likes, like/view ratio.
func (f FilterSpec) Encode() string {
	var b strings.Builder
	if f.Count != nil {
		b.WriteString(ParamCount)
		b.WriteString(strconv.Itoa(*f.Count))
	}
	if f.Duration != nil {
		b.WriteString(ParamDuration)
		b.WriteString(f.Duration.String())
	}
	if f.Views != nil {
		b.WriteString(ParamViews)
		b.WriteString(f.Views.String())
	}
	if f.Likes != nil {
		b.WriteString(ParamLikes)
		b.WriteString(f.Likes.String())
	}
	if f.LikeViewRatio {
		b.WriteString(ParamLikeViewRatio)
	}
	return b.String()
}

// Query returns the canonical query string for the active fields, in the
// same order as Encode.
func (f FilterSpec) Query() string {
	var parts []string
	if f.Count != nil {
		parts = append(parts, ParamCount+"="+strconv.Itoa(*f.Count))
	}
	if f.Duration != nil {
		parts = append(parts, ParamDuration+"="+f.Duration.String())
	}
	if f.Views != nil {
		parts = append(parts, ParamViews+"="+f.Views.String())
	}
	if f.Likes != nil {
		parts = append(parts, ParamLikes+"="+f.Likes.String())
	}
	if f.LikeViewRatio {
		parts = append(parts, ParamLikeViewRatio)
	}
	return strings.Join(parts, "&")
}
