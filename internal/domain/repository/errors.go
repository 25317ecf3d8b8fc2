package repository

import "errors"

var (
	// ErrNetwork is returned when an upstream collaborator cannot be reached
	// or answers with an unexpected HTTP status.
	ErrNetwork = errors.New("upstream network error")

	// ErrParse is returned when an upstream collaborator returns data in an
	// unexpected shape.
	ErrParse = errors.New("upstream parse error")

	// ErrChannelNotFound is returned when the origin reports the channel does not exist.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrRenderNotFound is returned when a render job cannot be found.
	ErrRenderNotFound = errors.New("render not found")

	// ErrDuplicateRender is returned when attempting to create a render that already exists.
	ErrDuplicateRender = errors.New("render already exists")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")
)
