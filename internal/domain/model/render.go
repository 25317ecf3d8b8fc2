package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the processing state of a feed render job.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusReady      Status = "READY"
	StatusFailed     Status = "FAILED"
)

// Valid status transitions:
// PENDING -> PROCESSING -> READY
//
//	\-> FAILED
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusReady, StatusFailed},
	StatusReady:      {},
	StatusFailed:     {},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusReady, StatusFailed:
		return true
	default:
		return false
	}
}

func (s Status) CanTransitionTo(next Status) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, status := range allowed {
		if status == next {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Render is a request to pre-render a filtered channel feed into object storage.
type Render struct {
	ID         uuid.UUID
	Channel    ChannelIdentifier
	Query      string
	Status     Status
	Identity   string
	ObjectKey  string
	VideoCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

var ErrInvalidTransition = errors.New("invalid status transition")

// NewRender creates a PENDING render for a channel and a canonical filter query.
func NewRender(channel ChannelIdentifier, spec FilterSpec) *Render {
	now := time.Now()
	return &Render{
		ID:        uuid.New(),
		Channel:   channel,
		Query:     spec.Query(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the render status.
func (r *Render) TransitionTo(next Status) error {
	if !next.IsValid() {
		return ErrInvalidTransition
	}
	if !r.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	r.Status = next
	r.UpdatedAt = time.Now()
	return nil
}

// SetOutput records where the rendered feed was stored.
func (r *Render) SetOutput(identity, objectKey string, videoCount int) {
	r.Identity = identity
	r.ObjectKey = objectKey
	r.VideoCount = videoCount
	r.UpdatedAt = time.Now()
}

func (r *Render) IsReady() bool {
	return r.Status == StatusReady
}
