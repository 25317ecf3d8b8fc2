package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hszk-dev/tubefeed/internal/api/middleware"
	"github.com/hszk-dev/tubefeed/internal/domain/model"
	"github.com/hszk-dev/tubefeed/internal/domain/repository"
	"github.com/hszk-dev/tubefeed/internal/infrastructure/cache"
	"github.com/hszk-dev/tubefeed/internal/usecase"
)

// StatusClientClosedRequest is recorded when the client goes away before the feed is ready.
const StatusClientClosedRequest = 499

// FeedHandler serves filtered channel feeds.
type FeedHandler struct {
	svc usecase.FeedService
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(svc usecase.FeedService) *FeedHandler {
	return &FeedHandler{svc: svc}
}

// Get handles GET /{channel}
func (h *FeedHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseChannelIdentifier(chi.URLParam(r, "channel"))
	if err != nil {
		writeFeedError(w, r, err)
		return
	}

	spec, err := model.ParseFilterSpec(r.URL.Query())
	if err != nil {
		writeFeedError(w, r, err)
		return
	}

	out, err := h.svc.GetFeed(r.Context(), id, spec)
	if err != nil {
		writeFeedError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Body)))
	w.Header().Set("X-Cache", out.Source.String())
	w.Header().Set("X-Feed-Identity", out.Identity)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Body)
}

// writeFeedError maps pipeline errors to statuses. Client errors get a short
// reason; upstream and internal failures are logged and answered without a body.
func writeFeedError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		slog.DebugContext(r.Context(), "feed request cancelled by client",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("path", r.URL.Path),
		)
		Empty(w, StatusClientClosedRequest)
		return
	}

	switch {
	case errors.Is(err, model.ErrInvalidChannelID):
		Text(w, http.StatusBadRequest, "invalid channel identifier")
		return
	case errors.Is(err, model.ErrInvalidFilterSyntax):
		Text(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, repository.ErrChannelNotFound):
		Text(w, http.StatusNotFound, "channel not found")
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrNetwork), errors.Is(err, repository.ErrParse):
		status = http.StatusBadGateway
	case errors.Is(err, cache.ErrCache):
		status = http.StatusInternalServerError
	}

	slog.ErrorContext(r.Context(), "feed request failed",
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Any("error", err),
	)
	Empty(w, status)
}
