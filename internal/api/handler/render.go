package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hszk-dev/tubefeed/internal/domain/model"
	"github.com/hszk-dev/tubefeed/internal/domain/repository"
	"github.com/hszk-dev/tubefeed/internal/usecase"
)

type CreateRenderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type RenderResponse struct {
	ID          string `json:"id"`
	Channel     string `json:"channel"`
	Query       string `json:"query"`
	Status      string `json:"status"`
	Identity    string `json:"identity,omitempty"`
	ObjectKey   string `json:"object_key,omitempty"`
	VideoCount  int    `json:"video_count"`
	DownloadURL string `json:"download_url,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// RenderHandler handles feed pre-render jobs.
type RenderHandler struct {
	svc usecase.RenderService
}

// NewRenderHandler creates a new RenderHandler.
func NewRenderHandler(svc usecase.RenderService) *RenderHandler {
	return &RenderHandler{svc: svc}
}

// Create handles POST /v1/renders/{channel}
func (h *RenderHandler) Create(w http.ResponseWriter, r *http.Request) {
	channel, err := model.ParseChannelIdentifier(chi.URLParam(r, "channel"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_channel", "Channel must be a handle or a channel id")
		return
	}

	spec, err := model.ParseFilterSpec(r.URL.Query())
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_filter", err.Error())
		return
	}

	render, err := h.svc.CreateRender(r.Context(), channel, spec)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusAccepted, CreateRenderResponse{
		ID:     render.ID.String(),
		Status: render.Status.String(),
	})
}

// Get handles GET /v1/renders/{id}
func (h *RenderHandler) Get(w http.ResponseWriter, r *http.Request) {
	renderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid_render_id", "Render ID must be a valid UUID")
		return
	}

	out, err := h.svc.GetRender(r.Context(), renderID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, toRenderResponse(out))
}

func (h *RenderHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrRenderNotFound):
		Error(w, http.StatusNotFound, "render_not_found", "Render not found")
	case errors.Is(err, repository.ErrDuplicateRender):
		Error(w, http.StatusConflict, "render_exists", "Render already exists")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

func toRenderResponse(out *usecase.RenderOutput) RenderResponse {
	r := out.Render
	return RenderResponse{
		ID:          r.ID.String(),
		Channel:     r.Channel.String(),
		Query:       r.Query,
		Status:      r.Status.String(),
		Identity:    r.Identity,
		ObjectKey:   r.ObjectKey,
		VideoCount:  r.VideoCount,
		DownloadURL: out.DownloadURL,
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   r.UpdatedAt.Format(time.RFC3339),
	}
}
