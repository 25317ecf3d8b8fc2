package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/hszk-dev/tubefeed/internal/domain/model"
)

// RenderRepository defines the interface for render job persistence operations.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type RenderRepository interface {
	// Create persists a new render job.
	// Returns ErrDuplicateRender if the render already exists.
	Create(ctx context.Context, render *model.Render) error

	// GetByID retrieves a render job by its unique identifier.
	// Returns nil and ErrRenderNotFound if the render does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Render, error)

	// Update persists changes to an existing render job.
	// Returns ErrRenderNotFound if the render does not exist.
	Update(ctx context.Context, render *model.Render) error
}
