package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/tubefeed/internal/domain/model"
	"github.com/hszk-dev/tubefeed/internal/domain/repository"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

// RenderRepository implements repository.RenderRepository using PostgreSQL.
type RenderRepository struct {
	db DBTX
}

// NewRenderRepository creates a new RenderRepository instance.
func NewRenderRepository(db DBTX) *RenderRepository {
	return &RenderRepository{db: db}
}

// Create persists a new render job.
func (r *RenderRepository) Create(ctx context.Context, render *model.Render) error {
	const query = `
		INSERT INTO renders (id, channel, query, status, identity, object_key, video_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		render.ID,
		render.Channel.String(),
		render.Query,
		render.Status.String(),
		nullString(render.Identity),
		nullString(render.ObjectKey),
		render.VideoCount,
		render.CreatedAt,
		render.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateRender
		}
		return fmt.Errorf("failed to create render: %w", err)
	}

	return nil
}

// GetByID retrieves a render job by its unique identifier.
func (r *RenderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Render, error) {
	const query = `
		SELECT id, channel, query, status, identity, object_key, video_count, created_at, updated_at
		FROM renders
		WHERE id = $1
	`

	var (
		render    model.Render
		channel   string
		status    string
		identity  *string
		objectKey *string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&render.ID,
		&channel,
		&render.Query,
		&status,
		&identity,
		&objectKey,
		&render.VideoCount,
		&render.CreatedAt,
		&render.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrRenderNotFound
		}
		return nil, fmt.Errorf("failed to get render by ID: %w", err)
	}

	render.Channel = model.ChannelIdentifier(channel)
	render.Status = model.Status(status)
	if identity != nil {
		render.Identity = *identity
	}
	if objectKey != nil {
		render.ObjectKey = *objectKey
	}

	return &render, nil
}

// Update persists status and output changes of a render job.
func (r *RenderRepository) Update(ctx context.Context, render *model.Render) error {
	const query = `
		UPDATE renders
		SET status = $2, identity = $3, object_key = $4, video_count = $5, updated_at = $6
		WHERE id = $1
	`

	render.UpdatedAt = time.Now()

	tag, err := r.db.Exec(ctx, query,
		render.ID,
		render.Status.String(),
		nullString(render.Identity),
		nullString(render.ObjectKey),
		render.VideoCount,
		render.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update render: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrRenderNotFound
	}

	return nil
}

// nullString returns nil for empty strings, otherwise returns a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Compile-time verification that RenderRepository implements repository.RenderRepository.
var _ repository.RenderRepository = (*RenderRepository)(nil)
