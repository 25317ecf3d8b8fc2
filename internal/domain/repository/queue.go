package repository

import (
	"context"

	"github.com/google/uuid"
)

// RenderTask represents a feed pre-render job message.
type RenderTask struct {
	RenderID   uuid.UUID `json:"render_id"`
	Channel    string    `json:"channel"`
	Query      string    `json:"query"`
	RetryCount int       `json:"retry_count"`
}

// MessageQueue defines the interface for message queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type MessageQueue interface {
	// PublishRenderTask sends a render task to the queue.
	// Used by the API server to trigger async feed rendering.
	PublishRenderTask(ctx context.Context, task RenderTask) error

	// ConsumeRenderTasks starts consuming render tasks from the queue.
	// The handler function is called for each received task.
	// Blocks until the context is cancelled or the delivery channel closes.
	// Used by the worker service.
	ConsumeRenderTasks(ctx context.Context, handler func(task RenderTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
