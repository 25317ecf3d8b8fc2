package postgres

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS renders (
	id          UUID PRIMARY KEY,
	channel     TEXT        NOT NULL,
	query       TEXT        NOT NULL DEFAULT '',
	status      TEXT        NOT NULL,
	identity    TEXT,
	object_key  TEXT,
	video_count INTEGER     NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS renders_status_idx ON renders (status);
`

func ensureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
