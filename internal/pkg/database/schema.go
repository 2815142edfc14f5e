package database

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// reportsSchema mirrors the remote report document so offline reads keep
// working against the same logical fields. Timestamps are stored as epoch
// milliseconds, enums as text.
const reportsSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id                UUID PRIMARY KEY,
	user_id           TEXT NOT NULL,
	user_name         TEXT NOT NULL,
	title             TEXT NOT NULL,
	description       TEXT NOT NULL,
	report_type       TEXT NOT NULL,
	status            TEXT NOT NULL,
	latitude          DOUBLE PRECISION NOT NULL,
	longitude         DOUBLE PRECISION NOT NULL,
	address           TEXT,
	image_url         TEXT,
	created_at        BIGINT NOT NULL,
	updated_at        BIGINT NOT NULL,
	approved_by       TEXT,
	rejection_reason  TEXT,
	edited_by         TEXT,
	last_edit_at      BIGINT,
	moderator_comment TEXT,
	is_synced         BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_reports_user_id ON reports (user_id);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports (status);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports (created_at DESC);
`

// EnsureSchema creates the local cache tables if they do not exist yet
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, reportsSchema)
	return err
}
