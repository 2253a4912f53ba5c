package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied on startup, one statement per Exec since the pgx
// extended protocol does not accept multi-statement strings. Statements are
// idempotent so the server can be restarted against an existing database.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id           BIGSERIAL PRIMARY KEY,
    google_id    TEXT NOT NULL UNIQUE,
    email        TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL DEFAULT '',
    avatar_url   TEXT,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,

	`CREATE TABLE IF NOT EXISTS cards (
    id             BIGSERIAL PRIMARY KEY,
    owner_id       BIGINT NOT NULL REFERENCES users(id),
    label          TEXT,
    display_name   TEXT NOT NULL DEFAULT '',
    phone          TEXT NOT NULL DEFAULT '',
    email          TEXT NOT NULL DEFAULT '',
    address        TEXT NOT NULL DEFAULT '',
    website        TEXT NOT NULL DEFAULT '',
    payment_handle TEXT NOT NULL DEFAULT '',
    roles          TEXT NOT NULL DEFAULT '',
    designation    TEXT NOT NULL DEFAULT '',
    company        TEXT NOT NULL DEFAULT '',
    bio            TEXT NOT NULL DEFAULT '',
    title          TEXT NOT NULL DEFAULT '',
    profile_image  TEXT,
    banner_image   TEXT,
    image_shape    TEXT NOT NULL DEFAULT 'round',
    image_position TEXT NOT NULL DEFAULT 'center',
    identity_align TEXT NOT NULL DEFAULT 'center',
    theme          TEXT NOT NULL DEFAULT 'midnight',
    instagram      TEXT NOT NULL DEFAULT '',
    linkedin       TEXT NOT NULL DEFAULT '',
    twitter        TEXT NOT NULL DEFAULT '',
    facebook       TEXT NOT NULL DEFAULT '',
    youtube        TEXT NOT NULL DEFAULT '',
    whatsapp       TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,

	`CREATE INDEX IF NOT EXISTS cards_owner_idx ON cards (owner_id)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS cards_owner_label_idx
    ON cards (owner_id, label) WHERE label IS NOT NULL`,
}

// Migrate creates the tables and indexes if they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
