package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const createCoreTablesSQL = `
CREATE TABLE IF NOT EXISTS participants (
	wallet_address TEXT PRIMARY KEY,
	display_name   TEXT NOT NULL,
	image_url      TEXT NOT NULL DEFAULT '',
	total_score    INTEGER NOT NULL DEFAULT 0 CHECK (total_score >= 0),
	level          TEXT NOT NULL DEFAULT 'beginner',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS score_entries (
	id             BIGSERIAL PRIMARY KEY,
	wallet_address TEXT NOT NULL,
	quiz_id        TEXT NOT NULL,
	raw_score      INTEGER NOT NULL CHECK (raw_score >= 0),
	max_score      INTEGER NOT NULL CHECK (max_score > 0),
	percentage     DOUBLE PRECISION NOT NULL,
	difficulty     TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (wallet_address, quiz_id)
);

CREATE INDEX IF NOT EXISTS idx_score_entries_wallet_created
	ON score_entries (wallet_address, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_participants_total_score
	ON participants (total_score DESC) WHERE total_score > 0;
`

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createCoreTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS score_entries; DROP TABLE IF EXISTS participants`)
			return err
		},
	)
}
