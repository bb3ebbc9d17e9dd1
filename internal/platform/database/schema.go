package database

import (
	"context"
	"fmt"
)

// schema is applied in order by Migrate. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS resources (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title       TEXT NOT NULL,
		type        TEXT NOT NULL CHECK (type IN ('TEXTBOOK', 'PAST_PAPER', 'STUDY_GUIDE')),
		subject     TEXT NOT NULL,
		grade       INT  NOT NULL CHECK (grade BETWEEN 8 AND 12),
		year        INT  NOT NULL,
		curriculum  TEXT NOT NULL CHECK (curriculum IN ('CAPS', 'IEB')),
		publisher   TEXT,
		status      TEXT NOT NULL DEFAULT 'DRAFT' CHECK (status IN ('DRAFT', 'LIVE')),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_resources_listing ON resources (status, grade, subject, title)`,
	`CREATE TABLE IF NOT EXISTS content_nodes (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		resource_id UUID NOT NULL REFERENCES resources (id) ON DELETE CASCADE,
		parent_id   UUID REFERENCES content_nodes (id) ON DELETE CASCADE,
		type        TEXT NOT NULL CHECK (type IN ('CHAPTER', 'TOPIC', 'SUBTOPIC')),
		number      INT,
		sort_order  INT  NOT NULL DEFAULT 0,
		title       TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_content_nodes_resource ON content_nodes (resource_id) WHERE parent_id IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_content_nodes_parent ON content_nodes (parent_id)`,
	`CREATE TABLE IF NOT EXISTS questions (
		id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		content_id      UUID NOT NULL REFERENCES content_nodes (id) ON DELETE CASCADE,
		type            TEXT NOT NULL CHECK (type IN ('MCQ', 'STRUCTURED', 'ESSAY', 'PROOF', 'DRAWING')),
		sort_order      INT  NOT NULL DEFAULT 0,
		question_number TEXT NOT NULL DEFAULT '',
		content         JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_questions_content ON questions (content_id, sort_order)`,
	`CREATE TABLE IF NOT EXISTS solutions (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		question_id UUID NOT NULL REFERENCES questions (id) ON DELETE CASCADE,
		content     JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_solutions_question ON solutions (question_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id                  UUID PRIMARY KEY,
		email               TEXT UNIQUE,
		role                TEXT NOT NULL DEFAULT 'STUDENT' CHECK (role IN ('ADMIN', 'STUDENT')),
		subscription_status TEXT NOT NULL DEFAULT 'NONE' CHECK (subscription_status IN ('NONE', 'PENDING', 'ACTIVE', 'CANCELLED')),
		subscription_code   TEXT,
		customer_code       TEXT UNIQUE,
		grade               INT,
		school              TEXT,
		subjects            TEXT[] NOT NULL DEFAULT '{}',
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS webhook_events (
		key          TEXT PRIMARY KEY,
		event        TEXT NOT NULL,
		payload      JSONB NOT NULL DEFAULT '{}'::jsonb,
		received_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMPTZ
	)`,
}

// Migrate creates any missing tables and indexes.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
