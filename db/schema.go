// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dialect string) error {
	schema, err := schemaFor(dialect)
	if err != nil {
		return err
	}

	_, err = db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

func schemaFor(dialect string) (string, error) {
	switch dialect {
	case DialectPostgres:
		return postgresSchema, nil
	case DialectSQLite:
		return sqliteSchema, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}
}

const postgresSchema = `
-- Polls
CREATE TABLE IF NOT EXISTS polls (
    id SERIAL PRIMARY KEY,
    topic TEXT NOT NULL,
    prompt TEXT NOT NULL,
    summary TEXT NOT NULL,
    personas JSONB NOT NULL,
    questions JSONB NOT NULL,
    followup_responses JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TEXT NOT NULL,
    analysis_steps JSONB NOT NULL DEFAULT '[]'::jsonb
);
`

const sqliteSchema = `
-- Polls
CREATE TABLE IF NOT EXISTS polls (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    topic TEXT NOT NULL,
    prompt TEXT NOT NULL,
    summary TEXT NOT NULL,
    personas TEXT NOT NULL CHECK (json_valid(personas)),
    questions TEXT NOT NULL CHECK (json_valid(questions)),
    followup_responses TEXT NOT NULL DEFAULT '[]' CHECK (json_valid(followup_responses)),
    created_at TEXT NOT NULL,
    analysis_steps TEXT NOT NULL DEFAULT '[]' CHECK (json_valid(analysis_steps))
);
`
