// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database, creates the schema and stores polls.

# Dialects

Two DATABASE_TYPE values are supported:

  - sqlite: modernc.org/sqlite, a file path or ":memory:"
  - postgres: github.com/lib/pq

Queries are written with $N placeholders and rewritten for SQLite.

# Schema Creation

	if err := db.CreateSchema(conn, db.DialectSQLite); err != nil {
		return err
	}

Safe to call multiple times - uses IF NOT EXISTS.

# Tables

A single polls table. Personas, questions, follow-up responses and
analysis steps are JSON columns (JSONB on PostgreSQL, validated TEXT on
SQLite). created_at is RFC 3339 text in UTC.

# Storage

	store := db.NewPollStore(conn, cfg.DatabaseType)
	poll, err := store.Create(ctx, newPoll)
	poll, err = store.Get(ctx, poll.ID) // ErrNotFound when absent

Polls are never updated or deleted.
*/
package db
