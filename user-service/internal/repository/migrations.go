package repository

import "github.com/pennywise/finance/shared/database"

// Migrations is the users schema. auth-service reads the same table.
var Migrations = []database.Migration{
	{
		Version: 1,
		Name:    "create_users",
		SQL: `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	email         TEXT NOT NULL,
	display_name  TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'user',
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	deleted_at    TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (username) WHERE deleted_at IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email) WHERE deleted_at IS NULL;`,
	},
}
