package repository

import "github.com/pennywise/finance/shared/database"

var Migrations = []database.Migration{
	{
		Version: 1,
		Name:    "create_records",
		SQL: `
CREATE TABLE IF NOT EXISTS records (
	id          TEXT PRIMARY KEY,
	account_id  TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	amount      NUMERIC(19, 4) NOT NULL CHECK (amount > 0),
	type        TEXT NOT NULL CHECK (type IN ('income', 'expense')),
	category    TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS records_user_occurred_idx ON records (user_id, occurred_at DESC);
CREATE INDEX IF NOT EXISTS records_account_idx ON records (account_id);`,
	},
}
