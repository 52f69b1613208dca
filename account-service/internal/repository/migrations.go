package repository

import "github.com/pennywise/finance/shared/database"

var Migrations = []database.Migration{
	{
		Version: 1,
		Name:    "create_accounts",
		SQL: `
CREATE TABLE IF NOT EXISTS accounts (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	name         TEXT NOT NULL,
	account_type TEXT NOT NULL,
	balance      NUMERIC(19, 4) NOT NULL DEFAULT 0,
	currency     CHAR(3) NOT NULL DEFAULT 'USD',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL,
	deleted_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS accounts_user_id_idx ON accounts (user_id) WHERE deleted_at IS NULL;`,
	},
	{
		Version: 2,
		Name:    "add_account_version",
		SQL:     `ALTER TABLE accounts ADD COLUMN IF NOT EXISTS version BIGINT NOT NULL DEFAULT 1;`,
	},
}
