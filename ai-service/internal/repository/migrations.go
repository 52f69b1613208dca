package repository

import "github.com/pennywise/finance/shared/database"

var Migrations = []database.Migration{
	{
		Version: 1,
		Name:    "create_ai_sessions",
		SQL: `
CREATE TABLE IF NOT EXISTS ai_sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ai_sessions_user_idx ON ai_sessions (user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS ai_messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES ai_sessions (id) ON DELETE CASCADE,
	role       TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ai_messages_session_idx ON ai_messages (session_id, created_at);`,
	},
	{
		Version: 2,
		Name:    "create_financial_reports",
		SQL: `
CREATE TABLE IF NOT EXISTS financial_reports (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	period_start TIMESTAMPTZ NOT NULL,
	period_end   TIMESTAMPTZ NOT NULL,
	content      TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS financial_reports_user_idx ON financial_reports (user_id, period_start DESC);`,
	},
}
