// ABOUTME: Migration lists for the identity/runtime store and the per-identity content store
// ABOUTME: Append-only; never reorder or rename a shipped step

package store

import (
	"context"
	"database/sql"
)

// identityMigrations evolve the identity/runtime store. The instance_uri
// column on identities is deliberately not a foreign key: an identity may
// reference an instance that has not been fetched yet.
var identityMigrations = []Migration{
	{
		Name: "0001_identity_initial",
		Apply: func(ctx context.Context, tx *sql.Tx) error {
			return execAll(ctx, tx,
				`CREATE TABLE IF NOT EXISTS identities (
					id           TEXT PRIMARY KEY,
					account_url  TEXT NOT NULL,
					authenticated INTEGER NOT NULL DEFAULT 0,
					pending      INTEGER NOT NULL DEFAULT 0,
					last_used_at TEXT NOT NULL,
					instance_uri TEXT,
					preferences  BLOB,
					push_alerts  BLOB
				)`,
				`CREATE TABLE IF NOT EXISTS instances (
					uri                TEXT PRIMARY KEY,
					streaming_endpoint TEXT NOT NULL,
					title              TEXT NOT NULL,
					thumbnail          TEXT,
					version            TEXT NOT NULL,
					max_post_length    INTEGER
				)`,
				`CREATE TABLE IF NOT EXISTS accounts (
					id                   TEXT NOT NULL,
					identity_id          TEXT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
					username             TEXT NOT NULL,
					display_name         TEXT NOT NULL DEFAULT '',
					url                  TEXT NOT NULL DEFAULT '',
					avatar               TEXT NOT NULL DEFAULT '',
					avatar_static        TEXT NOT NULL DEFAULT '',
					header               TEXT NOT NULL DEFAULT '',
					header_static        TEXT NOT NULL DEFAULT '',
					emoji                TEXT NOT NULL DEFAULT '[]',
					follow_request_count INTEGER NOT NULL DEFAULT 0,
					PRIMARY KEY (id, identity_id)
				)`,
				`CREATE INDEX IF NOT EXISTS idx_accounts_identity ON accounts(identity_id)`,
				`CREATE INDEX IF NOT EXISTS idx_identities_last_used ON identities(last_used_at DESC)`,
			)
		},
	},
	{
		Name: "0002_identity_device_token",
		Apply: func(ctx context.Context, tx *sql.Tx) error {
			return execAll(ctx, tx,
				`ALTER TABLE identities ADD COLUMN last_device_token BLOB`,
			)
		},
	},
}

// contentMigrations evolve a per-identity content store. The reblog_of_id
// self-reference cascades so deleting a display status removes its wrappers.
var contentMigrations = []Migration{
	{
		Name: "0001_content_initial",
		Apply: func(ctx context.Context, tx *sql.Tx) error {
			return execAll(ctx, tx,
				`CREATE TABLE IF NOT EXISTS accounts (
					id                   TEXT PRIMARY KEY,
					username             TEXT NOT NULL,
					display_name         TEXT NOT NULL DEFAULT '',
					url                  TEXT NOT NULL DEFAULT '',
					avatar               TEXT NOT NULL DEFAULT '',
					avatar_static        TEXT NOT NULL DEFAULT '',
					header               TEXT NOT NULL DEFAULT '',
					header_static        TEXT NOT NULL DEFAULT '',
					emoji                TEXT NOT NULL DEFAULT '[]',
					follow_request_count INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE TABLE IF NOT EXISTS polls (
					id           TEXT PRIMARY KEY,
					expires_at   TEXT,
					expired      INTEGER NOT NULL DEFAULT 0,
					multiple     INTEGER NOT NULL DEFAULT 0,
					votes_count  INTEGER NOT NULL DEFAULT 0,
					voters_count INTEGER,
					voted        INTEGER NOT NULL DEFAULT 0,
					own_votes    TEXT NOT NULL DEFAULT '[]',
					options      TEXT NOT NULL DEFAULT '[]'
				)`,
				`CREATE TABLE IF NOT EXISTS statuses (
					id               TEXT PRIMARY KEY,
					account_id       TEXT NOT NULL REFERENCES accounts(id),
					uri              TEXT NOT NULL DEFAULT '',
					created_at       TEXT NOT NULL,
					content          TEXT NOT NULL DEFAULT '',
					visibility       TEXT NOT NULL DEFAULT 'public',
					spoiler_text     TEXT NOT NULL DEFAULT '',
					sensitive        INTEGER NOT NULL DEFAULT 0,
					in_reply_to_id   TEXT,
					reblog_of_id     TEXT REFERENCES statuses(id) ON DELETE CASCADE,
					poll_id          TEXT,
					language         TEXT,
					reblogs_count    INTEGER NOT NULL DEFAULT 0,
					favourites_count INTEGER NOT NULL DEFAULT 0,
					replies_count    INTEGER NOT NULL DEFAULT 0,
					reblogged        INTEGER NOT NULL DEFAULT 0,
					favourited       INTEGER NOT NULL DEFAULT 0,
					bookmarked       INTEGER NOT NULL DEFAULT 0,
					pinned           INTEGER NOT NULL DEFAULT 0,
					muted            INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX IF NOT EXISTS idx_statuses_account ON statuses(account_id)`,
				`CREATE INDEX IF NOT EXISTS idx_statuses_reblog_of ON statuses(reblog_of_id)`,
				`CREATE INDEX IF NOT EXISTS idx_statuses_in_reply_to ON statuses(in_reply_to_id)`,
				`CREATE INDEX IF NOT EXISTS idx_statuses_poll ON statuses(poll_id)`,
			)
		},
	},
	{
		Name: "0002_content_attachments",
		Apply: func(ctx context.Context, tx *sql.Tx) error {
			return execAll(ctx, tx,
				`CREATE TABLE IF NOT EXISTS attachments (
					id          TEXT PRIMARY KEY,
					status_id   TEXT NOT NULL REFERENCES statuses(id) ON DELETE CASCADE,
					type        TEXT NOT NULL,
					url         TEXT NOT NULL,
					preview_url TEXT,
					remote_url  TEXT,
					description TEXT,
					blurhash    TEXT,
					ordering    INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX IF NOT EXISTS idx_attachments_status ON attachments(status_id)`,
			)
		},
	},
	{
		Name: "0003_content_show_content",
		Apply: func(ctx context.Context, tx *sql.Tx) error {
			return execAll(ctx, tx,
				`ALTER TABLE statuses ADD COLUMN show_content INTEGER NOT NULL DEFAULT 1`,
			)
		},
	},
}
