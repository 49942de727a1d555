package devserver

// schema is applied on startup; every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS tracks (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	artist     TEXT NOT NULL,
	url        TEXT NOT NULL,
	duration   REAL NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tracks_user ON tracks (user_id);

CREATE TABLE IF NOT EXISTS objects (
	bucket       TEXT NOT NULL,
	path         TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT 'application/octet-stream',
	data         BLOB NOT NULL,
	created_at   TIMESTAMP NOT NULL,
	PRIMARY KEY (bucket, path)
);
`
