package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// The contacts uniqueness constraint is the arbiter for pair dedup; no
// in-memory lock substitutes for it because other processes write the same
// tables.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id         TEXT PRIMARY KEY,
    uuid       TEXT NOT NULL DEFAULT '',
    full_name  TEXT NOT NULL DEFAULT '',
    avatar_url TEXT,
    status     TEXT NOT NULL DEFAULT 'offline',
    last_seen  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
    id           BIGSERIAL PRIMARY KEY,
    sender_id    TEXT NOT NULL REFERENCES users(id),
    recipient_id TEXT NOT NULL REFERENCES users(id),
    content      TEXT NOT NULL,
    ts           TIMESTAMPTZ NOT NULL DEFAULT now(),
    is_read      BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages (sender_id, recipient_id, id);

CREATE TABLE IF NOT EXISTS message_reads (
    user_id    TEXT NOT NULL REFERENCES users(id),
    message_id BIGINT NOT NULL REFERENCES messages(id),
    is_read    BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (user_id, message_id)
);
CREATE INDEX IF NOT EXISTS idx_message_reads_unread ON message_reads (user_id) WHERE NOT is_read;

CREATE TABLE IF NOT EXISTS contacts (
    user_one        TEXT NOT NULL REFERENCES users(id),
    user_two        TEXT NOT NULL REFERENCES users(id),
    last_message_id BIGINT REFERENCES messages(id),
    user_one_unread BIGINT NOT NULL DEFAULT 0,
    user_two_unread BIGINT NOT NULL DEFAULT 0,
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (user_one, user_two),
    CHECK (user_one < user_two)
);
CREATE INDEX IF NOT EXISTS idx_contacts_user_two ON contacts (user_two);
`

// EnsureSchema applies the DDL idempotently at boot.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return errors.Wrap(err, "ensure schema")
	}
	return nil
}
