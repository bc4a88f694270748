package store

import (
	"context"
	"time"

	chatmodel "MeetChat/module/chat/model"
	usermodel "MeetChat/module/user/model"
	"MeetChat/tools/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

// PG is the durable store. It is the only component allowed to decide
// contact-row uniqueness; everything above it treats the upsert as atomic.
type PG struct {
	pool *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

func (s *PG) UserByID(ctx context.Context, id string) (*usermodel.User, error) {
	u := &usermodel.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, uuid, full_name, avatar_url, status, last_seen FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.UUID, &u.FullName, &u.AvatarURL, &u.Status, &u.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrUserNotFound.WrapMsg("id=" + id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "user by id")
	}
	return u, nil
}

func (s *PG) SetPresence(ctx context.Context, id, status string, lastSeen time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET status=$2, last_seen=$3 WHERE id=$1`, id, status, lastSeen)
	return errors.Wrap(err, "set presence")
}

// SaveMessage commits a message, its recipient read-status row and the
// contact summary in one transaction. The message must be durable before any
// acknowledgment or fanout happens, so the caller only proceeds on nil error.
func (s *PG) SaveMessage(ctx context.Context, m *chatmodel.Message) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO messages (sender_id, recipient_id, content) VALUES ($1,$2,$3) RETURNING id, ts`,
		m.SenderID, m.RecipientID, m.Content).Scan(&m.ID, &m.Timestamp)
	if err != nil {
		return mapPgErr(err, "insert message")
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO message_reads (user_id, message_id, is_read) VALUES ($1,$2,FALSE)`,
		m.RecipientID, m.ID); err != nil {
		return mapPgErr(err, "insert read status")
	}

	one, two := chatmodel.CanonicalPair(m.SenderID, m.RecipientID)
	oneInc, twoInc := 0, 0
	if m.RecipientID == one {
		oneInc = 1
	} else {
		twoInc = 1
	}
	if _, err = tx.Exec(ctx, `
		INSERT INTO contacts (user_one, user_two, last_message_id, user_one_unread, user_two_unread, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_one, user_two) DO UPDATE SET
			last_message_id = EXCLUDED.last_message_id,
			user_one_unread = contacts.user_one_unread + EXCLUDED.user_one_unread,
			user_two_unread = contacts.user_two_unread + EXCLUDED.user_two_unread,
			updated_at      = EXCLUDED.updated_at`,
		one, two, m.ID, oneInc, twoInc, m.Timestamp); err != nil {
		return mapPgErr(err, "upsert contact")
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}

// MarkAllRead flips every unread row of the user and resets the user's side
// of each contact, all in one transaction.
func (s *PG) MarkAllRead(ctx context.Context, userID string) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx,
		`UPDATE message_reads SET is_read=TRUE WHERE user_id=$1 AND NOT is_read`, userID); err != nil {
		return errors.Wrap(err, "mark read rows")
	}
	if _, err = tx.Exec(ctx,
		`UPDATE messages SET is_read=TRUE WHERE recipient_id=$1 AND NOT is_read`, userID); err != nil {
		return errors.Wrap(err, "mark messages")
	}
	if _, err = tx.Exec(ctx,
		`UPDATE contacts SET user_one_unread=0 WHERE user_one=$1`, userID); err != nil {
		return errors.Wrap(err, "reset side one")
	}
	if _, err = tx.Exec(ctx,
		`UPDATE contacts SET user_two_unread=0 WHERE user_two=$1`, userID); err != nil {
		return errors.Wrap(err, "reset side two")
	}
	return errors.Wrap(tx.Commit(ctx), "commit")
}

// UnreadCount recomputes the authoritative counter from read-status rows.
func (s *PG) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM message_reads WHERE user_id=$1 AND NOT is_read`, userID).Scan(&n)
	return n, errors.Wrap(err, "unread count")
}

func (s *PG) ContactsOf(ctx context.Context, userID string) ([]*chatmodel.Contact, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_one, user_two, COALESCE(last_message_id, 0), user_one_unread, user_two_unread, updated_at
		FROM contacts WHERE user_one=$1 OR user_two=$1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "contacts of")
	}
	defer rows.Close()

	var out []*chatmodel.Contact
	for rows.Next() {
		c := &chatmodel.Contact{}
		if err := rows.Scan(&c.UserOne, &c.UserTwo, &c.LastMessageID,
			&c.UserOneUnread, &c.UserTwoUnread, &c.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan contact")
		}
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "contacts rows")
}

func (s *PG) MessageByID(ctx context.Context, id int64) (*chatmodel.Message, error) {
	m := &chatmodel.Message{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, sender_id, recipient_id, content, ts, is_read FROM messages WHERE id=$1`, id).
		Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.Timestamp, &m.IsRead)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrUserNotFound.WrapMsg("message not found")
	}
	return m, errors.Wrap(err, "message by id")
}

// MessagesBetween returns the pair's history, newest first.
func (s *PG) MessagesBetween(ctx context.Context, a, b string, limit int) ([]*chatmodel.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, sender_id, recipient_id, content, ts, is_read FROM messages
		WHERE (sender_id=$1 AND recipient_id=$2) OR (sender_id=$2 AND recipient_id=$1)
		ORDER BY id DESC LIMIT $3`, a, b, limit)
	if err != nil {
		return nil, errors.Wrap(err, "messages between")
	}
	defer rows.Close()

	var out []*chatmodel.Message
	for rows.Next() {
		m := &chatmodel.Message{}
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.Timestamp, &m.IsRead); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		out = append(out, m)
	}
	return out, errors.Wrap(rows.Err(), "messages rows")
}

func mapPgErr(err error, msg string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errs.ErrConsistency.WrapMsg(msg)
	}
	return errors.Wrap(err, msg)
}
