package service

import (
	"context"
	"time"

	"MeetChat/logger"
	chatmodel "MeetChat/module/chat/model"
	usermodel "MeetChat/module/user/model"
	"MeetChat/service/storage"
	"MeetChat/tools/errs"

	"github.com/pkg/errors"
)

// Store is the durable-store surface the engine needs. The pgx store
// implements it; tests substitute an in-memory fake that honors the same
// pair-uniqueness contract.
type Store interface {
	UserByID(ctx context.Context, id string) (*usermodel.User, error)
	SaveMessage(ctx context.Context, m *chatmodel.Message) error
	MarkAllRead(ctx context.Context, userID string) error
	UnreadCount(ctx context.Context, userID string) (int64, error)
	ContactsOf(ctx context.Context, userID string) ([]*chatmodel.Contact, error)
	MessageByID(ctx context.Context, id int64) (*chatmodel.Message, error)
	MessagesBetween(ctx context.Context, a, b string, limit int) ([]*chatmodel.Message, error)
}

// PostCommitHook runs after a message is durably committed. Hooks execute in
// registration order; they must be quick (enqueue work, not do it).
type PostCommitHook func(ctx context.Context, m *chatmodel.Message)

// Service is the contact consistency engine plus the API the router and the
// REST layer share: record a message, mark a side read, read counters.
type Service struct {
	store Store
	hooks []PostCommitHook
}

func New(store Store) *Service {
	return &Service{store: store}
}

// AddPostCommit appends a hook. Call during boot only; the slice is not
// guarded after handlers start.
func (s *Service) AddPostCommit(h PostCommitHook) {
	s.hooks = append(s.hooks, h)
}

// RecordMessage validates the recipient, commits the message + read-status +
// contact summary atomically, then fires post-commit hooks. A contact
// uniqueness race (two first messages crossing) surfaces as ErrConsistency
// and is retried exactly once; the second attempt lands on the update path.
func (s *Service) RecordMessage(ctx context.Context, senderID, recipientID, content string) (*chatmodel.Message, error) {
	if senderID == "" || recipientID == "" || content == "" {
		return nil, errs.ErrProtocol.WrapMsg("sender, recipient and message are required")
	}
	if senderID == recipientID {
		return nil, errs.ErrProtocol.WrapMsg("cannot message yourself")
	}
	if _, err := s.store.UserByID(ctx, recipientID); err != nil {
		return nil, err
	}

	m := &chatmodel.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Content:     content,
	}
	err := s.store.SaveMessage(ctx, m)
	if errors.Is(err, errs.ErrConsistency) {
		logger.Warnf("[chat] contact race pair=%s, retrying once", m.PairKey())
		err = s.store.SaveMessage(ctx, m)
	}
	if err != nil {
		return nil, err
	}

	for _, h := range s.hooks {
		h(ctx, m)
	}
	return m, nil
}

// MarkAllRead resets the caller's side of every contact and flips the
// underlying read-status rows, then invalidates the cached counter.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.store.MarkAllRead(ctx, userID); err != nil {
		return err
	}
	storage.DelUnread(ctx, userID)
	return nil
}

// UnreadCount is cache-first with recompute-on-miss. Cache trouble never
// propagates; the durable store answer wins.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if n, ok := storage.GetUnread(ctx, userID); ok {
		return n, nil
	}
	n, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}
	storage.SetUnread(ctx, userID, n, storage.UnreadTTL)
	return n, nil
}

// ContactsOf lists the user's conversation summaries, most recent first.
func (s *Service) ContactsOf(ctx context.Context, userID string) ([]*chatmodel.Contact, error) {
	return s.store.ContactsOf(ctx, userID)
}

// MessagesBetween returns the 1:1 history with another user, newest first.
func (s *Service) MessagesBetween(ctx context.Context, userID, otherID string, limit int) ([]*chatmodel.Message, error) {
	return s.store.MessagesBetween(ctx, userID, otherID, limit)
}

func (s *Service) MessageByID(ctx context.Context, id int64) (*chatmodel.Message, error) {
	return s.store.MessageByID(ctx, id)
}

// RecomputeUnread bypasses the cache and refreshes it from ground truth; the
// fanout worker uses it so duplicate jobs stay idempotent.
func (s *Service) RecomputeUnread(ctx context.Context, userID string, ttl time.Duration) (int64, error) {
	n, err := s.store.UnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}
	storage.SetUnread(ctx, userID, n, ttl)
	return n, nil
}
