package service

import (
	"context"
	"time"

	"MeetChat/logger"
	"MeetChat/module/user/model"
	"MeetChat/service/storage"
)

// presenceTTL bounds how long a crashed gateway leaves users looking online.
const presenceTTL = 5 * time.Minute

// Store is the identity surface this core reads. Identity issuance lives in
// the identity collaborator; only presence attributes are written here.
type Store interface {
	UserByID(ctx context.Context, id string) (*model.User, error)
	SetPresence(ctx context.Context, id, status string, lastSeen time.Time) error
}

type Service struct {
	store     Store
	gatewayID string
}

func New(store Store, gatewayID string) *Service {
	return &Service{store: store, gatewayID: gatewayID}
}

// Resolve maps a user id to its record; ErrUserNotFound when absent.
func (s *Service) Resolve(ctx context.Context, id string) (*model.User, error) {
	return s.store.UserByID(ctx, id)
}

// Online records the connect transition: users row plus redis presence key.
// The presence key is advisory; the row update failing is only logged because
// a stale status must not break the connect path.
func (s *Service) Online(ctx context.Context, id string) {
	if err := s.store.SetPresence(ctx, id, model.StatusOnline, time.Now()); err != nil {
		logger.Warnf("[user] set online id=%s: %v", id, err)
	}
	storage.PresenceOnline(ctx, id, s.gatewayID, presenceTTL)
}

// Offline records the last-disconnect transition.
func (s *Service) Offline(ctx context.Context, id string) {
	if err := s.store.SetPresence(ctx, id, model.StatusOffline, time.Now()); err != nil {
		logger.Warnf("[user] set offline id=%s: %v", id, err)
	}
	storage.PresenceOffline(ctx, id)
}

// IsOnline consults the presence key (fail-soft false).
func (s *Service) IsOnline(ctx context.Context, id string) bool {
	_, online, err := storage.PresenceLookup(ctx, id)
	if err != nil {
		logger.Warnf("[user] presence lookup id=%s: %v", id, err)
		return false
	}
	return online
}
