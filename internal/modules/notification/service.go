// README: Notification inbox reads and device-token registration.
package notification

import (
	"context"
	"strings"

	"hatid/internal/types"
)

const listLimit = 50

// Inbox is the read side of the notification store.
type Inbox interface {
	ListByUser(ctx context.Context, userID types.ID, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID types.ID) (bool, error)
	SaveToken(ctx context.Context, userID types.ID, token string) error
}

type Service struct {
	store Inbox
}

func NewService(store Inbox) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context, userID types.ID) ([]Notification, error) {
	return s.store.ListByUser(ctx, userID, listLimit)
}

// MarkRead reports ErrNotFound for ids that do not belong to userID.
func (s *Service) MarkRead(ctx context.Context, id, userID types.ID) error {
	if id == "" {
		return ErrBadRequest
	}
	ok, err := s.store.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) RegisterToken(ctx context.Context, userID types.ID, token string) error {
	token = strings.TrimSpace(token)
	if userID == "" || token == "" {
		return ErrBadRequest
	}
	return s.store.SaveToken(ctx, userID, token)
}
