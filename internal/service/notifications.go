package service

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
	"github.com/and161185/docgate/internal/repository"
)

// InboxService exposes the notifications addressed to the caller.
type InboxService interface {
	List(ctx context.Context, caller model.Principal, limit int) ([]model.Notification, error)
}

type InboxServiceImpl struct {
	repo repository.NotificationRepository
}

// NewInboxService constructs InboxService.
func NewInboxService(repo repository.NotificationRepository) *InboxServiceImpl {
	return &InboxServiceImpl{repo: repo}
}

// List returns up to limit notifications, newest first (default 50, max 100).
func (s *InboxServiceImpl) List(ctx context.Context, caller model.Principal, limit int) ([]model.Notification, error) {
	if caller.ID == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	out, err := s.repo.ListForUser(ctx, caller.ID, limit)
	if err != nil {
		return nil, asStorage("list notifications", err)
	}
	return out, nil
}
