package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
	"github.com/and161185/docgate/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// Users is an in-memory user directory.
type Users struct {
	mu sync.RWMutex
	m  map[uuid.UUID]model.User
}

var _ repository.UserRepository = (*Users)(nil)

func (u *Users) Touch(_ context.Context, usr model.User) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	usr.SeenAt = time.Now().UTC()
	u.m[usr.ID] = usr
	return nil
}

func (u *Users) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	usr, ok := u.m[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &usr, nil
}

func (u *Users) ListAdmins(context.Context) ([]uuid.UUID, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	var out []uuid.UUID
	for id, usr := range u.m {
		if usr.Role == model.RoleAdmin {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// Notifications is an in-memory notification inbox.
type Notifications struct {
	mu   sync.Mutex
	list []model.Notification
}

var _ repository.NotificationRepository = (*Notifications)(nil)

// Insert appends x; an id that is already stored is ignored.
func (n *Notifications) Insert(_ context.Context, x *model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, have := range n.list {
		if have.ID == x.ID {
			x.CreatedAt = have.CreatedAt
			return nil
		}
	}
	x.CreatedAt = time.Now().UTC()
	n.list = append(n.list, *x)
	return nil
}

// ListForUser returns the newest notifications first.
func (n *Notifications) ListForUser(_ context.Context, userID uuid.UUID, limit int) ([]model.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []model.Notification
	for i := len(n.list) - 1; i >= 0; i-- {
		if n.list[i].UserID != userID {
			continue
		}
		out = append(out, n.list[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
