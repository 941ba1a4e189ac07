package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
	"github.com/and161185/docgate/internal/repository"
	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
)

func newDoc(owner uuid.UUID, title string) *model.Document {
	return &model.Document{
		ID:        uuid.Must(uuid.NewV4()),
		Title:     title,
		Type:      "pdf",
		CreatedBy: owner,
		Ver:       1,
		Status:    model.StatusActive,
	}
}

func TestStore_WithinTx_RollbackDiscardsWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := newDoc(uuid.Must(uuid.NewV4()), "a")
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.Documents().Insert(ctx, d))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Documents().Get(ctx, d.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStore_WithinTx_Commit(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := newDoc(uuid.Must(uuid.NewV4()), "a")

	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Documents().Insert(ctx, d); err != nil {
			return err
		}
		return tx.Approvals().Insert(ctx, &model.Approval{
			ID: uuid.Must(uuid.NewV4()), Type: model.ApprovalDelete, DocumentID: d.ID, RequestedBy: d.CreatedBy,
		})
	})
	require.NoError(t, err)

	got, err := s.Documents().Get(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, "a", got.Title)
	p, err := s.Approvals().FindPending(ctx, d.ID)
	require.NoError(t, err)
	require.Equal(t, model.ApprovalPending, p.Status())
}

func TestDocuments_UpdateCAS(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := newDoc(uuid.Must(uuid.NewV4()), "a")
	require.NoError(t, s.Documents().Insert(ctx, d))

	upd := *d
	upd.Title, upd.Ver = "b", 2
	require.NoError(t, s.Documents().Update(ctx, &upd, 1))

	stale := *d
	stale.Title, stale.Ver = "c", 2
	require.ErrorIs(t, s.Documents().Update(ctx, &stale, 1), errs.ErrVersionMismatch)

	got, _ := s.Documents().Get(ctx, d.ID)
	require.Equal(t, "b", got.Title)
	require.Equal(t, int64(2), got.Ver)
	require.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestDocuments_ListFiltersAndPages(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice, bob := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	var ids []uuid.UUID
	for _, title := range []string{"Alpha report", "beta", "Gamma REPORT"} {
		d := newDoc(alice, title)
		require.NoError(t, s.Documents().Insert(ctx, d))
		ids = append(ids, d.ID)
	}
	gone := newDoc(bob, "deleted report")
	gone.Status = model.StatusDeleted
	require.NoError(t, s.Documents().Insert(ctx, gone))

	docs, total, err := s.Documents().List(ctx, model.DocumentFilter{Search: "report", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, ids[2], docs[0].ID) // newest first
	require.Equal(t, ids[0], docs[1].ID)

	docs, total, err = s.Documents().List(ctx, model.DocumentFilter{Status: model.StatusDeleted, Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, gone.ID, docs[0].ID)

	docs, total, err = s.Documents().List(ctx, model.DocumentFilter{CreatedBy: alice, Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, docs, 1)
	require.Equal(t, ids[0], docs[0].ID)

	docs, _, err = s.Documents().List(ctx, model.DocumentFilter{Page: 5, Limit: 2})
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestApprovals_SinglePending(t *testing.T) {
	s := New()
	ctx := context.Background()
	doc := uuid.Must(uuid.NewV4())
	req := uuid.Must(uuid.NewV4())

	a := &model.Approval{ID: uuid.Must(uuid.NewV4()), Type: model.ApprovalDelete, DocumentID: doc, RequestedBy: req}
	require.NoError(t, s.Approvals().Insert(ctx, a))

	dup := &model.Approval{ID: uuid.Must(uuid.NewV4()), Type: model.ApprovalReplace, DocumentID: doc, RequestedBy: req}
	require.ErrorIs(t, s.Approvals().Insert(ctx, dup), errs.ErrDuplicatePending)

	rv := model.Review{Outcome: model.ApprovalRejected, ReviewerID: uuid.Must(uuid.NewV4())}
	require.NoError(t, s.Approvals().Resolve(ctx, a.ID, rv))
	require.ErrorIs(t, s.Approvals().Resolve(ctx, a.ID, rv), errs.ErrAlreadyReviewed)

	// a resolved approval frees the slot
	require.NoError(t, s.Approvals().Insert(ctx, dup))

	pending, err := s.Approvals().List(ctx, model.ApprovalFilter{PendingOnly: true})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, dup.ID, pending[0].ID)

	all, err := s.Approvals().List(ctx, model.ApprovalFilter{RequestedBy: req})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, dup.ID, all[0].ID)
}

func TestApprovals_ReturnedCopiesAreIsolated(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := &model.Approval{ID: uuid.Must(uuid.NewV4()), Type: model.ApprovalDelete, DocumentID: uuid.Must(uuid.NewV4())}
	require.NoError(t, s.Approvals().Insert(ctx, a))
	require.NoError(t, s.Approvals().Resolve(ctx, a.ID, model.Review{Outcome: model.ApprovalApproved, Comment: "ok"}))

	got, err := s.Approvals().Get(ctx, a.ID)
	require.NoError(t, err)
	got.Review.Comment = "tampered"

	again, _ := s.Approvals().Get(ctx, a.ID)
	require.Equal(t, "ok", again.Review.Comment)
}

func TestStore_ConcurrentCASOneWinner(t *testing.T) {
	s := New()
	ctx := context.Background()
	d := newDoc(uuid.Must(uuid.NewV4()), "a")
	require.NoError(t, s.Documents().Insert(ctx, d))

	const n = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, lost int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			upd := *d
			upd.Ver = 2
			err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
				return tx.Documents().Update(ctx, &upd, 1)
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, errs.ErrVersionMismatch) {
				lost++
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, ok)
	require.Equal(t, n-1, lost)
}

func TestUsersAndNotifications(t *testing.T) {
	s := New()
	ctx := context.Background()
	admin, user := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())
	require.NoError(t, s.Users().Touch(ctx, model.User{ID: admin, Username: "root", Role: model.RoleAdmin}))
	require.NoError(t, s.Users().Touch(ctx, model.User{ID: user, Username: "u", Role: model.RoleUser}))

	admins, err := s.Users().ListAdmins(ctx)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{admin}, admins)

	// role follows the latest token
	require.NoError(t, s.Users().Touch(ctx, model.User{ID: admin, Username: "root", Role: model.RoleUser}))
	admins, _ = s.Users().ListAdmins(ctx)
	require.Empty(t, admins)

	for _, title := range []string{"one", "two", "three"} {
		require.NoError(t, s.Notifications().Insert(ctx, &model.Notification{ID: uuid.Must(uuid.NewV4()), UserID: user, Title: title}))
	}
	got, err := s.Notifications().ListForUser(ctx, user, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "three", got[0].Title)
	require.Equal(t, "two", got[1].Title)

	// a retried delivery with the same id is stored once
	dup := got[0]
	require.NoError(t, s.Notifications().Insert(ctx, &dup))
	all, err := s.Notifications().ListForUser(ctx, user, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}
