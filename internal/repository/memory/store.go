// Package memory is an in-process repository backend. Transactions are
// serialized: WithinTx holds the store lock while fn runs against a private
// copy of the state, and the copy replaces the state only when fn succeeds.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
	"github.com/and161185/docgate/internal/repository"
	"github.com/gofrs/uuid/v5"
)

type state struct {
	docs      map[uuid.UUID]model.Document
	approvals map[uuid.UUID]model.Approval
}

func (s *state) clone() *state {
	c := &state{
		docs:      make(map[uuid.UUID]model.Document, len(s.docs)),
		approvals: make(map[uuid.UUID]model.Approval, len(s.approvals)),
	}
	for k, v := range s.docs {
		c.docs[k] = v
	}
	for k, v := range s.approvals {
		c.approvals[k] = cloneApproval(v)
	}
	return c
}

func cloneApproval(a model.Approval) model.Approval {
	if a.Review != nil {
		rv := *a.Review
		a.Review = &rv
	}
	return a
}

// Store is a repository.Store kept in memory.
type Store struct {
	mu   sync.Mutex
	st   *state
	now  func() time.Time
	last time.Time

	users *Users
	notes *Notifications
}

// New returns an empty store.
func New() *Store {
	s := &Store{
		st:    &state{docs: map[uuid.UUID]model.Document{}, approvals: map[uuid.UUID]model.Approval{}},
		users: &Users{m: map[uuid.UUID]model.User{}},
		notes: &Notifications{},
	}
	s.now = s.tick
	return s
}

// tick is a strictly increasing clock so that created_at ordering is stable.
// Callers hold s.mu.
func (s *Store) tick() time.Time {
	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

var _ repository.Store = (*Store)(nil)

// WithinTx runs fn against a snapshot and publishes it when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, txView{st: work, now: s.now}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Documents returns a document repository outside any transaction.
func (s *Store) Documents() repository.DocumentRepository { return &lockedDocs{s: s} }

// Approvals returns an approval repository outside any transaction.
func (s *Store) Approvals() repository.ApprovalRepository { return &lockedApprovals{s: s} }

// Users returns the user directory.
func (s *Store) Users() *Users { return s.users }

// Notifications returns the notification inbox.
func (s *Store) Notifications() *Notifications { return s.notes }

type txView struct {
	st  *state
	now func() time.Time
}

func (t txView) Documents() repository.DocumentRepository { return docRepo{st: t.st, now: t.now} }
func (t txView) Approvals() repository.ApprovalRepository { return approvalRepo{st: t.st, now: t.now} }

type docRepo struct {
	st  *state
	now func() time.Time
}

func (r docRepo) Insert(_ context.Context, d *model.Document) error {
	if _, ok := r.st.docs[d.ID]; ok {
		return errs.ErrConflict
	}
	ts := r.now()
	d.CreatedAt, d.UpdatedAt = ts, ts
	r.st.docs[d.ID] = *d
	return nil
}

func (r docRepo) Get(_ context.Context, id uuid.UUID) (*model.Document, error) {
	d, ok := r.st.docs[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &d, nil
}

func (r docRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	return r.Get(ctx, id)
}

func (r docRepo) Update(_ context.Context, d *model.Document, baseVer int64) error {
	cur, ok := r.st.docs[d.ID]
	if !ok || cur.Ver != baseVer {
		return errs.ErrVersionMismatch
	}
	d.CreatedAt = cur.CreatedAt
	d.CreatedBy = cur.CreatedBy
	d.UpdatedAt = r.now()
	r.st.docs[d.ID] = *d
	return nil
}

func (r docRepo) List(_ context.Context, f model.DocumentFilter) ([]model.Document, int64, error) {
	var hits []model.Document
	q := strings.ToLower(f.Search)
	for _, d := range r.st.docs {
		switch {
		case f.CreatedBy != uuid.Nil && d.CreatedBy != f.CreatedBy:
			continue
		case f.Type != "" && d.Type != f.Type:
			continue
		case f.Status != "" && d.Status != f.Status:
			continue
		case f.Status == "" && d.Status == model.StatusDeleted:
			continue
		case q != "" && !strings.Contains(strings.ToLower(d.Title), q) &&
			!strings.Contains(strings.ToLower(d.Description), q):
			continue
		}
		hits = append(hits, d)
	}
	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		}
		return hits[i].ID.String() < hits[j].ID.String()
	})
	total := int64(len(hits))
	return window(hits, f.Offset(), f.Limit), total, nil
}

type approvalRepo struct {
	st  *state
	now func() time.Time
}

func (r approvalRepo) Insert(_ context.Context, a *model.Approval) error {
	if _, ok := r.st.approvals[a.ID]; ok {
		return errs.ErrConflict
	}
	for _, x := range r.st.approvals {
		if x.DocumentID == a.DocumentID && x.Review == nil {
			return errs.ErrDuplicatePending
		}
	}
	a.CreatedAt = r.now()
	a.Review = nil
	r.st.approvals[a.ID] = *a
	return nil
}

func (r approvalRepo) Get(_ context.Context, id uuid.UUID) (*model.Approval, error) {
	a, ok := r.st.approvals[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	a = cloneApproval(a)
	return &a, nil
}

func (r approvalRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Approval, error) {
	return r.Get(ctx, id)
}

func (r approvalRepo) FindPending(_ context.Context, documentID uuid.UUID) (*model.Approval, error) {
	for _, a := range r.st.approvals {
		if a.DocumentID == documentID && a.Review == nil {
			a = cloneApproval(a)
			return &a, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r approvalRepo) Resolve(_ context.Context, id uuid.UUID, rv model.Review) error {
	a, ok := r.st.approvals[id]
	if !ok || a.Review != nil {
		return errs.ErrAlreadyReviewed
	}
	a.Review = &rv
	r.st.approvals[id] = a
	return nil
}

func (r approvalRepo) List(_ context.Context, f model.ApprovalFilter) ([]model.Approval, error) {
	var out []model.Approval
	for _, a := range r.st.approvals {
		if f.PendingOnly && a.Review != nil {
			continue
		}
		if f.RequestedBy != uuid.Nil && a.RequestedBy != f.RequestedBy {
			continue
		}
		out = append(out, cloneApproval(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return window(out, f.Offset, f.Limit), nil
}

// window returns s[off:off+limit]; limit <= 0 means no upper bound.
func window[T any](s []T, off, limit int) []T {
	if off < 0 {
		off = 0
	}
	if off >= len(s) {
		return nil
	}
	s = s[off:]
	if limit > 0 && limit < len(s) {
		s = s[:limit]
	}
	return s
}

// lockedDocs and lockedApprovals serve single statements outside WithinTx.
type lockedDocs struct{ s *Store }

func (l *lockedDocs) repo() docRepo { return docRepo{st: l.s.st, now: l.s.now} }

func (l *lockedDocs) Insert(ctx context.Context, d *model.Document) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.repo().Insert(ctx, d)
}

func (l *lockedDocs) Get(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.repo().Get(ctx, id)
}

func (l *lockedDocs) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	return l.Get(ctx, id)
}

func (l *lockedDocs) Update(ctx context.Context, d *model.Document, baseVer int64) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.repo().Update(ctx, d, baseVer)
}

func (l *lockedDocs) List(ctx context.Context, f model.DocumentFilter) ([]model.Document, int64, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.repo().List(ctx, f)
}

type lockedApprovals struct{ s *Store }

func (l *lockedApprovals) repo() approvalRepo { return approvalRepo{st: l.s.st, now: l.s.now} }

func (l *lockedApprovals) Insert(ctx context.Context, a *model.Approval) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.repo().Insert(ctx, a)
}

func (l *lockedApprovals) Get(ctx context.Context, id uuid.UUID) (*model.Approval, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.repo().Get(ctx, id)
}

func (l *lockedApprovals) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Approval, error) {
	return l.Get(ctx, id)
}

func (l *lockedApprovals) FindPending(ctx context.Context, documentID uuid.UUID) (*model.Approval, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.repo().FindPending(ctx, documentID)
}

func (l *lockedApprovals) Resolve(ctx context.Context, id uuid.UUID, rv model.Review) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.repo().Resolve(ctx, id, rv)
}

func (l *lockedApprovals) List(ctx context.Context, f model.ApprovalFilter) ([]model.Approval, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.repo().List(ctx, f)
}
