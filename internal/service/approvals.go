package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
	"github.com/and161185/docgate/internal/notify"
	"github.com/and161185/docgate/internal/policy"
	"github.com/and161185/docgate/internal/repository"
)

// Notifier delivers notifications after a change has been committed.
type Notifier interface {
	ToAdmins(ctx context.Context, n model.Notification) error
	ToUser(ctx context.Context, userID uuid.UUID, n model.Notification) error
}

// ApprovalService owns approval requests and applies reviews to documents.
type ApprovalService interface {
	// Create files a pending approval for a document visible to requester.
	Create(ctx context.Context, typ model.ApprovalType, documentID uuid.UUID, reason string, requester model.Principal) (*model.Approval, error)
	// Submit requests the document transition and files its approval in one unit of work.
	Submit(ctx context.Context, typ model.ApprovalType, documentID uuid.UUID, expectedVer int64, reason string, caller model.Principal) (*model.Approval, *model.Document, error)
	// List returns all pending approvals for admins and the caller's own otherwise.
	List(ctx context.Context, caller model.Principal, page model.ApprovalFilter) ([]model.Approval, error)
	// Get returns one approval visible to caller.
	Get(ctx context.Context, id uuid.UUID, caller model.Principal) (*model.Approval, error)
	// Review resolves a pending approval and applies the outcome to its document.
	Review(ctx context.Context, id uuid.UUID, d model.Decision, reviewer model.Principal) (*model.Approval, *model.Document, error)
}

type ApprovalServiceImpl struct {
	store  repository.Store
	docs   *DocumentServiceImpl
	notify Notifier
	now    func() time.Time
	log    *zap.Logger
}

// NewApprovalService wires the approval registry to the document registry and a notifier.
func NewApprovalService(store repository.Store, docs *DocumentServiceImpl, n Notifier, log *zap.Logger) *ApprovalServiceImpl {
	return &ApprovalServiceImpl{
		store:  store,
		docs:   docs,
		notify: n,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log.With(zap.String("component", "approvals")),
	}
}

var _ ApprovalService = (*ApprovalServiceImpl)(nil)

// Create inserts a pending approval without touching the document status.
// Administrators are notified after the insert commits.
func (s *ApprovalServiceImpl) Create(ctx context.Context, typ model.ApprovalType, documentID uuid.UUID, reason string, requester model.Principal) (*model.Approval, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: unknown approval type %q", errs.ErrInvalid, typ)
	}
	var (
		a   *model.Approval
		doc *model.Document
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		d, err := tx.Documents().Get(ctx, documentID)
		if err != nil {
			return err
		}
		if err := policy.Check(policy.ViewDocument, requester, d.CreatedBy); err != nil {
			return err
		}
		a, err = insertPending(ctx, tx.Approvals(), typ, documentID, reason, requester.ID)
		doc = d
		return err
	})
	if err != nil {
		return nil, asStorage("create approval", err)
	}
	s.requested(ctx, *a, doc.Title)
	return a, nil
}

// Submit runs the document's request transition and the approval insert
// together, so a PENDING_* document always has its pending approval.
func (s *ApprovalServiceImpl) Submit(ctx context.Context, typ model.ApprovalType, documentID uuid.UUID, expectedVer int64, reason string, caller model.Principal) (*model.Approval, *model.Document, error) {
	to, _ := pendingFor(typ)
	if to == "" {
		return nil, nil, fmt.Errorf("%w: unknown approval type %q", errs.ErrInvalid, typ)
	}

	var (
		a   *model.Approval
		doc *model.Document
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		d, err := s.docs.requestTx(ctx, tx.Documents(), documentID, caller, expectedVer, to)
		if err != nil {
			return err
		}
		doc = d
		a, err = insertPending(ctx, tx.Approvals(), typ, documentID, reason, caller.ID)
		return err
	})
	if err != nil {
		return nil, nil, asStorage("submit approval", err)
	}
	s.log.Info("approval submitted",
		zap.String("approval_id", a.ID.String()),
		zap.String("document_id", documentID.String()),
		zap.String("type", string(typ)),
		zap.Int64("ver", doc.Ver))
	s.requested(ctx, *a, doc.Title)
	return a, doc, nil
}

// pendingFor maps a request type to the document status it waits in and the
// error reported when the document is not there.
func pendingFor(typ model.ApprovalType) (model.DocumentStatus, error) {
	switch typ {
	case model.ApprovalDelete:
		return model.StatusPendingDelete, errs.ErrNotPendingDelete
	case model.ApprovalReplace:
		return model.StatusPendingReplace, errs.ErrNotPendingReplace
	}
	return "", errs.ErrInvalid
}

func insertPending(ctx context.Context, approvals repository.ApprovalRepository, typ model.ApprovalType,
	documentID uuid.UUID, reason string, requester uuid.UUID) (*model.Approval, error) {
	switch _, err := approvals.FindPending(ctx, documentID); {
	case err == nil:
		return nil, errs.ErrDuplicatePending
	case !errors.Is(err, errs.ErrNotFound):
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	a := &model.Approval{
		ID:          id,
		Type:        typ,
		DocumentID:  documentID,
		Reason:      strings.TrimSpace(reason),
		RequestedBy: requester,
	}
	if err := approvals.Insert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// List scopes the listing by role: admins see every pending approval,
// other callers their own requests in any status.
func (s *ApprovalServiceImpl) List(ctx context.Context, caller model.Principal, page model.ApprovalFilter) ([]model.Approval, error) {
	if caller.ID == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	f := model.ApprovalFilter{Limit: page.Limit, Offset: page.Offset}
	if caller.IsAdmin() {
		f.PendingOnly = true
	} else {
		f.RequestedBy = caller.ID
	}
	if f.Limit < 0 || f.Offset < 0 {
		return nil, fmt.Errorf("%w: negative limit or offset", errs.ErrInvalid)
	}
	out, err := s.store.Approvals().List(ctx, f)
	if err != nil {
		return nil, asStorage("list approvals", err)
	}
	return out, nil
}

// Get returns the approval to admins and to its requester.
func (s *ApprovalServiceImpl) Get(ctx context.Context, id uuid.UUID, caller model.Principal) (*model.Approval, error) {
	a, err := s.store.Approvals().Get(ctx, id)
	if err != nil {
		return nil, asStorage("get approval", err)
	}
	if !caller.IsAdmin() && a.RequestedBy != caller.ID {
		return nil, errs.ErrForbidden
	}
	return a, nil
}

// Review records the decision and applies it to the document in a single
// unit of work; the requester is notified after commit.
//
// An approval filed through Create leaves the document untouched. It is still
// resolved, and approving it returns ErrNotPendingDelete or ErrNotPendingReplace
// alongside the resolved approval.
func (s *ApprovalServiceImpl) Review(ctx context.Context, id uuid.UUID, dec model.Decision, reviewer model.Principal) (*model.Approval, *model.Document, error) {
	if err := policy.Check(policy.ReviewApproval, reviewer, uuid.Nil); err != nil {
		return nil, nil, err
	}
	if dec.Outcome != model.ApprovalApproved && dec.Outcome != model.ApprovalRejected {
		return nil, nil, fmt.Errorf("%w: outcome must be APPROVED or REJECTED", errs.ErrInvalid)
	}

	var (
		a         *model.Approval
		doc       *model.Document
		bc        blobChange
		unapplied error
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		a, err = tx.Approvals().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a.Status() != model.ApprovalPending {
			return errs.ErrAlreadyReviewed
		}
		approved := dec.Outcome == model.ApprovalApproved
		if approved && a.Type == model.ApprovalReplace && dec.Replacement == nil {
			return errs.ErrReplacementRequired
		}

		rv := model.Review{
			Outcome:    dec.Outcome,
			ReviewerID: reviewer.ID,
			Comment:    strings.TrimSpace(dec.Comment),
			ReviewedAt: s.now(),
		}
		if err := tx.Approvals().Resolve(ctx, a.ID, rv); err != nil {
			return err
		}
		a.Review = &rv

		docs := tx.Documents()
		cur, err := docs.GetForUpdate(ctx, a.DocumentID)
		if err != nil {
			return err
		}
		want, guard := pendingFor(a.Type)
		if cur.Status != want {
			// Filed through Create without the request transition: the
			// request is closed and the document stays as it is.
			doc = cur
			if approved {
				unapplied = guard
			}
			return nil
		}

		switch {
		case !approved:
			doc, err = rejectTx(ctx, docs, a.DocumentID)
		case a.Type == model.ApprovalDelete:
			doc, err = s.docs.approveDeleteTx(ctx, docs, a.DocumentID, &bc)
		default:
			doc, err = s.docs.approveReplaceTx(ctx, docs, a.DocumentID, *dec.Replacement, &bc)
		}
		return err
	})
	s.docs.settle(bc, err == nil)
	if err != nil {
		return nil, nil, asStorage("review approval", err)
	}

	if unapplied != nil {
		s.log.Warn("approval resolved without a document transition",
			zap.String("approval_id", a.ID.String()),
			zap.String("document_id", a.DocumentID.String()),
			zap.String("document_status", string(doc.Status)),
			zap.String("outcome", string(dec.Outcome)))
	} else {
		s.log.Info("approval reviewed",
			zap.String("approval_id", a.ID.String()),
			zap.String("document_id", a.DocumentID.String()),
			zap.String("outcome", string(dec.Outcome)),
			zap.String("reviewer", reviewer.ID.String()),
			zap.Int64("ver", doc.Ver))
	}

	nctx := context.WithoutCancel(ctx)
	if err := s.notify.ToUser(nctx, a.RequestedBy, notify.ApprovalResolved(*a)); err != nil {
		s.log.Error("requester notification failed",
			zap.String("approval_id", a.ID.String()),
			zap.String("document_id", a.DocumentID.String()),
			zap.String("user_id", a.RequestedBy.String()),
			zap.Error(err))
	}
	return a, doc, unapplied
}

// requested tells every administrator about a new request. Failures are
// logged and never reach the caller.
func (s *ApprovalServiceImpl) requested(ctx context.Context, a model.Approval, title string) {
	nctx := context.WithoutCancel(ctx)
	if err := s.notify.ToAdmins(nctx, notify.ApprovalRequested(a, title)); err != nil {
		s.log.Error("admin notification failed",
			zap.String("approval_id", a.ID.String()),
			zap.String("document_id", a.DocumentID.String()),
			zap.Error(err))
	}
}
