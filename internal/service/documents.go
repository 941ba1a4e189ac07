package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/docgate/internal/blob"
	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
	"github.com/and161185/docgate/internal/policy"
	"github.com/and161185/docgate/internal/repository"
)

const (
	maxTitleLen  = 200
	defaultLimit = 10
	maxLimit     = 100
)

// DocumentService owns documents and their lifecycle.
//
//	ACTIVE --request-delete--> PENDING_DELETE --approve--> DELETED
//	ACTIVE --request-delete--> PENDING_DELETE --reject---> ACTIVE
//	ACTIVE --request-replace-> PENDING_REPLACE --approve-> ACTIVE (new blob)
//	ACTIVE --request-replace-> PENDING_REPLACE --reject--> ACTIVE
type DocumentService interface {
	// Create stores the upload and inserts an ACTIVE document at version 1.
	Create(ctx context.Context, meta model.DocumentMeta, up model.Upload, caller model.Principal) (*model.Document, error)
	// Get returns a document visible to caller.
	Get(ctx context.Context, id uuid.UUID, caller model.Principal) (*model.Document, error)
	// List returns one page of documents visible to caller.
	List(ctx context.Context, f model.DocumentFilter, caller model.Principal) (model.DocumentPage, error)
	// Update applies a metadata patch to an ACTIVE document.
	Update(ctx context.Context, id uuid.UUID, patch model.DocumentPatch, caller model.Principal) (*model.Document, error)
	// Content opens the current payload of a non-deleted document.
	Content(ctx context.Context, id uuid.UUID, caller model.Principal) (model.BlobRef, io.ReadCloser, error)
	// RequestDelete moves an ACTIVE document to PENDING_DELETE.
	RequestDelete(ctx context.Context, id uuid.UUID, caller model.Principal, expectedVer int64) (*model.Document, error)
	// RequestReplace moves an ACTIVE document to PENDING_REPLACE.
	RequestReplace(ctx context.Context, id uuid.UUID, caller model.Principal, expectedVer int64) (*model.Document, error)
	// ApproveReplace swaps in new content and reactivates the document.
	ApproveReplace(ctx context.Context, id uuid.UUID, up model.Upload) (*model.Document, error)
	// ApproveDelete removes the content and marks the document DELETED.
	ApproveDelete(ctx context.Context, id uuid.UUID) (*model.Document, error)
	// RejectAction returns a pending document to ACTIVE.
	RejectAction(ctx context.Context, id uuid.UUID) (*model.Document, error)
}

type DocumentServiceImpl struct {
	store repository.Store
	blobs blob.Store
	log   *zap.Logger
}

// NewDocumentService constructs DocumentService over a store and a blob store.
func NewDocumentService(store repository.Store, blobs blob.Store, log *zap.Logger) *DocumentServiceImpl {
	return &DocumentServiceImpl{
		store: store,
		blobs: blobs,
		log:   log.With(zap.String("component", "documents")),
	}
}

var _ DocumentService = (*DocumentServiceImpl)(nil)

// Create validates input, saves the blob and inserts the row. The blob is
// removed again when the insert fails.
func (s *DocumentServiceImpl) Create(ctx context.Context, meta model.DocumentMeta, up model.Upload, caller model.Principal) (*model.Document, error) {
	if caller.ID == uuid.Nil {
		return nil, errs.ErrUnauthorized
	}
	meta.Title = strings.TrimSpace(meta.Title)
	meta.Type = strings.TrimSpace(meta.Type)
	if err := validateMeta(meta); err != nil {
		return nil, err
	}
	if up.Body == nil || strings.TrimSpace(up.Name) == "" {
		return nil, fmt.Errorf("%w: file is required", errs.ErrInvalid)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	ref, err := s.blobs.Save(ctx, up.Body, up.Name)
	if err != nil {
		return nil, asStorage("blob save", err)
	}

	d := &model.Document{
		ID:          id,
		Title:       meta.Title,
		Description: meta.Description,
		Type:        meta.Type,
		Blob:        ref,
		CreatedBy:   caller.ID,
		Ver:         1,
		Status:      model.StatusActive,
	}
	if err := s.store.Documents().Insert(ctx, d); err != nil {
		s.dropBlob(ref.Key, "create rollback")
		return nil, asStorage("insert document", err)
	}
	s.log.Info("document created",
		zap.String("document_id", d.ID.String()),
		zap.String("created_by", caller.ID.String()),
		zap.Int64("size", ref.Size))
	return d, nil
}

func validateMeta(m model.DocumentMeta) error {
	switch {
	case m.Title == "":
		return fmt.Errorf("%w: title is required", errs.ErrInvalid)
	case utf8.RuneCountInString(m.Title) > maxTitleLen:
		return fmt.Errorf("%w: title exceeds %d characters", errs.ErrInvalid, maxTitleLen)
	case strings.TrimSpace(m.Description) == "":
		return fmt.Errorf("%w: description is required", errs.ErrInvalid)
	case m.Type == "":
		return fmt.Errorf("%w: type is required", errs.ErrInvalid)
	}
	return nil
}

// Get returns the document when caller is an admin or its creator.
func (s *DocumentServiceImpl) Get(ctx context.Context, id uuid.UUID, caller model.Principal) (*model.Document, error) {
	d, err := s.store.Documents().Get(ctx, id)
	if err != nil {
		return nil, asStorage("get document", err)
	}
	if err := policy.Check(policy.ViewDocument, caller, d.CreatedBy); err != nil {
		return nil, err
	}
	return d, nil
}

// List normalizes paging (page >= 1, 1 <= limit <= 100) and scopes
// non-admins to their own documents.
func (s *DocumentServiceImpl) List(ctx context.Context, f model.DocumentFilter, caller model.Principal) (model.DocumentPage, error) {
	if caller.ID == uuid.Nil {
		return model.DocumentPage{}, errs.ErrUnauthorized
	}
	if f.Status != "" && !f.Status.Valid() {
		return model.DocumentPage{}, fmt.Errorf("%w: unknown status %q", errs.ErrInvalid, f.Status)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	f.Search = strings.TrimSpace(f.Search)
	if !policy.Allowed(policy.ListAllDocuments, caller, uuid.Nil) {
		f.CreatedBy = caller.ID
	}

	docs, total, err := s.store.Documents().List(ctx, f)
	if err != nil {
		return model.DocumentPage{}, asStorage("list documents", err)
	}
	return model.DocumentPage{
		Documents:  docs,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: int((total + int64(f.Limit) - 1) / int64(f.Limit)),
	}, nil
}

// Update patches metadata. Pending documents are locked; deleted ones are inactive.
func (s *DocumentServiceImpl) Update(ctx context.Context, id uuid.UUID, patch model.DocumentPatch, caller model.Principal) (*model.Document, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", errs.ErrInvalid)
	}
	var out *model.Document
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		docs := tx.Documents()
		d, err := docs.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := policy.Check(policy.EditDocument, caller, d.CreatedBy); err != nil {
			return err
		}
		switch {
		case d.Status.Pending():
			return errs.ErrDocumentLocked
		case d.Status != model.StatusActive:
			return errs.ErrNotActive
		}

		meta := model.DocumentMeta{Title: d.Title, Description: d.Description, Type: d.Type}
		if patch.Title != nil {
			meta.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			meta.Description = *patch.Description
		}
		if patch.Type != nil {
			meta.Type = strings.TrimSpace(*patch.Type)
		}
		if err := validateMeta(meta); err != nil {
			return err
		}
		d.Title, d.Description, d.Type = meta.Title, meta.Description, meta.Type
		if err := bump(ctx, docs, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, asStorage("update document", err)
	}
	return out, nil
}

// Content opens the stored payload for an admin or the creator.
func (s *DocumentServiceImpl) Content(ctx context.Context, id uuid.UUID, caller model.Principal) (model.BlobRef, io.ReadCloser, error) {
	d, err := s.Get(ctx, id, caller)
	if err != nil {
		return model.BlobRef{}, nil, err
	}
	if d.Status == model.StatusDeleted {
		return model.BlobRef{}, nil, errs.ErrNotFound
	}
	rc, err := s.blobs.Open(ctx, d.Blob.Key)
	if err != nil {
		return model.BlobRef{}, nil, asStorage("blob open", err)
	}
	return d.Blob, rc, nil
}

// RequestDelete is a creator-only transition ACTIVE -> PENDING_DELETE.
func (s *DocumentServiceImpl) RequestDelete(ctx context.Context, id uuid.UUID, caller model.Principal, expectedVer int64) (*model.Document, error) {
	return s.request(ctx, id, caller, expectedVer, model.StatusPendingDelete)
}

// RequestReplace is a creator-only transition ACTIVE -> PENDING_REPLACE.
func (s *DocumentServiceImpl) RequestReplace(ctx context.Context, id uuid.UUID, caller model.Principal, expectedVer int64) (*model.Document, error) {
	return s.request(ctx, id, caller, expectedVer, model.StatusPendingReplace)
}

func (s *DocumentServiceImpl) request(ctx context.Context, id uuid.UUID, caller model.Principal, expectedVer int64, to model.DocumentStatus) (*model.Document, error) {
	var out *model.Document
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		d, err := s.requestTx(ctx, tx.Documents(), id, caller, expectedVer, to)
		out = d
		return err
	})
	if err != nil {
		return nil, asStorage("request "+strings.ToLower(string(to)), err)
	}
	return out, nil
}

// requestTx locks the row, checks owner, version and state, then moves it to status to.
func (s *DocumentServiceImpl) requestTx(ctx context.Context, docs repository.DocumentRepository, id uuid.UUID,
	caller model.Principal, expectedVer int64, to model.DocumentStatus) (*model.Document, error) {
	d, err := docs.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(policy.RequestChange, caller, d.CreatedBy); err != nil {
		return nil, err
	}
	if d.Ver != expectedVer {
		return nil, errs.ErrVersionMismatch
	}
	if d.Status != model.StatusActive {
		return nil, errs.ErrNotActive
	}
	d.Status = to
	if err := bump(ctx, docs, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ApproveReplace saves the new content, reactivates the document and drops
// the old content once the change is committed.
func (s *DocumentServiceImpl) ApproveReplace(ctx context.Context, id uuid.UUID, up model.Upload) (*model.Document, error) {
	var (
		out *model.Document
		bc  blobChange
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		d, err := s.approveReplaceTx(ctx, tx.Documents(), id, up, &bc)
		out = d
		return err
	})
	s.settle(bc, err == nil)
	if err != nil {
		return nil, asStorage("approve replace", err)
	}
	return out, nil
}

// blobChange records blob keys whose fate depends on the commit outcome.
type blobChange struct {
	added   string // delete if the transaction aborts
	retired string // delete once the transaction commits
}

// settle removes whichever blob the transaction outcome orphaned. Failures
// leave an unreferenced file behind and are only logged.
func (s *DocumentServiceImpl) settle(bc blobChange, committed bool) {
	if committed && bc.retired != "" {
		s.dropBlob(bc.retired, "retired")
	}
	if !committed && bc.added != "" {
		s.dropBlob(bc.added, "replace rollback")
	}
}

func (s *DocumentServiceImpl) dropBlob(key, why string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Warn("blob cleanup failed", zap.String("blob_key", key), zap.String("reason", why), zap.Error(err))
	}
}

func (s *DocumentServiceImpl) approveReplaceTx(ctx context.Context, docs repository.DocumentRepository, id uuid.UUID,
	up model.Upload, bc *blobChange) (*model.Document, error) {
	if up.Body == nil || strings.TrimSpace(up.Name) == "" {
		return nil, errs.ErrReplacementRequired
	}
	d, err := docs.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != model.StatusPendingReplace {
		return nil, errs.ErrNotPendingReplace
	}
	ref, err := s.blobs.Save(ctx, up.Body, up.Name)
	if err != nil {
		return nil, asStorage("blob save", err)
	}
	bc.added = ref.Key

	old := d.Blob.Key
	d.Blob = ref
	d.Status = model.StatusActive
	if err := bump(ctx, docs, d); err != nil {
		return nil, err
	}
	bc.retired = old
	return d, nil
}

// ApproveDelete marks the document DELETED. Its content is removed once the
// change is committed, so a rollback never loses it.
func (s *DocumentServiceImpl) ApproveDelete(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var (
		out *model.Document
		bc  blobChange
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		d, err := s.approveDeleteTx(ctx, tx.Documents(), id, &bc)
		out = d
		return err
	})
	s.settle(bc, err == nil)
	if err != nil {
		return nil, asStorage("approve delete", err)
	}
	return out, nil
}

func (s *DocumentServiceImpl) approveDeleteTx(ctx context.Context, docs repository.DocumentRepository, id uuid.UUID,
	bc *blobChange) (*model.Document, error) {
	d, err := docs.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != model.StatusPendingDelete {
		return nil, errs.ErrNotPendingDelete
	}
	d.Status = model.StatusDeleted
	if err := bump(ctx, docs, d); err != nil {
		return nil, err
	}
	bc.retired = d.Blob.Key
	return d, nil
}

// RejectAction returns a PENDING_* document to ACTIVE without touching content.
func (s *DocumentServiceImpl) RejectAction(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	var out *model.Document
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		d, err := rejectTx(ctx, tx.Documents(), id)
		out = d
		return err
	})
	if err != nil {
		return nil, asStorage("reject action", err)
	}
	return out, nil
}

func rejectTx(ctx context.Context, docs repository.DocumentRepository, id uuid.UUID) (*model.Document, error) {
	d, err := docs.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Status.Pending() {
		return nil, errs.ErrNotPending
	}
	d.Status = model.StatusActive
	if err := bump(ctx, docs, d); err != nil {
		return nil, err
	}
	return d, nil
}

// bump persists d with Ver+1, guarded by the version it was read at.
func bump(ctx context.Context, docs repository.DocumentRepository, d *model.Document) error {
	base := d.Ver
	d.Ver = base + 1
	if err := docs.Update(ctx, d, base); err != nil {
		d.Ver = base
		return err
	}
	return nil
}

// asStorage passes domain and context errors through and wraps anything
// else coming from a backend as errs.ErrStorage.
func asStorage(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrNotFound),
		errors.Is(err, errs.ErrForbidden),
		errors.Is(err, errs.ErrUnauthorized),
		errors.Is(err, errs.ErrInvalid),
		errors.Is(err, errs.ErrConflict),
		errors.Is(err, errs.ErrStorage),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return errs.Storage(op, err)
}
