// Package policy evaluates who may perform which action on a document or approval.
package policy

import (
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/docgate/internal/errs"
	"github.com/and161185/docgate/internal/model"
)

// Action is an operation subject to authorization.
type Action int

const (
	// ViewDocument covers get, download and approval creation access checks.
	ViewDocument Action = iota
	// EditDocument covers direct metadata updates.
	EditDocument
	// RequestChange covers request-delete and request-replace.
	RequestChange
	// ReviewApproval covers approving or rejecting an approval.
	ReviewApproval
	// ListAllDocuments lets a listing span every creator.
	ListAllDocuments
)

func (a Action) String() string {
	switch a {
	case ViewDocument:
		return "view_document"
	case EditDocument:
		return "edit_document"
	case RequestChange:
		return "request_change"
	case ReviewApproval:
		return "review_approval"
	case ListAllDocuments:
		return "list_all_documents"
	}
	return "unknown"
}

// Allowed reports whether p may perform a on an entity owned by owner.
// owner is uuid.Nil for actions that are not tied to an entity.
//
// Admins view, edit and review everything. Requesting a destructive change is
// owner-only: the approval step is where administrative power is exercised.
func Allowed(a Action, p model.Principal, owner uuid.UUID) bool {
	if p.ID == uuid.Nil {
		return false
	}
	isOwner := owner != uuid.Nil && p.ID == owner
	switch a {
	case ViewDocument, EditDocument:
		return p.IsAdmin() || isOwner
	case RequestChange:
		return isOwner
	case ReviewApproval, ListAllDocuments:
		return p.IsAdmin()
	}
	return false
}

// Check is Allowed returning errs.ErrForbidden on deny.
func Check(a Action, p model.Principal, owner uuid.UUID) error {
	if !Allowed(a, p, owner) {
		return errs.ErrForbidden
	}
	return nil
}
