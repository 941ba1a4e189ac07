// Package model defines domain entities used by services and repositories.
package model

import (
	"io"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Role is the caller role resolved by the identity provider.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is the authenticated caller of an operation.
type Principal struct {
	ID   uuid.UUID
	Name string
	Role Role
}

// IsAdmin reports whether the principal holds the administrator role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// User is a directory entry mirrored from verified identities.
type User struct {
	ID       uuid.UUID
	Username string
	Role     Role
	SeenAt   time.Time
}

// DocumentStatus is the lifecycle state of a document.
type DocumentStatus string

const (
	StatusActive         DocumentStatus = "ACTIVE"
	StatusPendingDelete  DocumentStatus = "PENDING_DELETE"
	StatusPendingReplace DocumentStatus = "PENDING_REPLACE"
	StatusDeleted        DocumentStatus = "DELETED"
)

// Pending reports whether an approval is outstanding against the document.
func (s DocumentStatus) Pending() bool {
	return s == StatusPendingDelete || s == StatusPendingReplace
}

// Valid reports whether s is a known status.
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPendingDelete, StatusPendingReplace, StatusDeleted:
		return true
	}
	return false
}

// BlobRef points at stored document content.
type BlobRef struct {
	Key      string // opaque blob store key
	Name     string // original file name
	Size     int64
	Checksum string // hex BLAKE2b-256 of the content
}

// Document is a managed document record. Rows are never removed; DELETED is terminal.
type Document struct {
	ID          uuid.UUID
	Title       string
	Description string
	Type        string
	Blob        BlobRef
	CreatedBy   uuid.UUID
	Ver         int64 // optimistic-lock token, strictly increasing
	Status      DocumentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DocumentMeta is the caller-supplied metadata of a new document.
type DocumentMeta struct {
	Title       string
	Description string
	Type        string
}

// Upload is file content supplied by a caller.
type Upload struct {
	Name string // original file name
	Body io.Reader
}

// DocumentPatch is a partial metadata update; nil fields are left unchanged.
type DocumentPatch struct {
	Title       *string
	Description *string
	Type        *string
}

// Empty reports whether the patch changes nothing.
func (p DocumentPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Type == nil
}

// DocumentFilter selects a page of documents.
type DocumentFilter struct {
	Search    string
	Type      string
	Status    DocumentStatus // empty: everything except DELETED
	CreatedBy uuid.UUID      // uuid.Nil: any creator
	Page      int
	Limit     int
}

// Offset returns the row offset of the filter's page.
func (f DocumentFilter) Offset() int { return (f.Page - 1) * f.Limit }

// DocumentPage is one page of a document listing.
type DocumentPage struct {
	Documents  []Document
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// ApprovalType is the destructive action an approval gates.
type ApprovalType string

const (
	ApprovalDelete  ApprovalType = "DELETE"
	ApprovalReplace ApprovalType = "REPLACE"
)

// Valid reports whether t is a known approval type.
func (t ApprovalType) Valid() bool { return t == ApprovalDelete || t == ApprovalReplace }

// ActionText is the noun used in notifications for the action.
func (t ApprovalType) ActionText() string {
	if t == ApprovalDelete {
		return "deletion"
	}
	return "replacement"
}

// ApprovalStatus is the state of an approval request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Review is the terminal resolution of an approval.
type Review struct {
	Outcome    ApprovalStatus // APPROVED or REJECTED
	ReviewerID uuid.UUID
	Comment    string
	ReviewedAt time.Time
}

// Decision is an administrator's verdict on an approval. Replacement
// carries the new content when a REPLACE request is approved.
type Decision struct {
	Outcome     ApprovalStatus
	Comment     string
	Replacement *Upload
}

// Approval is a request to delete or replace a document. Review is nil while pending.
type Approval struct {
	ID          uuid.UUID
	Type        ApprovalType
	DocumentID  uuid.UUID
	Reason      string
	RequestedBy uuid.UUID
	CreatedAt   time.Time
	Review      *Review
}

// Status derives the approval status from its review.
func (a Approval) Status() ApprovalStatus {
	if a.Review == nil {
		return ApprovalPending
	}
	return a.Review.Outcome
}

// ApprovalFilter selects approvals for a listing.
type ApprovalFilter struct {
	PendingOnly bool
	RequestedBy uuid.UUID // uuid.Nil: any requester
	Limit       int       // 0: no limit
	Offset      int
}

// Notification types emitted by the approval registry.
const (
	NotifyApprovalRequested = "APPROVAL_REQUESTED"
	NotifyApprovalApproved  = "APPROVAL_APPROVED"
	NotifyApprovalRejected  = "APPROVAL_REJECTED"
)

// Notification is an event addressed to a single user.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Type      string
	Title     string
	Message   string
	Metadata  map[string]string
	CreatedAt time.Time
}
