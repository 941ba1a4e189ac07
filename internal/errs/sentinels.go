// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the caller has no rights on the entity or action.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthorized indicates failed authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalid indicates a request that failed validation.
	ErrInvalid = errors.New("validation")

	// ErrConflict is matched by every state-machine and version conflict.
	ErrConflict = errors.New("conflict")

	// ErrStorage is matched by blob and record store failures wrapped with Storage.
	ErrStorage = errors.New("storage error")
)

// Conflict sentinels. Each one satisfies errors.Is(err, ErrConflict).
var (
	// ErrVersionMismatch indicates a stale optimistic-lock token; refetch and retry.
	ErrVersionMismatch = newConflict("version_mismatch", "document has been modified, refresh and try again")
	// ErrDocumentLocked indicates a direct edit on a document with an outstanding approval.
	ErrDocumentLocked = newConflict("document_locked", "document is pending approval and cannot be modified")
	ErrNotActive      = newConflict("not_active", "document is not in active state")
	// ErrNotPendingDelete is returned when approving a delete on a document that is not pending deletion.
	ErrNotPendingDelete    = newConflict("not_pending_delete", "document is not pending deletion")
	ErrNotPendingReplace   = newConflict("not_pending_replace", "document is not pending replacement")
	ErrNotPending          = newConflict("not_pending", "document is not pending any action")
	ErrAlreadyReviewed     = newConflict("already_reviewed", "approval has already been reviewed")
	ErrDuplicatePending    = newConflict("duplicate_pending", "there is already a pending approval for this document")
	ErrReplacementRequired = newConflict("replacement_required", "replacement file is required for approval")
)

// ConflictError is a state guard violation with a stable machine-readable reason.
type ConflictError struct {
	Reason string
	msg    string
}

func newConflict(reason, msg string) *ConflictError {
	return &ConflictError{Reason: reason, msg: msg}
}

func (e *ConflictError) Error() string { return e.msg }

// Is makes every ConflictError match ErrConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Reason returns the conflict reason carried by err, or "" if err is not a conflict.
func Reason(err error) string {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ""
}

// StorageError wraps a failure of an underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes every StorageError match ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Storage wraps err as a StorageError for op. A nil err stays nil.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
