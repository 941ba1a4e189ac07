package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestConflicts_MatchErrConflict(t *testing.T) {
	t.Parallel()

	all := []error{
		ErrVersionMismatch, ErrDocumentLocked, ErrNotActive, ErrNotPendingDelete,
		ErrNotPendingReplace, ErrNotPending, ErrAlreadyReviewed, ErrDuplicatePending,
		ErrReplacementRequired,
	}
	seen := map[string]bool{}
	for _, e := range all {
		wrapped := fmt.Errorf("op: %w", e)
		if !errors.Is(wrapped, ErrConflict) {
			t.Fatalf("%v: want ErrConflict match", e)
		}
		if !errors.Is(wrapped, e) {
			t.Fatalf("%v: want self match through wrap", e)
		}
		r := Reason(wrapped)
		if r == "" || seen[r] {
			t.Fatalf("reason %q empty or duplicated", r)
		}
		seen[r] = true
	}
	if errors.Is(ErrNotActive, ErrNotPending) {
		t.Fatalf("distinct conflicts must not match each other")
	}
	if Reason(ErrNotFound) != "" {
		t.Fatalf("non-conflict must have empty reason")
	}
}

func TestStorage_WrapsAndMatches(t *testing.T) {
	t.Parallel()

	if Storage("save", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	cause := errors.New("disk full")
	err := Storage("save", cause)
	if !errors.Is(err, ErrStorage) || !errors.Is(err, cause) {
		t.Fatalf("want ErrStorage and cause match, got %v", err)
	}
	if errors.Is(err, ErrConflict) {
		t.Fatalf("storage error must not be a conflict")
	}
	if got := err.Error(); got != "storage: save: disk full" {
		t.Fatalf("message: %q", got)
	}
}
