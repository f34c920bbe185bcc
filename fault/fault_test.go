package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestCode(t *testing.T) {
	err := New(ErrConflict, "duplicate pending reservation")
	if Code(err) != ErrConflict {
		t.Fatalf("got %q; want %q", Code(err), ErrConflict)
	}

	wrapped := fmt.Errorf("handling request: %w", err)
	if Code(wrapped) != ErrConflict {
		t.Fatalf("wrapped: got %q; want %q", Code(wrapped), ErrConflict)
	}

	if Code(errors.New("plain")) != "" {
		t.Fatal("plain error should have no code")
	}
}

func TestRetryable(t *testing.T) {
	transient := Store("query failed", errors.New("conn reset"), true)
	if !Retryable(transient) {
		t.Fatal("transient store error should be retryable")
	}
	permanent := Store("constraint", errors.New("bad schema"), false)
	if Retryable(permanent) {
		t.Fatal("permanent store error should not be retryable")
	}
	if Retryable(New(ErrState, "not pending")) {
		t.Fatal("taxonomy errors are terminal")
	}
}

func TestStoreUnwrap(t *testing.T) {
	cause := errors.New("io timeout")
	err := Store("insert loan", cause, true)
	if !errors.Is(err, cause) {
		t.Fatal("store error should unwrap to its cause")
	}
}
