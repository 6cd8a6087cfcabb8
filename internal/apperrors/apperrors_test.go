package apperrors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindOfWrapped(t *testing.T) {
	base := New(KindNotFound, "snippet not found")
	wrapped := fmt.Errorf("loading: %w", base)

	if got := KindOf(wrapped); got != KindNotFound {
		t.Fatalf("unexpected kind: %s", got)
	}
	if !Is(wrapped, KindNotFound) {
		t.Fatal("expected Is to match wrapped kind")
	}
}

func TestKindOfPlainError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("unexpected kind: %s", got)
	}
	if Is(nil, KindInternal) {
		t.Fatal("nil error must not match any kind")
	}
}

func TestErrorMessageFallbacks(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(KindUnavailable, "", cause)
	if err.Error() != cause.Error() {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected unwrap to reach cause")
	}

	bare := &Error{Kind: KindConflict}
	if bare.Error() != "conflict" {
		t.Fatalf("unexpected message: %s", bare.Error())
	}
}

func TestRateLimitCarriesRetryAfter(t *testing.T) {
	err := RateLimit("too many requests", 3*time.Second)
	if err.Kind != KindRateLimited || err.RetryAfter != 3*time.Second {
		t.Fatalf("unexpected error: %+v", err)
	}
}
