package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeOfAndStatus(t *testing.T) {
	cases := []struct {
		err    error
		code   Code
		status int
	}{
		{Validation("bad"), CodeValidation, http.StatusBadRequest},
		{Unauthenticated("who"), CodeUnauthenticated, http.StatusUnauthorized},
		{Forbidden("no"), CodeForbidden, http.StatusForbidden},
		{NotFound("gone"), CodeNotFound, http.StatusNotFound},
		{Temporal("late"), CodeTemporal, http.StatusBadRequest},
		{Conflict("dup"), CodeConflict, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", Conflict("dup")), CodeConflict, http.StatusBadRequest},
		{&PartialFailureError{Op: "register", Err: errors.New("down")}, CodePartialFailure, http.StatusOK},
		{errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := CodeOf(c.err); got != c.code {
			t.Fatalf("CodeOf(%v) = %s, want %s", c.err, got, c.code)
		}
		if got := HTTPStatus(CodeOf(c.err)); got != c.status {
			t.Fatalf("HTTPStatus(%s) = %d, want %d", c.code, got, c.status)
		}
	}
}

func TestPublicMessageHidesInternals(t *testing.T) {
	err := Internal("could not load event", errors.New("mongo: connection refused"))
	if msg := PublicMessage(err); msg != "Something went wrong. Try again later." {
		t.Fatalf("internal message leaked: %q", msg)
	}
	if msg := PublicMessage(NotFound("Event not found")); msg != "Event not found" {
		t.Fatalf("got %q", msg)
	}
}

func TestPartialFailureUnwraps(t *testing.T) {
	cause := errors.New("pq: connection reset")
	err := &PartialFailureError{Op: "cancel", EventID: "e1", UserID: "u1", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
}
