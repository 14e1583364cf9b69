package actor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestRequire(t *testing.T) {
	if _, err := Require(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if _, err := Require(With(context.Background(), uuid.Nil)); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("nil id must not authenticate, got %v", err)
	}

	id := uuid.New()
	got, err := Require(With(context.Background(), id))
	if err != nil || got != id {
		t.Fatalf("Require() = %v, %v; want %v", got, err, id)
	}
}
