// Package actor carries the authenticated user's identifier through request contexts.
package actor

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type contextKey struct{}

func With(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func From(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(contextKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// Require returns the acting user or ErrNotAuthenticated.
func Require(ctx context.Context) (uuid.UUID, error) {
	id, ok := From(ctx)
	if !ok {
		return uuid.Nil, ErrNotAuthenticated
	}
	return id, nil
}
