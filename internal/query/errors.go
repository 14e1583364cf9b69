package query

import (
	"context"
	"errors"
	"log/slog"

	"boardpacks/internal/actor"
	"boardpacks/internal/storage"

	"github.com/topi314/tint"
)

const (
	MessageNotAuthenticated = "Not authenticated"
	MessageUnexpected       = "An unexpected error occurred. Please try again."

	loggedErrorLimit = 200
)

// UserError is implemented by errors whose text is already safe to show, such as input
// validation failures.
type UserError interface {
	error
	UserMessage() string
}

var messages = []struct {
	target  error
	message string
}{
	{actor.ErrNotAuthenticated, MessageNotAuthenticated},
	{storage.ErrConflict, "A record with these details already exists."},
	{storage.ErrForbidden, "You do not have permission to perform this action."},
	{storage.ErrReference, "A related record no longer exists. Refresh and try again."},
	{storage.ErrNotFound, "The requested record could not be found."},
	{storage.ErrInvalidData, "Some of the submitted values are not valid."},
	{storage.ErrTransient, "The service is busy right now. Please try again."},
	{storage.ErrCommitUncertain, "Your change may already be saved. Refresh before trying again."},
	{context.DeadlineExceeded, "The request took too long. Please try again."},
}

// Message translates err into the sentence shown to the user. Backend error text is never part
// of the result.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var userErr UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage()
	}
	for _, m := range messages {
		if errors.Is(err, m.target) {
			return m.message
		}
	}
	return MessageUnexpected
}

// Retryable reports whether a failed store call may succeed if repeated unchanged.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var userErr UserError
	if errors.As(err, &userErr) {
		return false
	}
	return errors.Is(err, storage.ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}

// Report logs err for operators and returns the user-facing message for it.
func (c *Client) Report(ctx context.Context, op string, err error) string {
	if c.cfg.Prod {
		text := err.Error()
		if len(text) > loggedErrorLimit {
			text = text[:loggedErrorLimit] + "..."
		}
		slog.ErrorContext(ctx, "operation failed", slog.String("op", op), slog.String("err", text))
	} else {
		slog.ErrorContext(ctx, "operation failed", slog.String("op", op), tint.Err(err))
	}
	return Message(err)
}
