package httptransport

import (
	"context"
	"errors"
	"net/http"

	"boardpacks/internal/httpx"
	"boardpacks/internal/query"
	"boardpacks/internal/service"
	"boardpacks/internal/storage"
)

func statusFor(err error) int {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, storage.ErrReference), errors.Is(err, storage.ErrInvalidData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrTransient), errors.Is(err, storage.ErrCommitUncertain),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the user-facing sentence for err. Validation failures are expected and
// not logged as errors.
func writeError(w http.ResponseWriter, r *http.Request, q *query.Client, op string, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		httpx.FieldError(w, http.StatusUnprocessableEntity, verr.Field, verr.UserMessage())
		return
	}
	httpx.Error(w, statusFor(err), q.Report(r.Context(), op, err))
}

// writeBodyError answers a request whose body could not be decoded. A malformed meeting date is
// reported against its field.
func writeBodyError(w http.ResponseWriter, err error) {
	var derr *dateError
	if errors.As(err, &derr) {
		httpx.FieldError(w, http.StatusUnprocessableEntity, "meeting_date", "Meeting date must look like "+dateLayout)
		return
	}
	httpx.Error(w, http.StatusBadRequest, "Invalid request body")
}
