package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrForbidden   = errors.New("permission denied")
	ErrReference   = errors.New("referenced record missing")
	ErrInvalidData = errors.New("invalid data")
	ErrTransient   = errors.New("transient storage failure")

	// ErrCommitUncertain means COMMIT was sent but its outcome is unknown. It is never retried.
	ErrCommitUncertain = errors.New("commit outcome unknown")
)

// Classify maps a pgx error onto the storage sentinel errors, keeping the original in the chain.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %w", ErrConflict, err)
		case "42501":
			return fmt.Errorf("%w: %w", ErrForbidden, err)
		case "23503":
			return fmt.Errorf("%w: %w", ErrReference, err)
		case "23502", "23514", "22P02", "22007", "22008":
			return fmt.Errorf("%w: %w", ErrInvalidData, err)
		case "40001", "40P01":
			return fmt.Errorf("%w: %w", ErrTransient, err)
		}
		return err
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

// ClassifyCommit classifies an error returned by COMMIT. Server-reported failures and errors
// raised before anything was sent keep their usual class. A timeout or a broken connection
// after the request went out may hide a commit that landed, so it is reported as
// ErrCommitUncertain with the cause flattened out of the chain.
func ClassifyCommit(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) || pgconn.SafeToRetry(err) {
		return Classify(err)
	}
	return fmt.Errorf("%w: %v", ErrCommitUncertain, err)
}
