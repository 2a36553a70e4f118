package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/tix-ledger/internal/repository"
)

// SQLSTATE codes the store reacts to.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeNotNullViolation     = "23502"
)

var codeToErr = map[string]error{
	codeUniqueViolation:     repository.ErrConflict,
	codeForeignKeyViolation: repository.ErrConstraint,
	codeCheckViolation:      repository.ErrConstraint,
	codeNotNullViolation:    repository.ErrConstraint,
}

// IsRetryable reports whether err aborted a transaction that may succeed
// when run again.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if mapped, ok := codeToErr[pgErr.Code]; ok {
			if pgErr.ConstraintName != "" {
				return fmt.Errorf("%w (%s)", mapped, pgErr.ConstraintName)
			}
			return mapped
		}
	}

	return err
}

// wrapDBErr translates err and prefixes it with op.
func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s:%w", op, translateDBErr(err))
}
