package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/tix-ledger/internal/repository"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryable(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40P01"})))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestTranslateDBErr(t *testing.T) {
	other := errors.New("boom")

	cases := []struct {
		name string
		in   error
		want error
	}{
		{name: "nil", in: nil, want: nil},
		{name: "no rows", in: pgx.ErrNoRows, want: repository.ErrNotFound},
		{name: "unique", in: &pgconn.PgError{Code: "23505", ConstraintName: "ledgers_pkey"}, want: repository.ErrConflict},
		{name: "check", in: &pgconn.PgError{Code: "23514"}, want: repository.ErrConstraint},
		{name: "foreign key", in: &pgconn.PgError{Code: "23503"}, want: repository.ErrConstraint},
		{name: "other", in: other, want: other},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := translateDBErr(tc.in)
			if tc.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tc.want)
		})
	}
}

func TestWrapDBErr_KeepsConstraintName(t *testing.T) {
	err := wrapDBErr("postgres.LedgerRepo.Create", &pgconn.PgError{Code: "23505", ConstraintName: "ledgers_pkey"})

	assert.ErrorIs(t, err, repository.ErrConflict)
	assert.EqualError(t, err, "postgres.LedgerRepo.Create:conflict (ledgers_pkey)")
}
