package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/kirinyoku/tix-booking/internal/repository"
)

func TestWrapDBErr(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{codeUniqueViolation, repository.ErrConflict},
		{codeCheckViolation, repository.ErrCheckViolation},
		{codeForeignKeyViolation, repository.ErrNotFound},
		{codeInvalidTextRepr, repository.ErrInvalidID},
	}
	for _, tc := range cases {
		err := wrapDBErr("op", &pgconn.PgError{Code: tc.code})
		assert.ErrorIs(t, err, tc.want, tc.code)
	}

	assert.ErrorIs(t, wrapDBErr("op", pgx.ErrNoRows), repository.ErrNotFound)
	assert.NoError(t, wrapDBErr("op", nil))

	other := errors.New("connection reset")
	assert.ErrorIs(t, wrapDBErr("op", other), other)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: codeSerializationFailure}))
	assert.True(t, IsRetryable(fmt.Errorf("commit: %w", &pgconn.PgError{Code: codeDeadlockDetected})))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: codeUniqueViolation}))
	assert.False(t, IsRetryable(errors.New("boom")))
}
