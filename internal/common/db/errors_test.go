package db

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	pgx "github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
)

var (
	errTestNotFound = errors.New("not found")
	errTestConflict = errors.New("conflict")
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestHandleQueryError(t *testing.T) {
	start := time.Now()

	assert.NoError(t, HandleQueryError(nil, errTestNotFound, "find user by email", start))
	assert.ErrorIs(t, HandleQueryError(pgx.ErrNoRows, errTestNotFound, "find user by email", start), errTestNotFound)

	cause := errors.New("connection reset")
	err := HandleQueryError(cause, errTestNotFound, "find user by email", start)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, errTestNotFound)
	assert.Contains(t, err.Error(), "failed to find user by email")
}

func TestHandleExecError(t *testing.T) {
	start := time.Now()

	assert.NoError(t, HandleExecError(nil, errTestConflict, "create user", start))
	assert.ErrorIs(t, HandleExecError(&pgconn.PgError{Code: "23505"}, errTestConflict, "create user", start), errTestConflict)

	err := HandleExecError(&pgconn.PgError{Code: "08006"}, errTestConflict, "create user", start)
	assert.NotErrorIs(t, err, errTestConflict)
	assert.Contains(t, err.Error(), "failed to create user")
}
