package service

import (
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

var (
	// ErrCredentialsTaken signals an email uniqueness violation on signup
	// or profile edit. The message deliberately names nothing else.
	ErrCredentialsTaken = errors.New("credentials taken")

	// ErrCredentialsIncorrect covers both unknown email and wrong password
	// so that callers cannot probe for account existence.
	ErrCredentialsIncorrect = errors.New("credentials incorrect")

	// ErrNotFound covers both "no such resource" and "exists but owned by
	// someone else" on every bookmark path.
	ErrNotFound = errors.New("resource not found")
)

const pgUniqueViolation = "23505"

// isUniqueViolation recognizes the uniqueness-constraint failure of the
// backing store. Any other persistence error propagates untouched.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite, used by the test suite
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
