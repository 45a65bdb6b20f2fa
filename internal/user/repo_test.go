package user

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"classtrack/internal/apperr"
	"classtrack/internal/model"
)

// failingConnector yields connections whose every statement fails with err,
// standing in for the database rejecting a write.
type failingConnector struct{ err error }

func (c failingConnector) Connect(context.Context) (driver.Conn, error) { return failingConn{c.err}, nil }
func (c failingConnector) Driver() driver.Driver                        { return nil }

type failingConn struct{ err error }

func (c failingConn) Prepare(string) (driver.Stmt, error) { return nil, c.err }
func (c failingConn) Close() error                        { return nil }
func (c failingConn) Begin() (driver.Tx, error)           { return nil, c.err }

func (c failingConn) QueryContext(context.Context, string, []driver.NamedValue) (driver.Rows, error) {
	return nil, c.err
}

func (c failingConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	return nil, c.err
}

func failingDB(err error) *sql.DB { return sql.OpenDB(failingConnector{err: err}) }

// A unique violation raised by the database itself, with no pre-check having
// run, must come back as the same conflict the pre-check would have produced:
// the constraint is the source of truth when a check-then-insert race is lost.
func TestCreateMapsUniqueViolationToConflict(t *testing.T) {
	repo := NewRepository(failingDB(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}))

	err := repo.Create(context.Background(), &model.User{Username: "janesmith", Name: "Jane Smith", Role: model.RoleStudent})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Username or email already taken", apperr.Message(err))
}

func TestCreatePassesOtherErrorsThrough(t *testing.T) {
	repo := NewRepository(failingDB(&pgconn.PgError{Code: "23503"}))

	err := repo.Create(context.Background(), &model.User{Username: "janesmith", Name: "Jane Smith", Role: model.RoleStudent})
	assert.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestUpdateEmailMapsUniqueViolationToConflict(t *testing.T) {
	repo := NewRepository(failingDB(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}))

	err := repo.UpdateEmail(context.Background(), "u1", "taken@example.com")
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, "Email is already taken by another user", apperr.Message(err))
}
