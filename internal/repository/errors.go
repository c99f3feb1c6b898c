// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist, or an
// update matched no row.  Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state: a unique key already taken, or a conditional update
// whose precondition no longer holds.  Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when a staff email is already registered.
var ErrEmailExists = errors.New("email already exists")

// mysqlDuplicateEntry is the server error number for unique violations.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL unique key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return err != nil && strings.Contains(err.Error(), "1062")
}

// notFound maps sql.ErrNoRows onto ErrNotFound and passes anything else.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// affected returns ErrNotFound when the statement touched no row.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
