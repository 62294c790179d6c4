// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors themselves.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the repositories translate.
const (
	mysqlDuplicateEntry = 1062
	mysqlDeadlock       = 1213
	mysqlLockTimeout    = 1205
)

// ErrConflict is returned when a delete or update cannot be performed
// because of conflicting state, such as deleting a user that still owns
// a store. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// isDuplicate reports whether err is a MySQL duplicate key violation.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), "1062")
}

// duplicateKey returns the name of the index a duplicate key error refers
// to, e.g. "uk_stores_email".  It returns "" for other errors.
func duplicateKey(err error) string {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return ""
	}
	// message format: Duplicate entry 'x' for key 'table.index'
	msg := me.Message
	i := strings.LastIndex(msg, "for key '")
	if i < 0 {
		return ""
	}
	key := strings.TrimSuffix(msg[i+len("for key '"):], "'")
	if dot := strings.LastIndex(key, "."); dot >= 0 {
		key = key[dot+1:]
	}
	return key
}

// IsLockConflict reports whether err is a deadlock or lock wait timeout
// raised by the database.  The current transaction has been rolled back
// by the server in that case.
func IsLockConflict(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDeadlock || me.Number == mysqlLockTimeout
	}
	return false
}
