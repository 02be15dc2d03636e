package store

import (
	"database/sql/driver"
	"errors"
	"strings"
)

// sqlStateError is satisfied by pgdriver.Error.
type sqlStateError interface {
	Field(k byte) string
}

// isTransactionAbort reports failures that leave pooled connections in an
// unusable state. Only these trigger a pool reset.
func isTransactionAbort(err error) bool {
	if err == nil {
		return false
	}

	var pgErr sqlStateError
	if errors.As(err, &pgErr) {
		code := pgErr.Field('C')
		// Class 40 is transaction rollback; 25P02 is in_failed_sql_transaction.
		if strings.HasPrefix(code, "40") || code == "25P02" {
			return true
		}
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "current transaction is aborted") || isSQLiteConflict(msg)
}

func isSQLiteConflict(msg string) bool {
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
