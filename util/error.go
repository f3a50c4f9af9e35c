package util

import (
	"github.com/go-sql-driver/mysql"
	"github.com/juju/errors"
)

// IsMySQLError returns true if err is a mysql error with the given code.
func IsMySQLError(err error, code uint16) bool {
	err = OriginError(err)
	e, ok := err.(*mysql.MySQLError)
	return ok && e.Number == code
}

// OriginError returns the original error at the bottom of the cause chain.
func OriginError(err error) error {
	for {
		e := errors.Cause(err)
		if e == err {
			break
		}
		err = e
	}
	return err
}
