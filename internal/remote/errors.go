package remote

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession is returned when a call needs a signed-in session and
	// there is none.
	ErrNoSession = errors.New("no remote session")

	// ErrNotFound is returned by Select when no row matches.
	ErrNotFound = errors.New("no matching row")

	// ErrNoKey is returned by Upsert for a table without a known key.
	ErrNoKey = errors.New("table has no upsert key")
)

// ErrRemote wraps a failed remote call with the operation and table.
type ErrRemote struct {
	Op    string
	Table string
	Err   error
}

func (e *ErrRemote) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *ErrRemote) Unwrap() error { return e.Err }

func wrap(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return &ErrRemote{Op: op, Table: table, Err: err}
}
