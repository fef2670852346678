package store

import "github.com/cockroachdb/errors"

var (
	// ErrUnavailable marks every failure to open or operate on the database file.
	ErrUnavailable = errors.New("cache store unavailable")
	// ErrClosed is returned by any call made after Close.
	ErrClosed = errors.New("cache store closed")
	// ErrEmptyKey rejects rows without a key before they reach the database.
	ErrEmptyKey = errors.New("cache row key is empty")
	// ErrBadTimestamp rejects rows whose timestamps are not RFC3339.
	ErrBadTimestamp = errors.New("cache row timestamp is not RFC3339")
)

// unavailable wraps a driver error so callers can match it with errors.Is(err, ErrUnavailable).
func unavailable(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, op), ErrUnavailable)
}

// IsUnavailable reports whether err is an I/O or driver failure of the store.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
