package gormrepo

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// storeError satisfies repositories.RepositoryError and classifies gorm
// failures so callers do not import gorm to branch on them.
type storeError struct {
	op          string
	err         error
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *storeError) Error() string {
	return fmt.Sprintf("gormrepo: %s: %v", e.op, e.err)
}

func (e *storeError) Unwrap() error { return e.err }

func (e *storeError) IsNotFound() bool    { return e.notFound }
func (e *storeError) IsConflict() bool    { return e.conflict }
func (e *storeError) IsUnavailable() bool { return e.unavailable }

func notFoundError(op string, err error) error {
	return &storeError{op: op, err: err, notFound: true}
}

// wrapError maps a gorm error into a classified storeError. A nil error passes
// through untouched.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &storeError{op: op, err: err, notFound: true}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &storeError{op: op, err: err, conflict: true}
	default:
		return &storeError{op: op, err: err, unavailable: true}
	}
}
