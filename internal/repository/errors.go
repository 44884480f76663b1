// Package repository implements the data access layer on top of
// database/sql. This file defines error values shared across multiple
// repositories. Sentinel values let handlers distinguish failure
// scenarios without parsing driver error strings: ErrForbidden marks an
// operation on a resource owned by someone else, ErrConflict marks an
// operation blocked by existing dependent state (e.g. deleting a category
// still referenced by books).
package repository

import (
	"errors"
	"strings"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers translate this into HTTP 403, or
// 404 where existence must not be disclosed.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot proceed because of
// conflicting state. Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// isDuplicateKey reports whether err is a MySQL duplicate-entry error
// (error 1062). The driver does not expose a typed error for this, so the
// repositories match on the error code in the message.
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
