// Package apperr holds the error kinds shared by every service. Package-level
// errors wrap one of these so the HTTP layer can map them to status codes.
package apperr

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrInvalid   = errors.New("invalid request")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrDuplicate = errors.New("already exists")
)
