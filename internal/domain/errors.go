package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// The transport layer wraps these so callers can branch on the failure class
// without inspecting HTTP status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)
