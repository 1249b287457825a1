// Package domain provides shared domain-level sentinel errors.
//
// The saga layer classifies failures by matching against these sentinels:
// ErrUnavailable is the only retryable one, everything else is fatal.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a uniqueness violation (duplicate user email, or a
// duplicate role name or department code within a tenant).
var ErrConflict = errors.New("conflict: resource already exists")

// ErrValidation indicates the input was rejected before or by a collaborator.
var ErrValidation = errors.New("validation failed")

// ErrUnavailable indicates a collaborator could not be reached or answered
// with a server error. Callers may retry.
var ErrUnavailable = errors.New("collaborator unavailable")

// ErrUnauthorized indicates the caller lacks the capability or tenant scope
// for the requested operation.
var ErrUnauthorized = errors.New("not authorized")
