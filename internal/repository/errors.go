// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between failure scenarios without
// inspecting driver errors.
package repository

import "github.com/pkg/errors"

// ErrNotFound is returned when the addressed row does not exist (or, for
// conditional updates, no longer matches the condition).
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a create cannot proceed because the value
// already exists. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
