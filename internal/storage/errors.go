package storage

import "errors"

// Sentinel errors returned by Store implementations. Callers should use
// errors.Is to test for these rather than comparing strings.
var (
	// ErrNotFound is returned when a requested entity does not exist, or
	// exists but belongs to a different agent_id (cross-tenant access
	// returns not-found, never a permission error — spec §6.3).
	ErrNotFound = errors.New("storage: not found")

	// ErrInvalidInput is returned for malformed requests: bad URI grammar,
	// unknown domain, missing required fields.
	ErrInvalidInput = errors.New("storage: invalid input")

	// ErrConflict is returned for uniqueness violations that are not routed
	// through the Write Guard's classification (e.g. explicit Path/Link
	// creation outside of sync).
	ErrConflict = errors.New("storage: conflict")

	// ErrCrossAgent is returned when an operation would create a Path or
	// Link spanning two different agent_id values.
	ErrCrossAgent = errors.New("storage: cross-agent reference rejected")
)
