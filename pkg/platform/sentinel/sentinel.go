package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about records, not validation failures:
// - ErrNotFound: record does not exist in store
// - ErrConflict: record already exists (duplicate key)
// - ErrAlreadyUsed: a one-shot transition (document decision, submission) already happened
// - ErrInvalidState: record in wrong state for requested operation
// - ErrUnavailable: backing store temporarily unavailable
// - ErrStaleWrite: a write lost an optimistic concurrency check
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrStaleWrite   = errors.New("stale write")
)
