package engine

import "errors"

// Typed failures surfaced to the request layer. None of these are retried
// inside the engine; retrying a trade changes its economic outcome, so retry
// policy belongs to the caller.
var (
	// ErrInvalidTradeRequest marks a caller error (bad qty, side or symbol).
	// The trade is rejected before any state is touched.
	ErrInvalidTradeRequest = errors.New("invalid trade request")

	// ErrChallengeNotActive is returned when trading against a passed or
	// failed challenge. Terminal challenges never accept trades again.
	ErrChallengeNotActive = errors.New("challenge is not active")

	// ErrChallengeNotFound is returned when the challenge id resolves to nothing.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrQuoteUnavailable means the quote provider failed; the trade is
	// rejected and the caller may retry.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrPersistenceConflict means a concurrent write was detected; the caller
	// should retry the whole settlement.
	ErrPersistenceConflict = errors.New("persistence conflict")

	// ErrInternalInconsistency means the cached equity no longer matches the
	// trade ledger. Fatal: logged, persisted, surfaced, never silently fixed.
	ErrInternalInconsistency = errors.New("equity does not match trade ledger")
)
