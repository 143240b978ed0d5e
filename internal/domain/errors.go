package domain

import "errors"

// Error taxonomy for sync runs. Only ErrPreconditionFailed is fatal to a
// run; everything else is absorbed into the per-period failure tally.
var (
	// ErrSourceUnavailable signals a network or auth failure talking to the
	// ledger or payroll source. Retried at the next scheduled run.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedPayload signals an unusable payload from a source. At line
	// granularity the entry is skipped; the error is returned only when the
	// whole payload cannot be interpreted.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrPreconditionFailed signals missing configuration or credentials,
	// detected before any period is attempted. Aborts the run.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrStoreWriteFailed signals a failed upsert. Recorded as a period
	// failure; the run continues.
	ErrStoreWriteFailed = errors.New("store write failed")
)
