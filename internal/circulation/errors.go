package circulation

import "errors"

// Sentinel errors for the loan state machine. Handlers compare with
// errors.Is and surface the wrapped message verbatim to the caller.
var (
	// ErrNotFound covers unknown circulation, copy, and patron ids.
	ErrNotFound = errors.New("record not found")

	// ErrPatronIneligible rejects borrowing by any patron whose status is
	// not Active.
	ErrPatronIneligible = errors.New("patron is not eligible to borrow")

	// ErrCopyUnavailable rejects borrowing a copy that is already borrowed,
	// lost, or archived.
	ErrCopyUnavailable = errors.New("copy is not available")

	// ErrNotCurrentlyBorrowed rejects return/renew/mark-lost on a record
	// that is not an open loan.
	ErrNotCurrentlyBorrowed = errors.New("this record is not currently borrowed")

	// ErrRenewalLimitReached rejects a renewal once the configured limit is
	// exhausted.
	ErrRenewalLimitReached = errors.New("renewal limit reached")
)
