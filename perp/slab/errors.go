package slab

import "errors"

var (
	// ErrNotAuthorized is fatal: the caller does not match the Slab's
	// recorded router_id authority (spec.md §4.2 step 1).
	ErrNotAuthorized = errors.New("slab: not_authorized")
	// ErrSequenceConflict is recoverable: expected_seqno did not match the
	// header's current seqno (spec.md §4.2 step 2).
	ErrSequenceConflict = errors.New("slab: sequence_conflict")
	// ErrOracleUncertain is recoverable: the oracle confidence interval
	// exceeds tolerance_bps (spec.md §4.2 step 3).
	ErrOracleUncertain = errors.New("slab: oracle_uncertain")
	// ErrOracleStale is recoverable: the oracle timestamp is too old
	// (spec.md §4.2 step 3).
	ErrOracleStale = errors.New("slab: oracle_stale")
	// ErrPriceExceeded is recoverable: the limit price did not clear the
	// oracle-derived fill price (spec.md §4.2 step 4).
	ErrPriceExceeded = errors.New("slab: price_exceeded")
	// ErrLimitTooFar is recoverable: the limit price sits outside the 20%
	// sanity band around the oracle price (spec.md §4.2 step 4).
	ErrLimitTooFar = errors.New("slab: limit_too_far")
)
