// Package router implements the Router's instruction dispatch and the
// Execute pipeline (spec.md §4.5, §6.1): the "hard core" that opens a
// user/DLP Portfolio pair, invokes a Slab's commit_fill, and durably
// mutates both Portfolios and the trade's PositionDetails.
package router

import "errors"

// Input errors (spec.md §7): fatal, no state changes.
var (
	ErrInvalidSplitCount   = errors.New("router: invalid_split_count")
	ErrInvalidLeverage     = errors.New("router: invalid_leverage")
	ErrDlpOwnerMismatch    = errors.New("router: dlp_owner_mismatch")
	ErrUnknownDiscriminant = errors.New("router: unknown_discriminator")
)

// Price/oracle errors (spec.md §7): fatal, no state changes.
var (
	ErrUnexpectedPartial = errors.New("router: unexpected_partial")
	ErrSlabNotRegistered = errors.New("router: slab_not_registered")
	ErrOracleUncertain   = errors.New("router: oracle_uncertain")
	ErrOracleStale       = errors.New("router: oracle_stale")
)

// Lifecycle errors: an instruction targeting an account that already
// (or does not yet) exist.
var (
	ErrAlreadyInitialized = errors.New("router: already_initialized")
	ErrAccountNotFound    = errors.New("router: account_not_found")
)

// Solvency errors (spec.md §7): fatal, whole transaction reverted.
var (
	ErrInsufficientEquity  = errors.New("router: insufficient_equity")
	ErrBreachesMaintenance = errors.New("router: breaches_maintenance")
	ErrDlpInsolvent        = errors.New("router: dlp_insolvent")
)

// Accounting errors (spec.md §7): assertion failures.
var ErrInvariantViolation = errors.New("router: invariant_violation")

// Operational errors: a deployment-level circuit breaker or rate limit
// rejected the instruction before any pipeline logic ran (SPEC_FULL.md
// ambient-stack additions; not part of spec.md §7's own taxonomy).
var (
	ErrPaused      = errors.New("router: paused")
	ErrRateLimited = errors.New("router: rate_limited")
)
