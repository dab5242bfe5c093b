package portfolio

import "errors"

var (
	// ErrInsufficientEquity gates withdraw (spec.md §4.3) and margin
	// posting (spec.md §4.5 step 4).
	ErrInsufficientEquity = errors.New("portfolio: insufficient_equity")
	// ErrBreachesMaintenance is the post-condition check of spec.md §4.5
	// step 9: equity - mm < 0 after a mutation.
	ErrBreachesMaintenance = errors.New("portfolio: breaches_maintenance")
	// ErrExposuresFull is returned when ApplyExposureDelta needs a new
	// slot but the fixed-capacity exposures array is already saturated.
	ErrExposuresFull = errors.New("portfolio: invariant_violation, exposures array full")
	// ErrLpBucketsFull is returned when no LpBucket slot is free for a new
	// market.
	ErrLpBucketsFull = errors.New("portfolio: invariant_violation, lp buckets full")
	// ErrLpBucketNotFound gates BurnLpShares/CancelLpOrders.
	ErrLpBucketNotFound = errors.New("portfolio: lp bucket not found")
	// ErrOracleStale gates BurnLpShares against the same staleness bound
	// Execute enforces (SPEC_FULL.md §4.6).
	ErrOracleStale = errors.New("portfolio: oracle_stale")
	// ErrNotLiquidatable gates LiquidateUser (SPEC_FULL.md §4.7).
	ErrNotLiquidatable = errors.New("portfolio: not_liquidatable")
	// ErrLiquidationCooldownActive gates LiquidateUser (SPEC_FULL.md §4.7).
	ErrLiquidationCooldownActive = errors.New("portfolio: liquidation_cooldown_active")
)
