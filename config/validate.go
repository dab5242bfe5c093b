package config

import "fmt"

// ValidatePolicy enforces the ordering invariants spec.md §3 implies
// between the Registry's risk knobs: initial margin must be at least as
// strict (as high) as maintenance margin, and the liquidation band must fully
// contain the preliquidation band, or a position could be preliquidated
// after it has already crossed into full liquidation.
func ValidatePolicy(p Policy) error {
	if p.InitialMarginBps < p.MaintenanceMarginBps {
		return fmt.Errorf("policy: initial_margin_bps < maintenance_margin_bps")
	}
	if p.LiquidationBandBps < p.PreliqBandBps {
		return fmt.Errorf("policy: liquidation_band_bps < preliq_band_bps")
	}
	if p.OracleToleranceBps == 0 {
		return fmt.Errorf("policy: oracle_tolerance_bps must be positive")
	}
	if p.Quota.MaxRequestsPerMin > 0 && p.Quota.EpochSeconds == 0 {
		return fmt.Errorf("policy: quota epoch_seconds must be positive when a request limit is set")
	}
	return nil
}
