package portfolio

import "perpcore/perp/value"

// LiquidationFlagged is the event LiquidateUser emits on success
// (SPEC_FULL.md §4.7) for an external keeper to act on; this module
// computes no liquidation fill itself.
type LiquidationFlagged struct {
	User      [32]byte
	Health    int64
	IsPreliq  bool
	FlaggedAt int64
}

// LiquidateUser implements the liquidation/cooldown state-machine surface
// spec.md reserves fields for but leaves unspecified (SPEC_FULL.md §4.7).
// It does not compute a liquidation fill; it only validates eligibility,
// enforces the cooldown, and records the attempt.
//
// preliqBufferBps expresses how close to zero health must be (as a
// fraction of mm, in bps) for a preliquidation flag to fire.
func (p *Portfolio) LiquidateUser(isPreliq bool, currentTs int64, cooldownSeconds int64, preliqBufferBps uint64) error {
	eligible := p.Liq.Health.Sign() < 0
	if !eligible && isPreliq {
		eligible = withinPreliqBuffer(p.Liq.Health, p.Cross.Mm, preliqBufferBps)
	}
	if !eligible {
		return ErrNotLiquidatable
	}

	if p.Liq.LastLiquidationTs != 0 {
		elapsed := currentTs - p.Liq.LastLiquidationTs
		if elapsed < cooldownSeconds {
			return ErrLiquidationCooldownActive
		}
	}

	p.Liq.LastLiquidationTs = currentTs
	p.Liq.CooldownSeconds = cooldownSeconds
	return nil
}

// withinPreliqBuffer reports whether a non-negative health is still within
// preliqBufferBps of mm, i.e. health <= mm * preliqBufferBps / 10_000.
func withinPreliqBuffer(health, mm value.I128, preliqBufferBps uint64) bool {
	if health.Sign() < 0 {
		return true
	}
	buffer := value.MulDivBps(mm, preliqBufferBps)
	return health.Cmp(buffer) <= 0
}
