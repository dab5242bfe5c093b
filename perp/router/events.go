package router

import "perpcore/crypto"

// Events the Engine emits on successful instructions, consumed by
// downstream indexers (core/events.Emitter). The core never blocks on a
// subscriber; events.NoopEmitter is the safe default when none is wired.

// SlabRegisteredEvent fires on both governance register_slab and the
// Execute pipeline's auto-registration fallback (spec.md §4.1, §4.5 step 2).
type SlabRegisteredEvent struct {
	SlabID    crypto.Pubkey
	SlabIndex uint16
	Auto      bool
}

func (SlabRegisteredEvent) EventType() string { return "perp.slab_registered" }

// DepositedEvent fires on a successful Deposit instruction.
type DepositedEvent struct {
	User   crypto.Pubkey
	Amount int64
}

func (DepositedEvent) EventType() string { return "perp.deposited" }

// WithdrawnEvent fires on a successful Withdraw instruction.
type WithdrawnEvent struct {
	User   crypto.Pubkey
	Amount int64
}

func (WithdrawnEvent) EventType() string { return "perp.withdrawn" }

// TradeExecutedEvent fires on a successful Execute, carrying the fields a
// keeper or indexer needs to reconstruct the fill without re-reading the
// ephemeral Receipt.
type TradeExecutedEvent struct {
	User            crypto.Pubkey
	DlpOwner        crypto.Pubkey
	SlabIndex       uint16
	InstrumentIndex uint16
	Side            uint8
	FillQty         int64
	FillPx          int64
	FeesPaid        int64
	RealizedPnl     int64
	NewPositionQty  int64

	// CorrelationID ties this event back to the specific Execute call and
	// its log lines (not consensus state, purely an observability aid).
	CorrelationID string
}

func (TradeExecutedEvent) EventType() string { return "perp.trade_executed" }

// LiquidationFlaggedEvent fires on a successful LiquidateUser call
// (SPEC_FULL.md §4.7); it records eligibility, not a computed fill.
type LiquidationFlaggedEvent struct {
	User      crypto.Pubkey
	Health    int64
	IsPreliq  bool
	FlaggedAt int64
}

func (LiquidationFlaggedEvent) EventType() string { return "perp.liquidation_flagged" }
