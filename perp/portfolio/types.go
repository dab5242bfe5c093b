// Package portfolio implements the cross-margin Portfolio account
// (spec.md §3, §4.3): native-coin custody, equity/margin accounting,
// per-(slab,instrument) exposures, and the Slab-LP buckets SPEC_FULL.md
// §4.6 adds operations for.
package portfolio

import (
	"perpcore/crypto"
	"perpcore/perp/value"
)

// Magic identifies a Portfolio account's encoding on read.
var Magic = [8]byte{'P', 'E', 'R', 'P', 'P', 'F', 'L', 0}

// NSlabs and NInstruments size the fixed exposures array (spec.md §3).
const (
	NSlabs       = 16
	NInstruments = 32
	NExposures   = NSlabs * NInstruments
	NLpBuckets   = 16
)

// Exposure is one (slab_index, instrument_index) -> position_qty tuple
// (spec.md §3). A zero PositionQty is an empty slot.
type Exposure struct {
	SlabIndex       uint16
	InstrumentIndex uint16
	PositionQty     int64
}

// Empty reports whether e is an unused slot.
func (e Exposure) Empty() bool { return e.PositionQty == 0 }

// LpBucket tracks one Slab-LP position's shares and reserve accounting
// (SPEC_FULL.md §4.6). Reserved bytes approximate the spec's "≈350 B"
// sizing; they carry no interpreted state.
type LpBucket struct {
	Market        crypto.Pubkey
	Shares        value.I128
	QuoteReserve  value.I128
	BaseReserve   value.I128
	ReservedQuote value.I128
	ReservedBase  value.I128
	LastPrice     int64
	LastTs        int64
	MaxStaleness  int64
	Active        bool
}

// Empty reports whether b is an unused bucket slot.
func (b LpBucket) Empty() bool { return b.Shares.IsZero() && !b.Active }

// CrossMargin is the cross-margin state block (spec.md §3).
type CrossMargin struct {
	Equity         value.I128
	Im             value.I128
	Mm             value.I128
	FreeCollateral value.I128
	LastMarkTs     int64
	ExposureCount  uint16
	Bump           uint8
}

// Liquidation is the liquidation state block (spec.md §3).
type Liquidation struct {
	Health            value.I128
	LastLiquidationTs int64
	CooldownSeconds   int64
}

// Vesting is the vesting state block (spec.md §3).
type Vesting struct {
	Principal          value.I128
	Pnl                value.I128
	VestedPnl          value.I128
	LastSlot           int64
	PnlIndexCheckpoint value.I128
}

// Portfolio is the cross-margin account (spec.md §3).
type Portfolio struct {
	RouterID crypto.Pubkey
	User     crypto.Pubkey

	Cross CrossMargin
	Liq   Liquidation
	Vest  Vesting

	Exposures [NExposures]Exposure
	LpBuckets [NLpBuckets]LpBucket
}

// FindExposure finds the non-empty exposure slot for (slabIndex,
// instrumentIndex), returning its array index, or -1 if there is none.
func (p *Portfolio) FindExposure(slabIndex, instrumentIndex uint16) int {
	for i := range p.Exposures {
		e := p.Exposures[i]
		if e.Empty() {
			continue
		}
		if e.SlabIndex == slabIndex && e.InstrumentIndex == instrumentIndex {
			return i
		}
	}
	return -1
}
