// Package position implements PositionDetails (spec.md §3, §4.4): the
// per-(portfolio, slab_index, instrument_index) ledger tracking VWAP entry
// price, open quantity, realized PnL, and posted margin.
package position

import (
	"perpcore/crypto"
	"perpcore/perp/value"
)

// Magic identifies a PositionDetails account's encoding on read.
var Magic = [8]byte{'P', 'E', 'R', 'P', 'P', 'O', 'S', 0}

// MinLeverage and MaxLeverage bound the declared leverage of an open
// position (spec.md §3: "leverage ∈ [1,10]").
const (
	MinLeverage = 1
	MaxLeverage = 10
)

// Details is the PositionDetails record (spec.md §3).
type Details struct {
	Portfolio       crypto.Pubkey
	SlabIndex       uint16
	InstrumentIndex uint16
	Bump            uint8
	AvgEntryPrice   int64
	TotalQty        int64
	RealizedPnl     value.I128
	MarginHeld      value.I128
	Leverage        uint8
}

// IsOpen reports whether the position carries nonzero exposure.
func (d *Details) IsOpen() bool { return d.TotalQty != 0 }
