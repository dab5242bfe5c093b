package position

import (
	"perpcore/perp/codec"
)

// Size is the total fixed byte size of an encoded Details record (spec.md
// §3): magic(8) + portfolio(32) + slab_index(2) + instrument_index(2) +
// bump(1) + pad(3) + avg_entry_price(8) + total_qty(8) + realized_pnl(16) +
// margin_held(16) + leverage(1) + reserved(7).
const Size = 8 + 32 + 2 + 2 + 1 + 3 + 8 + 8 + 16 + 16 + 1 + 7

// Encode renders d in the fixed little-endian layout spec.md §3 describes.
func (d *Details) Encode() []byte {
	w := codec.NewWriter(Size)
	w.FixedBytes(Magic[:], 8)
	w.Pubkey(d.Portfolio)
	w.U16(d.SlabIndex)
	w.U16(d.InstrumentIndex)
	w.U8(d.Bump)
	w.Pad(3)
	w.I64(d.AvgEntryPrice)
	w.I64(d.TotalQty)
	w.I128(d.RealizedPnl)
	w.U128(d.MarginHeld)
	w.U8(d.Leverage)
	w.Pad(7)
	return w.Bytes()
}

// Decode parses bytes produced by Encode back into a Details record.
func Decode(data []byte) (*Details, error) {
	r := codec.NewReader(data)
	if err := r.CheckMagic(Magic[:]); err != nil {
		return nil, err
	}
	d := &Details{}
	var err error
	if d.Portfolio, err = r.Pubkey(); err != nil {
		return nil, err
	}
	if d.SlabIndex, err = r.U16(); err != nil {
		return nil, err
	}
	if d.InstrumentIndex, err = r.U16(); err != nil {
		return nil, err
	}
	if d.Bump, err = r.U8(); err != nil {
		return nil, err
	}
	if err = r.Skip(3); err != nil {
		return nil, err
	}
	if d.AvgEntryPrice, err = r.I64(); err != nil {
		return nil, err
	}
	if d.TotalQty, err = r.I64(); err != nil {
		return nil, err
	}
	if d.RealizedPnl, err = r.I128(); err != nil {
		return nil, err
	}
	if d.MarginHeld, err = r.U128(); err != nil {
		return nil, err
	}
	if d.Leverage, err = r.U8(); err != nil {
		return nil, err
	}
	if err = r.Skip(7); err != nil {
		return nil, err
	}
	return d, nil
}
