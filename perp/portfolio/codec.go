package portfolio

import (
	"perpcore/perp/codec"
)

// exposureSize is slab_index(2)+instrument_index(2)+pad(4)+position_qty(8).
const exposureSize = 2 + 2 + 4 + 8

// lpBucketSize is market(32) + 5 i128 fields(80) + 3 i64(24) + active+pad(8)
// + reserved padding to approximate the spec's "≈350 B" sizing.
const lpBucketCore = 32 + 16*5 + 8*3 + 8
const lpBucketReserved = 350 - lpBucketCore
const lpBucketSize = lpBucketCore + lpBucketReserved

// crossMarginSize is equity+im+mm+free_collateral (4 i128 = 64) +
// last_mark_ts(8) + exposure_count(2) + bump(1) + pad(5).
const crossMarginSize = 16*4 + 8 + 2 + 1 + 5

// liquidationSize is health(16) + last_liquidation_ts(8) +
// cooldown_seconds(8) + pad(8).
const liquidationSize = 16 + 8 + 8 + 8

// vestingSize is principal+pnl+vested_pnl+pnl_index_checkpoint (4 i128=64)
// + last_slot(8) + pad(8).
const vestingSize = 16*4 + 8 + 8

// Size is the total fixed byte size of an encoded Portfolio account.
const Size = 8 + 64 + crossMarginSize + liquidationSize + vestingSize + NExposures*exposureSize + NLpBuckets*lpBucketSize

func encodeExposure(w *codec.Writer, e Exposure) {
	w.U16(e.SlabIndex)
	w.U16(e.InstrumentIndex)
	w.Pad(4)
	w.I64(e.PositionQty)
}

func decodeExposure(r *codec.Reader) (Exposure, error) {
	var e Exposure
	var err error
	if e.SlabIndex, err = r.U16(); err != nil {
		return e, err
	}
	if e.InstrumentIndex, err = r.U16(); err != nil {
		return e, err
	}
	if err = r.Skip(4); err != nil {
		return e, err
	}
	e.PositionQty, err = r.I64()
	return e, err
}

func encodeLpBucket(w *codec.Writer, b LpBucket) {
	w.Pubkey(b.Market)
	w.I128(b.Shares)
	w.I128(b.QuoteReserve)
	w.I128(b.BaseReserve)
	w.I128(b.ReservedQuote)
	w.I128(b.ReservedBase)
	w.I64(b.LastPrice)
	w.I64(b.LastTs)
	w.I64(b.MaxStaleness)
	w.Bool(b.Active)
	w.Pad(7)
	w.Pad(lpBucketReserved)
}

func decodeLpBucket(r *codec.Reader) (LpBucket, error) {
	var b LpBucket
	var err error
	if b.Market, err = r.Pubkey(); err != nil {
		return b, err
	}
	if b.Shares, err = r.I128(); err != nil {
		return b, err
	}
	if b.QuoteReserve, err = r.I128(); err != nil {
		return b, err
	}
	if b.BaseReserve, err = r.I128(); err != nil {
		return b, err
	}
	if b.ReservedQuote, err = r.I128(); err != nil {
		return b, err
	}
	if b.ReservedBase, err = r.I128(); err != nil {
		return b, err
	}
	if b.LastPrice, err = r.I64(); err != nil {
		return b, err
	}
	if b.LastTs, err = r.I64(); err != nil {
		return b, err
	}
	if b.MaxStaleness, err = r.I64(); err != nil {
		return b, err
	}
	if b.Active, err = r.Bool(); err != nil {
		return b, err
	}
	if err = r.Skip(7); err != nil {
		return b, err
	}
	if err = r.Skip(lpBucketReserved); err != nil {
		return b, err
	}
	return b, nil
}

// Encode renders the Portfolio in the fixed little-endian layout spec.md
// §3 describes.
func (p *Portfolio) Encode() []byte {
	w := codec.NewWriter(Size)
	w.FixedBytes(Magic[:], 8)
	w.Pubkey(p.RouterID)
	w.Pubkey(p.User)

	w.I128(p.Cross.Equity)
	w.U128(p.Cross.Im)
	w.U128(p.Cross.Mm)
	w.I128(p.Cross.FreeCollateral)
	w.I64(p.Cross.LastMarkTs)
	w.U16(p.Cross.ExposureCount)
	w.U8(p.Cross.Bump)
	w.Pad(5)

	w.I128(p.Liq.Health)
	w.I64(p.Liq.LastLiquidationTs)
	w.I64(p.Liq.CooldownSeconds)
	w.Pad(8)

	w.I128(p.Vest.Principal)
	w.I128(p.Vest.Pnl)
	w.I128(p.Vest.VestedPnl)
	w.I64(p.Vest.LastSlot)
	w.I128(p.Vest.PnlIndexCheckpoint)
	w.Pad(8)

	for _, e := range p.Exposures {
		encodeExposure(w, e)
	}
	for _, b := range p.LpBuckets {
		encodeLpBucket(w, b)
	}
	return w.Bytes()
}

// Decode parses bytes produced by Encode back into a Portfolio.
func Decode(data []byte) (*Portfolio, error) {
	r := codec.NewReader(data)
	if err := r.CheckMagic(Magic[:]); err != nil {
		return nil, err
	}
	p := &Portfolio{}
	var err error
	if p.RouterID, err = r.Pubkey(); err != nil {
		return nil, err
	}
	if p.User, err = r.Pubkey(); err != nil {
		return nil, err
	}

	if p.Cross.Equity, err = r.I128(); err != nil {
		return nil, err
	}
	if p.Cross.Im, err = r.U128(); err != nil {
		return nil, err
	}
	if p.Cross.Mm, err = r.U128(); err != nil {
		return nil, err
	}
	if p.Cross.FreeCollateral, err = r.I128(); err != nil {
		return nil, err
	}
	if p.Cross.LastMarkTs, err = r.I64(); err != nil {
		return nil, err
	}
	if p.Cross.ExposureCount, err = r.U16(); err != nil {
		return nil, err
	}
	if p.Cross.Bump, err = r.U8(); err != nil {
		return nil, err
	}
	if err = r.Skip(5); err != nil {
		return nil, err
	}

	if p.Liq.Health, err = r.I128(); err != nil {
		return nil, err
	}
	if p.Liq.LastLiquidationTs, err = r.I64(); err != nil {
		return nil, err
	}
	if p.Liq.CooldownSeconds, err = r.I64(); err != nil {
		return nil, err
	}
	if err = r.Skip(8); err != nil {
		return nil, err
	}

	if p.Vest.Principal, err = r.I128(); err != nil {
		return nil, err
	}
	if p.Vest.Pnl, err = r.I128(); err != nil {
		return nil, err
	}
	if p.Vest.VestedPnl, err = r.I128(); err != nil {
		return nil, err
	}
	if p.Vest.LastSlot, err = r.I64(); err != nil {
		return nil, err
	}
	if p.Vest.PnlIndexCheckpoint, err = r.I128(); err != nil {
		return nil, err
	}
	if err = r.Skip(8); err != nil {
		return nil, err
	}

	for i := range p.Exposures {
		e, err := decodeExposure(r)
		if err != nil {
			return nil, err
		}
		p.Exposures[i] = e
	}
	for i := range p.LpBuckets {
		b, err := decodeLpBucket(r)
		if err != nil {
			return nil, err
		}
		p.LpBuckets[i] = b
	}
	return p, nil
}
