package registry

import (
	"perpcore/perp/codec"
)

// slabEntrySize is the exact on-wire size of a SlabEntry record: three
// pubkeys (96) + four u64 risk fields (32) + max_exposure i128 (16) +
// registered_ts i64 (8) + active bool + pad(7) (8).
const slabEntrySize = 32 + 32 + 32 + 8*4 + 16 + 8 + 8

// headerSize is the fixed Registry header before the SlabEntry array:
// magic (8), router_id+governance (64), slab_count+bump+pad (8), eight risk
// knobs (5 u64 + 2 i128 + 1 u64 = 40+32+8 = 80).
const headerSize = 8 + 64 + 8 + 8*5 + 16*2 + 8

// Size is the total fixed byte size of an encoded Registry account.
const Size = headerSize + NSlabs*slabEntrySize

func encodeSlabEntry(w *codec.Writer, e SlabEntry) {
	w.Pubkey(e.SlabID)
	w.FixedBytes(e.VersionHash[:], 32)
	w.Pubkey(e.OracleID)
	w.U64(e.ImrBps)
	w.U64(e.MmrBps)
	w.U64(e.FeeCapBps)
	w.U64(e.LatencySLA)
	w.I128(e.MaxExposure)
	w.I64(e.RegisteredTs)
	w.Bool(e.Active)
	w.Pad(7)
}

func decodeSlabEntry(r *codec.Reader) (SlabEntry, error) {
	var e SlabEntry
	var err error
	if e.SlabID, err = r.Pubkey(); err != nil {
		return e, err
	}
	vh, err := r.FixedBytes(32)
	if err != nil {
		return e, err
	}
	copy(e.VersionHash[:], vh)
	if e.OracleID, err = r.Pubkey(); err != nil {
		return e, err
	}
	if e.ImrBps, err = r.U64(); err != nil {
		return e, err
	}
	if e.MmrBps, err = r.U64(); err != nil {
		return e, err
	}
	if e.FeeCapBps, err = r.U64(); err != nil {
		return e, err
	}
	if e.LatencySLA, err = r.U64(); err != nil {
		return e, err
	}
	if e.MaxExposure, err = r.I128(); err != nil {
		return e, err
	}
	if e.RegisteredTs, err = r.I64(); err != nil {
		return e, err
	}
	if e.Active, err = r.Bool(); err != nil {
		return e, err
	}
	if err = r.Skip(7); err != nil {
		return e, err
	}
	return e, nil
}

// Encode renders the Registry in the fixed little-endian layout spec.md §3
// describes, magic-prefixed so a misrouted account is caught on read.
func (r *Registry) Encode() []byte {
	w := codec.NewWriter(Size)
	w.FixedBytes(Magic[:], 8)
	w.Pubkey(r.RouterID)
	w.Pubkey(r.Governance)
	w.U16(r.SlabCount)
	w.U8(r.Bump)
	w.Pad(5)

	w.U64(r.Risk.InitialMarginBps)
	w.U64(r.Risk.MaintenanceMarginBps)
	w.U64(r.Risk.LiquidationBandBps)
	w.U64(r.Risk.PreliqBufferBps)
	w.U64(r.Risk.PreliqBandBps)
	w.I128(r.Risk.PerSlabRouterCap)
	w.I128(r.Risk.MinQuotingEquity)
	w.U64(r.Risk.OracleToleranceBps)

	for _, e := range r.Slabs {
		encodeSlabEntry(w, e)
	}
	return w.Bytes()
}

// Decode parses bytes produced by Encode back into a Registry.
func Decode(data []byte) (*Registry, error) {
	r := codec.NewReader(data)
	if err := r.CheckMagic(Magic[:]); err != nil {
		return nil, err
	}
	reg := &Registry{}
	var err error
	if reg.RouterID, err = r.Pubkey(); err != nil {
		return nil, err
	}
	if reg.Governance, err = r.Pubkey(); err != nil {
		return nil, err
	}
	if reg.SlabCount, err = r.U16(); err != nil {
		return nil, err
	}
	if reg.Bump, err = r.U8(); err != nil {
		return nil, err
	}
	if err = r.Skip(5); err != nil {
		return nil, err
	}

	if reg.Risk.InitialMarginBps, err = r.U64(); err != nil {
		return nil, err
	}
	if reg.Risk.MaintenanceMarginBps, err = r.U64(); err != nil {
		return nil, err
	}
	if reg.Risk.LiquidationBandBps, err = r.U64(); err != nil {
		return nil, err
	}
	if reg.Risk.PreliqBufferBps, err = r.U64(); err != nil {
		return nil, err
	}
	if reg.Risk.PreliqBandBps, err = r.U64(); err != nil {
		return nil, err
	}
	if reg.Risk.PerSlabRouterCap, err = r.I128(); err != nil {
		return nil, err
	}
	if reg.Risk.MinQuotingEquity, err = r.I128(); err != nil {
		return nil, err
	}
	if reg.Risk.OracleToleranceBps, err = r.U64(); err != nil {
		return nil, err
	}

	for i := range reg.Slabs {
		e, err := decodeSlabEntry(r)
		if err != nil {
			return nil, err
		}
		reg.Slabs[i] = e
	}
	return reg, nil
}
