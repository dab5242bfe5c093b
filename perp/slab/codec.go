package slab

import (
	"perpcore/perp/codec"
)

const headerEncodedSize = 8 + 4 + 4 + 32 + 32 + 32 + 32 + 8 + 8 + 8 + 8 + 8
const headerReserved = HeaderSize - headerEncodedSize

const quoteCacheEncodedSize = 4 + 4 + (8+8)*4 + (8+8)*4
const quoteCacheReserved = QuoteCacheSize - quoteCacheEncodedSize

// EncodeHeader renders a Header in the fixed layout spec.md §3 describes.
func EncodeHeader(h Header) []byte {
	w := codec.NewWriter(HeaderSize)
	w.FixedBytes(Magic[:], 8)
	w.U32(h.Version)
	w.U32(h.Seqno)
	w.Pubkey(h.ProgramID)
	w.Pubkey(h.LPOwner)
	w.Pubkey(h.RouterID)
	w.Pubkey(h.Instrument)
	w.I64(h.ContractSize)
	w.I64(h.Tick)
	w.I64(h.Lot)
	w.I64(h.MarkPx)
	w.I64(h.TakerFeeBps)
	w.Pad(headerReserved)
	return w.Bytes()
}

// DecodeHeader parses bytes produced by EncodeHeader.
func DecodeHeader(data []byte) (Header, error) {
	r := codec.NewReader(data)
	if err := r.CheckMagic(Magic[:]); err != nil {
		return Header{}, err
	}
	var h Header
	var err error
	if h.Version, err = r.U32(); err != nil {
		return h, err
	}
	if h.Seqno, err = r.U32(); err != nil {
		return h, err
	}
	if h.ProgramID, err = r.Pubkey(); err != nil {
		return h, err
	}
	if h.LPOwner, err = r.Pubkey(); err != nil {
		return h, err
	}
	if h.RouterID, err = r.Pubkey(); err != nil {
		return h, err
	}
	if h.Instrument, err = r.Pubkey(); err != nil {
		return h, err
	}
	if h.ContractSize, err = r.I64(); err != nil {
		return h, err
	}
	if h.Tick, err = r.I64(); err != nil {
		return h, err
	}
	if h.Lot, err = r.I64(); err != nil {
		return h, err
	}
	if h.MarkPx, err = r.I64(); err != nil {
		return h, err
	}
	if h.TakerFeeBps, err = r.I64(); err != nil {
		return h, err
	}
	return h, r.Skip(headerReserved)
}

// EncodeQuoteCache renders a QuoteCache in the fixed layout spec.md §3
// describes.
func EncodeQuoteCache(q QuoteCache) []byte {
	w := codec.NewWriter(QuoteCacheSize)
	w.U32(q.SeqnoSnapshot)
	w.Pad(4)
	for _, l := range q.Bids {
		w.I64(l.Price)
		w.I64(l.AvailQty)
	}
	for _, l := range q.Asks {
		w.I64(l.Price)
		w.I64(l.AvailQty)
	}
	w.Pad(quoteCacheReserved)
	return w.Bytes()
}

// DecodeQuoteCache parses bytes produced by EncodeQuoteCache.
func DecodeQuoteCache(data []byte) (QuoteCache, error) {
	r := codec.NewReader(data)
	var q QuoteCache
	var err error
	if q.SeqnoSnapshot, err = r.U32(); err != nil {
		return q, err
	}
	if err = r.Skip(4); err != nil {
		return q, err
	}
	for i := range q.Bids {
		if q.Bids[i].Price, err = r.I64(); err != nil {
			return q, err
		}
		if q.Bids[i].AvailQty, err = r.I64(); err != nil {
			return q, err
		}
	}
	for i := range q.Asks {
		if q.Asks[i].Price, err = r.I64(); err != nil {
			return q, err
		}
		if q.Asks[i].AvailQty, err = r.I64(); err != nil {
			return q, err
		}
	}
	return q, r.Skip(quoteCacheReserved)
}

// EncodeReceipt renders a Receipt in the fixed layout spec.md §3 describes.
func EncodeReceipt(rc Receipt) []byte {
	w := codec.NewWriter(ReceiptSize)
	w.U32(rc.Side)
	w.Pad(4)
	w.I64(rc.SeqnoUsed)
	w.I64(rc.FillQty)
	w.I64(rc.FillPx)
	w.I64(rc.FeesPaid)
	w.I64(rc.Timestamp)
	return w.Bytes()
}

// DecodeReceipt parses bytes produced by EncodeReceipt.
func DecodeReceipt(data []byte) (Receipt, error) {
	r := codec.NewReader(data)
	var rc Receipt
	var err error
	if rc.Side, err = r.U32(); err != nil {
		return rc, err
	}
	if err = r.Skip(4); err != nil {
		return rc, err
	}
	if rc.SeqnoUsed, err = r.I64(); err != nil {
		return rc, err
	}
	if rc.FillQty, err = r.I64(); err != nil {
		return rc, err
	}
	if rc.FillPx, err = r.I64(); err != nil {
		return rc, err
	}
	if rc.FeesPaid, err = r.I64(); err != nil {
		return rc, err
	}
	rc.Timestamp, err = r.I64()
	return rc, err
}
