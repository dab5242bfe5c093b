package slab

import (
	"perpcore/crypto"
	"perpcore/perp/oracle"
	"perpcore/perp/value"
)

// limitBandBps is the 20% sanity band a limit price must sit within of the
// oracle price (spec.md §4.2 step 4).
const limitBandBps = 2_000

// Request is the Router's commit_fill payload (spec.md §4.2).
type Request struct {
	ExpectedSeqno uint32
	Side          value.Side
	Qty           int64 // unsigned magnitude, lots at PriceScale
	LimitPx       int64
}

// CommitFillParams bundles a commit_fill call's inputs.
type CommitFillParams struct {
	Authority    crypto.Pubkey
	Request      Request
	Oracle       oracle.Quote
	ToleranceBps uint64
	MaxOracleAge int64
	Now          int64
}

// CommitFill implements the Slab's sole state transition (spec.md §4.2): it
// validates authority, sequence, and the oracle quote, computes the fill
// price and fee, writes a Receipt, and advances the header's seqno. The
// Header and QuoteCache are mutated in place; any returned error leaves
// both untouched (the caller's transaction aborts without a side effect).
func CommitFill(h *Header, q *QuoteCache, p CommitFillParams) (Receipt, error) {
	if p.Authority != h.RouterID {
		return Receipt{}, ErrNotAuthorized
	}
	if p.Request.ExpectedSeqno != h.Seqno {
		return Receipt{}, ErrSequenceConflict
	}
	if oracle.ToleranceExceeded(p.Oracle, p.ToleranceBps) {
		return Receipt{}, ErrOracleUncertain
	}
	if oracle.Stale(p.Oracle, p.Now, p.MaxOracleAge) {
		return Receipt{}, ErrOracleStale
	}

	pFill := p.Oracle.Price
	switch p.Request.Side {
	case value.SideBuy:
		if p.Request.LimitPx < pFill {
			return Receipt{}, ErrPriceExceeded
		}
	case value.SideSell:
		if p.Request.LimitPx > pFill {
			return Receipt{}, ErrPriceExceeded
		}
	}
	if limitTooFar(p.Request.LimitPx, pFill) {
		return Receipt{}, ErrLimitTooFar
	}

	notional := value.SaturatingMulDivInt64(p.Request.Qty, pFill, value.PriceScale)
	fees := value.SaturatingMulDivInt64(notional, h.TakerFeeBps, 10_000)

	receipt := Receipt{
		Side:      uint32(p.Request.Side),
		SeqnoUsed: int64(h.Seqno),
		FillQty:   p.Request.Qty,
		FillPx:    pFill,
		FeesPaid:  fees,
		Timestamp: p.Now,
	}

	h.Seqno++
	h.MarkPx = pFill
	q.SeqnoSnapshot = h.Seqno

	return receipt, nil
}

// limitTooFar reports whether limitPx sits further than limitBandBps (20%)
// from pOracle (spec.md §4.2 step 4).
func limitTooFar(limitPx, pOracle int64) bool {
	if pOracle == 0 {
		return true
	}
	diff := limitPx - pOracle
	if diff < 0 {
		diff = -diff
	}
	lhs := diff * 10_000
	rhs := pOracle * limitBandBps
	if pOracle < 0 {
		rhs = -rhs
	}
	return lhs > rhs
}
