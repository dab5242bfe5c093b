package portfolio

import (
	"perpcore/crypto"
	"perpcore/perp/oracle"
	"perpcore/perp/value"
)

// findLpBucket returns the index of the bucket for market, or -1.
func (p *Portfolio) findLpBucket(market crypto.Pubkey) int {
	for i := range p.LpBuckets {
		if p.LpBuckets[i].Active && p.LpBuckets[i].Market == market {
			return i
		}
	}
	return -1
}

// openLpBucket returns the index of an existing or freshly allocated
// bucket for market.
func (p *Portfolio) openLpBucket(market crypto.Pubkey) (int, error) {
	if idx := p.findLpBucket(market); idx >= 0 {
		return idx, nil
	}
	for i := range p.LpBuckets {
		if p.LpBuckets[i].Empty() {
			p.LpBuckets[i] = LpBucket{Market: market, Active: true}
			return i, nil
		}
	}
	return 0, ErrLpBucketsFull
}

// BurnLpShares redeems shares of a Slab-LP bucket for a proportional share
// of its quote/base reserves at the supplied price, subject to the same
// oracle staleness bound Execute enforces (SPEC_FULL.md §4.6). The
// redemption value is credited to principal/equity.
func (p *Portfolio) BurnLpShares(market crypto.Pubkey, shares value.I128, q oracle.Quote, now int64, maxStaleness int64) (value.I128, error) {
	idx := p.findLpBucket(market)
	if idx < 0 {
		return value.I128{}, ErrLpBucketNotFound
	}
	bucket := &p.LpBuckets[idx]
	if oracle.Stale(q, now, maxStaleness) {
		return value.I128{}, ErrOracleStale
	}
	if bucket.Shares.IsZero() {
		return value.I128{}, nil
	}

	quotePortion := bucket.QuoteReserve.MulUint64(mustU64(shares)).FloorDivUint64(mustU64(bucket.Shares))
	basePortion := bucket.BaseReserve.MulUint64(mustU64(shares)).FloorDivUint64(mustU64(bucket.Shares))
	baseValue := value.FromInt64(int64(0))
	if v, ok := basePortion.Int64(); ok {
		scaled, overflowed := value.MulDivInt64(v, q.Price, value.PriceScale)
		if !overflowed {
			baseValue = value.FromInt64(scaled)
		}
	}

	redemption, err := quotePortion.Add(baseValue)
	if err != nil {
		return value.I128{}, err
	}

	newShares, err := bucket.Shares.Sub(shares)
	if err != nil {
		return value.I128{}, err
	}
	newQuote, err := bucket.QuoteReserve.Sub(quotePortion)
	if err != nil {
		return value.I128{}, err
	}
	newBase, err := bucket.BaseReserve.Sub(basePortion)
	if err != nil {
		return value.I128{}, err
	}
	bucket.Shares = newShares
	bucket.QuoteReserve = newQuote
	bucket.BaseReserve = newBase
	bucket.LastPrice = q.Price
	bucket.LastTs = now

	if err := p.Deposit(redemption); err != nil {
		return value.I128{}, err
	}
	return redemption, nil
}

// CancelLpOrders releases quote/base amounts an LP bucket had earmarked
// against resting-order reservations, crediting them back to
// free_collateral (SPEC_FULL.md §4.6). Since v0 carries no resting order
// book, this is a pure bookkeeping reversal of the bucket's own reserved
// fields.
func (p *Portfolio) CancelLpOrders(market crypto.Pubkey, freedQuote, freedBase value.I128) error {
	idx := p.findLpBucket(market)
	if idx < 0 {
		return ErrLpBucketNotFound
	}
	bucket := &p.LpBuckets[idx]

	newReservedQuote, err := bucket.ReservedQuote.Sub(freedQuote)
	if err != nil {
		return err
	}
	newReservedBase, err := bucket.ReservedBase.Sub(freedBase)
	if err != nil {
		return err
	}
	bucket.ReservedQuote = newReservedQuote
	bucket.ReservedBase = newReservedBase

	released, err := freedQuote.Add(freedBase)
	if err != nil {
		return err
	}
	freeCollateral, err := p.Cross.FreeCollateral.Add(released)
	if err != nil {
		return err
	}
	p.Cross.FreeCollateral = freeCollateral
	return nil
}

func mustU64(v value.I128) uint64 {
	i, ok := v.Int64()
	if !ok || i < 0 {
		return 0
	}
	return uint64(i)
}
