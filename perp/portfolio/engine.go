package portfolio

import (
	"perpcore/perp/value"
)

// Deposit credits principal and equity by amount (accounting-scale units)
// and is expected to be paired by the caller with an equal raw native-coin
// transfer into the Portfolio's own balance (spec.md §4.3).
func (p *Portfolio) Deposit(amount value.I128) error {
	principal, err := p.Vest.Principal.Add(amount)
	if err != nil {
		return err
	}
	equity, err := p.Cross.Equity.Add(amount)
	if err != nil {
		return err
	}
	p.Vest.Principal = principal
	p.Cross.Equity = equity
	return nil
}

// Withdraw debits principal and equity by amount, rejecting the withdrawal
// if the resulting equity would fall below the posted initial margin
// (spec.md §4.3).
func (p *Portfolio) Withdraw(amount value.I128) error {
	newEquity, err := p.Cross.Equity.Sub(amount)
	if err != nil {
		return err
	}
	if newEquity.Cmp(p.Cross.Im) < 0 {
		return ErrInsufficientEquity
	}
	principal, err := p.Vest.Principal.Sub(amount)
	if err != nil {
		return err
	}
	p.Vest.Principal = principal
	p.Cross.Equity = newEquity
	return nil
}

// ApplyExposureDelta updates the dense exposures prefix for (slabIndex,
// instrumentIndex), compacting a slot out of the live set when its
// quantity returns to zero (spec.md §4.3).
func (p *Portfolio) ApplyExposureDelta(slabIndex, instrumentIndex uint16, newQty int64) error {
	live := int(p.Cross.ExposureCount)
	idx := -1
	for i := 0; i < live; i++ {
		e := p.Exposures[i]
		if e.SlabIndex == slabIndex && e.InstrumentIndex == instrumentIndex {
			idx = i
			break
		}
	}

	if idx == -1 {
		if newQty == 0 {
			return nil
		}
		if live >= NExposures {
			return ErrExposuresFull
		}
		p.Exposures[live] = Exposure{SlabIndex: slabIndex, InstrumentIndex: instrumentIndex, PositionQty: newQty}
		p.Cross.ExposureCount++
		return nil
	}

	if newQty == 0 {
		last := live - 1
		p.Exposures[idx] = p.Exposures[last]
		p.Exposures[last] = Exposure{}
		p.Cross.ExposureCount--
		return nil
	}

	p.Exposures[idx].PositionQty = newQty
	return nil
}

// MarginInputs is one open PositionDetails' contribution to the margin
// recomputation sum (spec.md §4.5 step 8e): im = Σ notional/leverage,
// mm = Σ notional × mmr_bps / 10_000.
type MarginInputs struct {
	Notional value.I128
	Leverage uint8
	MmrBps   uint64
}

// RecomputeMargins recomputes im, mm, free_collateral, and health from the
// caller-supplied set of open positions' notional/leverage (spec.md §4.5
// step 8e), and advances last_mark_ts.
func (p *Portfolio) RecomputeMargins(inputs []MarginInputs, now int64) error {
	im := value.ZeroI128()
	mm := value.ZeroI128()
	for _, in := range inputs {
		if in.Leverage == 0 {
			continue
		}
		legIm := in.Notional.FloorDivUint64(uint64(in.Leverage))
		var err error
		im, err = im.Add(legIm)
		if err != nil {
			return err
		}
		legMm := value.MulDivBps(in.Notional, in.MmrBps)
		mm, err = mm.Add(legMm)
		if err != nil {
			return err
		}
	}
	p.Cross.Im = im
	p.Cross.Mm = mm

	free, err := p.Cross.Equity.Sub(im)
	if err != nil {
		return err
	}
	p.Cross.FreeCollateral = free

	health, err := p.Cross.Equity.Sub(mm)
	if err != nil {
		return err
	}
	p.Liq.Health = health
	p.Cross.LastMarkTs = now
	return nil
}

// CheckMaintenance enforces the post-condition of spec.md §4.5 step 9:
// equity - mm must be non-negative after a mutation.
func (p *Portfolio) CheckMaintenance() error {
	if p.Liq.Health.Sign() < 0 {
		return ErrBreachesMaintenance
	}
	return nil
}
