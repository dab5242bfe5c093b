package position

import (
	"perpcore/perp/value"
)

func sign64(v int64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// OpenOrAdd implements open_or_add (spec.md §4.4): extends or opens the
// position's exposure with a new VWAP entry price and size-weighted
// leverage, posting marginIn against it.
func (d *Details) OpenOrAdd(entryPx, deltaQty int64, marginIn value.I128, leverage uint8, now int64) error {
	priorQty := abs64(d.TotalQty)
	deltaMag := abs64(deltaQty)

	if priorQty == 0 {
		d.AvgEntryPrice = entryPx
		d.Leverage = leverage
	} else {
		num, overflow := value.MulDivInt64(d.AvgEntryPrice, priorQty, 1)
		if overflow {
			return value.ErrOverflow
		}
		num2, overflow := value.MulDivInt64(entryPx, deltaMag, 1)
		if overflow {
			return value.ErrOverflow
		}
		newVWAP, overflow := value.MulDivInt64(num+num2, 1, priorQty+deltaMag)
		if overflow {
			return value.ErrOverflow
		}
		d.AvgEntryPrice = newVWAP

		weighted := int64(priorQty)*int64(d.Leverage) + int64(deltaMag)*int64(leverage)
		total := priorQty + deltaMag
		// Round to nearest: add half the divisor before flooring.
		rounded := (weighted + total/2) / total
		d.Leverage = uint8(rounded)
	}

	d.TotalQty += deltaQty
	held, err := d.MarginHeld.Add(marginIn)
	if err != nil {
		return err
	}
	d.MarginHeld = held
	return nil
}

// Reduce implements reduce (spec.md §4.4): closes up to the full open
// quantity, returning the realized PnL delta and the proportional margin
// released. deltaQtyClosing must oppose the position's current side and
// not exceed it in magnitude -- a flip should be used otherwise.
func (d *Details) Reduce(exitPx, deltaQtyClosing int64, now int64) (realizedPnlDelta value.I128, newTotalQty int64, marginToRelease value.I128, err error) {
	if d.TotalQty == 0 || sign64(deltaQtyClosing) != -sign64(d.TotalQty) {
		return value.I128{}, d.TotalQty, value.I128{}, ErrWrongDirection
	}
	if abs64(deltaQtyClosing) > abs64(d.TotalQty) {
		return value.I128{}, d.TotalQty, value.I128{}, ErrOverClose
	}

	originalSide := int64(sign64(d.TotalQty))
	priceDelta := exitPx - d.AvgEntryPrice
	scaled, overflow := value.MulDivInt64(abs64(deltaQtyClosing)*originalSide, priceDelta, value.PriceScale)
	if overflow {
		return value.I128{}, d.TotalQty, value.I128{}, value.ErrOverflow
	}
	realizedPnlDelta = value.FromInt64(scaled)

	marginToRelease = d.MarginHeld.MulUint64(uint64(abs64(deltaQtyClosing))).FloorDivUint64(uint64(abs64(d.TotalQty)))

	held, err := d.MarginHeld.Sub(marginToRelease)
	if err != nil {
		return value.I128{}, d.TotalQty, value.I128{}, err
	}
	d.MarginHeld = held
	d.TotalQty += deltaQtyClosing

	if d.TotalQty == 0 {
		d.AvgEntryPrice = 0
		d.Leverage = 0
		d.MarginHeld = value.ZeroI128()
	}

	return realizedPnlDelta, d.TotalQty, marginToRelease, nil
}

// Flip implements flip (spec.md §4.4): a full close of the current
// position followed by an open in the opposite direction for the
// remainder, combining both legs' outputs. marginInRemainder is the
// margin posted against the newly opened remainder (computed by the
// caller from the remainder's notional, same as any Open/Increase).
func (d *Details) Flip(exitPx, deltaQty int64, marginInRemainder value.I128, leverage uint8, now int64) (realizedPnlDelta value.I128, marginToRelease value.I128, err error) {
	if d.TotalQty == 0 || sign64(deltaQty) != -sign64(d.TotalQty) {
		return value.I128{}, value.I128{}, ErrWrongDirection
	}
	if abs64(deltaQty) <= abs64(d.TotalQty) {
		return value.I128{}, value.I128{}, ErrUnderClose
	}

	closeQty := -d.TotalQty
	realizedPnlDelta, _, marginToRelease, err = d.Reduce(exitPx, closeQty, now)
	if err != nil {
		return value.I128{}, value.I128{}, err
	}

	remainder := deltaQty - closeQty
	if err := d.OpenOrAdd(exitPx, remainder, marginInRemainder, leverage, now); err != nil {
		return value.I128{}, value.I128{}, err
	}

	return realizedPnlDelta, marginToRelease, nil
}
