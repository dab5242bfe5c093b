package router

import (
	"errors"

	"github.com/google/uuid"

	"perpcore/crypto"
	"perpcore/perp/oracle"
	"perpcore/perp/pda"
	"perpcore/perp/portfolio"
	"perpcore/perp/position"
	"perpcore/perp/registry"
	"perpcore/perp/slab"
	"perpcore/perp/value"
)

// ExecuteRequest is the decoded payload of instruction code 4 (spec.md
// §4.5 Inputs, §6.1). v0 carries exactly one split, so the per-split
// fields sit directly on the request rather than in a slice.
type ExecuteRequest struct {
	NumSplits uint8
	SlabAddr  crypto.Pubkey
	DlpOwner  crypto.Pubkey
	Side      value.Side
	Qty       int64
	LimitPx   int64
	Leverage  uint8
	Oracle    oracle.Quote
}

// ExecuteResult is what a successful Execute reports back to the caller
// for logging/response purposes; the durable record is the mutated
// accounts, not this struct.
type ExecuteResult struct {
	SlabIndex      uint16
	FillQty        int64
	FillPx         int64
	FeesPaid       int64
	RealizedPnl    int64
	NewPositionQty int64

	// OracleChecksum digests the quote this fill was validated against
	// (oracle.Checksum), so a log line or metric can be correlated back
	// to a specific oracle read without carrying the full Quote around.
	OracleChecksum [32]byte

	// CorrelationID is a fresh identifier minted per Execute call, for
	// tying together the log lines, emitted events, and metrics a single
	// call produces (not part of any account's durable state).
	CorrelationID string
}

// Execute runs the nine-step pipeline of spec.md §4.5: it validates the
// request, resolves the Slab's registry entry, invokes the Slab's
// commit_fill, classifies the fill against the caller's existing
// PositionDetails, and durably mutates both Portfolios and the
// PositionDetails in the order spec.md §4.5 step 8 lists. On any error no
// account is written.
func (e *Engine) Execute(caller crypto.Pubkey, req ExecuteRequest) (ExecuteResult, error) {
	if err := e.guard("router.execute"); err != nil {
		return ExecuteResult{}, err
	}
	correlationID := uuid.NewString()
	oracleChecksum := oracle.Checksum(req.Oracle)

	// Step 1: validation.
	if req.NumSplits != 1 {
		return ExecuteResult{}, ErrInvalidSplitCount
	}
	if req.Leverage < position.MinLeverage || req.Leverage > position.MaxLeverage {
		return ExecuteResult{}, ErrInvalidLeverage
	}

	venue, err := e.state.GetSlab(req.SlabAddr)
	if err != nil {
		return ExecuteResult{}, err
	}

	userAddr := pda.Portfolio(e.programID, caller)
	dlpAddr := pda.Portfolio(e.programID, req.DlpOwner)
	user, err := e.loadOrCreatePortfolio(userAddr, caller)
	if err != nil {
		return ExecuteResult{}, err
	}
	dlp, err := e.state.GetPortfolio(dlpAddr)
	if err != nil {
		return ExecuteResult{}, err
	}
	if dlp.User != venue.Header.LPOwner || req.DlpOwner != venue.Header.LPOwner {
		return ExecuteResult{}, ErrDlpOwnerMismatch
	}

	// Step 2: registry lookup, auto-registering if policy allows.
	regAddr, _ := pda.Registry(e.programID)
	reg, err := e.state.GetRegistry(regAddr)
	if err != nil {
		return ExecuteResult{}, err
	}
	slabIndex, autoRegistered, err := e.resolveSlabIndex(reg, req.SlabAddr, venue.Header.ProgramID)
	if err != nil {
		return ExecuteResult{}, err
	}
	entry, err := reg.Entry(slabIndex)
	if err != nil {
		return ExecuteResult{}, err
	}
	if !entry.Active {
		return ExecuteResult{}, ErrSlabNotRegistered
	}

	// Step 3: oracle read, enforced against Registry-wide tolerance/staleness
	// ahead of the Slab's own (redundant, defense-in-depth) check.
	if oracle.ToleranceExceeded(req.Oracle, reg.Risk.OracleToleranceBps) {
		return ExecuteResult{}, ErrOracleUncertain
	}
	if oracle.Stale(req.Oracle, e.now(), DefaultMaxOracleAgeSeconds) {
		return ExecuteResult{}, ErrOracleStale
	}

	// Step 4: margin computation.
	notional := value.FromInt64(value.SaturatingMulDivInt64(req.Qty, req.Oracle.Price, value.PriceScale))
	marginRequired := notional.FloorDivUint64(uint64(req.Leverage))

	if notionalMag, ok := notional.Int64(); ok {
		if err := e.checkQuota("router.execute", caller, uint64(abs64(notionalMag))); err != nil {
			return ExecuteResult{}, err
		}
	}

	pdAddr, _ := pda.PositionDetails(e.programID, userAddr, slabIndex, instrumentIndex)
	pd, err := e.loadOrCreatePositionDetails(pdAddr, userAddr, slabIndex)
	if err != nil {
		return ExecuteResult{}, err
	}
	currentQty := pd.TotalQty

	opensOrIncreases := currentQty == 0 || sign64(currentQty) == sign64(int64(value.SignedQty(req.Side, req.Qty)))
	if opensOrIncreases {
		free, err := user.Cross.Equity.Sub(user.Cross.Im)
		if err != nil {
			return ExecuteResult{}, err
		}
		if free.Cmp(marginRequired) < 0 {
			return ExecuteResult{}, ErrInsufficientEquity
		}
	}

	// Step 5: Slab CPI.
	authority, _ := pda.Authority(e.programID)
	receipt, err := slab.CommitFill(&venue.Header, &venue.QuoteCache, slab.CommitFillParams{
		Authority: authority,
		Request: slab.Request{
			ExpectedSeqno: venue.Header.Seqno,
			Side:          req.Side,
			Qty:           req.Qty,
			LimitPx:       req.LimitPx,
		},
		Oracle:       req.Oracle,
		ToleranceBps: reg.Risk.OracleToleranceBps,
		MaxOracleAge: DefaultMaxOracleAgeSeconds,
		Now:          e.now(),
	})
	if err != nil {
		return ExecuteResult{}, err
	}

	// Step 6: receipt consumption.
	if receipt.FillQty != req.Qty {
		return ExecuteResult{}, ErrUnexpectedPartial
	}

	// Step 7: PositionDetails classification and update.
	deltaQty := int64(value.SignedQty(req.Side, receipt.FillQty))
	var realizedPnl, marginToRelease, marginPosted value.I128
	var newQty int64

	switch {
	case currentQty == 0 || sign64(currentQty) == sign64(deltaQty):
		// Open/Increase.
		if err := pd.OpenOrAdd(receipt.FillPx, deltaQty, marginRequired, req.Leverage, e.now()); err != nil {
			return ExecuteResult{}, err
		}
		marginPosted = marginRequired
		newQty = pd.TotalQty

	case abs64(deltaQty) <= abs64(currentQty):
		// Reduce.
		realizedPnl, newQty, marginToRelease, err = pd.Reduce(receipt.FillPx, deltaQty, e.now())
		if err != nil {
			return ExecuteResult{}, err
		}

	default:
		// Flip: the open leg's margin is computed from the remainder's own
		// notional, not the full request quantity (spec.md §4.5 step 7/8a;
		// see scenario S5).
		remainderQty := deltaQty + currentQty
		remainderNotional := value.FromInt64(value.SaturatingMulDivInt64(abs64(remainderQty), receipt.FillPx, value.PriceScale))
		marginPosted = remainderNotional.FloorDivUint64(uint64(req.Leverage))

		realizedPnl, marginToRelease, err = pd.Flip(receipt.FillPx, deltaQty, marginPosted, req.Leverage, e.now())
		if err != nil {
			return ExecuteResult{}, err
		}
		newQty = pd.TotalQty
	}

	// Step 8: durable mutations, in order.
	if err := applyMarginPosting(user, dlp, marginPosted); err != nil {
		return ExecuteResult{}, err
	}
	if err := e.transferIfPositive(userAddr, dlpAddr, marginPosted); err != nil {
		return ExecuteResult{}, err
	}

	if err := applyMarginRelease(user, dlp, marginToRelease); err != nil {
		return ExecuteResult{}, err
	}
	if marginToRelease.Sign() > 0 {
		bal, err := e.state.NativeBalance(dlpAddr)
		if err != nil {
			return ExecuteResult{}, err
		}
		if bal.Cmp(value.AccountingToBalance(marginToRelease)) < 0 {
			return ExecuteResult{}, ErrDlpInsolvent
		}
		if err := e.state.TransferNative(dlpAddr, userAddr, value.AccountingToBalance(marginToRelease)); err != nil {
			return ExecuteResult{}, err
		}
	}

	if err := applyPnlSettlement(user, dlp, realizedPnl); err != nil {
		return ExecuteResult{}, err
	}
	if realizedPnl.Sign() > 0 {
		if err := e.transferIfPositive(dlpAddr, userAddr, realizedPnl); err != nil {
			return ExecuteResult{}, err
		}
	} else if realizedPnl.Sign() < 0 {
		if err := e.transferIfPositive(userAddr, dlpAddr, realizedPnl.Neg()); err != nil {
			return ExecuteResult{}, err
		}
	}

	if err := user.ApplyExposureDelta(slabIndex, instrumentIndex, newQty); err != nil {
		return ExecuteResult{}, err
	}

	if err := e.recomputeMargins(user, reg, userAddr, pdAddr, pd); err != nil {
		return ExecuteResult{}, err
	}
	if err := e.recomputeMargins(dlp, reg, dlpAddr, pdAddr, pd); err != nil {
		return ExecuteResult{}, err
	}

	fees := value.FromInt64(receipt.FeesPaid)
	if err := applyMarginPosting(user, dlp, fees); err != nil {
		return ExecuteResult{}, err
	}
	if err := e.transferIfPositive(userAddr, dlpAddr, fees); err != nil {
		return ExecuteResult{}, err
	}

	// Step 9: post-condition check.
	if err := user.CheckMaintenance(); err != nil {
		return ExecuteResult{}, err
	}

	if err := e.state.PutPortfolio(userAddr, user); err != nil {
		return ExecuteResult{}, err
	}
	if err := e.state.PutPortfolio(dlpAddr, dlp); err != nil {
		return ExecuteResult{}, err
	}
	if err := e.state.PutPositionDetails(pdAddr, pd); err != nil {
		return ExecuteResult{}, err
	}
	if err := e.state.PutSlab(req.SlabAddr, venue); err != nil {
		return ExecuteResult{}, err
	}
	if autoRegistered {
		if err := e.state.PutRegistry(regAddr, reg); err != nil {
			return ExecuteResult{}, err
		}
		e.emit(SlabRegisteredEvent{SlabID: req.SlabAddr, SlabIndex: slabIndex, Auto: true})
	}

	pnl, _ := realizedPnl.Int64()
	e.emit(TradeExecutedEvent{
		User: caller, DlpOwner: req.DlpOwner, SlabIndex: slabIndex, InstrumentIndex: instrumentIndex,
		Side: uint8(req.Side), FillQty: receipt.FillQty, FillPx: receipt.FillPx, FeesPaid: receipt.FeesPaid,
		RealizedPnl: pnl, NewPositionQty: newQty, CorrelationID: correlationID,
	})

	return ExecuteResult{
		SlabIndex: slabIndex, FillQty: receipt.FillQty, FillPx: receipt.FillPx,
		FeesPaid: receipt.FeesPaid, RealizedPnl: pnl, NewPositionQty: newQty,
		OracleChecksum: oracleChecksum, CorrelationID: correlationID,
	}, nil
}

// resolveSlabIndex implements spec.md §4.5 step 2: look up slabAddr in the
// Registry, auto-registering it with inherited risk defaults if absent,
// the Registry has capacity, and the deployment has opted into that
// fallback (SetAllowAutoRegister).
func (e *Engine) resolveSlabIndex(reg *registry.Registry, slabAddr, oracleID crypto.Pubkey) (uint16, bool, error) {
	idx, err := reg.Lookup(slabAddr)
	if err == nil {
		return idx, false, nil
	}
	if !errors.Is(err, registry.ErrNotFound) {
		return 0, false, err
	}
	if !e.allowAutoRegister {
		return 0, false, ErrSlabNotRegistered
	}
	idx, err = reg.AutoRegister(slabAddr, oracleID, e.now())
	if err != nil {
		return 0, false, ErrSlabNotRegistered
	}
	return idx, true, nil
}

func (e *Engine) loadOrCreatePositionDetails(addr, portfolioAddr crypto.Pubkey, slabIndex uint16) (*position.Details, error) {
	d, err := e.state.GetPositionDetails(addr)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}
	return &position.Details{Portfolio: portfolioAddr, SlabIndex: slabIndex, InstrumentIndex: instrumentIndex}, nil
}

func (e *Engine) transferIfPositive(from, to crypto.Pubkey, amount value.I128) error {
	if amount.Sign() <= 0 {
		return nil
	}
	return e.state.TransferNative(from, to, value.AccountingToBalance(amount))
}

// applyMarginPosting implements spec.md §4.5 step 8a.
func applyMarginPosting(user, dlp *portfolio.Portfolio, amount value.I128) error {
	if amount.Sign() <= 0 {
		return nil
	}
	var err error
	if user.Cross.Equity, err = user.Cross.Equity.Sub(amount); err != nil {
		return err
	}
	if user.Vest.Principal, err = user.Vest.Principal.Sub(amount); err != nil {
		return err
	}
	if dlp.Cross.Equity, err = dlp.Cross.Equity.Add(amount); err != nil {
		return err
	}
	if dlp.Vest.Principal, err = dlp.Vest.Principal.Add(amount); err != nil {
		return err
	}
	return nil
}

// applyMarginRelease implements spec.md §4.5 step 8b.
func applyMarginRelease(user, dlp *portfolio.Portfolio, amount value.I128) error {
	if amount.Sign() <= 0 {
		return nil
	}
	var err error
	if user.Cross.Equity, err = user.Cross.Equity.Add(amount); err != nil {
		return err
	}
	if user.Vest.Principal, err = user.Vest.Principal.Add(amount); err != nil {
		return err
	}
	if dlp.Cross.Equity, err = dlp.Cross.Equity.Sub(amount); err != nil {
		return err
	}
	if dlp.Vest.Principal, err = dlp.Vest.Principal.Sub(amount); err != nil {
		return err
	}
	return nil
}

// applyPnlSettlement implements spec.md §4.5 step 8c. The prose names only
// the .pnl mutation; .equity is kept in lock-step so the equity ==
// principal + pnl invariant (spec.md §8 property 2) continues to hold
// after a leg that does not otherwise touch principal.
func applyPnlSettlement(user, dlp *portfolio.Portfolio, realized value.I128) error {
	if realized.IsZero() {
		return nil
	}
	var err error
	if user.Vest.Pnl, err = user.Vest.Pnl.Add(realized); err != nil {
		return err
	}
	if user.Cross.Equity, err = user.Cross.Equity.Add(realized); err != nil {
		return err
	}
	if dlp.Vest.Pnl, err = dlp.Vest.Pnl.Sub(realized); err != nil {
		return err
	}
	if dlp.Cross.Equity, err = dlp.Cross.Equity.Sub(realized); err != nil {
		return err
	}
	return nil
}

// recomputeMargins implements spec.md §4.5 step 8e: im/mm/free_collateral/
// health are resummed from every open PositionDetails the Portfolio's
// exposures array references, not just the leg that just traded.
//
// The leg just classified in step 7 (dirtyAddr/dirty) is not yet durable:
// PutPositionDetails only runs after both recompute calls, so state still
// holds the pre-trade PD (or nothing at all, on an opening trade). Reading
// through to state for that one leg would sum stale or missing margin,
// which is exactly backwards for the account that just traded. Instead,
// substitute the in-memory pd whenever the derived address matches.
func (e *Engine) recomputeMargins(p *portfolio.Portfolio, reg *registry.Registry, portfolioAddr, dirtyAddr crypto.Pubkey, dirty *position.Details) error {
	inputs := make([]portfolio.MarginInputs, 0, p.Cross.ExposureCount)
	for i := 0; i < int(p.Cross.ExposureCount); i++ {
		exp := p.Exposures[i]
		addr, _ := pda.PositionDetails(e.programID, portfolioAddr, exp.SlabIndex, exp.InstrumentIndex)

		var d *position.Details
		if dirty != nil && addr == dirtyAddr {
			d = dirty
		} else {
			var err error
			d, err = e.state.GetPositionDetails(addr)
			if err != nil {
				if errors.Is(err, ErrAccountNotFound) {
					continue
				}
				return err
			}
		}
		if !d.IsOpen() {
			continue
		}
		entry, err := reg.Entry(exp.SlabIndex)
		if err != nil {
			continue
		}
		notional := value.FromInt64(value.SaturatingMulDivInt64(abs64(d.TotalQty), d.AvgEntryPrice, value.PriceScale))
		inputs = append(inputs, portfolio.MarginInputs{Notional: notional, Leverage: d.Leverage, MmrBps: entry.MmrBps})
	}
	return p.RecomputeMargins(inputs, e.now())
}
