package router

import (
	"perpcore/crypto"
	"perpcore/perp/codec"
	"perpcore/perp/oracle"
	"perpcore/perp/registry"
	"perpcore/perp/value"
)

// Instruction codes (spec.md §6.1). The table there lists eight rows
// (codes 0-7) though its lead-in prose says "nine instructions"; this
// module treats the table as authoritative and exposes exactly these
// eight (documented as a resolved discrepancy rather than an omission).
const (
	InstrInitialize byte = iota
	InstrInitializePortfolio
	InstrDeposit
	InstrWithdraw
	InstrExecute
	InstrLiquidateUser
	InstrBurnLpShares
	InstrCancelLpOrders
)

// Dispatch decodes payload per the instruction code's fixed layout
// (spec.md §6.1) and routes to the matching handler. caller is the
// transaction's verified signer, supplied by the surrounding runtime, not
// decoded from payload.
func (e *Engine) Dispatch(caller crypto.Pubkey, code byte, payload []byte) error {
	switch code {
	case InstrInitialize:
		governance, err := decodeInitializePayload(payload)
		if err != nil {
			return err
		}
		return e.Initialize(governance, defaultRiskKnobs())

	case InstrInitializePortfolio:
		return e.InitializePortfolio(caller)

	case InstrDeposit:
		amount, err := decodeAmountPayload(payload)
		if err != nil {
			return err
		}
		return e.Deposit(caller, amount)

	case InstrWithdraw:
		amount, err := decodeAmountPayload(payload)
		if err != nil {
			return err
		}
		return e.Withdraw(caller, amount)

	case InstrExecute:
		req, err := decodeExecutePayload(payload)
		if err != nil {
			return err
		}
		_, err = e.Execute(caller, req)
		return err

	case InstrLiquidateUser:
		isPreliq, currentTs, err := decodeLiquidatePayload(payload)
		if err != nil {
			return err
		}
		return e.LiquidateUser(caller, isPreliq, currentTs)

	case InstrBurnLpShares:
		market, shares, q, now, maxStaleness, err := decodeBurnLpSharesPayload(payload)
		if err != nil {
			return err
		}
		_, err = e.BurnLpShares(caller, market, shares, q, now, maxStaleness)
		return err

	case InstrCancelLpOrders:
		market, freedQuote, freedBase, err := decodeCancelLpOrdersPayload(payload)
		if err != nil {
			return err
		}
		return e.CancelLpOrders(caller, market, freedQuote, freedBase)

	default:
		return ErrUnknownDiscriminant
	}
}

// defaultRiskKnobs seeds a fresh Registry's global parameters when
// Initialize's payload (spec.md §6.1: `governance: 32 B`) carries no room
// for them; a deployment that needs non-default knobs calls RegisterSlab
// per-venue overrides instead, or a governance-only follow-up instruction
// this core does not define (out of scope, spec.md §1: operator tooling).
func defaultRiskKnobs() registry.RiskKnobs {
	return registry.RiskKnobs{
		InitialMarginBps:     1_000,
		MaintenanceMarginBps: 500,
		LiquidationBandBps:   200,
		PreliqBufferBps:      100,
		PreliqBandBps:        150,
		PerSlabRouterCap:     value.FromInt64(1_000_000_000),
		MinQuotingEquity:     value.FromInt64(1_000),
		OracleToleranceBps:   100,
	}
}

func decodeInitializePayload(payload []byte) (crypto.Pubkey, error) {
	r := codec.NewReader(payload)
	return r.Pubkey()
}

func decodeAmountPayload(payload []byte) (int64, error) {
	r := codec.NewReader(payload)
	u, err := r.U64()
	return int64(u), err
}

func decodeLiquidatePayload(payload []byte) (bool, int64, error) {
	r := codec.NewReader(payload)
	isPreliq, err := r.Bool()
	if err != nil {
		return false, 0, err
	}
	currentTs, err := r.U64()
	if err != nil {
		return false, 0, err
	}
	return isPreliq, int64(currentTs), nil
}

// decodeExecutePayload parses the fixed header spec.md §6.1's Execute row
// describes, generalized from `num_splits` to the one split v0 supports,
// plus the slab/dlp_owner addresses and oracle account bytes the
// accounts list (spec.md §4.5) would otherwise supply out of band.
func decodeExecutePayload(payload []byte) (ExecuteRequest, error) {
	r := codec.NewReader(payload)
	var req ExecuteRequest
	var err error

	if req.SlabAddr, err = r.Pubkey(); err != nil {
		return req, err
	}
	if req.DlpOwner, err = r.Pubkey(); err != nil {
		return req, err
	}
	numSplits, err := r.U8()
	if err != nil {
		return req, err
	}
	req.NumSplits = numSplits
	sideByte, err := r.U8()
	if err != nil {
		return req, err
	}
	req.Side = value.Side(sideByte)
	leverage, err := r.U8()
	if err != nil {
		return req, err
	}
	req.Leverage = leverage
	if err := r.Skip(5); err != nil {
		return req, err
	}
	qty, err := r.I64()
	if err != nil {
		return req, err
	}
	req.Qty = qty
	limitPx, err := r.I64()
	if err != nil {
		return req, err
	}
	req.LimitPx = limitPx

	rest, err := r.FixedBytes(r.Remaining())
	if err != nil {
		return req, err
	}
	req.Oracle, err = oracle.Decode(rest)
	return req, err
}

func decodeBurnLpSharesPayload(payload []byte) (market crypto.Pubkey, shares int64, q oracle.Quote, now int64, maxStaleness int64, err error) {
	r := codec.NewReader(payload)
	if market, err = r.Pubkey(); err != nil {
		return
	}
	sharesI128, err := r.I128()
	if err != nil {
		return
	}
	shares, _ = sharesI128.Int64()

	price, err := r.I64()
	if err != nil {
		return
	}
	ts, err := r.U64()
	if err != nil {
		return
	}
	ms, err := r.U64()
	if err != nil {
		return
	}
	q = oracle.Quote{Price: price, Timestamp: int64(ts)}
	now = int64(ts)
	maxStaleness = int64(ms)
	return
}

func decodeCancelLpOrdersPayload(payload []byte) (market crypto.Pubkey, freedQuote, freedBase int64, err error) {
	r := codec.NewReader(payload)
	if market, err = r.Pubkey(); err != nil {
		return
	}
	quoteI128, err := r.I128()
	if err != nil {
		return
	}
	baseI128, err := r.I128()
	if err != nil {
		return
	}
	freedQuote, _ = quoteI128.Int64()
	freedBase, _ = baseI128.Int64()
	return
}
