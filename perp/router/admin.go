package router

import (
	"errors"

	"perpcore/crypto"
	"perpcore/perp/oracle"
	"perpcore/perp/pda"
	"perpcore/perp/portfolio"
	"perpcore/perp/registry"
	"perpcore/perp/value"
)

// Initialize seeds the singleton Registry (instruction code 0, spec.md
// §4.1, §6.1). caller becomes the governance signer recorded on the
// Registry; Dispatch passes the governance key decoded from the Initialize
// payload here.
func (e *Engine) Initialize(caller crypto.Pubkey, risk registry.RiskKnobs) error {
	addr, bump := pda.Registry(e.programID)
	if _, err := e.state.GetRegistry(addr); err == nil {
		return ErrAlreadyInitialized
	} else if !errors.Is(err, ErrAccountNotFound) {
		return err
	}

	r, err := registry.Initialize(e.programID, caller, bump, risk)
	if err != nil {
		return err
	}
	return e.state.PutRegistry(addr, r)
}

// InitializePortfolio creates an empty cross-margin Portfolio for caller
// (instruction code 1). spec.md §3 lifecycle also allows lazy creation on
// first Deposit/Execute; this instruction exists for callers that want to
// pay the account's rent up front.
func (e *Engine) InitializePortfolio(caller crypto.Pubkey) error {
	addr := pda.Portfolio(e.programID, caller)
	if _, err := e.state.GetPortfolio(addr); err == nil {
		return ErrAlreadyInitialized
	} else if !errors.Is(err, ErrAccountNotFound) {
		return err
	}
	return e.state.PutPortfolio(addr, &portfolio.Portfolio{RouterID: e.programID, User: caller})
}

// Deposit credits caller's Portfolio principal/equity and its on-chain
// balance by the same amount (instruction code 2, spec.md §4.3). Creates
// the Portfolio lazily if this is the first interaction.
func (e *Engine) Deposit(caller crypto.Pubkey, amount int64) error {
	if err := e.guard("router.deposit"); err != nil {
		return err
	}
	addr := pda.Portfolio(e.programID, caller)
	p, err := e.loadOrCreatePortfolio(addr, caller)
	if err != nil {
		return err
	}

	acct := value.FromInt64(amount)
	if err := p.Deposit(acct); err != nil {
		return err
	}
	if err := e.state.TransferNative(caller, addr, value.AccountingToBalance(acct)); err != nil {
		return err
	}
	if err := e.state.PutPortfolio(addr, p); err != nil {
		return err
	}
	e.emit(DepositedEvent{User: caller, Amount: amount})
	return nil
}

// Withdraw debits caller's Portfolio principal/equity and balance
// (instruction code 3, spec.md §4.3).
func (e *Engine) Withdraw(caller crypto.Pubkey, amount int64) error {
	if err := e.guard("router.withdraw"); err != nil {
		return err
	}
	addr := pda.Portfolio(e.programID, caller)
	p, err := e.state.GetPortfolio(addr)
	if err != nil {
		return err
	}

	acct := value.FromInt64(amount)
	if err := p.Withdraw(acct); err != nil {
		return err
	}
	if err := e.state.TransferNative(addr, caller, value.AccountingToBalance(acct)); err != nil {
		return err
	}
	if err := e.state.PutPortfolio(addr, p); err != nil {
		return err
	}
	e.emit(WithdrawnEvent{User: caller, Amount: amount})
	return nil
}

// LiquidateUser records a liquidation-eligibility flag on a user's
// Portfolio (instruction code 5, SPEC_FULL.md §4.7). It computes no
// liquidation fill; the cooldown and preliquidation-buffer state machine
// sketched in spec.md §3 is all this core implements.
func (e *Engine) LiquidateUser(user crypto.Pubkey, isPreliq bool, currentTs int64) error {
	addr := pda.Portfolio(e.programID, user)
	p, err := e.state.GetPortfolio(addr)
	if err != nil {
		return err
	}
	regAddr, _ := pda.Registry(e.programID)
	reg, err := e.state.GetRegistry(regAddr)
	if err != nil {
		return err
	}

	if err := p.LiquidateUser(isPreliq, currentTs, DefaultLiquidationCooldownSeconds, reg.Risk.PreliqBufferBps); err != nil {
		return err
	}
	if err := e.state.PutPortfolio(addr, p); err != nil {
		return err
	}
	health, _ := p.Liq.Health.Int64()
	e.emit(LiquidationFlaggedEvent{User: user, Health: health, IsPreliq: isPreliq, FlaggedAt: currentTs})
	return nil
}

// BurnLpShares redeems shares of caller's Slab-LP bucket for market
// (instruction code 6, SPEC_FULL.md §4.6).
func (e *Engine) BurnLpShares(caller, market crypto.Pubkey, shares int64, q oracle.Quote, now int64, maxStaleness int64) (int64, error) {
	addr := pda.Portfolio(e.programID, caller)
	p, err := e.state.GetPortfolio(addr)
	if err != nil {
		return 0, err
	}

	redeemed, err := p.BurnLpShares(market, value.FromInt64(shares), q, now, maxStaleness)
	if err != nil {
		return 0, err
	}
	if err := e.state.PutPortfolio(addr, p); err != nil {
		return 0, err
	}
	out, _ := redeemed.Int64()
	return out, nil
}

// CancelLpOrders reverses a Slab-LP bucket's resting-order reservations
// (instruction code 7, SPEC_FULL.md §4.6).
func (e *Engine) CancelLpOrders(caller, market crypto.Pubkey, freedQuote, freedBase int64) error {
	addr := pda.Portfolio(e.programID, caller)
	p, err := e.state.GetPortfolio(addr)
	if err != nil {
		return err
	}
	if err := p.CancelLpOrders(market, value.FromInt64(freedQuote), value.FromInt64(freedBase)); err != nil {
		return err
	}
	return e.state.PutPortfolio(addr, p)
}

// loadOrCreatePortfolio returns the Portfolio at addr, creating a fresh
// one owned by user if none has been written yet.
func (e *Engine) loadOrCreatePortfolio(addr, user crypto.Pubkey) (*portfolio.Portfolio, error) {
	p, err := e.state.GetPortfolio(addr)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}
	return &portfolio.Portfolio{RouterID: e.programID, User: user}, nil
}
