package router

import (
	"perpcore/crypto"
	"perpcore/perp/portfolio"
	"perpcore/perp/position"
	"perpcore/perp/registry"
	"perpcore/perp/slab"
	"perpcore/perp/value"
)

// State is the narrow account-access surface Engine depends on, in the
// style of native/escrow/trade_engine.go's engineState/tradeEngineState
// interfaces: Engine never touches storage directly, so its pipeline logic
// is testable against an in-memory fake and a core/state.Manager-backed
// implementation can be swapped in without changing this package.
//
// Get* methods return ErrAccountNotFound for an address that has never
// been written; callers that create accounts lazily (Portfolio,
// PositionDetails) treat that as "start from the zero value", not failure.
type State interface {
	GetRegistry(addr crypto.Pubkey) (*registry.Registry, error)
	PutRegistry(addr crypto.Pubkey, r *registry.Registry) error

	GetPortfolio(addr crypto.Pubkey) (*portfolio.Portfolio, error)
	PutPortfolio(addr crypto.Pubkey, p *portfolio.Portfolio) error

	GetPositionDetails(addr crypto.Pubkey) (*position.Details, error)
	PutPositionDetails(addr crypto.Pubkey, d *position.Details) error

	GetSlab(addr crypto.Pubkey) (*slab.Venue, error)
	PutSlab(addr crypto.Pubkey, v *slab.Venue) error

	// NativeBalance reports an address's raw on-chain coin balance (1e9
	// minor units per coin, spec.md §6.4).
	NativeBalance(addr crypto.Pubkey) (value.I128, error)
	// TransferNative moves amount (raw balance units) from one address's
	// balance to another's, failing if from's balance would go negative.
	TransferNative(from, to crypto.Pubkey, amount value.I128) error
}
