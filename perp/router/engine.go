package router

import (
	"errors"

	"perpcore/core/events"
	"perpcore/crypto"
	"perpcore/native/common"
)

// DefaultMaxOracleAgeSeconds bounds how old an oracle quote may be before
// the Router itself rejects it, independent of the Slab's own staleness
// check in commit_fill (spec.md §4.5 step 3 names the check but, unlike
// the per-slab risk knobs in §3's Registry layout, does not give max_age a
// storage location; this module fixes it as a deployment-wide constant
// rather than adding an unstorred Registry field).
const DefaultMaxOracleAgeSeconds int64 = 30

// DefaultLiquidationCooldownSeconds is the cooldown LiquidateUser records
// on a Portfolio's liquidation state; LiquidateUser always uses this value.
// spec.md §3 reserves `cooldown_seconds` as stored per-Portfolio state but
// leaves its value to deployment policy (SPEC_FULL.md §4.7).
const DefaultLiquidationCooldownSeconds int64 = 300

// instrumentIndex is always 0 in v0: each Slab venue trades exactly one
// instrument, so PositionDetails and Portfolio.exposures never address a
// second slot of the N_INSTRUMENTS=32 array spec.md §3 provisions for
// future multi-instrument Slabs.
const instrumentIndex uint16 = 0

// Engine is the Router's instruction handler: dispatch, the Execute
// pipeline, and the thin admin operations, all depending only on the
// State interface (native/escrow/trade_engine.go's TradeEngine is the
// model: a struct holding state, an event emitter, and a now function,
// rather than free functions closing over package globals).
type Engine struct {
	programID crypto.Pubkey
	state     State
	emitter   events.Emitter
	nowFn     func() int64

	allowAutoRegister bool

	pauses     common.PauseView
	quotaStore common.Store
	quota      common.Quota
}

// NewEngine constructs an Engine bound to the Router's own program id
// (used to derive every PDA this package computes). Auto-registration
// (spec.md §4.5 step 2) defaults to disabled: SPEC_FULL.md's Open
// Questions flag it as contradicting governance-gated registration, so a
// deployment must opt in explicitly via SetAllowAutoRegister.
func NewEngine(programID crypto.Pubkey) *Engine {
	return &Engine{
		programID: programID,
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return 0 },
	}
}

// SetState wires the account-access backend.
func (e *Engine) SetState(s State) { e.state = s }

// SetEmitter wires the event sink; the zero Engine uses a NoopEmitter.
func (e *Engine) SetEmitter(em events.Emitter) { e.emitter = em }

// SetNowFn overrides the clock source, for deterministic tests.
func (e *Engine) SetNowFn(f func() int64) { e.nowFn = f }

// SetAllowAutoRegister toggles the Execute pipeline's fallback
// auto-registration path (spec.md §4.5 step 2).
func (e *Engine) SetAllowAutoRegister(allow bool) { e.allowAutoRegister = allow }

// SetPauseView wires a circuit breaker a governance-controlled pause
// registry can flip per module, in the style native/escrow/trade_engine.go
// guards its own mutating entrypoints with nativecommon.Guard. A nil view
// (the default) never pauses anything.
func (e *Engine) SetPauseView(p common.PauseView) { e.pauses = p }

// SetQuota wires a per-caller rate limit on Execute (native/common/quota.go),
// bounding both call frequency and notional volume per epoch. A nil store
// (the default) disables the check.
func (e *Engine) SetQuota(store common.Store, q common.Quota) {
	e.quotaStore = store
	e.quota = q
}

func (e *Engine) now() int64 { return e.nowFn() }

func (e *Engine) emit(ev events.Event) { e.emitter.Emit(ev) }

// guard rejects the call if module is currently paused.
func (e *Engine) guard(module string) error {
	if err := common.Guard(e.pauses, module); err != nil {
		if errors.Is(err, common.ErrModulePaused) {
			return ErrPaused
		}
		return err
	}
	return nil
}

// checkQuota enforces the configured per-caller rate limit for module,
// counting one request and notionalAccounting accounting-scale units of
// volume against the caller's current epoch bucket. A zero Quota or unset
// store is a no-op.
func (e *Engine) checkQuota(module string, caller crypto.Pubkey, notionalAccounting uint64) error {
	if e.quotaStore == nil {
		return nil
	}
	epochSeconds := int64(e.quota.EpochSeconds)
	if epochSeconds <= 0 {
		epochSeconds = 1
	}
	epoch := uint64(e.now() / epochSeconds)
	_, err := common.Apply(e.quotaStore, module, epoch, caller.Bytes(), e.quota, 1, notionalAccounting)
	if err != nil {
		if errors.Is(err, common.ErrQuotaRequestsExceeded) || errors.Is(err, common.ErrQuotaNHBCapExceeded) {
			return ErrRateLimited
		}
		return err
	}
	return nil
}

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
