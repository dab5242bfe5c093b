// Package registry implements the Registry singleton (spec.md §3, §4.1): the
// governance-owned directory that binds each Slab venue's persistent
// slab_index to its slab_id, oracle binding, and per-venue risk parameters.
package registry

import (
	"perpcore/crypto"
	"perpcore/perp/value"
)

// NSlabs is the fixed capacity of the Registry's SlabEntry array (spec.md §3).
const NSlabs = 16

// Magic identifies a Registry account's encoding on read.
var Magic = [8]byte{'P', 'E', 'R', 'P', 'R', 'E', 'G', 0}

// RiskKnobs holds the governance-configured parameters every Slab inherits a
// default from at auto-registration time (spec.md §4.5 step 2) and that the
// Router enforces globally (oracle tolerance, liquidation bands).
type RiskKnobs struct {
	InitialMarginBps     uint64
	MaintenanceMarginBps uint64
	LiquidationBandBps   uint64
	PreliqBufferBps      uint64
	PreliqBandBps        uint64
	PerSlabRouterCap     value.I128
	MinQuotingEquity     value.I128
	OracleToleranceBps   uint64
}

// SlabEntry records one registered venue (spec.md §3).
type SlabEntry struct {
	SlabID        crypto.Pubkey
	VersionHash   [32]byte
	OracleID      crypto.Pubkey
	ImrBps        uint64
	MmrBps        uint64
	FeeCapBps     uint64
	LatencySLA    uint64
	MaxExposure   value.I128
	RegisteredTs  int64
	Active        bool
}

// Registry is the singleton directory of active Slabs (spec.md §3, §4.1).
type Registry struct {
	RouterID   crypto.Pubkey
	Governance crypto.Pubkey
	SlabCount  uint16
	Bump       uint8

	Risk RiskKnobs

	Slabs [NSlabs]SlabEntry
}

// Live returns the registered slabs up to SlabCount, the invariant boundary
// spec.md §3 draws between live and unused entries.
func (r *Registry) Live() []SlabEntry {
	return r.Slabs[:r.SlabCount]
}
