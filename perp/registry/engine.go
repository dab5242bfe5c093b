package registry

import (
	"perpcore/crypto"
)

// RegisterSlabParams bundles the arguments register_slab takes: the venue's
// identity, its oracle binding, and the risk parameters governance assigns
// it (spec.md §4.1). A zero ImrBps or MmrBps inherits the Registry's global
// default; a zero FeeCapBps stays zero. This mirrors the auto-registration fallback in
// spec.md §4.5 step 2.
type RegisterSlabParams struct {
	SlabID      crypto.Pubkey
	VersionHash [32]byte
	OracleID    crypto.Pubkey
	ImrBps      uint64
	MmrBps      uint64
	FeeCapBps   uint64
	LatencySLA  uint64
}

// Initialize seeds a freshly zeroed Registry with its identity and global
// risk knobs. Called once by the governance signer (spec.md §4.1, §3
// lifecycle).
func Initialize(router, governance crypto.Pubkey, bump uint8, risk RiskKnobs) (*Registry, error) {
	return &Registry{
		RouterID:   router,
		Governance: governance,
		Bump:       bump,
		Risk:       risk,
	}, nil
}

// RegisterSlab appends a new SlabEntry, governance-gated, returning its
// stable index (spec.md §4.1). The index never rebinds once assigned,
// including after a later Deregister.
func (r *Registry) RegisterSlab(caller crypto.Pubkey, p RegisterSlabParams, now int64) (uint16, error) {
	if caller != r.Governance {
		return 0, ErrNotGovernance
	}
	for _, e := range r.Live() {
		if e.SlabID == p.SlabID {
			return 0, ErrDuplicate
		}
	}
	if int(r.SlabCount) >= NSlabs {
		return 0, ErrFull
	}

	imr, mmr, feeCap, latency := p.ImrBps, p.MmrBps, p.FeeCapBps, p.LatencySLA
	if imr == 0 {
		imr = r.Risk.InitialMarginBps
	}
	if mmr == 0 {
		mmr = r.Risk.MaintenanceMarginBps
	}

	idx := r.SlabCount
	r.Slabs[idx] = SlabEntry{
		SlabID:       p.SlabID,
		VersionHash:  p.VersionHash,
		OracleID:     p.OracleID,
		ImrBps:       imr,
		MmrBps:       mmr,
		FeeCapBps:    feeCap,
		LatencySLA:   latency,
		MaxExposure:  r.Risk.PerSlabRouterCap,
		RegisteredTs: now,
		Active:       true,
	}
	r.SlabCount++
	return idx, nil
}

// AutoRegister appends a new SlabEntry without a governance check, for the
// Router's own internal fallback path (spec.md §4.5 step 2: "if absent and
// the Registry has capacity, auto-register the slab with default risk
// parameters"). Unlike RegisterSlab this is never reachable from an
// external instruction; callers gate it behind a deployment's own
// auto-registration policy (SPEC_FULL.md Open Questions).
func (r *Registry) AutoRegister(slabID, oracleID crypto.Pubkey, now int64) (uint16, error) {
	if int(r.SlabCount) >= NSlabs {
		return 0, ErrFull
	}
	idx := r.SlabCount
	r.Slabs[idx] = SlabEntry{
		SlabID:       slabID,
		OracleID:     oracleID,
		ImrBps:       r.Risk.InitialMarginBps,
		MmrBps:       r.Risk.MaintenanceMarginBps,
		MaxExposure:  r.Risk.PerSlabRouterCap,
		RegisteredTs: now,
		Active:       true,
	}
	r.SlabCount++
	return idx, nil
}

// Lookup scans the live SlabEntry set for slabID, returning its stable
// index (spec.md §4.1: "linear scan; the slab index is the only persistent
// reference used by PositionDetails PDA seeds").
func (r *Registry) Lookup(slabID crypto.Pubkey) (uint16, error) {
	for i, e := range r.Live() {
		if e.SlabID == slabID {
			return uint16(i), nil
		}
	}
	return 0, ErrNotFound
}

// Deregister marks a live entry inactive without freeing its index
// (spec.md §4.1 policy: "a de-registered entry is marked active=false but
// its index never rebinds").
func (r *Registry) Deregister(caller crypto.Pubkey, slabIndex uint16) error {
	if caller != r.Governance {
		return ErrNotGovernance
	}
	if slabIndex >= r.SlabCount {
		return ErrNotFound
	}
	r.Slabs[slabIndex].Active = false
	return nil
}

// Entry returns the SlabEntry at slabIndex, or ErrNotFound if it is outside
// the live range.
func (r *Registry) Entry(slabIndex uint16) (SlabEntry, error) {
	if slabIndex >= r.SlabCount {
		return SlabEntry{}, ErrNotFound
	}
	return r.Slabs[slabIndex], nil
}
