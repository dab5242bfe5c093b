package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"perpcore/core/state"
	"perpcore/crypto"
	"perpcore/perp/pda"
	"perpcore/perp/registry"
)

// GenesisSlab is one starter venue entry in a genesis fixture file: a
// Router deployment's initial Slab set, registered once at boot the same
// way governance would register them by hand afterward. SlabID/OracleID
// are base58 Pubkeys (crypto.Pubkey.String's format), matching how
// addresses already round-trip through this module's logs.
type GenesisSlab struct {
	SlabID     string `yaml:"slab_id"`
	OracleID   string `yaml:"oracle_id"`
	ImrBps     uint64 `yaml:"imr_bps"`
	MmrBps     uint64 `yaml:"mmr_bps"`
	FeeCapBps  uint64 `yaml:"fee_cap_bps"`
	LatencySLA uint64 `yaml:"latency_sla"`
}

// GenesisSpec is the top-level shape of a genesis fixture file.
type GenesisSpec struct {
	Slabs []GenesisSlab `yaml:"slabs"`
}

// loadGenesisSpec reads and decodes a genesis fixture. A missing file is
// not an error: a deployment with no starter Slabs simply registers them
// later through governance tooling.
func loadGenesisSpec(path string) (*GenesisSpec, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return &GenesisSpec{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open genesis file: %w", err)
	}
	defer file.Close()

	var spec GenesisSpec
	dec := yaml.NewDecoder(file)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode genesis file: %w", err)
	}
	return &spec, nil
}

// applyGenesis registers every Slab the fixture lists against the
// Registry singleton, skipping any SlabID already Live (ErrDuplicate) so
// a restart against the same fixture is a no-op rather than a crash.
// RegisterSlab has no Dispatch instruction or Engine method (DESIGN.md
// §3): governance account provisioning works directly against the
// Registry the same way router_test.go's fixture seeds one.
func applyGenesis(mgr *state.Manager, programID, governance crypto.Pubkey, spec *GenesisSpec, now int64) error {
	if len(spec.Slabs) == 0 {
		return nil
	}

	regAddr, _ := pda.Registry(programID)
	reg, err := mgr.GetRegistry(regAddr)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	dirty := false
	for _, s := range spec.Slabs {
		slabID, err := crypto.PubkeyFromString(s.SlabID)
		if err != nil {
			return fmt.Errorf("genesis slab %q: %w", s.SlabID, err)
		}
		oracleID, err := crypto.PubkeyFromString(s.OracleID)
		if err != nil {
			return fmt.Errorf("genesis slab %q: %w", s.SlabID, err)
		}

		_, err = reg.RegisterSlab(governance, registry.RegisterSlabParams{
			SlabID:     slabID,
			OracleID:   oracleID,
			ImrBps:     s.ImrBps,
			MmrBps:     s.MmrBps,
			FeeCapBps:  s.FeeCapBps,
			LatencySLA: s.LatencySLA,
		}, now)
		if err == registry.ErrDuplicate {
			continue
		}
		if err != nil {
			return fmt.Errorf("register genesis slab %q: %w", s.SlabID, err)
		}
		dirty = true
	}

	if !dirty {
		return nil
	}
	return mgr.PutRegistry(regAddr, reg)
}
