// Package pda derives the deterministic addresses the Router and Slab
// programs use for their singleton and per-entity accounts: the Registry,
// the Router signing authority, per-collateral-mint vaults, Slab and
// Receipt accounts, Portfolios, and PositionDetails sub-accounts
// (spec §6.2).
package pda

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"perpcore/crypto"
)

// MaxBump is the bump seed every derivation uses, the value the Solana
// convention tries first when searching bumps from 255 downward. This module
// has no on-curve/off-curve account distinction to satisfy (there is no
// elliptic curve backing these addresses), so Derive does not search: it
// hashes with bump 255 and returns that bump, so callers canonically agree
// on it and the derivation shares its shape with the account model spec.md
// describes.
const MaxBump = 255

// Derive computes the deterministic address for the given program id and
// seeds, in the style of native/escrow/trade_engine.go's
// ethcrypto.Keccak256Hash(...) identifier derivation: the address is the
// Keccak256 hash of the program id, each seed, and a trailing bump byte.
// The returned bump is always MaxBump since this account model has no
// validity constraint to search against; it is still returned (rather than
// hard-coded at call sites) so a future on-curve requirement only changes
// this one function.
func Derive(programID crypto.Pubkey, seeds ...[]byte) (crypto.Pubkey, uint8) {
	bump := uint8(MaxBump)
	parts := make([][]byte, 0, len(seeds)+2)
	parts = append(parts, programID[:])
	parts = append(parts, seeds...)
	parts = append(parts, []byte{bump})
	hash := ethcrypto.Keccak256Hash(parts...)
	return crypto.Pubkey(hash), bump
}

// Uint16LE renders v as a 2-byte little-endian seed component, matching the
// `slab_index_le` / `instrument_index_le` seeds spec.md §6.2 requires for
// PositionDetails derivation.
func Uint16LE(v uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	return buf
}

// Registry derives the singleton Registry PDA (seed "registry").
func Registry(programID crypto.Pubkey) (crypto.Pubkey, uint8) {
	return Derive(programID, []byte("registry"))
}

// Authority derives the Router's signing authority PDA (seed "authority"),
// the identity that must co-sign every CommitFill cross-program call.
func Authority(programID crypto.Pubkey) (crypto.Pubkey, uint8) {
	return Derive(programID, []byte("authority"))
}

// Vault derives the per-collateral-asset custody PDA (seed "vault" ||
// mint). v0 has a single implicit native-coin mint (spec.md §1 Non-goals:
// no multi-collateral), so callers pass the zero Pubkey as mint to obtain
// the one vault this module ever uses (SPEC_FULL.md §4.8).
func Vault(programID crypto.Pubkey, mint crypto.Pubkey) (crypto.Pubkey, uint8) {
	return Derive(programID, []byte("vault"), mint[:])
}

// Slab derives a Slab venue's address from its DLP owner and instrument.
func Slab(programID crypto.Pubkey, lpOwner crypto.Pubkey, instrument crypto.Pubkey) (crypto.Pubkey, uint8) {
	return Derive(programID, []byte("slab"), lpOwner[:], instrument[:])
}

// PositionDetails derives the per-(portfolio,slab,instrument) sub-account
// PDA. slabIndex/instrumentIndex are the stable Registry-assigned indices,
// not the Slab/instrument pubkeys themselves (spec.md §3, PositionDetails).
func PositionDetails(programID crypto.Pubkey, portfolio crypto.Pubkey, slabIndex, instrumentIndex uint16) (crypto.Pubkey, uint8) {
	return Derive(programID, []byte("position"), portfolio[:], Uint16LE(slabIndex), Uint16LE(instrumentIndex))
}

// Receipt derives the conventional Receipt address for a given slab/user
// pair. spec.md §6.2 allows either this deterministic form or a freshly
// generated keypair owned by the Slab program; the Router's tests and
// fixtures use the deterministic form for reproducibility.
func Receipt(programID crypto.Pubkey, slab crypto.Pubkey, user crypto.Pubkey) (crypto.Pubkey, uint8) {
	return Derive(programID, []byte("receipt"), slab[:], user[:])
}

// Portfolio derives the create-with-seed address used for a user's
// cross-margin Portfolio account (seed "portfolio"). Unlike the other
// helpers this is not a canonical PDA (spec.md §6.2 notes it is created
// with a base key plus a seed string rather than searched for a bump), but
// the derivation is still a pure function of (owner program, user, seed)
// and is exposed here so every deterministic address in the module is
// derived the same way.
func Portfolio(programID crypto.Pubkey, user crypto.Pubkey) crypto.Pubkey {
	hash := ethcrypto.Keccak256Hash(programID[:], user[:], []byte("portfolio"))
	return crypto.Pubkey(hash)
}
