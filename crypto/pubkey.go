package crypto

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// PubkeyLen is the fixed width of an on-chain account identifier. Unlike the
// 20-byte bech32 Address used for signer accounts, every Router/Slab account
// (Registry, Slab, Portfolio, PositionDetails, oracle, program ids) is
// identified by a 32-byte Pubkey so that PDAs and hashed identifiers share one
// representation.
const PubkeyLen = 32

// Pubkey is an opaque 32-byte account identifier. The zero value is the
// well-known "unset" identifier and is never a valid account address.
type Pubkey [PubkeyLen]byte

// PubkeyFromBytes copies b into a Pubkey, requiring an exact 32-byte length.
func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var pk Pubkey
	if len(b) != PubkeyLen {
		return pk, fmt.Errorf("crypto: pubkey must be %d bytes, got %d", PubkeyLen, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// MustPubkeyFromBytes is PubkeyFromBytes but panics on error, for constant
// initialization in tests and fixtures.
func MustPubkeyFromBytes(b []byte) Pubkey {
	pk, err := PubkeyFromBytes(b)
	if err != nil {
		panic(err)
	}
	return pk
}

// Pubkey derives the 32-byte on-chain identifier for this key pair by hashing
// the uncompressed public key, mirroring the way the 20-byte Address is
// derived from the same key material but at the wider width PDAs require.
func (k *PublicKey) Pubkey() Pubkey {
	raw := ethcrypto.FromECDSAPub(k.PublicKey)
	return Pubkey(ethcrypto.Keccak256Hash(raw))
}

// IsZero reports whether the Pubkey is the unset all-zero value.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// Bytes returns a defensive copy of the underlying 32 bytes.
func (p Pubkey) Bytes() []byte {
	out := make([]byte, PubkeyLen)
	copy(out, p[:])
	return out
}

// String renders the Pubkey as base58, the conventional encoding for
// account-model identifiers, so logs and events stay human-scannable without
// colliding with the bech32 Address format used for signer accounts.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// Hex renders the Pubkey as a 0x-prefixed hex string, useful when cross
// referencing raw account dumps.
func (p Pubkey) Hex() string {
	return "0x" + hex.EncodeToString(p[:])
}

// PubkeyFromString decodes a base58-encoded Pubkey produced by String.
func PubkeyFromString(s string) (Pubkey, error) {
	decoded := base58.Decode(s)
	if len(decoded) != PubkeyLen {
		return Pubkey{}, fmt.Errorf("crypto: invalid base58 pubkey %q", s)
	}
	return PubkeyFromBytes(decoded)
}
