package state

import "perpcore/crypto"

// Key prefixes for the account kinds Manager persists. Each account's
// storage key is prefix + its 32-byte PDA, mirroring the teacher's
// keccak-prefixed-key convention without the keccak: a PDA is already a
// collision-resistant hash of its seeds, so a plain static prefix is
// enough to separate the five account kinds sharing one key space.
var (
	registryPrefix  = []byte("perp/registry/")
	portfolioPrefix = []byte("perp/portfolio/")
	positionPrefix  = []byte("perp/position/")
	slabPrefix      = []byte("perp/slab/")
	balancePrefix   = []byte("perp/balance/")
)

func prefixedKey(prefix []byte, addr crypto.Pubkey) []byte {
	key := make([]byte, 0, len(prefix)+len(addr))
	key = append(key, prefix...)
	key = append(key, addr[:]...)
	return key
}
