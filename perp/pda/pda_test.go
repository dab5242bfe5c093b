package pda

import (
	"testing"

	"github.com/stretchr/testify/require"

	"perpcore/crypto"
)

func TestPositionDetailsDeterministic(t *testing.T) {
	program := crypto.MustPubkeyFromBytes(bytesOf(1))
	portfolio := crypto.MustPubkeyFromBytes(bytesOf(2))

	addr1, bump1 := PositionDetails(program, portfolio, 3, 0)
	addr2, bump2 := PositionDetails(program, portfolio, 3, 0)

	require.Equal(t, addr1, addr2)
	require.Equal(t, bump1, bump2)
}

func TestPositionDetailsVariesBySeed(t *testing.T) {
	program := crypto.MustPubkeyFromBytes(bytesOf(1))
	portfolio := crypto.MustPubkeyFromBytes(bytesOf(2))

	addrA, _ := PositionDetails(program, portfolio, 0, 0)
	addrB, _ := PositionDetails(program, portfolio, 1, 0)
	addrC, _ := PositionDetails(program, portfolio, 0, 1)

	require.NotEqual(t, addrA, addrB)
	require.NotEqual(t, addrA, addrC)
	require.NotEqual(t, addrB, addrC)
}

func TestRegistryAndAuthorityDiffer(t *testing.T) {
	program := crypto.MustPubkeyFromBytes(bytesOf(7))
	registry, _ := Registry(program)
	authority, _ := Authority(program)
	require.NotEqual(t, registry, authority)
}

func TestPortfolioDeterministic(t *testing.T) {
	program := crypto.MustPubkeyFromBytes(bytesOf(1))
	user := crypto.MustPubkeyFromBytes(bytesOf(9))

	require.Equal(t, Portfolio(program, user), Portfolio(program, user))
}

func bytesOf(b byte) []byte {
	out := make([]byte, crypto.PubkeyLen)
	for i := range out {
		out[i] = b
	}
	return out
}
