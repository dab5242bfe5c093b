package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"perpcore/crypto"
	"perpcore/perp/value"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	pk := crypto.MustPubkeyFromBytes(bytesOf(9))

	w := NewWriter(64)
	w.FixedBytes([]byte("MAGIC\x00\x00\x00"), 8)
	w.Pubkey(pk)
	w.U32(7)
	w.I64(-12345)
	w.I128(value.FromInt64(-9876543210))
	w.Bool(true)
	w.Pad(3)

	r := NewReader(w.Bytes())
	require.NoError(t, r.CheckMagic([]byte("MAGIC\x00\x00\x00")))

	gotPk, err := r.Pubkey()
	require.NoError(t, err)
	require.Equal(t, pk, gotPk)

	u32, err := r.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(7), u32)

	i64, err := r.I64()
	require.NoError(t, err)
	require.Equal(t, int64(-12345), i64)

	i128, err := r.I128()
	require.NoError(t, err)
	v, ok := i128.Int64()
	require.True(t, ok)
	require.Equal(t, int64(-9876543210), v)

	b, err := r.Bool()
	require.NoError(t, err)
	require.True(t, b)

	require.NoError(t, r.Skip(3))
	require.Equal(t, 0, r.Remaining())
}

func TestReaderShortBuffer(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	_, err := r.U64()
	require.Error(t, err)
}

func bytesOf(b byte) []byte {
	out := make([]byte, crypto.PubkeyLen)
	for i := range out {
		out[i] = b
	}
	return out
}
