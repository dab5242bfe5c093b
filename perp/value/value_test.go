package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMulDivInt64Basic(t *testing.T) {
	// notional = qty(5) * price(200_000000) / 1e6 = 1000
	got, overflowed := MulDivInt64(5, 200_000000, PriceScale)
	require.False(t, overflowed)
	require.Equal(t, int64(1000), got)
}

func TestMulDivInt64Sign(t *testing.T) {
	got, overflowed := MulDivInt64(-5, 200, 10)
	require.False(t, overflowed)
	require.Equal(t, int64(-100), got)
}

func TestSaturatingMulDivInt64ClampsOnOverflow(t *testing.T) {
	got := SaturatingMulDivInt64(1<<62, 1<<62, 1)
	require.Equal(t, int64(1<<63-1), got)
}

func TestI128AddSameSign(t *testing.T) {
	a := FromInt64(100)
	b := FromInt64(50)
	sum, err := a.Add(b)
	require.NoError(t, err)
	v, ok := sum.Int64()
	require.True(t, ok)
	require.Equal(t, int64(150), v)
}

func TestI128AddOppositeSign(t *testing.T) {
	a := FromInt64(200)
	b := FromInt64(-50)
	sum, err := a.Add(b)
	require.NoError(t, err)
	v, ok := sum.Int64()
	require.True(t, ok)
	require.Equal(t, int64(150), v)

	c := FromInt64(-200)
	sum2, err := c.Add(b)
	require.NoError(t, err)
	v2, ok := sum2.Int64()
	require.True(t, ok)
	require.Equal(t, int64(-250), v2)
}

func TestI128RoundTripLE16(t *testing.T) {
	for _, raw := range []int64{0, 1, -1, 1000, -1000, 1 << 40, -(1 << 40)} {
		v := FromInt64(raw)
		encoded := v.LE16()
		decoded := ParseLE16(encoded)
		got, ok := decoded.Int64()
		require.True(t, ok)
		require.Equal(t, raw, got, "round trip for %d", raw)
	}
}

func TestI128Cmp(t *testing.T) {
	require.Equal(t, -1, FromInt64(-5).Cmp(FromInt64(5)))
	require.Equal(t, 1, FromInt64(5).Cmp(FromInt64(-5)))
	require.Equal(t, 0, FromInt64(5).Cmp(FromInt64(5)))
}

func TestMulDivBps(t *testing.T) {
	// 1000 accounting units at 500 bps (5%) maintenance margin.
	mm := MulDivBps(FromInt64(1000), 500)
	v, ok := mm.Int64()
	require.True(t, ok)
	require.Equal(t, int64(50), v)
}

func TestFloorDivMarginRelease(t *testing.T) {
	// margin_to_release = margin_held(500) * |Δqty|(6) / |total_qty|(10) = 300
	release := FromInt64(500).MulUint64(6).FloorDivUint64(10)
	v, ok := release.Int64()
	require.True(t, ok)
	require.Equal(t, int64(300), v)
}

func TestAccountingBalanceConversion(t *testing.T) {
	accounting := FromInt64(10_000_000) // 10 coins
	balance := AccountingToBalance(accounting)
	v, ok := balance.Int64()
	require.True(t, ok)
	require.Equal(t, int64(10_000_000_000), v)

	back := BalanceToAccounting(balance)
	v2, ok := back.Int64()
	require.True(t, ok)
	require.Equal(t, int64(10_000_000), v2)
}
