package portfolio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"perpcore/crypto"
	"perpcore/perp/oracle"
	"perpcore/perp/value"
)

func pk(b byte) crypto.Pubkey {
	var p crypto.Pubkey
	for i := range p {
		p[i] = b
	}
	return p
}

func TestDepositWithdrawSymmetry(t *testing.T) {
	// S1: deposit 10 coins -> principal=equity=10_000_000; withdraw 4 ->
	// principal=equity=6_000_000.
	p := &Portfolio{}
	require.NoError(t, p.Deposit(value.FromInt64(10_000_000)))
	eq, _ := p.Cross.Equity.Int64()
	require.Equal(t, int64(10_000_000), eq)
	pr, _ := p.Vest.Principal.Int64()
	require.Equal(t, int64(10_000_000), pr)

	require.NoError(t, p.Withdraw(value.FromInt64(4_000_000)))
	eq, _ = p.Cross.Equity.Int64()
	require.Equal(t, int64(6_000_000), eq)
	pr, _ = p.Vest.Principal.Int64()
	require.Equal(t, int64(6_000_000), pr)
}

func TestWithdrawRejectsBelowIm(t *testing.T) {
	p := &Portfolio{}
	require.NoError(t, p.Deposit(value.FromInt64(1_000)))
	p.Cross.Im = value.FromInt64(900)
	err := p.Withdraw(value.FromInt64(200))
	require.ErrorIs(t, err, ErrInsufficientEquity)
}

func TestApplyExposureDeltaOpenAndCompact(t *testing.T) {
	p := &Portfolio{}
	require.NoError(t, p.ApplyExposureDelta(1, 0, 5))
	require.Equal(t, uint16(1), p.Cross.ExposureCount)
	require.Equal(t, int64(5), p.Exposures[0].PositionQty)

	require.NoError(t, p.ApplyExposureDelta(2, 0, 7))
	require.Equal(t, uint16(2), p.Cross.ExposureCount)

	require.NoError(t, p.ApplyExposureDelta(1, 0, 0))
	require.Equal(t, uint16(1), p.Cross.ExposureCount)
	// The remaining live entry (slab 2) should have been compacted into slot 0.
	require.Equal(t, uint16(2), p.Exposures[0].SlabIndex)
}

func TestRecomputeMargins(t *testing.T) {
	p := &Portfolio{}
	require.NoError(t, p.Deposit(value.FromInt64(10_000)))
	err := p.RecomputeMargins([]MarginInputs{
		{Notional: value.FromInt64(1000), Leverage: 5, MmrBps: 500},
	}, 100)
	require.NoError(t, err)
	im, _ := p.Cross.Im.Int64()
	require.Equal(t, int64(200), im) // 1000/5
	mm, _ := p.Cross.Mm.Int64()
	require.Equal(t, int64(50), mm) // 1000*500/10000
	free, _ := p.Cross.FreeCollateral.Int64()
	require.Equal(t, int64(9800), free) // 10000-200
	health, _ := p.Liq.Health.Int64()
	require.Equal(t, int64(9950), health) // 10000-50
	require.Equal(t, int64(100), p.Cross.LastMarkTs)
}

func TestCheckMaintenanceBreaches(t *testing.T) {
	p := &Portfolio{}
	p.Liq.Health = value.FromInt64(-1)
	require.ErrorIs(t, p.CheckMaintenance(), ErrBreachesMaintenance)

	p.Liq.Health = value.FromInt64(0)
	require.NoError(t, p.CheckMaintenance())
}

func TestBurnLpSharesProRata(t *testing.T) {
	p := &Portfolio{}
	market := pk(7)
	idx, err := p.openLpBucket(market)
	require.NoError(t, err)
	p.LpBuckets[idx].Shares = value.FromInt64(100)
	p.LpBuckets[idx].QuoteReserve = value.FromInt64(1000)
	p.LpBuckets[idx].BaseReserve = value.FromInt64(0)

	redeemed, err := p.BurnLpShares(market, value.FromInt64(50), oracle.Quote{Price: 1_000000, Timestamp: 100}, 100, 60)
	require.NoError(t, err)
	rv, _ := redeemed.Int64()
	require.Equal(t, int64(500), rv)

	remaining, _ := p.LpBuckets[idx].Shares.Int64()
	require.Equal(t, int64(50), remaining)
	eq, _ := p.Cross.Equity.Int64()
	require.Equal(t, int64(500), eq)
}

func TestBurnLpSharesRejectsStale(t *testing.T) {
	p := &Portfolio{}
	market := pk(7)
	idx, err := p.openLpBucket(market)
	require.NoError(t, err)
	p.LpBuckets[idx].Shares = value.FromInt64(100)

	_, err = p.BurnLpShares(market, value.FromInt64(10), oracle.Quote{Price: 1, Timestamp: 0}, 1000, 10)
	require.ErrorIs(t, err, ErrOracleStale)
}

func TestCancelLpOrdersCreditsFreeCollateral(t *testing.T) {
	p := &Portfolio{}
	market := pk(7)
	idx, err := p.openLpBucket(market)
	require.NoError(t, err)
	p.LpBuckets[idx].ReservedQuote = value.FromInt64(100)
	p.LpBuckets[idx].ReservedBase = value.FromInt64(50)

	require.NoError(t, p.CancelLpOrders(market, value.FromInt64(100), value.FromInt64(50)))
	fc, _ := p.Cross.FreeCollateral.Int64()
	require.Equal(t, int64(150), fc)
	rq, _ := p.LpBuckets[idx].ReservedQuote.Int64()
	require.Equal(t, int64(0), rq)
}

func TestLiquidateUserNotLiquidatable(t *testing.T) {
	p := &Portfolio{}
	p.Liq.Health = value.FromInt64(100)
	err := p.LiquidateUser(false, 1000, 60, 0)
	require.ErrorIs(t, err, ErrNotLiquidatable)
}

func TestLiquidateUserFullLiquidationAndCooldown(t *testing.T) {
	p := &Portfolio{}
	p.Liq.Health = value.FromInt64(-5)
	require.NoError(t, p.LiquidateUser(false, 1000, 60, 0))
	require.Equal(t, int64(1000), p.Liq.LastLiquidationTs)

	err := p.LiquidateUser(false, 1020, 60, 0)
	require.ErrorIs(t, err, ErrLiquidationCooldownActive)

	require.NoError(t, p.LiquidateUser(false, 1100, 60, 0))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := &Portfolio{RouterID: pk(1), User: pk(2)}
	require.NoError(t, p.Deposit(value.FromInt64(5_000_000)))
	require.NoError(t, p.ApplyExposureDelta(3, 0, 42))

	encoded := p.Encode()
	require.Equal(t, Size, len(encoded))
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, p.RouterID, decoded.RouterID)
	require.Equal(t, p.User, decoded.User)
	require.Equal(t, p.Cross.Equity, decoded.Cross.Equity)
	require.Equal(t, p.Vest.Principal, decoded.Vest.Principal)
	require.Equal(t, p.Exposures[0], decoded.Exposures[0])
}
