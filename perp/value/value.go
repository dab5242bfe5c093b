// Package value implements the fixed-point arithmetic primitives shared by
// every Router/Slab account: signed 64-bit prices and quantities at an
// implicit 1e6 scale, and signed 128-bit collateral/equity values scaled in
// native-coin minor units (spec.md §3, §6.4).
package value

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// PriceScale is the implicit scale of Px/Qty fixed-point values (spec.md §3).
const PriceScale = 1_000_000

// AccountingScale is the implicit scale of collateral/equity accounting
// units (1 coin = 1_000_000 accounting units, spec.md §6.4).
const AccountingScale = 1_000_000

// BalancePerAccounting is the conversion factor between an account's raw
// on-chain native-coin balance (1e9 minor units per coin) and the 1e6-scale
// accounting unit used throughout the ledger: balance_units =
// accounting_units * BalancePerAccounting (spec.md §6.4).
const BalancePerAccounting = 1_000

// ErrOverflow is returned by the checked arithmetic helpers when a result
// would not fit the target width. Callers treat this as the
// arithmetic_overflow accounting error (spec.md §7): an assertion failure
// that aborts the instruction rather than a recoverable condition.
var ErrOverflow = errors.New("value: arithmetic overflow")

// Px is a price, fixed-point at PriceScale.
type Px int64

// Qty is a signed quantity, fixed-point at PriceScale. Positive is long/buy,
// negative is short/sell (spec.md §4.4, total_qty sign convention).
type Qty int64

// Side mirrors the Side enum threaded through Slab requests and Receipts.
type Side uint8

const (
	SideBuy  Side = 0
	SideSell Side = 1
)

func (s Side) String() string {
	if s == SideSell {
		return "sell"
	}
	return "buy"
}

// SignedQty returns qty with its sign flipped to match side: negative for a
// sell, unchanged (positive) for a buy. Used to turn an order's unsigned
// magnitude into the signed delta PositionDetails and exposures expect.
func SignedQty(side Side, qty int64) Qty {
	if qty < 0 {
		qty = -qty
	}
	if side == SideSell {
		return Qty(-qty)
	}
	return Qty(qty)
}

// Abs returns the absolute value of the quantity.
func (q Qty) Abs() Qty {
	if q < 0 {
		return -q
	}
	return q
}

// Sign returns -1, 0, or 1.
func (q Qty) Sign() int {
	switch {
	case q < 0:
		return -1
	case q > 0:
		return 1
	default:
		return 0
	}
}

// MulDivInt64 computes (a*b)/c using a 256-bit intermediate so the a*b
// product never overflows int64, then reports whether the final quotient
// still fits in int64. Magnitudes are multiplied and divided unsigned, and
// the sign of a*b/c is applied to the quotient before returning. This is the primitive behind notional = qty*price/1e6 and the fee
// formula of spec.md §4.2 step 5.
func MulDivInt64(a, b, c int64) (result int64, overflowed bool) {
	if c == 0 {
		return 0, true
	}
	neg := (a < 0) != (b < 0) != (c < 0)
	au, bu, cu := absU64(a), absU64(b), absU64(c)

	prod := new(uint256.Int).Mul(uint256.NewInt(au), uint256.NewInt(bu))
	quo := new(uint256.Int).Div(prod, uint256.NewInt(cu))
	if !quo.IsUint64() {
		return 0, true
	}
	u := quo.Uint64()
	if u > 1<<63 || (u == 1<<63 && !neg) {
		return 0, true
	}
	out := int64(u)
	if neg {
		out = -out
	}
	return out, false
}

// SaturatingMulDivInt64 is MulDivInt64 but clamps to math.MaxInt64 /
// math.MinInt64 on overflow instead of reporting failure, matching
// spec.md §4.2 step 5's "saturating arithmetic" instruction for fee
// computation. The Slab's fee computation uses it, and so does the Router's
// execute pipeline for trade notional, the flip remainder's notional and
// the per-exposure notional in recomputeMargins.
func SaturatingMulDivInt64(a, b, c int64) int64 {
	result, overflowed := MulDivInt64(a, b, c)
	if !overflowed {
		return result
	}
	neg := (a < 0) != (b < 0) != (c < 0)
	if neg {
		return -1 << 63
	}
	return 1<<63 - 1
}

func absU64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}

// I128 is a signed 128-bit fixed-point value held as a sign bit plus a
// uint256-backed magnitude bounded to 128 bits. It backs Portfolio.equity,
// .pnl, .principal, PositionDetails.realized_pnl and the u128 margin/im/mm
// fields (which are simply I128 values a caller has checked are
// non-negative).
type I128 struct {
	neg bool
	mag uint256.Int
}

var maxU128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// ZeroI128 is the additive identity.
func ZeroI128() I128 { return I128{} }

// FromInt64 builds an I128 from a signed 64-bit accounting-unit amount.
func FromInt64(v int64) I128 {
	if v < 0 {
		return I128{neg: true, mag: *uint256.NewInt(uint64(-v))}
	}
	return I128{mag: *uint256.NewInt(uint64(v))}
}

// FromUint64 builds a non-negative I128, for margin/im/mm style fields.
func FromUint64(v uint64) I128 {
	return I128{mag: *uint256.NewInt(v)}
}

// IsZero reports whether the value is exactly zero.
func (v I128) IsZero() bool { return v.mag.IsZero() }

// Sign returns -1, 0, or 1.
func (v I128) Sign() int {
	if v.mag.IsZero() {
		return 0
	}
	if v.neg {
		return -1
	}
	return 1
}

// Neg returns -v.
func (v I128) Neg() I128 {
	if v.mag.IsZero() {
		return v
	}
	return I128{neg: !v.neg, mag: v.mag}
}

// Add computes v+w, failing with ErrOverflow if the signed magnitude would
// exceed 128 bits.
func (v I128) Add(w I128) (I128, error) {
	if v.neg == w.neg {
		sum, carry := new(uint256.Int).AddOverflow(&v.mag, &w.mag)
		if carry || sum.Gt(maxU128) {
			return I128{}, fmt.Errorf("%w: i128 add", ErrOverflow)
		}
		return I128{neg: v.neg, mag: *sum}, nil
	}
	// Opposite signs: subtract the smaller magnitude from the larger.
	if v.mag.Cmp(&w.mag) >= 0 {
		diff := new(uint256.Int).Sub(&v.mag, &w.mag)
		return I128{neg: v.neg && !diff.IsZero(), mag: *diff}, nil
	}
	diff := new(uint256.Int).Sub(&w.mag, &v.mag)
	return I128{neg: w.neg && !diff.IsZero(), mag: *diff}, nil
}

// Sub computes v-w.
func (v I128) Sub(w I128) (I128, error) {
	return v.Add(w.Neg())
}

// MustAdd panics on overflow; reserved for call sites that have already
// range-checked their operands (e.g. summing over a capped-length array of
// exposures where the caller trusts per-entry bounds).
func (v I128) MustAdd(w I128) I128 {
	out, err := v.Add(w)
	if err != nil {
		panic(err)
	}
	return out
}

// Cmp returns -1, 0, or 1 comparing v to w.
func (v I128) Cmp(w I128) int {
	switch {
	case v.Sign() < w.Sign():
		return -1
	case v.Sign() > w.Sign():
		return 1
	}
	// Equal sign: compare magnitudes, inverted if negative.
	mc := v.mag.Cmp(&w.mag)
	if v.neg {
		return -mc
	}
	return mc
}

// Int64 returns the value truncated to int64, with ok=false if it does not
// fit.
func (v I128) Int64() (int64, bool) {
	if !v.mag.IsUint64() {
		return 0, false
	}
	u := v.mag.Uint64()
	if u > 1<<63 || (u == 1<<63 && !v.neg) {
		return 0, false
	}
	out := int64(u)
	if v.neg {
		out = -out
	}
	return out, true
}

// MulDivBps computes v * bps / 10_000, the maintenance-margin and fee-bps
// formula used throughout PositionDetails and the execute pipeline
// (spec.md §4.5 step 8e: mm = Σ notional × mmr_bps / 10_000).
func MulDivBps(v I128, bps uint64) I128 {
	scaled := new(uint256.Int).Mul(&v.mag, uint256.NewInt(bps))
	scaled.Div(scaled, uint256.NewInt(10_000))
	return I128{neg: v.neg && !scaled.IsZero(), mag: *scaled}
}

// FloorDivUint64 computes floor(v / d) for a positive non-zero divisor d,
// preserving v's sign on the (already-non-negative, in practice) magnitude.
// Used by margin_to_release = margin_held * |Δqty| / |total_qty| (spec.md
// §4.4), which always floors per the invariant as written.
func (v I128) FloorDivUint64(d uint64) I128 {
	if d == 0 {
		return I128{}
	}
	q := new(uint256.Int).Div(&v.mag, uint256.NewInt(d))
	return I128{neg: v.neg && !q.IsZero(), mag: *q}
}

// MulUint64 computes v * m, used to weight a magnitude before a FloorDivUint64.
func (v I128) MulUint64(m uint64) I128 {
	p := new(uint256.Int).Mul(&v.mag, uint256.NewInt(m))
	return I128{neg: v.neg && !p.IsZero(), mag: *p}
}

// LE16 encodes v as 16 little-endian bytes in two's-complement form, the
// on-wire layout spec.md §3/§6.5 requires for every i128 field.
func (v I128) LE16() [16]byte {
	var magBytes [16]byte
	if v.neg && !v.mag.IsZero() {
		twos := new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), &v.mag)
		be := twos.Bytes32()
		copy(magBytes[:], be[16:32])
	} else {
		be := v.mag.Bytes32()
		copy(magBytes[:], be[16:32])
	}
	var out [16]byte
	for i := 0; i < 16; i++ {
		out[i] = magBytes[15-i]
	}
	return out
}

// ParseLE16 decodes the two's-complement little-endian layout LE16 writes.
func ParseLE16(b [16]byte) I128 {
	var be [32]byte
	for i := 0; i < 16; i++ {
		be[16+i] = b[15-i]
	}
	u := new(uint256.Int).SetBytes(be[:])
	highBit := new(uint256.Int).Lsh(uint256.NewInt(1), 127)
	if u.Cmp(highBit) >= 0 {
		twos := new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), u)
		return I128{neg: true, mag: *twos}
	}
	return I128{mag: *u}
}

// AccountingToBalance converts an accounting-unit amount to the account's
// raw native-coin balance units (spec.md §6.4): balance = accounting *
// BalancePerAccounting.
func AccountingToBalance(accounting I128) I128 {
	return accounting.MulUint64(BalancePerAccounting)
}

// BalanceToAccounting converts raw balance units back to accounting units,
// truncating (floor division) per spec.md §6.4.
func BalanceToAccounting(balance I128) I128 {
	return balance.FloorDivUint64(BalancePerAccounting)
}
