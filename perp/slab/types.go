// Package slab implements the Slab execution venue (spec.md §3, §4.2): an
// oracle-validated single-fill matching engine that always either fills a
// request entirely at the oracle price (within its limit and band checks)
// or rejects it, writing exactly one Receipt per invocation.
package slab

import (
	"perpcore/crypto"
)

// HeaderSize is the fixed byte size of a SlabHeader account (spec.md §3).
const HeaderSize = 256

// QuoteCacheSize is the fixed byte size of the QuoteCache region that
// follows the header (spec.md §3).
const QuoteCacheSize = 256

// BookAreaSize is the reserved, currently-unused book region that follows
// the QuoteCache (spec.md §3: "unused in this spec -- reserved for future
// resting orders").
const BookAreaSize = 3 * 1024

// AccountSize is the total account allocation a Slab venue requires.
const AccountSize = HeaderSize + QuoteCacheSize + BookAreaSize

// Magic identifies a Slab account's encoding on read (spec.md §3).
var Magic = [8]byte{'P', 'E', 'R', 'P', '1', '0', 0, 0}

// Header is the SlabHeader record (spec.md §3).
type Header struct {
	Version      uint32
	Seqno        uint32
	ProgramID    crypto.Pubkey
	LPOwner      crypto.Pubkey
	RouterID     crypto.Pubkey
	Instrument   crypto.Pubkey
	ContractSize int64
	Tick         int64
	Lot          int64
	MarkPx       int64
	TakerFeeBps  int64
}

// Level is one resting-quote entry in the QuoteCache (spec.md §3). A level
// with price==0 && avail_qty==0 is an empty slot.
type Level struct {
	Price    int64
	AvailQty int64
}

// Empty reports whether l is an empty slot.
func (l Level) Empty() bool { return l.Price == 0 && l.AvailQty == 0 }

// QuoteCache is the most recent publisher snapshot of resting liquidity
// (spec.md §3). Unused by commit_fill's pricing (which always prices off
// the oracle), it is informational only and updated best-effort after a
// fill.
type QuoteCache struct {
	SeqnoSnapshot uint32
	Bids          [4]Level
	Asks          [4]Level
}

// Venue bundles the Header and QuoteCache; the reserved book area carries
// no interpreted state in this spec and is not modeled beyond its byte
// reservation in AccountSize.
type Venue struct {
	Header     Header
	QuoteCache QuoteCache
}

// Receipt is the ephemeral, single-shot fill record the Slab writes on
// every commit_fill call (spec.md §3).
type Receipt struct {
	Side      uint32
	SeqnoUsed int64
	FillQty   int64
	FillPx    int64
	FeesPaid  int64
	Timestamp int64
}

// ReceiptSize is the fixed byte size of an encoded Receipt (spec.md §3).
const ReceiptSize = 48
