// Package state implements perp/router.State against a storage.Database,
// the narrow Put/Get/Close key-value interface both the in-memory and
// LevelDB backends satisfy. Manager owns nothing about Execute's pipeline
// logic; it only knows how to find an account's bytes and turn them back
// into the perp/* package that owns its shape.
package state

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"perpcore/crypto"
	"perpcore/perp/portfolio"
	"perpcore/perp/position"
	"perpcore/perp/registry"
	"perpcore/perp/router"
	"perpcore/perp/slab"
	"perpcore/perp/value"
	"perpcore/storage"
)

// Manager is the storage.Database-backed implementation of
// perp/router.State.
type Manager struct {
	db storage.Database
}

// NewManager wraps db (a MemDB in tests, a LevelDB in a running node).
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, leveldb.ErrNotFound) {
		return true
	}
	// storage.MemDB has no sentinel error of its own; match its one message.
	return err.Error() == "key not found"
}

func (m *Manager) GetRegistry(addr crypto.Pubkey) (*registry.Registry, error) {
	buf, err := m.db.Get(prefixedKey(registryPrefix, addr))
	if err != nil {
		if isNotFound(err) {
			return nil, router.ErrAccountNotFound
		}
		return nil, err
	}
	out, err := registry.Decode(buf)
	if err != nil {
		return nil, wrapDecodeErr("registry", err)
	}
	return out, nil
}

func (m *Manager) PutRegistry(addr crypto.Pubkey, r *registry.Registry) error {
	return m.db.Put(prefixedKey(registryPrefix, addr), r.Encode())
}

func (m *Manager) GetPortfolio(addr crypto.Pubkey) (*portfolio.Portfolio, error) {
	buf, err := m.db.Get(prefixedKey(portfolioPrefix, addr))
	if err != nil {
		if isNotFound(err) {
			return nil, router.ErrAccountNotFound
		}
		return nil, err
	}
	out, err := portfolio.Decode(buf)
	if err != nil {
		return nil, wrapDecodeErr("portfolio", err)
	}
	return out, nil
}

func (m *Manager) PutPortfolio(addr crypto.Pubkey, p *portfolio.Portfolio) error {
	return m.db.Put(prefixedKey(portfolioPrefix, addr), p.Encode())
}

func (m *Manager) GetPositionDetails(addr crypto.Pubkey) (*position.Details, error) {
	buf, err := m.db.Get(prefixedKey(positionPrefix, addr))
	if err != nil {
		if isNotFound(err) {
			return nil, router.ErrAccountNotFound
		}
		return nil, err
	}
	out, err := position.Decode(buf)
	if err != nil {
		return nil, wrapDecodeErr("position_details", err)
	}
	return out, nil
}

func (m *Manager) PutPositionDetails(addr crypto.Pubkey, d *position.Details) error {
	return m.db.Put(prefixedKey(positionPrefix, addr), d.Encode())
}

// GetSlab decodes a Venue from the concatenation EncodeHeader(h) ++
// EncodeQuoteCache(qc) writes: the two pieces have their own fixed sizes
// (slab.HeaderSize, slab.QuoteCacheSize) and no combined Venue codec exists
// since the Header and QuoteCache are independently-sized regions of one
// account (spec.md §3).
func (m *Manager) GetSlab(addr crypto.Pubkey) (*slab.Venue, error) {
	buf, err := m.db.Get(prefixedKey(slabPrefix, addr))
	if err != nil {
		if isNotFound(err) {
			return nil, router.ErrAccountNotFound
		}
		return nil, err
	}
	if len(buf) < slab.HeaderSize+slab.QuoteCacheSize {
		return nil, wrapDecodeErr("slab", errors.New("short account buffer"))
	}
	h, err := slab.DecodeHeader(buf[:slab.HeaderSize])
	if err != nil {
		return nil, wrapDecodeErr("slab header", err)
	}
	qc, err := slab.DecodeQuoteCache(buf[slab.HeaderSize : slab.HeaderSize+slab.QuoteCacheSize])
	if err != nil {
		return nil, wrapDecodeErr("slab quote_cache", err)
	}
	return &slab.Venue{Header: h, QuoteCache: qc}, nil
}

func (m *Manager) PutSlab(addr crypto.Pubkey, v *slab.Venue) error {
	buf := make([]byte, 0, slab.HeaderSize+slab.QuoteCacheSize)
	buf = append(buf, slab.EncodeHeader(v.Header)...)
	buf = append(buf, slab.EncodeQuoteCache(v.QuoteCache)...)
	return m.db.Put(prefixedKey(slabPrefix, addr), buf)
}

// NativeBalance reports addr's raw balance, zero for an address that has
// never received a deposit or transfer.
func (m *Manager) NativeBalance(addr crypto.Pubkey) (value.I128, error) {
	buf, err := m.db.Get(prefixedKey(balancePrefix, addr))
	if err != nil {
		if isNotFound(err) {
			return value.ZeroI128(), nil
		}
		return value.I128{}, err
	}
	var arr [16]byte
	copy(arr[:], buf)
	return value.ParseLE16(arr), nil
}

func (m *Manager) putBalance(addr crypto.Pubkey, amount value.I128) error {
	le := amount.LE16()
	return m.db.Put(prefixedKey(balancePrefix, addr), le[:])
}

// TransferNative moves amount from from's balance to to's, failing without
// writing either side if from cannot cover it.
func (m *Manager) TransferNative(from, to crypto.Pubkey, amount value.I128) error {
	fromBal, err := m.NativeBalance(from)
	if err != nil {
		return err
	}
	newFrom, err := fromBal.Sub(amount)
	if err != nil {
		return err
	}
	if newFrom.Sign() < 0 {
		return fmt.Errorf("state: insufficient balance")
	}
	toBal, err := m.NativeBalance(to)
	if err != nil {
		return err
	}
	newTo, err := toBal.Add(amount)
	if err != nil {
		return err
	}
	if err := m.putBalance(from, newFrom); err != nil {
		return err
	}
	return m.putBalance(to, newTo)
}

var _ router.State = (*Manager)(nil)

func wrapDecodeErr(kind string, err error) error {
	return fmt.Errorf("state: decode %s: %w", kind, err)
}
