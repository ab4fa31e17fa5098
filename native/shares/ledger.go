package shares

import (
	"errors"
	"fmt"
	"math/big"

	nativecommon "crp/native/common"
)

var errNilState = errors.New("share ledger: state not configured")

type ledgerState interface {
	SharesGet(poolID uint64, holder [20]byte) (*big.Int, error)
	SharesPut(poolID uint64, holder [20]byte, amount *big.Int) error
	SharesTotal(poolID uint64) (*big.Int, error)
	SharesPutTotal(poolID uint64, total *big.Int) error
}

// Ledger tracks fractional ownership per (pool, holder). Mint and Burn are
// reserved for the pool engine, which holds the only reference handed out at
// wiring time; the public surface exposes reads only.
type Ledger struct {
	state ledgerState
}

// NewLedger constructs a share ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// SetState wires the ledger to the persistence layer.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// Mint credits shares to the holder and grows the pool total.
func (l *Ledger) Mint(poolID uint64, holder [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("share ledger: %w", nativecommon.ErrZeroAmount)
	}
	balance, err := l.state.SharesGet(poolID, holder)
	if err != nil {
		return err
	}
	total, err := l.state.SharesTotal(poolID)
	if err != nil {
		return err
	}
	if err := l.state.SharesPut(poolID, holder, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	return l.state.SharesPutTotal(poolID, new(big.Int).Add(total, amount))
}

// Burn removes shares from the holder and shrinks the pool total. Burning more
// than the holding fails with ErrInsufficientShares.
func (l *Ledger) Burn(poolID uint64, holder [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("share ledger: %w", nativecommon.ErrZeroAmount)
	}
	balance, err := l.state.SharesGet(poolID, holder)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("share ledger: %w", nativecommon.ErrInsufficientShares)
	}
	total, err := l.state.SharesTotal(poolID)
	if err != nil {
		return err
	}
	if total.Cmp(amount) < 0 {
		return fmt.Errorf("share ledger: total below burn amount: %w", nativecommon.ErrInsufficientShares)
	}
	if err := l.state.SharesPut(poolID, holder, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	return l.state.SharesPutTotal(poolID, new(big.Int).Sub(total, amount))
}

// GetShares returns the holder's balance for the pool. Read-only.
func (l *Ledger) GetShares(poolID uint64, holder [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	balance, err := l.state.SharesGet(poolID, holder)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(balance), nil
}

// GetTotalShares returns the outstanding share supply for the pool. Read-only.
func (l *Ledger) GetTotalShares(poolID uint64) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	total, err := l.state.SharesTotal(poolID)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(total), nil
}
