package shares

import (
	"errors"
	"math/big"
	"testing"

	nativecommon "crp/native/common"
)

type mockSharesState struct {
	balances map[string]*big.Int
	totals   map[uint64]*big.Int
}

func newMockSharesState() *mockSharesState {
	return &mockSharesState{
		balances: make(map[string]*big.Int),
		totals:   make(map[uint64]*big.Int),
	}
}

func holderKey(poolID uint64, holder [20]byte) string {
	return string(append([]byte{byte(poolID)}, holder[:]...))
}

func (m *mockSharesState) SharesGet(poolID uint64, holder [20]byte) (*big.Int, error) {
	if bal, ok := m.balances[holderKey(poolID, holder)]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (m *mockSharesState) SharesPut(poolID uint64, holder [20]byte, amount *big.Int) error {
	m.balances[holderKey(poolID, holder)] = new(big.Int).Set(amount)
	return nil
}

func (m *mockSharesState) SharesTotal(poolID uint64) (*big.Int, error) {
	if total, ok := m.totals[poolID]; ok {
		return new(big.Int).Set(total), nil
	}
	return big.NewInt(0), nil
}

func (m *mockSharesState) SharesPutTotal(poolID uint64, total *big.Int) error {
	m.totals[poolID] = new(big.Int).Set(total)
	return nil
}

func addr(b byte) [20]byte {
	var out [20]byte
	out[19] = b
	return out
}

func TestMintAndBurn(t *testing.T) {
	ledger := NewLedger()
	ledger.SetState(newMockSharesState())
	holder := addr(0x01)

	if err := ledger.Mint(1, holder, big.NewInt(600)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Mint(1, addr(0x02), big.NewInt(400)); err != nil {
		t.Fatalf("mint second holder: %v", err)
	}

	total, err := ledger.GetTotalShares(1)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("expected total 1000, got %s", total)
	}

	if err := ledger.Burn(1, holder, big.NewInt(600)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	balance, err := ledger.GetShares(1, holder)
	if err != nil {
		t.Fatalf("shares: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("expected zero balance after burn, got %s", balance)
	}
}

func TestBurnExceedingHoldingFails(t *testing.T) {
	ledger := NewLedger()
	ledger.SetState(newMockSharesState())
	holder := addr(0x03)

	if err := ledger.Mint(7, holder, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Burn(7, holder, big.NewInt(101)); !errors.Is(err, nativecommon.ErrInsufficientShares) {
		t.Fatalf("expected ErrInsufficientShares, got %v", err)
	}
}

func TestMintZeroRejected(t *testing.T) {
	ledger := NewLedger()
	ledger.SetState(newMockSharesState())
	if err := ledger.Mint(1, addr(0x04), big.NewInt(0)); !errors.Is(err, nativecommon.ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
}

func TestPoolsAreIsolated(t *testing.T) {
	ledger := NewLedger()
	ledger.SetState(newMockSharesState())
	holder := addr(0x05)

	if err := ledger.Mint(1, holder, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	other, err := ledger.GetShares(2, holder)
	if err != nil {
		t.Fatalf("shares: %v", err)
	}
	if other.Sign() != 0 {
		t.Fatalf("pool 2 should have no shares, got %s", other)
	}
}
