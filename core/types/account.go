package types

import "math/big"

// Account tracks the treasury balance and replay nonce for a ledger identity.
// Vault sub-accounts owned by pools reuse the same shape; their addresses are
// derived deterministically from the owning record and are never signers.
type Account struct {
	Nonce   uint64   `json:"nonce"`
	Balance *big.Int `json:"balance"`
}

// EnsureBalance normalises a possibly-nil account into a usable value.
func EnsureBalance(acc *Account) *Account {
	if acc == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}
