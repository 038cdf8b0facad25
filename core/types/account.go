package types

import "math/big"

// Account tracks the spendable and reserved balance columns for a single
// participant. Reserved funds back open wagers and can only move through the
// ledger gateway's release/transfer operations.
type Account struct {
	Nonce    uint64   `json:"nonce"`
	Balance  *big.Int `json:"balance"`
	Reserved *big.Int `json:"reserved"`
}

// Normalize returns the account with nil balance columns replaced by zero so
// callers never have to nil-check before arithmetic.
func (a *Account) Normalize() *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0), Reserved: big.NewInt(0)}
	}
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
	if a.Reserved == nil {
		a.Reserved = big.NewInt(0)
	}
	return a
}

// Clone returns a deep copy so callers can mutate the copy without affecting
// the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return (&Account{}).Normalize()
	}
	clone := &Account{Nonce: a.Nonce}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	if a.Reserved != nil {
		clone.Reserved = new(big.Int).Set(a.Reserved)
	}
	return clone.Normalize()
}
