package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"oddsbook/core/types"
)

var (
	errNilState = errors.New("ledger: state not configured")

	// ErrInvalidAmount is returned for nil, zero or negative amounts.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	// ErrInsufficientFunds is returned when the free balance cannot cover a
	// reservation or debit.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrNotReserved is returned when a release or reserved transfer exceeds
	// the account's reserved balance.
	ErrNotReserved = errors.New("ledger: amount not reserved")
)

type ledgerState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Ledger implements the value-transfer gateway consumed by the book engine:
// move funds between the free and reserved columns of an account and transfer
// directly out of a reservation. Each call touches the accounts it names and
// nothing else; the engine composes them into compensable sequences.
type Ledger struct {
	state ledgerState
}

// NewLedger constructs a ledger bound to the provided account state.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state}
}

// Reserve moves amount from the free balance of addr into its reserved column.
func (l *Ledger) Reserve(addr [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	account, err := l.loadAccount(addr)
	if err != nil {
		return err
	}
	if account.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	account.Balance = new(big.Int).Sub(account.Balance, amount)
	account.Reserved = new(big.Int).Add(account.Reserved, amount)
	return l.state.PutAccount(addr[:], account)
}

// Release returns amount from the reserved column of addr to its free balance.
func (l *Ledger) Release(addr [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	account, err := l.loadAccount(addr)
	if err != nil {
		return err
	}
	if account.Reserved.Cmp(amount) < 0 {
		return ErrNotReserved
	}
	account.Reserved = new(big.Int).Sub(account.Reserved, amount)
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return l.state.PutAccount(addr[:], account)
}

// TransferReserved moves amount out of from's reserved column into to's free
// balance.
func (l *Ledger) TransferReserved(from, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	fromAcc, err := l.loadAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.Reserved.Cmp(amount) < 0 {
		return ErrNotReserved
	}
	fromAcc.Reserved = new(big.Int).Sub(fromAcc.Reserved, amount)
	if err := l.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	toAcc, err := l.loadAccount(to)
	if err != nil {
		return err
	}
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	return l.state.PutAccount(to[:], toAcc)
}

// Mint credits amount to the free balance of addr. Used for genesis funding
// and deposits arriving from outside the engine.
func (l *Ledger) Mint(addr [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	account, err := l.loadAccount(addr)
	if err != nil {
		return err
	}
	account.Balance = new(big.Int).Add(account.Balance, amount)
	return l.state.PutAccount(addr[:], account)
}

func (l *Ledger) loadAccount(addr [20]byte) (*types.Account, error) {
	account, err := l.state.GetAccount(addr[:])
	if err != nil {
		return nil, fmt.Errorf("ledger: load account %x: %w", addr, err)
	}
	return account.Normalize().Clone(), nil
}
