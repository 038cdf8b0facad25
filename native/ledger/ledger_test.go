package ledger

import (
	"errors"
	"math/big"
	"testing"

	"oddsbook/core/types"
)

type mockState struct {
	accounts map[[20]byte]*types.Account
}

func newMockState() *mockState {
	return &mockState{accounts: make(map[[20]byte]*types.Account)}
}

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	var key [20]byte
	copy(key[:], addr)
	if account, ok := m.accounts[key]; ok {
		return account.Clone(), nil
	}
	return (&types.Account{}).Normalize(), nil
}

func (m *mockState) PutAccount(addr []byte, account *types.Account) error {
	var key [20]byte
	copy(key[:], addr)
	m.accounts[key] = account.Clone()
	return nil
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func (m *mockState) fund(addr [20]byte, amount int64) {
	m.accounts[addr] = (&types.Account{Balance: big.NewInt(amount)}).Normalize()
}

func TestReserveMovesFreeToReserved(t *testing.T) {
	state := newMockState()
	addr := testAddr(0x01)
	state.fund(addr, 100)
	l := NewLedger(state)

	if err := l.Reserve(addr, big.NewInt(60)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	account, _ := state.GetAccount(addr[:])
	if account.Balance.Cmp(big.NewInt(40)) != 0 || account.Reserved.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("unexpected balances %+v", account)
	}
	if err := l.Reserve(addr, big.NewInt(41)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestReleaseRequiresReservation(t *testing.T) {
	state := newMockState()
	addr := testAddr(0x02)
	state.fund(addr, 100)
	l := NewLedger(state)

	if err := l.Release(addr, big.NewInt(1)); !errors.Is(err, ErrNotReserved) {
		t.Fatalf("expected ErrNotReserved, got %v", err)
	}
	if err := l.Reserve(addr, big.NewInt(30)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := l.Release(addr, big.NewInt(30)); err != nil {
		t.Fatalf("release: %v", err)
	}
	account, _ := state.GetAccount(addr[:])
	if account.Balance.Cmp(big.NewInt(100)) != 0 || account.Reserved.Sign() != 0 {
		t.Fatalf("unexpected balances %+v", account)
	}
}

func TestTransferReservedCreditsRecipientFreeBalance(t *testing.T) {
	state := newMockState()
	from := testAddr(0x03)
	to := testAddr(0x04)
	state.fund(from, 50)
	l := NewLedger(state)

	if err := l.Reserve(from, big.NewInt(50)); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := l.TransferReserved(from, to, big.NewInt(20)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	fromAcc, _ := state.GetAccount(from[:])
	toAcc, _ := state.GetAccount(to[:])
	if fromAcc.Reserved.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("unexpected from reservation %v", fromAcc.Reserved)
	}
	if toAcc.Balance.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("unexpected recipient balance %v", toAcc.Balance)
	}
	if err := l.TransferReserved(from, to, big.NewInt(31)); !errors.Is(err, ErrNotReserved) {
		t.Fatalf("expected ErrNotReserved, got %v", err)
	}
}

func TestInvalidAmounts(t *testing.T) {
	state := newMockState()
	addr := testAddr(0x05)
	l := NewLedger(state)

	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
		if err := l.Reserve(addr, amount); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("reserve(%v): expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}
