package state

import (
	"math/big"
	"testing"

	"oddsbook/core/types"
	"oddsbook/storage"
)

type kvRecord struct {
	Name  string
	Count uint64
}

func TestKVRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	ok, err := m.KVGet([]byte("book/test"), nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("unexpected value before put")
	}
	if err := m.KVPut([]byte("book/test"), kvRecord{Name: "e1", Count: 3}); err != nil {
		t.Fatalf("put: %v", err)
	}
	var got kvRecord
	ok, err = m.KVGet([]byte("book/test"), &got)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || got.Name != "e1" || got.Count != 3 {
		t.Fatalf("unexpected record %+v (ok=%v)", got, ok)
	}
	if err := m.KVDelete([]byte("book/test")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ = m.KVGet([]byte("book/test"), nil); ok {
		t.Fatalf("value survived delete")
	}
}

func TestAccountDefaultsToZeroBalances(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := []byte{0x01, 0x02}

	account, err := m.GetAccount(addr)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if account.Balance.Sign() != 0 || account.Reserved.Sign() != 0 {
		t.Fatalf("expected zero balances, got %+v", account)
	}

	account.Balance = big.NewInt(750)
	account.Reserved = big.NewInt(25)
	account.Nonce = 4
	if err := m.PutAccount(addr, account); err != nil {
		t.Fatalf("put: %v", err)
	}
	reloaded, err := m.GetAccount(addr)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Balance.Cmp(big.NewInt(750)) != 0 || reloaded.Reserved.Cmp(big.NewInt(25)) != 0 || reloaded.Nonce != 4 {
		t.Fatalf("unexpected reload %+v", reloaded)
	}
}

func TestPutAccountRejectsNegativeColumns(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	account := &types.Account{Balance: big.NewInt(-1), Reserved: big.NewInt(0)}
	if err := m.PutAccount([]byte{0xAA}, account); err == nil {
		t.Fatalf("expected error for negative balance")
	}
}
