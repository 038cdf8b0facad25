package state

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"oddsbook/core/types"
	"oddsbook/storage"
)

var (
	kvPrefix      = []byte("kv/")
	accountPrefix = []byte("acct/")
)

// Manager provides typed access to the node's persistent state: an RLP-encoded
// key-value namespace for engine records and the account balance table. It
// performs no locking of its own; the node serialises all operations.
type Manager struct {
	db storage.Database
}

// NewManager wraps the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// KVGet decodes the value stored under key into out. It reports false when the
// key has no value. Passing a nil out checks existence only.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, err := m.db.Get(kvKey(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVPut stores the RLP encoding of value under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(kvKey(key), encoded)
}

// KVDelete removes the value stored under key, if any.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return m.db.Delete(kvKey(key))
}

type storedAccount struct {
	Nonce    uint64
	Balance  []byte
	Reserved []byte
}

// GetAccount loads the account for addr, returning a zero-balance account for
// addresses never seen before.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	if len(addr) == 0 {
		return nil, fmt.Errorf("state: address must not be empty")
	}
	data, err := m.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return (&types.Account{}).Normalize(), nil
	}
	if err != nil {
		return nil, err
	}
	var stored storedAccount
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, err
	}
	account := (&types.Account{Nonce: stored.Nonce}).Normalize()
	account.Balance.SetBytes(stored.Balance)
	account.Reserved.SetBytes(stored.Reserved)
	return account, nil
}

// PutAccount persists the account for addr.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if len(addr) == 0 {
		return fmt.Errorf("state: address must not be empty")
	}
	account = account.Normalize()
	if account.Balance.Sign() < 0 || account.Reserved.Sign() < 0 {
		return fmt.Errorf("state: negative balance column for %x", addr)
	}
	stored := storedAccount{
		Nonce:    account.Nonce,
		Balance:  account.Balance.Bytes(),
		Reserved: account.Reserved.Bytes(),
	}
	encoded, err := rlp.EncodeToBytes(stored)
	if err != nil {
		return err
	}
	return m.db.Put(accountKey(addr), encoded)
}

func kvKey(key []byte) []byte {
	return append(append([]byte(nil), kvPrefix...), key...)
}

func accountKey(addr []byte) []byte {
	return append(append([]byte(nil), accountPrefix...), hex.EncodeToString(addr)...)
}
