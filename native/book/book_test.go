package book

import (
	"math/big"
	"testing"

	"oddsbook/core/events"
	"oddsbook/core/state"
	"oddsbook/core/types"
	"oddsbook/native/ledger"
	"oddsbook/storage"
)

var oracleAddr = testAddr(0xFE)

// harness wires the three engines over a real state manager and ledger so
// tests observe actual balance movement.
type harness struct {
	t        *testing.T
	state    *state.Manager
	ledger   *ledger.Ledger
	registry *Registry
	engine   *Engine
	settler  *Settler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	l := ledger.NewLedger(manager)
	registry := NewRegistry(manager)
	registry.SetAuthority(AuthorityFunc(func(addr [20]byte) bool { return addr == oracleAddr }))
	registry.SetNowFunc(func() uint64 { return 1_700_000_000 })
	engine := NewEngine(manager, l)
	engine.SetNowFunc(func() uint64 { return 1_700_000_100 })
	settler := NewSettler(manager, l)
	settler.SetNowFunc(func() uint64 { return 1_700_000_200 })
	return &harness{
		t:        t,
		state:    manager,
		ledger:   l,
		registry: registry,
		engine:   engine,
		settler:  settler,
	}
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func (h *harness) fund(addr [20]byte, amount int64) {
	h.t.Helper()
	if err := h.ledger.Mint(addr, big.NewInt(amount)); err != nil {
		h.t.Fatalf("mint: %v", err)
	}
}

func (h *harness) account(addr [20]byte) *types.Account {
	h.t.Helper()
	account, err := h.state.GetAccount(addr[:])
	if err != nil {
		h.t.Fatalf("account: %v", err)
	}
	return account
}

func (h *harness) requireBalances(addr [20]byte, free, reserved int64) {
	h.t.Helper()
	account := h.account(addr)
	if account.Balance.Cmp(big.NewInt(free)) != 0 {
		h.t.Fatalf("address %x: free balance %v, want %d", addr[:2], account.Balance, free)
	}
	if account.Reserved.Cmp(big.NewInt(reserved)) != 0 {
		h.t.Fatalf("address %x: reserved balance %v, want %d", addr[:2], account.Reserved, reserved)
	}
}

func (h *harness) createMatch(id string, bookmaker [20]byte, odds uint32) *Match {
	h.t.Helper()
	match, err := h.registry.CreateMatch(id, bookmaker, odds)
	if err != nil {
		h.t.Fatalf("create match: %v", err)
	}
	return match
}

func (h *harness) placeBet(id string, bettor [20]byte, predicted string, stake int64) *Wager {
	h.t.Helper()
	wager, err := h.engine.PlaceBet(id, bettor, predicted, big.NewInt(stake))
	if err != nil {
		h.t.Fatalf("place bet: %v", err)
	}
	return wager
}

func (h *harness) lockAndResolve(id, result string) {
	h.t.Helper()
	if err := h.registry.RecordStartTime(id, 1_700_000_150, oracleAddr); err != nil {
		h.t.Fatalf("record start time: %v", err)
	}
	if err := h.registry.RecordResult(id, result, oracleAddr); err != nil {
		h.t.Fatalf("record result: %v", err)
	}
}

// countingLedger wraps a ledger and records every call, optionally failing
// selected operations to simulate external anomalies.
type countingLedger struct {
	inner            Ledger
	calls            int
	failRelease      bool
	failTransferFrom map[[20]byte]bool
	failErr          error
}

func (c *countingLedger) Reserve(addr [20]byte, amount *big.Int) error {
	c.calls++
	return c.inner.Reserve(addr, amount)
}

func (c *countingLedger) Release(addr [20]byte, amount *big.Int) error {
	c.calls++
	if c.failRelease {
		return c.failErr
	}
	return c.inner.Release(addr, amount)
}

func (c *countingLedger) TransferReserved(from, to [20]byte, amount *big.Int) error {
	c.calls++
	if c.failTransferFrom[from] {
		return c.failErr
	}
	return c.inner.TransferReserved(from, to, amount)
}

// recordingEmitter captures emitted event types in order.
type recordingEmitter struct {
	types []string
}

func (r *recordingEmitter) Emit(evt events.Event) {
	r.types = append(r.types, evt.EventType())
}

func (r *recordingEmitter) count(eventType string) int {
	n := 0
	for _, t := range r.types {
		if t == eventType {
			n++
		}
	}
	return n
}
