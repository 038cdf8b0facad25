package core

import (
	"context"
	"math/big"
	"sync"

	"oddsbook/core/events"
	"oddsbook/core/state"
	"oddsbook/native/book"
	"oddsbook/native/ledger"
	"oddsbook/observability"
	"oddsbook/storage"
)

// Node wires the match registry, wager engine and settlement engine over a
// shared state manager and exposes them as discrete serialisable operations:
// stateMu guarantees each exposed call runs to completion without
// interleaving, which is the concurrency contract the engines are written
// against. No operation performs unbounded work; SettleBatch is the only one
// with caller-controlled (and caller-bounded) cost.
type Node struct {
	stateMu sync.Mutex
	state   *state.Manager
	ledger  *ledger.Ledger

	registry *book.Registry
	engine   *book.Engine
	settler  *book.Settler

	hub *eventHub
}

// NewNode constructs a node over the provided database.
func NewNode(db storage.Database) *Node {
	manager := state.NewManager(db)
	l := ledger.NewLedger(manager)
	hub := newEventHub()

	registry := book.NewRegistry(manager)
	registry.SetEmitter(hub)
	engine := book.NewEngine(manager, l)
	engine.SetEmitter(hub)
	settler := book.NewSettler(manager, l)
	settler.SetEmitter(hub)

	return &Node{
		state:    manager,
		ledger:   l,
		registry: registry,
		engine:   engine,
		settler:  settler,
		hub:      hub,
	}
}

// SetOracleAccounts installs the set of addresses trusted to record start
// times and results.
func (n *Node) SetOracleAccounts(addrs [][20]byte) {
	trusted := make(map[[20]byte]struct{}, len(addrs))
	for _, addr := range addrs {
		trusted[addr] = struct{}{}
	}
	n.registry.SetAuthority(book.AuthorityFunc(func(addr [20]byte) bool {
		_, ok := trusted[addr]
		return ok
	}))
}

// CreateMatch registers a match offer for an external event.
func (n *Node) CreateMatch(externalID string, bookmaker [20]byte, odds uint32) (*book.Match, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	match, err := n.registry.CreateMatch(externalID, bookmaker, odds)
	if err == nil {
		observability.Book().MatchesCreated.Inc()
	}
	return match, err
}

// PlaceBet stakes funds against a match at its odds snapshot.
func (n *Node) PlaceBet(matchID string, bettor [20]byte, predicted string, stake *big.Int) (*book.Wager, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	wager, err := n.engine.PlaceBet(matchID, bettor, predicted, stake)
	if err == nil {
		observability.Book().BetsPlaced.Inc()
	}
	return wager, err
}

// RecordStartTime locks the match against further wagers.
func (n *Node) RecordStartTime(matchID string, startTime uint64, caller [20]byte) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.registry.RecordStartTime(matchID, startTime, caller)
}

// RecordResult resolves the match and arms settlement.
func (n *Node) RecordResult(matchID, outcome string, caller [20]byte) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.registry.RecordResult(matchID, outcome, caller)
}

// SettleBatch settles up to maxCount wagers of a resolved match.
func (n *Node) SettleBatch(matchID string, maxCount int) (*book.BatchResult, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	result, err := n.settler.SettleBatch(matchID, maxCount)
	if err == nil {
		metrics := observability.Book()
		metrics.SettlementFailures.Add(float64(result.Failed))
		if result.Closed {
			metrics.MatchesClosed.Inc()
		}
	}
	return result, err
}

// SettleOne settles exactly one wager, independent of batch progress.
func (n *Node) SettleOne(wagerID [32]byte) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.settler.SettleOne(wagerID)
}

// GetMatch returns the current state of a match.
func (n *Node) GetMatch(externalID string) (*book.Match, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.registry.GetMatch(externalID)
}

// GetWager returns the current state of a wager.
func (n *Node) GetWager(id [32]byte) (*book.Wager, error) {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.engine.GetWager(id)
}

// Mint credits a free balance; used for genesis allocations and deposits
// arriving from outside the engine.
func (n *Node) Mint(addr [20]byte, amount *big.Int) error {
	n.stateMu.Lock()
	defer n.stateMu.Unlock()
	return n.ledger.Mint(addr, amount)
}

// Subscribe registers an event listener. The returned channel receives every
// event emitted after the call and is closed when ctx is cancelled.
func (n *Node) Subscribe(ctx context.Context) <-chan events.Event {
	return n.hub.subscribe(ctx)
}
