package core

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"oddsbook/core/events"
	"oddsbook/native/book"
	"oddsbook/storage"
)

func nodeAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func TestNodeFullLifecycle(t *testing.T) {
	node := NewNode(storage.NewMemDB())
	oracle := nodeAddr(0xFE)
	node.SetOracleAccounts([][20]byte{oracle})
	bookmaker := nodeAddr(0x01)
	bettor := nodeAddr(0x02)
	if err := node.Mint(bookmaker, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := node.Mint(bettor, big.NewInt(50)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed := node.Subscribe(ctx)

	if _, err := node.CreateMatch("e1", bookmaker, 3); err != nil {
		t.Fatalf("create match: %v", err)
	}
	wager, err := node.PlaceBet("e1", bettor, "home", big.NewInt(10))
	if err != nil {
		t.Fatalf("place bet: %v", err)
	}
	if err := node.RecordStartTime("e1", 100, bettor); !errors.Is(err, book.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := node.RecordStartTime("e1", 100, oracle); err != nil {
		t.Fatalf("record start time: %v", err)
	}
	if err := node.RecordResult("e1", "home", oracle); err != nil {
		t.Fatalf("record result: %v", err)
	}
	result, err := node.SettleBatch("e1", 10)
	if err != nil {
		t.Fatalf("settle batch: %v", err)
	}
	if result.Settled != 1 || result.Remaining != 0 || !result.Closed {
		t.Fatalf("unexpected batch result %+v", result)
	}
	if err := node.SettleOne(wager.ID); !errors.Is(err, book.ErrAlreadySettled) {
		t.Fatalf("expected ErrAlreadySettled, got %v", err)
	}
	match, err := node.GetMatch("e1")
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if match.Status != book.MatchClosed {
		t.Fatalf("expected closed match, got %v", match.Status)
	}

	expected := map[string]bool{
		events.TypeMatchCreated:  false,
		events.TypeBetPlaced:     false,
		events.TypeMatchLocked:   false,
		events.TypeMatchResolved: false,
		events.TypeWagerSettled:  false,
		events.TypeMatchClosed:   false,
	}
	deadline := time.After(time.Second)
	for remaining := len(expected); remaining > 0; {
		select {
		case evt := <-feed:
			if seen, ok := expected[evt.EventType()]; ok && !seen {
				expected[evt.EventType()] = true
				remaining--
			}
		case <-deadline:
			t.Fatalf("missing events: %+v", expected)
		}
	}
}

func TestNodeSubscriptionClosesWithContext(t *testing.T) {
	node := NewNode(storage.NewMemDB())
	ctx, cancel := context.WithCancel(context.Background())
	feed := node.Subscribe(ctx)
	cancel()
	select {
	case _, ok := <-feed:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}
