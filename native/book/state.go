package book

import (
	"fmt"
	"math/big"
	"strings"
)

// bookState abstracts the subset of state manager functionality required by
// the match registry, the wager ledger and the settlement engine.
type bookState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
}

func matchKey(externalID string) []byte {
	return []byte(fmt.Sprintf("book/match/%s", externalID))
}

func wagerKey(id [32]byte) []byte {
	return []byte(fmt.Sprintf("book/wager/%x", id[:]))
}

func wagerIndexKey(externalID string, index uint64) []byte {
	return []byte(fmt.Sprintf("book/match/%s/wager/%d", externalID, index))
}

func cursorKey(externalID string) []byte {
	return []byte(fmt.Sprintf("book/cursor/%s", externalID))
}

func normalizeExternalID(value string) string {
	return strings.TrimSpace(value)
}

type storedMatch struct {
	ExternalID string
	Bookmaker  [20]byte
	Odds       uint32
	StartTime  uint64
	Result     string
	Status     uint8
	CreatedAt  uint64
	WagerCount uint64
}

func (s *storedMatch) toMatch() *Match {
	if s == nil {
		return nil
	}
	return &Match{
		ExternalID: s.ExternalID,
		Bookmaker:  s.Bookmaker,
		Odds:       s.Odds,
		StartTime:  s.StartTime,
		Result:     s.Result,
		Status:     MatchStatus(s.Status),
		CreatedAt:  s.CreatedAt,
		WagerCount: s.WagerCount,
	}
}

func newStoredMatch(m *Match) *storedMatch {
	if m == nil {
		return nil
	}
	return &storedMatch{
		ExternalID: m.ExternalID,
		Bookmaker:  m.Bookmaker,
		Odds:       m.Odds,
		StartTime:  m.StartTime,
		Result:     m.Result,
		Status:     uint8(m.Status),
		CreatedAt:  m.CreatedAt,
		WagerCount: m.WagerCount,
	}
}

type storedWager struct {
	ID               [32]byte
	MatchID          string
	Bettor           [20]byte
	Predicted        string
	Stake            *big.Int
	Winnable         *big.Int
	Status           uint8
	StakeMoved       bool
	ReservationMoved bool
	CreatedAt        uint64
	SettledAt        uint64
	FailReason       string
}

func (s *storedWager) toWager() *Wager {
	if s == nil {
		return nil
	}
	wager := &Wager{
		ID:               s.ID,
		MatchID:          s.MatchID,
		Bettor:           s.Bettor,
		Predicted:        s.Predicted,
		Status:           WagerStatus(s.Status),
		StakeMoved:       s.StakeMoved,
		ReservationMoved: s.ReservationMoved,
		CreatedAt:        s.CreatedAt,
		SettledAt:        s.SettledAt,
		FailReason:       s.FailReason,
	}
	wager.Stake = big.NewInt(0)
	if s.Stake != nil {
		wager.Stake.Set(s.Stake)
	}
	wager.Winnable = big.NewInt(0)
	if s.Winnable != nil {
		wager.Winnable.Set(s.Winnable)
	}
	return wager
}

func newStoredWager(w *Wager) *storedWager {
	if w == nil {
		return nil
	}
	stored := &storedWager{
		ID:               w.ID,
		MatchID:          w.MatchID,
		Bettor:           w.Bettor,
		Predicted:        w.Predicted,
		Stake:            big.NewInt(0),
		Winnable:         big.NewInt(0),
		Status:           uint8(w.Status),
		StakeMoved:       w.StakeMoved,
		ReservationMoved: w.ReservationMoved,
		CreatedAt:        w.CreatedAt,
		SettledAt:        w.SettledAt,
		FailReason:       w.FailReason,
	}
	if w.Stake != nil {
		stored.Stake.Set(w.Stake)
	}
	if w.Winnable != nil {
		stored.Winnable.Set(w.Winnable)
	}
	return stored
}

// settlementCursor is the per-match progress record armed when a match
// resolves and discarded when it closes. Cursor is the next wager index for
// the sequential batch scan; Unsettled counts wagers not yet terminal and is
// the completion-detection source of truth, tolerating out-of-order
// settlement through SettleOne.
type settlementCursor struct {
	Cursor    uint64
	Unsettled uint64
	Settled   uint64
	Failed    uint64
}

type storedWagerRef struct {
	ID [32]byte
}

func loadMatch(state bookState, externalID string) (*Match, error) {
	if state == nil {
		return nil, errNilState
	}
	var stored storedMatch
	ok, err := state.KVGet(matchKey(externalID), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMatchNotFound
	}
	return stored.toMatch(), nil
}

func storeMatch(state bookState, m *Match) error {
	if state == nil {
		return errNilState
	}
	return state.KVPut(matchKey(m.ExternalID), newStoredMatch(m))
}

func loadWager(state bookState, id [32]byte) (*Wager, error) {
	if state == nil {
		return nil, errNilState
	}
	var stored storedWager
	ok, err := state.KVGet(wagerKey(id), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWagerNotFound
	}
	return stored.toWager(), nil
}

func storeWager(state bookState, w *Wager) error {
	if state == nil {
		return errNilState
	}
	return state.KVPut(wagerKey(w.ID), newStoredWager(w))
}

func loadCursor(state bookState, externalID string) (*settlementCursor, error) {
	var cursor settlementCursor
	ok, err := state.KVGet(cursorKey(externalID), &cursor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("book: settlement cursor missing for %s", externalID)
	}
	return &cursor, nil
}

func storeCursor(state bookState, externalID string, cursor *settlementCursor) error {
	return state.KVPut(cursorKey(externalID), cursor)
}

func wagerIDAt(state bookState, externalID string, index uint64) ([32]byte, error) {
	var ref storedWagerRef
	ok, err := state.KVGet(wagerIndexKey(externalID, index), &ref)
	if err != nil {
		return [32]byte{}, err
	}
	if !ok {
		return [32]byte{}, fmt.Errorf("book: wager index %d missing for %s", index, externalID)
	}
	return ref.ID, nil
}
