package book

import (
	"encoding/binary"
	"errors"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"oddsbook/core/events"
	"oddsbook/native/ledger"
)

// Engine owns the wager lifecycle up to settlement: validation and the
// dual-sided fund reservation. The two reservations touch two independent
// accounts that the external ledger cannot lock together, so placement is
// atomic by compensation: if the bookmaker leg fails the bettor leg is rolled
// back before the error is returned.
type Engine struct {
	state   bookState
	ledger  Ledger
	emitter events.Emitter
	nowFn   func() uint64
}

// NewEngine constructs a wager engine bound to the provided state backend and
// ledger gateway.
func NewEngine(state bookState, l Ledger) *Engine {
	return &Engine{
		state:   state,
		ledger:  l,
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (e *Engine) SetNowFunc(now func() uint64) {
	if e == nil {
		return
	}
	if now == nil {
		e.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	e.nowFn = now
}

// PlaceBet validates the wager, reserves the stake from the bettor and the
// winnable amount from the bookmaker, and records the wager as active. All
// validation happens before the first ledger call, so a rejected bet never
// moves funds.
func (e *Engine) PlaceBet(matchID string, bettor [20]byte, predicted string, stake *big.Int) (*Wager, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if e.ledger == nil {
		return nil, errNilLedger
	}
	match, err := loadMatch(e.state, normalizeExternalID(matchID))
	if err != nil {
		return nil, err
	}
	if match.Status != MatchOpen {
		return nil, ErrMatchNotOpen
	}
	if stake == nil || stake.Sign() <= 0 {
		return nil, ErrInvalidStake
	}
	predicted = NormalizeOutcome(predicted)
	if predicted == "" {
		return nil, ErrInvalidOutcome
	}
	if bettor == match.Bookmaker {
		return nil, ErrSelfBetForbidden
	}
	stakeAmount := new(big.Int).Set(stake)
	// Odds snapshot taken here: later odds changes, were they ever allowed,
	// would not touch existing wagers.
	winnable := new(big.Int).Mul(stakeAmount, big.NewInt(int64(match.Odds)-1))

	if err := e.ledger.Reserve(bettor, stakeAmount); err != nil {
		return nil, err
	}
	if err := e.ledger.Reserve(match.Bookmaker, winnable); err != nil {
		_ = e.ledger.Release(bettor, stakeAmount)
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return nil, ErrInsufficientBookmakerFunds
		}
		return nil, err
	}
	rollback := func() {
		_ = e.ledger.Release(bettor, stakeAmount)
		_ = e.ledger.Release(match.Bookmaker, winnable)
	}

	index := match.WagerCount
	wager := &Wager{
		ID:        wagerID(match.ExternalID, index, bettor),
		MatchID:   match.ExternalID,
		Bettor:    bettor,
		Predicted: predicted,
		Stake:     stakeAmount,
		Winnable:  winnable,
		Status:    WagerActive,
		CreatedAt: e.nowFn(),
	}
	if err := storeWager(e.state, wager); err != nil {
		rollback()
		return nil, err
	}
	if err := e.state.KVPut(wagerIndexKey(match.ExternalID, index), storedWagerRef{ID: wager.ID}); err != nil {
		_ = e.state.KVDelete(wagerKey(wager.ID))
		rollback()
		return nil, err
	}
	match.WagerCount = index + 1
	if err := storeMatch(e.state, match); err != nil {
		_ = e.state.KVDelete(wagerIndexKey(match.ExternalID, index))
		_ = e.state.KVDelete(wagerKey(wager.ID))
		rollback()
		return nil, err
	}
	e.emitter.Emit(events.BetPlaced{
		WagerID:   wager.ID,
		MatchID:   wager.MatchID,
		Bettor:    wager.Bettor,
		Predicted: wager.Predicted,
		Stake:     new(big.Int).Set(wager.Stake),
		Winnable:  new(big.Int).Set(wager.Winnable),
	})
	return wager.Clone(), nil
}

// GetWager returns the stored wager for id.
func (e *Engine) GetWager(id [32]byte) (*Wager, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return loadWager(e.state, id)
}

func wagerID(externalID string, index uint64, bettor [20]byte) [32]byte {
	buf := make([]byte, 0, len(externalID)+8+len(bettor))
	buf = append(buf, externalID...)
	buf = binary.BigEndian.AppendUint64(buf, index)
	buf = append(buf, bettor[:]...)
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256(buf))
	return id
}
