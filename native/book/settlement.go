package book

import (
	"fmt"
	"math/big"
	"time"

	"oddsbook/core/events"
)

// Settler drives bounded, resumable payout of a resolved match's wagers. A
// match may carry an unbounded number of wagers, so settlement is never one
// unbounded loop: each SettleBatch call examines at most maxCount index
// entries and callers repeat until nothing remains. The per-match cursor
// tracks scan progress; the unsettled counter is the completion authority and
// tolerates out-of-order settlement through SettleOne.
type Settler struct {
	state   bookState
	ledger  Ledger
	emitter events.Emitter
	nowFn   func() uint64
}

// NewSettler constructs a settlement engine bound to the provided state
// backend and ledger gateway.
func NewSettler(state bookState, l Ledger) *Settler {
	return &Settler{
		state:   state,
		ledger:  l,
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (s *Settler) SetEmitter(emitter events.Emitter) {
	if s == nil {
		return
	}
	if emitter == nil {
		s.emitter = events.NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (s *Settler) SetNowFunc(now func() uint64) {
	if s == nil {
		return
	}
	if now == nil {
		s.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	s.nowFn = now
}

// BatchResult reports the effect of a single SettleBatch call.
type BatchResult struct {
	// Settled counts wagers paid out during this call.
	Settled uint64
	// Failed counts wagers recorded as settlement-failed during this call.
	Failed uint64
	// Remaining counts wagers on the match still awaiting settlement.
	Remaining uint64
	// Closed reports whether this call transitioned the match to closed.
	Closed bool
}

// SettleBatch settles up to maxCount wagers of a resolved match, resuming
// from the cursor position of the previous call. A wager whose ledger legs
// fail is recorded as settlement-failed and skipped so one corrupted wager
// never blocks its siblings; it stays retryable through SettleOne. When the
// last outstanding wager terminates the match closes and the cursor is
// discarded.
func (s *Settler) SettleBatch(matchID string, maxCount int) (*BatchResult, error) {
	if s == nil || s.state == nil {
		return nil, errNilState
	}
	if s.ledger == nil {
		return nil, errNilLedger
	}
	if maxCount < 1 {
		return nil, fmt.Errorf("book: batch size must be positive")
	}
	match, err := loadMatch(s.state, normalizeExternalID(matchID))
	if err != nil {
		return nil, err
	}
	if match.Status != MatchResolved {
		return nil, ErrNotResolved
	}
	cursor, err := loadCursor(s.state, match.ExternalID)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for examined := 0; examined < maxCount && cursor.Cursor < match.WagerCount; examined++ {
		id, err := wagerIDAt(s.state, match.ExternalID, cursor.Cursor)
		if err != nil {
			return nil, err
		}
		wager, err := loadWager(s.state, id)
		if err != nil {
			return nil, err
		}
		cursor.Cursor++
		if wager.Status != WagerActive {
			// Settled out of order through SettleOne, or recorded as
			// failed earlier; already accounted for in the counters.
			if err := storeCursor(s.state, match.ExternalID, cursor); err != nil {
				return nil, err
			}
			continue
		}
		if err := s.settleWager(match, wager); err != nil {
			cursor.Unsettled--
			cursor.Failed++
			result.Failed++
		} else {
			cursor.Unsettled--
			cursor.Settled++
			result.Settled++
		}
		if err := storeCursor(s.state, match.ExternalID, cursor); err != nil {
			return nil, err
		}
	}

	result.Remaining = cursor.Unsettled
	if cursor.Unsettled == 0 {
		if err := s.closeMatch(match, cursor); err != nil {
			return nil, err
		}
		result.Closed = true
	}
	return result, nil
}

// SettleOne settles exactly one wager, independent of the cursor position.
// Useful for priority settlement and for retrying wagers recorded as
// settlement-failed, including after the match has closed.
func (s *Settler) SettleOne(id [32]byte) error {
	if s == nil || s.state == nil {
		return errNilState
	}
	if s.ledger == nil {
		return errNilLedger
	}
	wager, err := loadWager(s.state, id)
	if err != nil {
		return err
	}
	match, err := loadMatch(s.state, wager.MatchID)
	if err != nil {
		return err
	}
	if match.Status != MatchResolved && match.Status != MatchClosed {
		return ErrNotResolved
	}
	if wager.Status.Settled() {
		return ErrAlreadySettled
	}
	wasActive := wager.Status == WagerActive
	wasFailed := wager.Status == WagerSettlementFailed

	var cursor *settlementCursor
	if match.Status == MatchResolved {
		cursor, err = loadCursor(s.state, match.ExternalID)
		if err != nil {
			return err
		}
	}

	settleErr := s.settleWager(match, wager)
	if cursor != nil {
		if wasActive {
			cursor.Unsettled--
		}
		if settleErr != nil {
			if wasActive {
				cursor.Failed++
			}
		} else {
			cursor.Settled++
			if wasFailed {
				cursor.Failed--
			}
		}
		if err := storeCursor(s.state, match.ExternalID, cursor); err != nil {
			return err
		}
		if cursor.Unsettled == 0 {
			if err := s.closeMatch(match, cursor); err != nil {
				return err
			}
		}
	}
	return settleErr
}

// settleWager compares the prediction against the result and moves the two
// reservations accordingly. Each ledger leg is tracked on the wager record
// and performed at most once, so a retry after a partial failure completes
// only the missing leg.
func (s *Settler) settleWager(match *Match, wager *Wager) error {
	bettorWins := wager.Predicted == match.Result

	fail := func(reason string, cause error) error {
		wager.Status = WagerSettlementFailed
		wager.FailReason = reason
		if storeErr := storeWager(s.state, wager); storeErr != nil {
			return storeErr
		}
		s.emitter.Emit(events.SettlementFailed{
			WagerID: wager.ID,
			MatchID: wager.MatchID,
			Reason:  reason,
		})
		return fmt.Errorf("%w: %s: %v", ErrSettlementFailed, reason, cause)
	}

	if bettorWins {
		if !wager.ReservationMoved {
			if err := s.ledger.TransferReserved(match.Bookmaker, wager.Bettor, wager.Winnable); err != nil {
				return fail("transfer winnable to bettor", err)
			}
			wager.ReservationMoved = true
			if err := storeWager(s.state, wager); err != nil {
				return err
			}
		}
		if !wager.StakeMoved {
			if err := s.ledger.Release(wager.Bettor, wager.Stake); err != nil {
				return fail("release bettor stake", err)
			}
			wager.StakeMoved = true
		}
		wager.Status = WagerWonByBettor
	} else {
		if !wager.StakeMoved {
			if err := s.ledger.TransferReserved(wager.Bettor, match.Bookmaker, wager.Stake); err != nil {
				return fail("transfer stake to bookmaker", err)
			}
			wager.StakeMoved = true
			if err := storeWager(s.state, wager); err != nil {
				return err
			}
		}
		if !wager.ReservationMoved {
			if err := s.ledger.Release(match.Bookmaker, wager.Winnable); err != nil {
				return fail("release bookmaker reservation", err)
			}
			wager.ReservationMoved = true
		}
		wager.Status = WagerWonByBookmaker
	}
	wager.SettledAt = s.nowFn()
	wager.FailReason = ""
	if err := storeWager(s.state, wager); err != nil {
		return err
	}

	winner := "bookmaker"
	payout := new(big.Int).Set(wager.Stake)
	if bettorWins {
		winner = "bettor"
		payout = payout.Add(payout, wager.Winnable)
	}
	s.emitter.Emit(events.WagerSettled{
		WagerID: wager.ID,
		MatchID: wager.MatchID,
		Bettor:  wager.Bettor,
		Winner:  winner,
		Payout:  payout,
	})
	return nil
}

func (s *Settler) closeMatch(match *Match, cursor *settlementCursor) error {
	match.Status = MatchClosed
	if err := storeMatch(s.state, match); err != nil {
		return err
	}
	if err := s.state.KVDelete(cursorKey(match.ExternalID)); err != nil {
		return err
	}
	s.emitter.Emit(events.MatchClosed{
		MatchID: match.ExternalID,
		Settled: cursor.Settled,
		Failed:  cursor.Failed,
	})
	return nil
}
