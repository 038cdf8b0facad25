package book

import (
	"math/big"
	"strings"
)

// MatchStatus tracks the strictly forward lifecycle of a registered match.
// Odds are fixed at creation, so there is no separate pre-odds state.
type MatchStatus uint8

const (
	// MatchOpen accepts new wagers.
	MatchOpen MatchStatus = iota
	// MatchLocked has a recorded start time; no further wagers.
	MatchLocked
	// MatchResolved has a recorded result and settlement in progress.
	MatchResolved
	// MatchClosed has every wager settled. Terminal.
	MatchClosed
)

// Valid reports whether the status value is within the supported range.
func (s MatchStatus) Valid() bool {
	return s <= MatchClosed
}

func (s MatchStatus) String() string {
	switch s {
	case MatchOpen:
		return "open"
	case MatchLocked:
		return "locked"
	case MatchResolved:
		return "resolved"
	case MatchClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Match captures a bookmaker's offer on an external event. Everything except
// the status, start time and result is immutable after creation.
type Match struct {
	ExternalID string
	Bookmaker  [20]byte
	Odds       uint32
	StartTime  uint64
	Result     string
	Status     MatchStatus
	CreatedAt  uint64
	WagerCount uint64
}

// Clone returns a deep copy of the match.
func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}

// WagerStatus tracks the lifecycle of a single wager. The won statuses are
// terminal: funds for the wager have been released and transferred exactly
// once. A settlement-failed wager is terminal for match completion but may be
// retried through SettleOne.
type WagerStatus uint8

const (
	// WagerActive holds both reservations.
	WagerActive WagerStatus = iota
	// WagerWonByBettor paid stake plus winnable amount to the bettor.
	WagerWonByBettor
	// WagerWonByBookmaker transferred the stake to the bookmaker.
	WagerWonByBookmaker
	// WagerSettlementFailed recorded a ledger failure during settlement.
	WagerSettlementFailed
)

func (s WagerStatus) String() string {
	switch s {
	case WagerActive:
		return "active"
	case WagerWonByBettor:
		return "won_by_bettor"
	case WagerWonByBookmaker:
		return "won_by_bookmaker"
	case WagerSettlementFailed:
		return "settlement_failed"
	default:
		return "unknown"
	}
}

// Settled reports whether the wager reached a paid-out terminal status.
func (s WagerStatus) Settled() bool {
	return s == WagerWonByBettor || s == WagerWonByBookmaker
}

// Wager records a bettor's stake against a match at the odds snapshot taken
// when the wager was placed. StakeMoved and ReservationMoved track which of
// the two ledger legs of settlement have completed, so a retried settlement
// never repeats a leg.
type Wager struct {
	ID               [32]byte
	MatchID          string
	Bettor           [20]byte
	Predicted        string
	Stake            *big.Int
	Winnable         *big.Int
	Status           WagerStatus
	StakeMoved       bool
	ReservationMoved bool
	CreatedAt        uint64
	SettledAt        uint64
	FailReason       string
}

// Clone returns a deep copy of the wager.
func (w *Wager) Clone() *Wager {
	if w == nil {
		return nil
	}
	clone := *w
	if w.Stake != nil {
		clone.Stake = new(big.Int).Set(w.Stake)
	}
	if w.Winnable != nil {
		clone.Winnable = new(big.Int).Set(w.Winnable)
	}
	return &clone
}

// NormalizeOutcome canonicalises an outcome or prediction token. The engine
// compares outcomes as opaque strings; the oracle service maps reported
// scores onto the same vocabulary.
func NormalizeOutcome(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "homewin", "home_win":
		return "home"
	case "awaywin", "away_win":
		return "away"
	default:
		return normalized
	}
}

// OracleAuthority decides whether a caller holds the trusted oracle role for
// recording start times and results.
type OracleAuthority interface {
	IsOracle(addr [20]byte) bool
}

// AuthorityFunc adapts a plain predicate to the OracleAuthority interface.
type AuthorityFunc func(addr [20]byte) bool

// IsOracle implements OracleAuthority.
func (f AuthorityFunc) IsOracle(addr [20]byte) bool {
	if f == nil {
		return false
	}
	return f(addr)
}

// Ledger is the external value-transfer collaborator. Reservations and
// settlements are expressed as sequences of these single-account operations;
// the engine never assumes it can hold a cross-account lock.
type Ledger interface {
	Reserve(addr [20]byte, amount *big.Int) error
	Release(addr [20]byte, amount *big.Int) error
	TransferReserved(from, to [20]byte, amount *big.Int) error
}
