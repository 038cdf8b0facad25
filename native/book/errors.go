package book

import "errors"

var (
	errNilState  = errors.New("book: state not configured")
	errNilLedger = errors.New("book: ledger not configured")

	// ErrMatchNotFound is returned for unknown match identifiers.
	ErrMatchNotFound = errors.New("book: match not found")
	// ErrWagerNotFound is returned for unknown wager identifiers.
	ErrWagerNotFound = errors.New("book: wager not found")
	// ErrNotAuthorized is returned when the caller lacks the oracle role.
	ErrNotAuthorized = errors.New("book: caller not authorized")
	// ErrInvalidOdds rejects odds of one or below: the bookmaker side of the
	// reservation would be zero or negative.
	ErrInvalidOdds = errors.New("book: odds must be greater than one")
	// ErrInvalidStake rejects nil, zero or negative stakes.
	ErrInvalidStake = errors.New("book: stake must be positive")
	// ErrInvalidOutcome rejects empty outcome or prediction tokens.
	ErrInvalidOutcome = errors.New("book: outcome must not be empty")
	// ErrInvalidMatchID rejects empty external identifiers.
	ErrInvalidMatchID = errors.New("book: external id must not be empty")
	// ErrDuplicateMatch enforces one match per external id, first writer wins.
	ErrDuplicateMatch = errors.New("book: match already registered")
	// ErrSelfBetForbidden prevents a bookmaker wagering against their own book.
	ErrSelfBetForbidden = errors.New("book: bookmaker cannot bet on own match")
	// ErrMatchNotOpen rejects wagers once the match has locked.
	ErrMatchNotOpen = errors.New("book: match not open for wagers")
	// ErrNotLocked rejects a result for a match that has not started.
	ErrNotLocked = errors.New("book: match not locked")
	// ErrAlreadyLocked rejects a second start time.
	ErrAlreadyLocked = errors.New("book: match already locked")
	// ErrNotResolved rejects settlement before a result is recorded.
	ErrNotResolved = errors.New("book: match not resolved")
	// ErrAlreadyResolved rejects a second result.
	ErrAlreadyResolved = errors.New("book: match already resolved")
	// ErrInsufficientBookmakerFunds reports the bookmaker-side reservation
	// failing during bet placement; the bettor reservation has been rolled
	// back by the time callers see this error.
	ErrInsufficientBookmakerFunds = errors.New("book: insufficient bookmaker funds")
	// ErrAlreadySettled rejects settling a wager twice.
	ErrAlreadySettled = errors.New("book: wager already settled")
	// ErrSettlementFailed reports a per-wager ledger failure. Non-fatal for
	// batch settlement; the wager can be retried through SettleOne.
	ErrSettlementFailed = errors.New("book: wager settlement failed")
)
