package book

import (
	"time"

	"oddsbook/core/events"
)

// Registry owns the match lifecycle: creation, start-time locking and result
// recording. Start times and results are advisory truth from the trusted
// oracle role; the registry enforces who may call and where in the lifecycle
// the match is, never whether the reported data is correct.
type Registry struct {
	state     bookState
	authority OracleAuthority
	emitter   events.Emitter
	nowFn     func() uint64
}

// NewRegistry constructs a match registry bound to the provided state
// backend. The oracle authority defaults to rejecting every caller until
// SetAuthority installs one.
func NewRegistry(state bookState) *Registry {
	return &Registry{
		state:     state,
		authority: AuthorityFunc(nil),
		emitter:   events.NoopEmitter{},
		nowFn:     func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetAuthority installs the capability check for oracle callers.
func (r *Registry) SetAuthority(authority OracleAuthority) {
	if r == nil {
		return
	}
	if authority == nil {
		authority = AuthorityFunc(nil)
	}
	r.authority = authority
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if r == nil {
		return
	}
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (r *Registry) SetNowFunc(now func() uint64) {
	if r == nil {
		return
	}
	if now == nil {
		r.nowFn = func() uint64 { return uint64(time.Now().Unix()) }
		return
	}
	r.nowFn = now
}

// CreateMatch registers a new match in the open state. External identifiers
// are unique across all bookmakers: the first writer wins and later attempts
// fail with ErrDuplicateMatch.
func (r *Registry) CreateMatch(externalID string, bookmaker [20]byte, odds uint32) (*Match, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	externalID = normalizeExternalID(externalID)
	if externalID == "" {
		return nil, ErrInvalidMatchID
	}
	if odds <= 1 {
		return nil, ErrInvalidOdds
	}
	ok, err := r.state.KVGet(matchKey(externalID), nil)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, ErrDuplicateMatch
	}
	match := &Match{
		ExternalID: externalID,
		Bookmaker:  bookmaker,
		Odds:       odds,
		Status:     MatchOpen,
		CreatedAt:  r.nowFn(),
	}
	if err := storeMatch(r.state, match); err != nil {
		return nil, err
	}
	r.emitter.Emit(events.MatchCreated{
		MatchID:   match.ExternalID,
		Bookmaker: match.Bookmaker,
		Odds:      match.Odds,
		CreatedAt: match.CreatedAt,
	})
	return match.Clone(), nil
}

// RecordStartTime locks the match against further wagers. This is the single
// gate preventing new wagers after the real-world event has started.
func (r *Registry) RecordStartTime(externalID string, startTime uint64, caller [20]byte) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	match, err := loadMatch(r.state, normalizeExternalID(externalID))
	if err != nil {
		return err
	}
	if !r.authority.IsOracle(caller) {
		return ErrNotAuthorized
	}
	if match.Status != MatchOpen {
		return ErrAlreadyLocked
	}
	match.StartTime = startTime
	match.Status = MatchLocked
	if err := storeMatch(r.state, match); err != nil {
		return err
	}
	r.emitter.Emit(events.MatchLocked{MatchID: match.ExternalID, StartTime: startTime})
	return nil
}

// RecordResult records the final outcome and arms the settlement cursor at
// offset zero with every wager on the match still outstanding.
func (r *Registry) RecordResult(externalID, outcome string, caller [20]byte) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	match, err := loadMatch(r.state, normalizeExternalID(externalID))
	if err != nil {
		return err
	}
	if !r.authority.IsOracle(caller) {
		return ErrNotAuthorized
	}
	switch match.Status {
	case MatchOpen:
		return ErrNotLocked
	case MatchResolved, MatchClosed:
		return ErrAlreadyResolved
	}
	normalized := NormalizeOutcome(outcome)
	if normalized == "" {
		return ErrInvalidOutcome
	}
	match.Result = normalized
	match.Status = MatchResolved
	if err := storeMatch(r.state, match); err != nil {
		return err
	}
	cursor := &settlementCursor{Unsettled: match.WagerCount}
	if err := storeCursor(r.state, match.ExternalID, cursor); err != nil {
		return err
	}
	r.emitter.Emit(events.MatchResolved{
		MatchID: match.ExternalID,
		Result:  match.Result,
		Wagers:  match.WagerCount,
	})
	return nil
}

// GetMatch returns the stored match for externalID.
func (r *Registry) GetMatch(externalID string) (*Match, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	return loadMatch(r.state, normalizeExternalID(externalID))
}
