package rpc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"oddsbook/native/book"
)

type createMatchParams struct {
	ExternalID string `json:"externalId"`
	Bookmaker  string `json:"bookmaker"`
	Odds       uint32 `json:"odds"`
}

type placeBetParams struct {
	MatchID   string `json:"matchId"`
	Bettor    string `json:"bettor"`
	Predicted string `json:"predicted"`
	Stake     string `json:"stake"`
}

type recordStartTimeParams struct {
	MatchID   string `json:"matchId"`
	StartTime uint64 `json:"startTime"`
	Caller    string `json:"caller"`
}

type recordResultParams struct {
	MatchID string `json:"matchId"`
	Outcome string `json:"outcome"`
	Caller  string `json:"caller"`
}

type settleBatchParams struct {
	MatchID  string `json:"matchId"`
	MaxCount int    `json:"maxCount"`
}

type matchIDParams struct {
	MatchID string `json:"matchId"`
}

type wagerIDParams struct {
	WagerID string `json:"wagerId"`
}

type matchJSON struct {
	ExternalID string `json:"matchId"`
	Bookmaker  string `json:"bookmaker"`
	Odds       uint32 `json:"odds"`
	StartTime  uint64 `json:"startTime,omitempty"`
	Result     string `json:"result,omitempty"`
	Status     string `json:"status"`
	CreatedAt  uint64 `json:"createdAt"`
	WagerCount uint64 `json:"wagerCount"`
}

type wagerJSON struct {
	ID         string `json:"wagerId"`
	MatchID    string `json:"matchId"`
	Bettor     string `json:"bettor"`
	Predicted  string `json:"predicted"`
	Stake      string `json:"stake"`
	Winnable   string `json:"winnable"`
	Status     string `json:"status"`
	CreatedAt  uint64 `json:"createdAt"`
	SettledAt  uint64 `json:"settledAt,omitempty"`
	FailReason string `json:"failReason,omitempty"`
}

type settleBatchResult struct {
	Settled   uint64 `json:"settled"`
	Failed    uint64 `json:"failed"`
	Remaining uint64 `json:"remaining"`
	Closed    bool   `json:"closed"`
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params createMatchParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	bookmaker, err := parseAddress(params.Bookmaker)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	match, err := s.node.CreateMatch(params.ExternalID, bookmaker, params.Odds)
	if err != nil {
		writeBookError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newMatchJSON(match))
}

func (s *Server) handlePlaceBet(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params placeBetParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	bettor, err := parseAddress(params.Bettor)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	stake, err := parsePositiveBigInt(params.Stake)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	wager, err := s.node.PlaceBet(params.MatchID, bettor, params.Predicted, stake)
	if err != nil {
		writeBookError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newWagerJSON(wager))
}

func (s *Server) handleRecordStartTime(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params recordStartTimeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.RecordStartTime(params.MatchID, params.StartTime, caller); err != nil {
		writeBookError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"locked": true})
}

func (s *Server) handleRecordResult(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params recordResultParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	caller, err := parseAddress(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.RecordResult(params.MatchID, params.Outcome, caller); err != nil {
		writeBookError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"resolved": true})
}

func (s *Server) handleSettleBatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params settleBatchParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if params.MaxCount < 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", "maxCount must be positive")
		return
	}
	result, err := s.node.SettleBatch(params.MatchID, params.MaxCount)
	if err != nil {
		writeBookError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, settleBatchResult{
		Settled:   result.Settled,
		Failed:    result.Failed,
		Remaining: result.Remaining,
		Closed:    result.Closed,
	})
}

func (s *Server) handleSettleOne(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params wagerIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := parseWagerID(params.WagerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.node.SettleOne(id); err != nil {
		writeBookError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"settled": true})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, id interface{}, req *RPCRequest) {
	var params matchIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	match, err := s.node.GetMatch(params.MatchID)
	if err != nil {
		writeBookError(w, id, err)
		return
	}
	writeResult(w, id, newMatchJSON(match))
}

func (s *Server) handleGetWager(w http.ResponseWriter, id interface{}, req *RPCRequest) {
	var params wagerIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	wagerID, err := parseWagerID(params.WagerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, "invalid_params", err.Error())
		return
	}
	wager, err := s.node.GetWager(wagerID)
	if err != nil {
		writeBookError(w, id, err)
		return
	}
	writeResult(w, id, newWagerJSON(wager))
}

func newMatchJSON(m *book.Match) matchJSON {
	return matchJSON{
		ExternalID: m.ExternalID,
		Bookmaker:  common.BytesToAddress(m.Bookmaker[:]).Hex(),
		Odds:       m.Odds,
		StartTime:  m.StartTime,
		Result:     m.Result,
		Status:     m.Status.String(),
		CreatedAt:  m.CreatedAt,
		WagerCount: m.WagerCount,
	}
}

func newWagerJSON(w *book.Wager) wagerJSON {
	return wagerJSON{
		ID:         hex.EncodeToString(w.ID[:]),
		MatchID:    w.MatchID,
		Bettor:     common.BytesToAddress(w.Bettor[:]).Hex(),
		Predicted:  w.Predicted,
		Stake:      w.Stake.String(),
		Winnable:   w.Winnable.String(),
		Status:     w.Status.String(),
		CreatedAt:  w.CreatedAt,
		SettledAt:  w.SettledAt,
		FailReason: w.FailReason,
	}
}

func parseAddress(raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, fmt.Errorf("invalid account address")
	}
	return common.HexToAddress(trimmed), nil
}

func parseWagerID(raw string) ([32]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return [32]byte{}, fmt.Errorf("invalid wager id: %w", err)
	}
	if len(decoded) != 32 {
		return [32]byte{}, fmt.Errorf("invalid wager id length %d", len(decoded))
	}
	var id [32]byte
	copy(id[:], decoded)
	return id, nil
}

func parsePositiveBigInt(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if value.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return value, nil
}

func writeBookError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, book.ErrMatchNotFound), errors.Is(err, book.ErrWagerNotFound):
		writeError(w, http.StatusNotFound, id, codeNotFound, "not_found", err.Error())
	case errors.Is(err, book.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, id, codeUnauthorized, "forbidden", err.Error())
	case errors.Is(err, book.ErrInvalidOdds),
		errors.Is(err, book.ErrInvalidStake),
		errors.Is(err, book.ErrInvalidOutcome),
		errors.Is(err, book.ErrInvalidMatchID):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, "invalid_params", err.Error())
	case errors.Is(err, book.ErrDuplicateMatch),
		errors.Is(err, book.ErrSelfBetForbidden),
		errors.Is(err, book.ErrMatchNotOpen),
		errors.Is(err, book.ErrNotLocked),
		errors.Is(err, book.ErrAlreadyLocked),
		errors.Is(err, book.ErrNotResolved),
		errors.Is(err, book.ErrAlreadyResolved),
		errors.Is(err, book.ErrAlreadySettled),
		errors.Is(err, book.ErrInsufficientBookmakerFunds):
		writeError(w, http.StatusConflict, id, codeConflict, "conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, "server_error", err.Error())
	}
}
