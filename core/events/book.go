package events

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"oddsbook/core/types"
)

const (
	TypeMatchCreated     = "book.match.created"
	TypeMatchLocked      = "book.match.locked"
	TypeMatchResolved    = "book.match.resolved"
	TypeMatchClosed      = "book.match.closed"
	TypeBetPlaced        = "book.bet.placed"
	TypeWagerSettled     = "book.wager.settled"
	TypeSettlementFailed = "book.wager.settlement_failed"
)

type MatchCreated struct {
	MatchID   string
	Bookmaker [20]byte
	Odds      uint32
	CreatedAt uint64
}

func (MatchCreated) EventType() string { return TypeMatchCreated }

func (e MatchCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeMatchCreated,
		Attributes: map[string]string{
			"matchId":   e.MatchID,
			"bookmaker": addrString(e.Bookmaker),
			"odds":      strconv.FormatUint(uint64(e.Odds), 10),
			"createdAt": strconv.FormatUint(e.CreatedAt, 10),
		},
	}
}

type MatchLocked struct {
	MatchID   string
	StartTime uint64
}

func (MatchLocked) EventType() string { return TypeMatchLocked }

func (e MatchLocked) Event() *types.Event {
	return &types.Event{
		Type: TypeMatchLocked,
		Attributes: map[string]string{
			"matchId":   e.MatchID,
			"startTime": strconv.FormatUint(e.StartTime, 10),
		},
	}
}

type MatchResolved struct {
	MatchID string
	Result  string
	Wagers  uint64
}

func (MatchResolved) EventType() string { return TypeMatchResolved }

func (e MatchResolved) Event() *types.Event {
	return &types.Event{
		Type: TypeMatchResolved,
		Attributes: map[string]string{
			"matchId": e.MatchID,
			"result":  e.Result,
			"wagers":  strconv.FormatUint(e.Wagers, 10),
		},
	}
}

type MatchClosed struct {
	MatchID string
	Settled uint64
	Failed  uint64
}

func (MatchClosed) EventType() string { return TypeMatchClosed }

func (e MatchClosed) Event() *types.Event {
	return &types.Event{
		Type: TypeMatchClosed,
		Attributes: map[string]string{
			"matchId": e.MatchID,
			"settled": strconv.FormatUint(e.Settled, 10),
			"failed":  strconv.FormatUint(e.Failed, 10),
		},
	}
}

type BetPlaced struct {
	WagerID   [32]byte
	MatchID   string
	Bettor    [20]byte
	Predicted string
	Stake     *big.Int
	Winnable  *big.Int
}

func (BetPlaced) EventType() string { return TypeBetPlaced }

func (e BetPlaced) Event() *types.Event {
	return &types.Event{
		Type: TypeBetPlaced,
		Attributes: map[string]string{
			"wagerId":   hex.EncodeToString(e.WagerID[:]),
			"matchId":   e.MatchID,
			"bettor":    addrString(e.Bettor),
			"predicted": e.Predicted,
			"stake":     formatAmount(e.Stake),
			"winnable":  formatAmount(e.Winnable),
		},
	}
}

type WagerSettled struct {
	WagerID [32]byte
	MatchID string
	Bettor  [20]byte
	Winner  string
	Payout  *big.Int
}

func (WagerSettled) EventType() string { return TypeWagerSettled }

func (e WagerSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeWagerSettled,
		Attributes: map[string]string{
			"wagerId": hex.EncodeToString(e.WagerID[:]),
			"matchId": e.MatchID,
			"bettor":  addrString(e.Bettor),
			"winner":  e.Winner,
			"payout":  formatAmount(e.Payout),
		},
	}
}

type SettlementFailed struct {
	WagerID [32]byte
	MatchID string
	Reason  string
}

func (SettlementFailed) EventType() string { return TypeSettlementFailed }

func (e SettlementFailed) Event() *types.Event {
	return &types.Event{
		Type: TypeSettlementFailed,
		Attributes: map[string]string{
			"wagerId": hex.EncodeToString(e.WagerID[:]),
			"matchId": e.MatchID,
			"reason":  e.Reason,
		},
	}
}

func addrString(addr [20]byte) string {
	return common.BytesToAddress(addr[:]).Hex()
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
