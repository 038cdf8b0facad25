package oracled

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NodeClient is a thin JSON-RPC client for the book node's oracle-facing
// methods. All mutating calls carry the shared bearer token.
type NodeClient struct {
	url    string
	token  string
	oracle string
	client *http.Client
}

func NewNodeClient(url, token, oracleAccount string) *NodeClient {
	return &NodeClient{
		url:    url,
		token:  token,
		oracle: oracleAccount,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcFailure     `json:"error"`
}

type rpcFailure struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func (e *rpcFailure) Error() string {
	return fmt.Sprintf("rpc error %d: %s (%v)", e.Code, e.Message, e.Data)
}

// Conflict reports whether the node rejected the call because the match has
// already moved past the requested transition. Those are safe to skip.
func (e *rpcFailure) Conflict() bool {
	return e.Code == -32009
}

// MatchState is the subset of book_getMatch the worker needs.
type MatchState struct {
	ExternalID string `json:"matchId"`
	Status     string `json:"status"`
	Result     string `json:"result"`
	StartTime  uint64 `json:"startTime"`
}

func (c *NodeClient) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []interface{}{params},
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	var envelope rpcEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

func (c *NodeClient) GetMatch(ctx context.Context, matchID string) (*MatchState, error) {
	var state MatchState
	if err := c.call(ctx, "book_getMatch", map[string]interface{}{"matchId": matchID}, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *NodeClient) RecordStartTime(ctx context.Context, matchID string, startTime uint64) error {
	return c.call(ctx, "book_recordStartTime", map[string]interface{}{
		"matchId":   matchID,
		"startTime": startTime,
		"caller":    c.oracle,
	}, nil)
}

func (c *NodeClient) RecordResult(ctx context.Context, matchID, outcome string) error {
	return c.call(ctx, "book_recordResult", map[string]interface{}{
		"matchId": matchID,
		"outcome": outcome,
		"caller":  c.oracle,
	}, nil)
}

func (c *NodeClient) SettleBatch(ctx context.Context, matchID string, maxCount int) (settled, failed, remaining uint64, closed bool, err error) {
	var result struct {
		Settled   uint64 `json:"settled"`
		Failed    uint64 `json:"failed"`
		Remaining uint64 `json:"remaining"`
		Closed    bool   `json:"closed"`
	}
	if err := c.call(ctx, "book_settleBatch", map[string]interface{}{
		"matchId":  matchID,
		"maxCount": maxCount,
	}, &result); err != nil {
		return 0, 0, 0, false, err
	}
	return result.Settled, result.Failed, result.Remaining, result.Closed, nil
}
