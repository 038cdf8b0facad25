package oracled

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	matches      map[string]*MatchState
	startCalls   []string
	resultCalls  map[string]string
	settleCalls  int
	settleRounds []uint64
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		matches:     make(map[string]*MatchState),
		resultCalls: make(map[string]string),
	}
}

func (f *fakeNode) GetMatch(_ context.Context, matchID string) (*MatchState, error) {
	match, ok := f.matches[matchID]
	if !ok {
		return nil, &rpcFailure{Code: -32004, Message: "not_found"}
	}
	copied := *match
	return &copied, nil
}

func (f *fakeNode) RecordStartTime(_ context.Context, matchID string, startTime uint64) error {
	match := f.matches[matchID]
	if match.Status != "open" {
		return &rpcFailure{Code: -32009, Message: "conflict"}
	}
	match.Status = "locked"
	match.StartTime = startTime
	f.startCalls = append(f.startCalls, matchID)
	return nil
}

func (f *fakeNode) RecordResult(_ context.Context, matchID, outcome string) error {
	match := f.matches[matchID]
	if match.Status != "locked" {
		return &rpcFailure{Code: -32009, Message: "conflict"}
	}
	match.Status = "resolved"
	match.Result = outcome
	f.resultCalls[matchID] = outcome
	return nil
}

func (f *fakeNode) SettleBatch(_ context.Context, matchID string, _ int) (uint64, uint64, uint64, bool, error) {
	match := f.matches[matchID]
	if match.Status != "resolved" {
		return 0, 0, 0, false, &rpcFailure{Code: -32009, Message: "conflict"}
	}
	f.settleCalls++
	if len(f.settleRounds) > 0 {
		remaining := f.settleRounds[0]
		f.settleRounds = f.settleRounds[1:]
		if remaining == 0 {
			match.Status = "closed"
			return 1, 0, 0, true, nil
		}
		return 1, 0, remaining, false, nil
	}
	match.Status = "closed"
	return 1, 0, 0, true, nil
}

type staticFeed struct {
	results []FeedResult
}

func (s staticFeed) Fetch(context.Context) ([]FeedResult, error) {
	return s.results, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOutcomeDerivation(t *testing.T) {
	cases := []struct {
		name   string
		result FeedResult
		want   string
	}{
		{"home win", FeedResult{Market: MarketMatchOdds, HomeScore: 2, AwayScore: 1}, "home"},
		{"away win", FeedResult{Market: MarketMatchOdds, HomeScore: 0, AwayScore: 3}, "away"},
		{"draw", FeedResult{Market: MarketMatchOdds, HomeScore: 1, AwayScore: 1}, "draw"},
		{"over", FeedResult{Market: MarketTotals, HomeScore: 2, AwayScore: 2}, "over"},
		{"under at threshold", FeedResult{Market: MarketTotals, HomeScore: 2, AwayScore: 1}, "under"},
		{"under", FeedResult{Market: MarketTotals, HomeScore: 0, AwayScore: 0}, "under"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.result.Outcome(3))
		})
	}
}

func TestWorkerAppliesFullTransition(t *testing.T) {
	node := newFakeNode()
	node.matches["derby-2026"] = &MatchState{ExternalID: "derby-2026", Status: "open"}
	worker := NewWorker(nil, node, testLogger(), time.Second, 3)

	result := FeedResult{
		MatchID:   "derby-2026",
		Market:    MarketMatchOdds,
		HomeScore: 2,
		AwayScore: 0,
		StartTime: 1700000000,
		Started:   true,
		Finished:  true,
	}
	require.NoError(t, worker.Apply(context.Background(), result))

	require.Equal(t, []string{"derby-2026"}, node.startCalls)
	require.Equal(t, "home", node.resultCalls["derby-2026"])
	require.Equal(t, "closed", node.matches["derby-2026"].Status)
	require.Equal(t, 1, node.settleCalls)
}

func TestWorkerSettlesInMultipleBatches(t *testing.T) {
	node := newFakeNode()
	node.matches["derby-2026"] = &MatchState{ExternalID: "derby-2026", Status: "resolved", Result: "home"}
	node.settleRounds = []uint64{2, 1, 0}
	worker := NewWorker(nil, node, testLogger(), time.Second, 3)

	result := FeedResult{MatchID: "derby-2026", Started: true, Finished: true, HomeScore: 1}
	require.NoError(t, worker.Apply(context.Background(), result))
	require.Equal(t, 3, node.settleCalls)
	require.Equal(t, "closed", node.matches["derby-2026"].Status)
}

func TestWorkerSkipsAlreadyLockedMatch(t *testing.T) {
	node := newFakeNode()
	node.matches["derby-2026"] = &MatchState{ExternalID: "derby-2026", Status: "locked"}
	worker := NewWorker(nil, node, testLogger(), time.Second, 3)

	result := FeedResult{MatchID: "derby-2026", Started: true}
	require.NoError(t, worker.Apply(context.Background(), result))
	require.Empty(t, node.startCalls)
	require.Empty(t, node.resultCalls)
}

func TestWorkerPollContinuesPastFailures(t *testing.T) {
	node := newFakeNode()
	node.matches["second"] = &MatchState{ExternalID: "second", Status: "open"}
	worker := NewWorker(staticFeed{results: []FeedResult{
		{MatchID: "missing", Started: true},
		{MatchID: "second", Started: true, StartTime: 1700000000},
	}}, node, testLogger(), time.Second, 3)

	worker.poll(context.Background())
	require.Equal(t, []string{"second"}, node.startCalls)
}
