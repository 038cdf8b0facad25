package oracled

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const settleBatchSize = 50

type resultsFeed interface {
	Fetch(ctx context.Context) ([]FeedResult, error)
}

type bookNode interface {
	GetMatch(ctx context.Context, matchID string) (*MatchState, error)
	RecordStartTime(ctx context.Context, matchID string, startTime uint64) error
	RecordResult(ctx context.Context, matchID, outcome string) error
	SettleBatch(ctx context.Context, matchID string, maxCount int) (settled, failed, remaining uint64, closed bool, err error)
}

// Worker polls the results feed and pushes lock and result attestations into
// the node, then drives settlement for resolved matches in bounded batches.
type Worker struct {
	feed            resultsFeed
	node            bookNode
	log             *slog.Logger
	pollInterval    time.Duration
	totalsThreshold uint32
}

func NewWorker(feed resultsFeed, node bookNode, log *slog.Logger, pollInterval time.Duration, totalsThreshold uint32) *Worker {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	if totalsThreshold == 0 {
		totalsThreshold = 3
	}
	return &Worker{
		feed:            feed,
		node:            node,
		log:             log,
		pollInterval:    pollInterval,
		totalsThreshold: totalsThreshold,
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	results, err := w.feed.Fetch(ctx)
	if err != nil {
		w.log.Error("fetch results feed", "err", err)
		return
	}
	for _, result := range results {
		if err := w.Apply(ctx, result); err != nil {
			w.log.Error("apply feed result", "match", result.MatchID, "err", err)
		}
	}
}

// Apply pushes a single feed row into the node, advancing the match as far
// as the row allows. Transitions the node reports as already performed are
// skipped silently so re-polling the same row is harmless.
func (w *Worker) Apply(ctx context.Context, result FeedResult) error {
	match, err := w.node.GetMatch(ctx, result.MatchID)
	if err != nil {
		return err
	}
	if match.Status == "open" && result.Started {
		startTime := result.StartTime
		if startTime == 0 {
			startTime = uint64(time.Now().Unix())
		}
		if err := w.node.RecordStartTime(ctx, result.MatchID, startTime); err != nil && !isConflict(err) {
			return err
		}
		match.Status = "locked"
		w.log.Info("match locked", "match", result.MatchID, "startTime", startTime)
	}
	if match.Status == "locked" && result.Finished {
		outcome := result.Outcome(w.totalsThreshold)
		if err := w.node.RecordResult(ctx, result.MatchID, outcome); err != nil && !isConflict(err) {
			return err
		}
		match.Status = "resolved"
		w.log.Info("match resolved", "match", result.MatchID, "outcome", outcome)
	}
	if match.Status == "resolved" {
		return w.settle(ctx, result.MatchID)
	}
	return nil
}

func (w *Worker) settle(ctx context.Context, matchID string) error {
	for {
		settled, failed, remaining, closed, err := w.node.SettleBatch(ctx, matchID, settleBatchSize)
		if err != nil {
			if isConflict(err) {
				return nil
			}
			return err
		}
		w.log.Info("settlement batch", "match", matchID,
			"settled", settled, "failed", failed, "remaining", remaining)
		if closed || remaining == 0 {
			return nil
		}
	}
}

func isConflict(err error) bool {
	var failure *rpcFailure
	return errors.As(err, &failure) && failure.Conflict()
}
