package oracled

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Market names the settlement rule a feed entry is scored under.
const (
	MarketMatchOdds = "1x2"
	MarketTotals    = "totals"
)

// FeedResult is one fixture row from the upstream results feed.
type FeedResult struct {
	MatchID   string `json:"matchId"`
	Market    string `json:"market"`
	HomeScore uint32 `json:"homeScore"`
	AwayScore uint32 `json:"awayScore"`
	StartTime uint64 `json:"startTime"`
	Started   bool   `json:"started"`
	Finished  bool   `json:"finished"`
}

// Outcome derives the settled outcome for the entry's market. Match-odds
// fixtures settle on the winner, totals fixtures on combined goals against
// the threshold.
func (r FeedResult) Outcome(totalsThreshold uint32) string {
	if r.Market == MarketTotals {
		if r.HomeScore+r.AwayScore > totalsThreshold {
			return "over"
		}
		return "under"
	}
	switch {
	case r.HomeScore > r.AwayScore:
		return "home"
	case r.HomeScore < r.AwayScore:
		return "away"
	default:
		return "draw"
	}
}

// FeedClient pulls fixture results over HTTP, throttled so a tight poll loop
// cannot hammer the upstream provider.
type FeedClient struct {
	url     string
	client  *http.Client
	limiter *rate.Limiter
}

func NewFeedClient(url string, ratePerSec float64) *FeedClient {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	return &FeedClient{
		url:     url,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

// Fetch returns the feed's current fixture rows.
func (c *FeedClient) Fetch(ctx context.Context) ([]FeedResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("results feed returned status %d", resp.StatusCode)
	}
	var results []FeedResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return results, nil
}
