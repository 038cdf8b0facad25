package oracled

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type recordingApplier struct {
	applied []FeedResult
	err     error
}

func (r *recordingApplier) Apply(_ context.Context, result FeedResult) error {
	if r.err != nil {
		return r.err
	}
	r.applied = append(r.applied, result)
	return nil
}

func signedToken(t *testing.T, secret, issuer string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss": issuer,
		"exp": time.Now().Add(ttl).Unix(),
		"iat": time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func postResult(t *testing.T, handler http.Handler, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/webhook/results", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestWebhookRejectsMissingToken(t *testing.T) {
	applier := &recordingApplier{}
	server := NewWebhookServer(applier, "secret", "results-feed", testLogger())
	recorder := postResult(t, server.Router(), "", FeedResult{MatchID: "derby-2026"})
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	require.Empty(t, applier.applied)
}

func TestWebhookRejectsWrongIssuer(t *testing.T) {
	applier := &recordingApplier{}
	server := NewWebhookServer(applier, "secret", "results-feed", testLogger())
	token := signedToken(t, "secret", "someone-else", time.Minute)
	recorder := postResult(t, server.Router(), token, FeedResult{MatchID: "derby-2026"})
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	applier := &recordingApplier{}
	server := NewWebhookServer(applier, "secret", "results-feed", testLogger())
	token := signedToken(t, "other-secret", "results-feed", time.Minute)
	recorder := postResult(t, server.Router(), token, FeedResult{MatchID: "derby-2026"})
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestWebhookRejectsExpiredToken(t *testing.T) {
	applier := &recordingApplier{}
	server := NewWebhookServer(applier, "secret", "results-feed", testLogger())
	token := signedToken(t, "secret", "results-feed", -time.Minute)
	recorder := postResult(t, server.Router(), token, FeedResult{MatchID: "derby-2026"})
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestWebhookAppliesResult(t *testing.T) {
	applier := &recordingApplier{}
	server := NewWebhookServer(applier, "secret", "results-feed", testLogger())
	token := signedToken(t, "secret", "results-feed", time.Minute)
	payload := FeedResult{MatchID: "derby-2026", Market: MarketMatchOdds, HomeScore: 2, AwayScore: 1, Started: true, Finished: true}

	recorder := postResult(t, server.Router(), token, payload)
	require.Equal(t, http.StatusAccepted, recorder.Code)
	require.NotEmpty(t, recorder.Header().Get("X-Request-Id"))
	require.Len(t, applier.applied, 1)
	require.Equal(t, "derby-2026", applier.applied[0].MatchID)
}

func TestWebhookRequiresMatchID(t *testing.T) {
	applier := &recordingApplier{}
	server := NewWebhookServer(applier, "secret", "results-feed", testLogger())
	token := signedToken(t, "secret", "results-feed", time.Minute)
	recorder := postResult(t, server.Router(), token, FeedResult{})
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Empty(t, applier.applied)
}

func TestWebhookDisabledWithoutSecret(t *testing.T) {
	applier := &recordingApplier{}
	server := NewWebhookServer(applier, "", "results-feed", testLogger())
	recorder := postResult(t, server.Router(), "", FeedResult{MatchID: "derby-2026"})
	require.Equal(t, http.StatusForbidden, recorder.Code)
}
