package oracled

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type feedApplier interface {
	Apply(ctx context.Context, result FeedResult) error
}

// WebhookServer accepts signed result pushes from the feed provider, for
// fixtures that should not wait for the next poll cycle.
type WebhookServer struct {
	applier feedApplier
	secret  []byte
	issuer  string
	log     *slog.Logger
}

func NewWebhookServer(applier feedApplier, secret, issuer string, log *slog.Logger) *WebhookServer {
	return &WebhookServer{
		applier: applier,
		secret:  []byte(secret),
		issuer:  issuer,
		log:     log,
	}
}

// Router builds the webhook's HTTP surface.
func (s *WebhookServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/webhook", func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/results", s.handleResults)
	})
	return r
}

func (s *WebhookServer) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.secret) == 0 {
			http.Error(w, "webhook disabled", http.StatusForbidden)
			return
		}
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			http.Error(w, "bearer token required", http.StatusUnauthorized)
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))
		if err := s.verifyToken(raw); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *WebhookServer) verifyToken(raw string) error {
	claims := jwt.MapClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("parse token: %w", err)
	}
	return nil
}

func (s *WebhookServer) handleResults(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	var result FeedResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(result.MatchID) == "" {
		http.Error(w, "matchId required", http.StatusBadRequest)
		return
	}
	if err := s.applier.Apply(r.Context(), result); err != nil {
		s.log.Error("apply webhook result", "request", requestID, "match", result.MatchID, "err", err)
		http.Error(w, "apply failed", http.StatusBadGateway)
		return
	}
	s.log.Info("webhook result applied", "request", requestID, "match", result.MatchID)
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"requestId": requestID, "status": "accepted"})
}
