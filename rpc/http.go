package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oddsbook/core"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	rateLimitWindow = time.Minute
	maxReqPerWindow = 120
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
	codeNotFound       = -32004
	codeConflict       = -32009
)

type rateLimiter struct {
	count       int
	windowStart time.Time
}

// Server exposes the book engine's operations over JSON-RPC, plus the
// websocket event feed and the Prometheus metrics endpoint.
type Server struct {
	node *core.Node

	mu           sync.Mutex
	rateLimiters map[string]*rateLimiter
	authToken    string
	nowFn        func() time.Time
}

// NewServer constructs a server for the provided node. A bearer token for
// mutating methods is read from ODDSBOOK_RPC_TOKEN; with no token configured
// mutating calls are rejected unless the server was explicitly built for
// open access via SetAuthToken("").
func NewServer(node *core.Node) *Server {
	token := strings.TrimSpace(os.Getenv("ODDSBOOK_RPC_TOKEN"))
	return &Server{
		node:         node,
		rateLimiters: make(map[string]*rateLimiter),
		authToken:    token,
		nowFn:        time.Now,
	}
}

// SetAuthToken overrides the bearer token required for mutating methods.
func (s *Server) SetAuthToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authToken = strings.TrimSpace(token)
}

// Handler returns the HTTP handler serving RPC, websocket and metrics routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.HandleFunc("/ws/book", s.handleEventsWS)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start serves the handler on addr and blocks until the listener fails.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError carries a structured failure.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "invalid_request", "POST required")
		return
	}
	clientIP := s.clientIP(r)
	if !s.allow(clientIP) {
		writeError(w, http.StatusTooManyRequests, nil, codeRateLimited, "rate_limited", "too many requests")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "parse_error", err.Error())
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "parse_error", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "invalid_request", "unsupported jsonrpc version")
		return
	}

	switch req.Method {
	case "book_createMatch":
		s.handleCreateMatch(w, r, &req)
	case "book_placeBet":
		s.handlePlaceBet(w, r, &req)
	case "book_recordStartTime":
		s.handleRecordStartTime(w, r, &req)
	case "book_recordResult":
		s.handleRecordResult(w, r, &req)
	case "book_settleBatch":
		s.handleSettleBatch(w, r, &req)
	case "book_settleOne":
		s.handleSettleOne(w, r, &req)
	case "book_getMatch":
		s.handleGetMatch(w, req.ID, &req)
	case "book_getWager":
		s.handleGetWager(w, req.ID, &req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method_not_found", req.Method)
	}
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	s.mu.Lock()
	token := s.authToken
	s.mu.Unlock()
	if token == "" {
		return nil
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "bearer token required"}
	}
	provided := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "invalid token"}
	}
	return nil
}

func (s *Server) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) allow(clientIP string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.nowFn()
	limiter, ok := s.rateLimiters[clientIP]
	if !ok || now.Sub(limiter.windowStart) > rateLimitWindow {
		s.rateLimiters[clientIP] = &rateLimiter{count: 1, windowStart: now}
		return true
	}
	limiter.count++
	return limiter.count <= maxReqPerWindow
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}
