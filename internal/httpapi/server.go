// Package httpapi exposes the executor over HTTP: a pass trigger, read-only
// bot history, and health, status and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"xrpl-amm-bot/internal/domain"
	"xrpl-amm-bot/internal/executor"
	"xrpl-amm-bot/internal/observability"
	"xrpl-amm-bot/internal/storage"
)

// Attempt history limits for /bots/{id}/attempts.
const (
	defaultAttemptLimit = 50
	maxAttemptLimit     = 500
)

// CORS headers for the pass trigger.
const (
	allowOrigin  = "*"
	allowHeaders = "authorization, x-client-info, apikey, content-type"
	allowMethods = "POST, OPTIONS"
)

// PassRunner runs executor passes.
type PassRunner interface {
	RunPass(ctx context.Context) (*domain.PassSummary, error)
	LastPass() *domain.PassSummary
}

// Compile-time interface check.
var _ PassRunner = (*executor.Runner)(nil)

// Options for creating Server.
type Options struct {
	Runner PassRunner

	// Read-only history. Routes whose store is nil answer 404.
	Bots     storage.BotStore
	Trades   storage.TradeRecordStore
	Attempts storage.AttemptLogStore

	// BaseContext scopes triggered passes. A pass outlives the request that
	// started it but stops with BaseContext. Default context.Background().
	BaseContext context.Context
	Now         func() time.Time
	Logger      *log.Logger
}

// Server serves the HTTP API.
type Server struct {
	runner   PassRunner
	bots     storage.BotStore
	trades   storage.TradeRecordStore
	attempts storage.AttemptLogStore
	baseCtx  context.Context
	now      func() time.Time
	logger   *log.Logger
	started  time.Time

	mu         sync.Mutex
	inflight   int // triggered RunPass calls not yet returned
	httpPasses int
}

// New creates a new Server.
func New(opts Options) *Server {
	s := &Server{
		runner:   opts.Runner,
		bots:     opts.Bots,
		trades:   opts.Trades,
		attempts: opts.Attempts,
		baseCtx:  opts.BaseContext,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if s.baseCtx == nil {
		s.baseCtx = context.Background()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	s.started = s.now()
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/run", s.handleRun)

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", s.handleStatus)

	mux.HandleFunc("GET /bots/{id}", s.handleBot)
	mux.HandleFunc("GET /bots/{id}/trades", s.handleTrades)
	mux.HandleFunc("GET /bots/{id}/attempts", s.handleAttempts)

	return mux
}

// handleRun executes one pass. OPTIONS answers the CORS preflight.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
	w.Header().Set("Access-Control-Allow-Headers", allowHeaders)

	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Methods", allowMethods)
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", allowMethods)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s.mu.Lock()
	s.httpPasses++
	s.inflight++
	s.mu.Unlock()

	summary, err := s.runner.RunPass(s.baseCtx)

	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, executor.ErrPassInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Printf("triggered pass failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status         string              `json:"status"`
	Uptime         string              `json:"uptime"`
	Started        time.Time           `json:"started"`
	TriggerRunning bool                `json:"trigger_running"`
	TriggeredRuns  int                 `json:"triggered_runs"`
	LastPass       *domain.PassSummary `json:"last_pass,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:         "running",
		Uptime:         s.now().Sub(s.started).String(),
		Started:        s.started,
		TriggerRunning: s.inflight > 0,
		TriggeredRuns:  s.httpPasses,
	}
	s.mu.Unlock()
	resp.LastPass = s.runner.LastPass()

	writeJSON(w, http.StatusOK, resp)
}

// BotResponse is the JSON view of a bot. The wallet seed is never included.
type BotResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Status          string     `json:"status"`
	Strategy        string     `json:"strategy"`
	IntervalMinutes int        `json:"interval_minutes"`
	MinTradeXRP     float64    `json:"min_trade_xrp"`
	MaxTradeXRP     float64    `json:"max_trade_xrp"`
	SlippagePct     float64    `json:"slippage_pct"`
	TradeModeBias   int        `json:"trade_mode_bias"`
	LastTradeTime   *time.Time `json:"last_trade_time,omitempty"`
	NextTradeTime   *time.Time `json:"next_trade_time,omitempty"`

	TotalTrades       int64   `json:"total_trades"`
	SuccessfulTrades  int64   `json:"successful_trades"`
	FailedTrades      int64   `json:"failed_trades"`
	TotalXRPSpent     float64 `json:"total_xrp_spent"`
	TotalXRPReceived  float64 `json:"total_xrp_received"`
	TotalTokensBought float64 `json:"total_tokens_bought"`
	TotalTokensSold   float64 `json:"total_tokens_sold"`
	NetProfitXRP      float64 `json:"net_profit_xrp"`

	LastError   *string    `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`

	TokenCurrency string `json:"token_currency"`
	TokenIssuer   string `json:"token_issuer"`
	WalletAddress string `json:"wallet_address"`
}

func newBotResponse(b *domain.BotConfig) BotResponse {
	return BotResponse{
		ID:                b.ID,
		Name:              b.Name,
		Status:            string(b.Status),
		Strategy:          string(b.Strategy),
		IntervalMinutes:   b.IntervalMinutes,
		MinTradeXRP:       b.MinTradeXRP,
		MaxTradeXRP:       b.MaxTradeXRP,
		SlippagePct:       b.SlippagePct,
		TradeModeBias:     b.TradeModeBias,
		LastTradeTime:     b.LastTradeTime,
		NextTradeTime:     b.NextTradeTime,
		TotalTrades:       b.TotalTrades,
		SuccessfulTrades:  b.SuccessfulTrades,
		FailedTrades:      b.FailedTrades,
		TotalXRPSpent:     b.TotalXRPSpent,
		TotalXRPReceived:  b.TotalXRPReceived,
		TotalTokensBought: b.TotalTokensBought,
		TotalTokensSold:   b.TotalTokensSold,
		NetProfitXRP:      b.NetProfitXRP,
		LastError:         b.LastError,
		LastErrorAt:       b.LastErrorAt,
		TokenCurrency:     b.Token.Currency,
		TokenIssuer:       b.Token.Issuer,
		WalletAddress:     b.Wallet.Address,
	}
}

// TradeResponse is the JSON view of a trade record.
type TradeResponse struct {
	ID          string    `json:"id"`
	BotID       string    `json:"bot_id"`
	Direction   string    `json:"direction"`
	TokenAmount float64   `json:"token_amount"`
	XRPAmount   float64   `json:"xrp_amount"`
	Price       float64   `json:"price"`
	TxHash      string    `json:"tx_hash"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) handleBot(w http.ResponseWriter, r *http.Request) {
	if s.bots == nil {
		writeError(w, http.StatusNotFound, "bot store not configured")
		return
	}
	bot, err := s.bots.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBotResponse(bot))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		writeError(w, http.StatusNotFound, "trade store not configured")
		return
	}
	trades, err := s.trades.GetByBotID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	resp := make([]TradeResponse, 0, len(trades))
	for _, t := range trades {
		resp = append(resp, TradeResponse{
			ID:          t.ID,
			BotID:       t.BotID,
			Direction:   string(t.Direction),
			TokenAmount: t.TokenAmount,
			XRPAmount:   t.XRPAmount,
			Price:       t.Price,
			TxHash:      t.TxHash,
			Status:      t.Status,
			CreatedAt:   t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAttempts(w http.ResponseWriter, r *http.Request) {
	if s.attempts == nil {
		writeError(w, http.StatusNotFound, "attempt log not configured")
		return
	}

	limit := defaultAttemptLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAttemptLimit)
	}

	attempts, err := s.attempts.GetByBotID(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if attempts == nil {
		attempts = []*domain.AttemptOutcome{}
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Printf("store read failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
