package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"xrpl-amm-bot/internal/domain"
	"xrpl-amm-bot/internal/executor"
	"xrpl-amm-bot/internal/storage/memory"
)

type fakeRunner struct {
	summary *domain.PassSummary
	err     error
	calls   int
	ctxErr  error
}

func (f *fakeRunner) RunPass(ctx context.Context) (*domain.PassSummary, error) {
	f.calls++
	f.ctxErr = ctx.Err()
	return f.summary, f.err
}

func (f *fakeRunner) LastPass() *domain.PassSummary {
	return f.summary
}

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRun_Success(t *testing.T) {
	runner := &fakeRunner{summary: &domain.PassSummary{
		RunID:     "run-1",
		Attempted: 2,
		Succeeded: 1,
		Failed:    1,
		Outcomes: []domain.AttemptOutcome{
			{BotID: "a", Success: true, Direction: domain.DirectionBuy, TxHash: "ABC"},
			{BotID: "b", ErrorKind: "InsufficientToken", Error: "insufficient token balance", Paused: true},
		},
	}}
	s := New(Options{Runner: runner})

	rec := do(t, s, http.MethodPost, "/run")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}

	var body domain.PassSummary
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RunID != "run-1" || body.Attempted != 2 || len(body.Outcomes) != 2 {
		t.Errorf("body = %+v", body)
	}
	if !body.Outcomes[1].Paused || body.Outcomes[1].ErrorKind != "InsufficientToken" {
		t.Errorf("outcome = %+v", body.Outcomes[1])
	}
}

func TestRun_FatalError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("list eligible bots: connection refused")}
	s := New(Options{Runner: runner})

	rec := do(t, s, http.MethodPost, "/run")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "list eligible bots: connection refused" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestRun_PassInProgress(t *testing.T) {
	s := New(Options{Runner: &fakeRunner{err: executor.ErrPassInProgress}})

	rec := do(t, s, http.MethodPost, "/run")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestRun_Preflight(t *testing.T) {
	runner := &fakeRunner{}
	s := New(Options{Runner: runner})

	rec := do(t, s, http.MethodOptions, "/run")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "authorization, x-client-info, apikey, content-type" {
		t.Errorf("Allow-Headers = %q", got)
	}
	if runner.calls != 0 {
		t.Error("preflight must not run a pass")
	}
}

func TestRun_MethodNotAllowed(t *testing.T) {
	runner := &fakeRunner{}
	s := New(Options{Runner: runner})

	rec := do(t, s, http.MethodGet, "/run")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if runner.calls != 0 {
		t.Error("GET must not run a pass")
	}
}

func TestRun_UsesBaseContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &fakeRunner{summary: &domain.PassSummary{}}
	s := New(Options{Runner: runner, BaseContext: ctx})

	do(t, s, http.MethodPost, "/run")
	if !errors.Is(runner.ctxErr, context.Canceled) {
		t.Errorf("pass ctx error = %v, want Canceled", runner.ctxErr)
	}
}

func TestStatus(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := start
	runner := &fakeRunner{summary: &domain.PassSummary{RunID: "run-9", Attempted: 3}}
	s := New(Options{Runner: runner, Now: func() time.Time { return now }})

	do(t, s, http.MethodPost, "/run")
	now = start.Add(90 * time.Second)

	rec := do(t, s, http.MethodGet, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Uptime != "1m30s" || resp.TriggeredRuns != 1 || resp.TriggerRunning {
		t.Errorf("resp = %+v", resp)
	}
	if resp.LastPass == nil || resp.LastPass.RunID != "run-9" {
		t.Errorf("LastPass = %+v", resp.LastPass)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := New(Options{Runner: &fakeRunner{}})

	if rec := do(t, s, http.MethodGet, "/health"); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(t, s, http.MethodGet, "/metrics"); rec.Code != http.StatusOK {
		t.Errorf("metrics status = %d", rec.Code)
	}
}

// lockingRunner holds the pass lock until release is closed.
// Calls made while the lock is held fail with ErrPassInProgress.
type lockingRunner struct {
	mu       sync.Mutex
	held     bool
	acquired chan struct{}
	release  chan struct{}
}

func (l *lockingRunner) RunPass(ctx context.Context) (*domain.PassSummary, error) {
	l.mu.Lock()
	if l.held {
		l.mu.Unlock()
		return nil, executor.ErrPassInProgress
	}
	l.held = true
	l.mu.Unlock()

	close(l.acquired)
	<-l.release

	l.mu.Lock()
	l.held = false
	l.mu.Unlock()
	return &domain.PassSummary{RunID: "run-long"}, nil
}

func (l *lockingRunner) LastPass() *domain.PassSummary { return nil }

func TestStatus_RejectedTriggerKeepsRunningFlag(t *testing.T) {
	runner := &lockingRunner{acquired: make(chan struct{}), release: make(chan struct{})}
	s := New(Options{Runner: runner})

	first := make(chan int, 1)
	go func() {
		first <- do(t, s, http.MethodPost, "/run").Code
	}()
	<-runner.acquired

	if rec := do(t, s, http.MethodPost, "/run"); rec.Code != http.StatusConflict {
		t.Fatalf("second trigger status = %d, want 409", rec.Code)
	}

	var resp StatusResponse
	if err := json.NewDecoder(do(t, s, http.MethodGet, "/status").Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.TriggerRunning {
		t.Error("trigger_running = false while the first pass still runs")
	}

	close(runner.release)
	if code := <-first; code != http.StatusOK {
		t.Errorf("first trigger status = %d, want 200", code)
	}

	if err := json.NewDecoder(do(t, s, http.MethodGet, "/status").Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TriggerRunning || resp.TriggeredRuns != 2 {
		t.Errorf("resp = %+v, want idle with 2 triggered runs", resp)
	}
}

func historyServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	trades := memory.NewTradeRecordStore()
	bots := memory.NewBotStore(trades)
	attempts := memory.NewAttemptLogStore()

	bot := &domain.BotConfig{
		ID:              "bot-1",
		Name:            "alpha",
		Status:          domain.BotStatusRunning,
		Strategy:        domain.StrategyNeutral,
		IntervalMinutes: 5,
		MinTradeXRP:     1,
		MaxTradeXRP:     2,
		SlippagePct:     5,
		TradeModeBias:   50,
		Token:           domain.TargetToken{ID: "tok-1", Currency: "USD", Issuer: "rIssuer"},
		Wallet:          domain.SigningWallet{ID: "w-1", Address: "rWallet", Seed: "sEdSecretSeedValue"},
	}
	if err := bots.Put(bot); err != nil {
		t.Fatal(err)
	}

	trade := &domain.TradeRecord{
		ID:          "trade-1",
		BotID:       "bot-1",
		Direction:   domain.DirectionBuy,
		TokenAmount: 3,
		XRPAmount:   1.5,
		Price:       0.5,
		TxHash:      "ABC123",
		Status:      domain.TradeStatusCompleted,
		CreatedAt:   now,
	}
	delta := domain.DeltaFor(trade)
	if err := bots.RecordSuccess(ctx, "bot-1", delta, trade, now, now.Add(5*time.Minute)); err != nil {
		t.Fatal(err)
	}

	for i, kind := range []string{"", "Transport", ""} {
		o := &domain.AttemptOutcome{BotID: "bot-1", Success: kind == "", ErrorKind: kind, StartedAt: now.Add(time.Duration(i) * time.Minute)}
		if err := attempts.Append(ctx, "run-1", o); err != nil {
			t.Fatal(err)
		}
	}

	return New(Options{Runner: &fakeRunner{}, Bots: bots, Trades: trades, Attempts: attempts})
}

func TestBot_OmitsSeed(t *testing.T) {
	s := historyServer(t)

	rec := do(t, s, http.MethodGet, "/bots/bot-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "sEdSecretSeedValue") {
		t.Fatal("bot response contains the wallet seed")
	}

	var bot BotResponse
	if err := json.NewDecoder(rec.Body).Decode(&bot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bot.Name != "alpha" || bot.WalletAddress != "rWallet" || bot.TokenCurrency != "USD" {
		t.Errorf("bot = %+v", bot)
	}
	if bot.SuccessfulTrades != 1 || bot.TotalXRPSpent != 1.5 {
		t.Errorf("counters = %d / %v", bot.SuccessfulTrades, bot.TotalXRPSpent)
	}
}

func TestBot_NotFound(t *testing.T) {
	s := historyServer(t)

	rec := do(t, s, http.MethodGet, "/bots/missing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestBotTrades(t *testing.T) {
	s := historyServer(t)

	rec := do(t, s, http.MethodGet, "/bots/bot-1/trades")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var trades []TradeResponse
	if err := json.NewDecoder(rec.Body).Decode(&trades); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(trades) != 1 || trades[0].TxHash != "ABC123" || trades[0].Direction != string(domain.DirectionBuy) {
		t.Errorf("trades = %+v", trades)
	}

	// Unknown bots have an empty history, not an error.
	rec = do(t, s, http.MethodGet, "/bots/other/trades")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("other = %d %q", rec.Code, rec.Body.String())
	}
}

func TestBotAttempts(t *testing.T) {
	s := historyServer(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantLen    int
	}{
		{"default limit", "/bots/bot-1/attempts", http.StatusOK, 3},
		{"limit", "/bots/bot-1/attempts?limit=2", http.StatusOK, 2},
		{"unknown bot", "/bots/other/attempts", http.StatusOK, 0},
		{"bad limit", "/bots/bot-1/attempts?limit=x", http.StatusBadRequest, 0},
		{"zero limit", "/bots/bot-1/attempts?limit=0", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.path)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var attempts []domain.AttemptOutcome
			if err := json.NewDecoder(rec.Body).Decode(&attempts); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(attempts) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(attempts), tt.wantLen)
			}
		})
	}
}

func TestBotHistory_StoresNotConfigured(t *testing.T) {
	s := New(Options{Runner: &fakeRunner{}})

	for _, path := range []string{"/bots/bot-1", "/bots/bot-1/trades", "/bots/bot-1/attempts"} {
		if rec := do(t, s, http.MethodGet, path); rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, rec.Code)
		}
	}
}
