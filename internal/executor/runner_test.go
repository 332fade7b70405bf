package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"xrpl-amm-bot/internal/domain"
	"xrpl-amm-bot/internal/lock"
	"xrpl-amm-bot/internal/storage"
	"xrpl-amm-bot/internal/storage/memory"
)

type failingBotStore struct {
	*memory.BotStore
}

func (s failingBotStore) ListEligible(context.Context, time.Time, time.Duration) ([]*domain.BotConfig, error) {
	return nil, errors.New("connection refused")
}

type panickingBotStore struct {
	*memory.BotStore
}

func (s panickingBotStore) RecordFailure(context.Context, string, storage.FailureUpdate) error {
	panic("store driver bug")
}

func TestRunPass_Summary(t *testing.T) {
	// Each bot draws direction then size.
	f := newFixture(t, &scriptedRand{values: []float64{0.1, 0.5, 0.1, 0.5, 0.1, 0.5}})
	f.addBot(t, "a-good", domain.StrategyAccumulate, 5, 0x21, 100)
	f.addBot(t, "b-poor", domain.StrategyAccumulate, 5, 0x31, 11)
	nopool := f.addBot(t, "c-nopool", domain.StrategyAccumulate, 5, 0x41, 100)
	nopool.Token.Currency = "EUR"
	if err := f.bots.Put(nopool); err != nil {
		t.Fatal(err)
	}
	paused := f.addBot(t, "d-paused", domain.StrategyAccumulate, 5, 0x51, 100)
	paused.Status = domain.BotStatusPaused
	if err := f.bots.Put(paused); err != nil {
		t.Fatal(err)
	}

	attempts := memory.NewAttemptLogStore()
	r := NewRunner(RunnerOptions{
		Bots:     f.bots,
		Executor: f.exec,
		Attempts: attempts,
		Now:      func() time.Time { return testNow },
	})

	summary, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if summary.RunID == "" {
		t.Error("RunID is empty")
	}
	if summary.Attempted != 3 || summary.Succeeded != 1 || summary.Failed != 1 || summary.Skipped != 1 {
		t.Errorf("summary = %d attempted, %d succeeded, %d failed, %d skipped",
			summary.Attempted, summary.Succeeded, summary.Failed, summary.Skipped)
	}

	want := []struct {
		id   string
		kind ErrorKind
	}{
		{"a-good", ""},
		{"b-poor", KindInsufficientNativeAsset},
		{"c-nopool", KindNoPoolData},
	}
	for i, w := range want {
		o := summary.Outcomes[i]
		if o.BotID != w.id || o.ErrorKind != string(w.kind) {
			t.Errorf("outcome %d = %s/%s, want %s/%s", i, o.BotID, o.ErrorKind, w.id, w.kind)
		}
	}

	logged, err := attempts.GetByBotID(context.Background(), "b-poor", 0)
	if err != nil || len(logged) != 1 {
		t.Fatalf("attempt log = %v, %v", logged, err)
	}
	if ids := attempts.RunIDs(); len(ids) != 1 || ids[0] != summary.RunID {
		t.Errorf("attempt log run ids = %v", ids)
	}

	if r.LastPass() != summary {
		t.Error("LastPass should return the latest summary")
	}

	// Succeeded bot is rescheduled, so a second pass skips it.
	second, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("second RunPass: %v", err)
	}
	for _, o := range second.Outcomes {
		if o.BotID == "a-good" || o.BotID == "b-poor" {
			t.Errorf("bot %s attempted again", o.BotID)
		}
	}
}

func TestRunPass_ListFailureIsFatal(t *testing.T) {
	f := newFixture(t, nil)
	r := NewRunner(RunnerOptions{Bots: failingBotStore{f.bots}, Executor: f.exec})

	summary, err := r.RunPass(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if summary != nil {
		t.Errorf("summary = %+v, want nil", summary)
	}
}

func TestRunPass_LockHeld(t *testing.T) {
	f := newFixture(t, nil)
	l := lock.NewLocalLock()
	release, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer release(context.Background())

	r := NewRunner(RunnerOptions{Bots: f.bots, Executor: f.exec, Lock: l})
	if _, err := r.RunPass(context.Background()); !errors.Is(err, ErrPassInProgress) {
		t.Fatalf("RunPass error = %v, want ErrPassInProgress", err)
	}
}

// A panic outside the attempt's own boundary still does not stop the pass.
func TestRunPass_PanicIsolated(t *testing.T) {
	f := newFixture(t, &scriptedRand{values: []float64{0.1, 0.5}})
	broken := f.addBot(t, "a-broken", domain.StrategyAccumulate, 5, 0x61, 100)
	broken.MinTradeXRP = 0
	if err := f.bots.Put(broken); err != nil {
		t.Fatal(err)
	}
	f.addBot(t, "b-good", domain.StrategyAccumulate, 5, 0x71, 100)

	store := panickingBotStore{f.bots}
	f.exec.bots = store
	r := NewRunner(RunnerOptions{Bots: store, Executor: f.exec})

	summary, err := r.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if summary.Attempted != 2 {
		t.Fatalf("Attempted = %d, want 2", summary.Attempted)
	}
	if o := summary.Outcomes[0]; o.ErrorKind != string(KindTransportOrTimeout) || o.Success {
		t.Errorf("panicking outcome = %+v", o)
	}
	if !summary.Outcomes[1].Success {
		t.Errorf("second bot outcome = %+v, want success", summary.Outcomes[1])
	}
}

func TestRunPass_CancelledStopsBetweenBots(t *testing.T) {
	f := newFixture(t, nil)
	f.addBot(t, "a", domain.StrategyAccumulate, 5, 0x81, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(RunnerOptions{Bots: f.bots, Executor: f.exec})
	summary, err := r.RunPass(ctx)
	if err != nil {
		t.Fatalf("RunPass: %v", err)
	}
	if summary.Attempted != 0 {
		t.Errorf("Attempted = %d, want 0", summary.Attempted)
	}
}
