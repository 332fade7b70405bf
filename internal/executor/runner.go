package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"xrpl-amm-bot/internal/domain"
	"xrpl-amm-bot/internal/lock"
	"xrpl-amm-bot/internal/observability"
	"xrpl-amm-bot/internal/storage"
)

// DefaultEligibilityBuffer is the forward slack applied to next_trade_time.
const DefaultEligibilityBuffer = 30 * time.Second

// ErrPassInProgress is returned when another pass holds the pass lock.
var ErrPassInProgress = errors.New("executor pass already in progress")

// RunnerOptions for creating Runner.
type RunnerOptions struct {
	// Required
	Bots     storage.BotStore
	Executor *Executor

	// Optional
	Attempts storage.AttemptLogStore // attempt log, skipped when nil
	Lock     lock.Locker             // default in-process lock
	Buffer   time.Duration           // default 30s
	Now      func() time.Time
	Logger   *log.Logger
}

// Runner executes passes over every eligible bot.
type Runner struct {
	bots     storage.BotStore
	exec     *Executor
	attempts storage.AttemptLogStore
	lock     lock.Locker
	buffer   time.Duration
	now      func() time.Time
	logger   *log.Logger

	mu   sync.RWMutex
	last *domain.PassSummary
}

// NewRunner creates a new Runner.
func NewRunner(opts RunnerOptions) *Runner {
	r := &Runner{
		bots:     opts.Bots,
		exec:     opts.Executor,
		attempts: opts.Attempts,
		lock:     opts.Lock,
		buffer:   opts.Buffer,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if r.lock == nil {
		r.lock = lock.NewLocalLock()
	}
	if r.buffer <= 0 {
		r.buffer = DefaultEligibilityBuffer
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard, "", 0)
	}
	return r
}

// RunPass attempts every eligible bot once, sequentially.
// Returns ErrPassInProgress if another pass is running, and an error if the
// eligible bots cannot be listed. Per-bot failures are reported in the summary.
// Cancelling ctx stops the pass between bots.
func (r *Runner) RunPass(ctx context.Context) (*domain.PassSummary, error) {
	release, err := r.lock.Acquire(ctx)
	if err != nil {
		if errors.Is(err, lock.ErrLockHeld) {
			observability.RecordPass("skipped", 0, 0)
			return nil, ErrPassInProgress
		}
		return nil, fmt.Errorf("acquire pass lock: %w", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			r.logger.Printf("release pass lock: %v", err)
		}
	}()

	summary := &domain.PassSummary{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
		Outcomes:  []domain.AttemptOutcome{},
	}

	bots, err := r.bots.ListEligible(ctx, summary.StartedAt, r.buffer)
	if err != nil {
		observability.RecordPass("failed", r.now().Sub(summary.StartedAt).Seconds(), 0)
		return nil, fmt.Errorf("list eligible bots: %w", err)
	}
	r.logger.Printf("pass %s: %d eligible bots", summary.RunID, len(bots))

	for _, b := range bots {
		if ctx.Err() != nil {
			r.logger.Printf("pass %s: cancelled with %d of %d bots attempted", summary.RunID, summary.Attempted, len(bots))
			break
		}

		o := r.attempt(ctx, b)
		summary.Add(o)
		r.appendLog(ctx, summary.RunID, &o)
	}

	summary.FinishedAt = r.now()
	duration := summary.FinishedAt.Sub(summary.StartedAt).Seconds()

	status := "completed"
	if ctx.Err() != nil {
		status = "cancelled"
	}
	observability.RecordPass(status, duration, len(bots))
	if status == "completed" {
		observability.MarkPassCompleted(summary.FinishedAt.Unix())
	}

	r.logger.Printf("pass %s: %d attempted, %d succeeded, %d failed, %d skipped in %.1fs",
		summary.RunID, summary.Attempted, summary.Succeeded, summary.Failed, summary.Skipped, duration)

	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()

	return summary, nil
}

// attempt isolates one bot so that nothing it does can stop the pass.
func (r *Runner) attempt(ctx context.Context, b *domain.BotConfig) (o domain.AttemptOutcome) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Printf("bot %s: panic escaped attempt: %v", b.ID, v)
			aerr := panicError(v)
			o = domain.AttemptOutcome{
				BotID:     b.ID,
				BotName:   b.Name,
				ErrorKind: string(aerr.Kind),
				Error:     aerr.Error(),
				StartedAt: r.now(),
			}
		}
	}()
	return r.exec.Attempt(ctx, b)
}

// appendLog writes o to the attempt log. Failures are logged and ignored.
func (r *Runner) appendLog(ctx context.Context, runID string, o *domain.AttemptOutcome) {
	if r.attempts == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultStoreTimeout)
	defer cancel()
	if err := r.attempts.Append(actx, runID, o); err != nil {
		r.logger.Printf("bot %s: append attempt log: %v", o.BotID, err)
	}
}

// LastPass returns the summary of the most recent pass, or nil.
func (r *Runner) LastPass() *domain.PassSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}
