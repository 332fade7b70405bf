package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"xrpl-amm-bot/internal/domain"
	"xrpl-amm-bot/internal/idhash"
	"xrpl-amm-bot/internal/notify"
	"xrpl-amm-bot/internal/observability"
	"xrpl-amm-bot/internal/storage"
	"xrpl-amm-bot/internal/xrpl"
)

// Default timeouts.
const (
	DefaultQueryTimeout = 15 * time.Second
	DefaultStoreTimeout = 10 * time.Second
)

// Dialer opens a fresh ledger connection for one attempt.
type Dialer func(ctx context.Context) (xrpl.Client, error)

// Options for creating Executor.
type Options struct {
	// Required
	Bots storage.BotStore
	Dial Dialer

	// Optional
	Notifier     notify.Notifier    // default notify.Noop
	Rand         RandSource         // default seeded from the clock
	Now          func() time.Time   // default time.Now
	QueryTimeout time.Duration      // per ledger query, default 15s
	StoreTimeout time.Duration      // per store write, default 10s
	Submit       xrpl.SubmitOptions // submit-and-wait tuning, 60s bound by default
	Logger       *log.Logger
}

// Executor performs single bot attempts.
type Executor struct {
	bots         storage.BotStore
	dial         Dialer
	notifier     notify.Notifier
	rng          RandSource
	now          func() time.Time
	queryTimeout time.Duration
	storeTimeout time.Duration
	submitOpts   xrpl.SubmitOptions
	logger       *log.Logger
}

// New creates a new Executor.
func New(opts Options) *Executor {
	e := &Executor{
		bots:         opts.Bots,
		dial:         opts.Dial,
		notifier:     opts.Notifier,
		rng:          opts.Rand,
		now:          opts.Now,
		queryTimeout: opts.QueryTimeout,
		storeTimeout: opts.StoreTimeout,
		submitOpts:   opts.Submit,
		logger:       opts.Logger,
	}
	if e.notifier == nil {
		e.notifier = notify.Noop{}
	}
	if e.rng == nil {
		e.rng = NewRand(time.Now().UnixNano())
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.queryTimeout <= 0 {
		e.queryTimeout = DefaultQueryTimeout
	}
	if e.storeTimeout <= 0 {
		e.storeTimeout = DefaultStoreTimeout
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard, "", 0)
	}
	if e.submitOpts.Logger == nil {
		e.submitOpts.Logger = e.logger
	}
	return e
}

// Attempt runs one bot through a full attempt and writes the result back.
// It never panics and never returns an error: every failure is classified
// into the outcome.
func (e *Executor) Attempt(ctx context.Context, b *domain.BotConfig) domain.AttemptOutcome {
	started := e.now()
	out := domain.AttemptOutcome{
		BotID:     b.ID,
		BotName:   b.Name,
		StartedAt: started,
	}

	if err := e.run(ctx, b, &out); err != nil {
		e.fail(ctx, b, &out, err)
	}

	out.DurationMs = e.now().Sub(started).Milliseconds()

	kind := "success"
	if !out.Success {
		kind = out.ErrorKind
	}
	observability.RecordAttempt(kind, float64(out.DurationMs)/1000)
	return out
}

// run performs the attempt up to and including recording a success.
// Panics are returned as errors.
func (e *Executor) run(ctx context.Context, b *domain.BotConfig, out *domain.AttemptOutcome) (err *AttemptError) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("bot %s: recovered panic: %v", b.ID, r)
			err = panicError(r)
		}
	}()

	if verr := b.Validate(); verr != nil {
		return &AttemptError{Kind: KindInvalidConfig, Err: verr}
	}

	wallet, werr := xrpl.WalletFromSeed(b.Wallet.Seed)
	if werr != nil {
		return &AttemptError{Kind: KindInvalidConfig, Msg: "derive wallet", Err: werr}
	}
	if wallet.Address != b.Wallet.Address {
		return &AttemptError{
			Kind: KindAddressMismatch,
			Msg:  fmt.Sprintf("seed derives %s, wallet %s is stored", wallet.Address, b.Wallet.Address),
		}
	}

	qctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	client, derr := e.dial(qctx)
	cancel()
	if derr != nil {
		return classify(derr, "connect")
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			e.logger.Printf("bot %s: close connection: %v", b.ID, cerr)
		}
	}()

	token := xrpl.Issue{Currency: b.Token.LedgerCurrency(), Issuer: b.Token.Issuer}

	pool, aerr := e.fetchPool(ctx, client, token)
	if aerr != nil {
		return aerr
	}

	qctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
	account, qerr := client.AccountInfo(qctx, wallet.Address, xrpl.LedgerValidated)
	cancel()
	if qerr != nil {
		return classify(qerr, "fetch account")
	}

	dir := DecideDirection(e.rng, b)
	xrpAmount := PickTradeSize(e.rng, b.MinTradeXRP, b.MaxTradeXRP)
	price := pool.Price()
	estimatedTokens := xrpAmount / price

	out.Direction = dir
	out.XRPAmount = xrpAmount
	out.TokenAmount = estimatedTokens
	out.Price = price

	switch dir {
	case domain.DirectionBuy:
		if verr := ValidateBuy(account.BalanceXRP, xrpAmount, b.SlippagePct); verr != nil {
			return classify(verr, "")
		}
	case domain.DirectionSell:
		qctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		lines, lerr := client.AccountLines(qctx, wallet.Address, token.Issuer)
		cancel()
		if lerr != nil {
			return classify(lerr, "fetch trust lines")
		}
		held, perr := TokenBalance(lines, token.Currency, token.Issuer)
		if perr != nil {
			return classify(perr, "fetch trust lines")
		}
		if verr := ValidateSell(held, estimatedTokens, b.SlippagePct); verr != nil {
			return classify(verr, "")
		}
	}

	payment, perr := BuildPayment(dir, xrpAmount, estimatedTokens, b.SlippagePct, b.Token, wallet.Address)
	if perr != nil {
		return &AttemptError{Kind: KindInvalidConfig, Msg: "build payment", Err: perr}
	}

	e.logger.Printf("bot %s: %s %.6f XRP / %s tokens at %.10f", b.ID, dir, xrpAmount,
		xrpl.FormatTokenValue(estimatedTokens), price)

	res, serr := xrpl.NewSubmitter(client, e.submitOpts).SubmitAndWait(ctx, wallet, payment)
	var engineErr *xrpl.EngineError
	switch {
	case res != nil:
		out.TxHash = res.Hash
	case errors.As(serr, &engineErr):
		out.TxHash = engineErr.Hash
	}
	if serr != nil {
		msg := "submit payment"
		if isTimeout(serr) {
			msg = "submission timed out"
		}
		return classify(serr, msg)
	}

	out.Success = true
	e.recordSuccess(ctx, b, out)
	return nil
}

// fetchPool reads the XRP/token pool. A missing or empty pool is NoPoolData.
func (e *Executor) fetchPool(ctx context.Context, client xrpl.Client, token xrpl.Issue) (domain.PoolSnapshot, *AttemptError) {
	qctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	info, err := client.AMMInfo(qctx, xrpl.XRPIssue, token)
	if err != nil {
		if xrpl.IsErrorCode(err, xrpl.ErrorCodeActNotFound) {
			return domain.PoolSnapshot{}, &AttemptError{Kind: KindNoPoolData, Msg: fmt.Sprintf("no AMM pool for XRP/%s.%s", token.Currency, token.Issuer)}
		}
		return domain.PoolSnapshot{}, classify(err, "fetch pool")
	}

	xrpSide, tokenSide := info.Amount, info.Amount2
	if !xrpSide.IsXRP() {
		xrpSide, tokenSide = tokenSide, xrpSide
	}
	xrpReserve, err := xrpSide.Float()
	if err != nil {
		return domain.PoolSnapshot{}, &AttemptError{Kind: KindNoPoolData, Msg: "parse pool XRP reserve", Err: err}
	}
	tokenReserve, err := tokenSide.Float()
	if err != nil {
		return domain.PoolSnapshot{}, &AttemptError{Kind: KindNoPoolData, Msg: "parse pool token reserve", Err: err}
	}

	snapshot := domain.PoolSnapshot{
		Account:      info.Account,
		XRPReserve:   xrpReserve,
		TokenReserve: tokenReserve,
		TradingFee:   info.TradingFee,
	}
	if snapshot.XRPReserve <= 0 || snapshot.Price() <= 0 {
		return domain.PoolSnapshot{}, &AttemptError{Kind: KindNoPoolData, Msg: "AMM pool is empty"}
	}
	return snapshot, nil
}

// recordSuccess writes the trade and counters. The ledger already holds the
// trade, so a write failure is reported on the outcome but the attempt stays successful.
func (e *Executor) recordSuccess(ctx context.Context, b *domain.BotConfig, out *domain.AttemptOutcome) {
	now := e.now()
	trade := &domain.TradeRecord{
		ID:          idhash.ComputeTradeID(b.ID, out.TxHash),
		BotID:       b.ID,
		Direction:   out.Direction,
		TokenAmount: out.TokenAmount,
		XRPAmount:   out.XRPAmount,
		Price:       out.Price,
		TxHash:      out.TxHash,
		Status:      domain.TradeStatusCompleted,
		CreatedAt:   now,
	}

	sctx, cancel := e.storeContext(ctx)
	defer cancel()

	err := e.bots.RecordSuccess(sctx, b.ID, domain.DeltaFor(trade), trade, now, now.Add(b.Interval()))
	if err != nil {
		e.logger.Printf("bot %s: trade %s validated but not recorded: %v", b.ID, out.TxHash, err)
		out.ErrorKind = string(KindRecordFailed)
		out.Error = fmt.Sprintf("record trade: %v", err)
	}

	observability.RecordTrade(string(out.Direction), out.XRPAmount)
	e.logger.Printf("bot %s: %s validated %s", b.ID, out.Direction, out.TxHash)
}

// fail writes a classified failure back to the bot row.
func (e *Executor) fail(ctx context.Context, b *domain.BotConfig, out *domain.AttemptOutcome, aerr *AttemptError) {
	out.ErrorKind = string(aerr.Kind)
	out.Error = aerr.Error()

	if aerr.Skipped() {
		out.Skipped = true
		e.logger.Printf("bot %s: skipped: %s", b.ID, out.Error)
		return
	}

	pause := aerr.ShouldPause(b.SlippagePct)
	at := e.now()

	sctx, cancel := e.storeContext(ctx)
	defer cancel()

	err := e.bots.RecordFailure(sctx, b.ID, storage.FailureUpdate{
		Message:      out.Error,
		At:           at,
		Pause:        pause,
		CountFailure: aerr.CountsAsFailure(),
	})
	if err != nil {
		e.logger.Printf("bot %s: record failure %q: %v", b.ID, out.Error, err)
		return
	}
	e.logger.Printf("bot %s: %s: %s (paused=%t)", b.ID, aerr.Kind, out.Error, pause)

	if !pause {
		return
	}
	out.Paused = true
	observability.RecordBotPaused(string(aerr.Kind))

	if err := e.notifier.BotPaused(sctx, b, out.Error, at); err != nil {
		observability.RecordNotificationError()
		e.logger.Printf("bot %s: notify pause: %v", b.ID, err)
	}
}

// storeContext bounds a store write. Writes survive cancellation of ctx so a
// validated trade is still recorded during shutdown.
func (e *Executor) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.storeTimeout)
}
