package app

import (
	"context"
	"fmt"
	"log"

	"xrpl-amm-bot/internal/executor"
	"xrpl-amm-bot/internal/lock"
	"xrpl-amm-bot/internal/notify"
	"xrpl-amm-bot/internal/storage"
	chstore "xrpl-amm-bot/internal/storage/clickhouse"
	"xrpl-amm-bot/internal/storage/memory"
	"xrpl-amm-bot/internal/storage/migrations"
	pgstore "xrpl-amm-bot/internal/storage/postgres"
	"xrpl-amm-bot/internal/xrpl"
)

// passLockKey is the redis key guarding executor passes across replicas.
const passLockKey = "xrpl-amm-bot:executor:pass"

// Stores holds the storage backends in use.
type Stores struct {
	Bots     storage.BotStore
	Trades   storage.TradeRecordStore
	Attempts storage.AttemptLogStore // nil when no attempt log is configured
}

// App is a wired executor runner plus its resources.
type App struct {
	Runner *executor.Runner
	Stores *Stores

	closers []func()
}

// Close releases every resource in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Build wires an App from cfg. Call Close when done.
func Build(ctx context.Context, cfg *Config, logger *log.Logger) (_ *App, err error) {
	a := &App{}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.Stores, err = a.buildStores(ctx, cfg, logger); err != nil {
		return nil, err
	}

	locker, err := a.buildLock(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	submit := xrpl.DefaultSubmitOptions()
	submit.Timeout = cfg.SubmitTimeout

	exec := executor.New(executor.Options{
		Bots:         a.Stores.Bots,
		Dial:         NewDialer(cfg),
		Notifier:     notifier,
		QueryTimeout: cfg.QueryTimeout,
		Submit:       submit,
		Logger:       cfg.NewLogger("executor"),
	})

	a.Runner = executor.NewRunner(executor.RunnerOptions{
		Bots:     a.Stores.Bots,
		Executor: exec,
		Attempts: a.Stores.Attempts,
		Lock:     locker,
		Logger:   cfg.NewLogger("runner"),
	})
	return a, nil
}

// NewDialer returns an executor dialer opening a fresh websocket per attempt.
func NewDialer(cfg *Config) executor.Dialer {
	wsCfg := xrpl.DefaultWSConfig()
	wsCfg.RequestTimeout = cfg.QueryTimeout
	wsCfg.RequestsPerSecond = cfg.RPS

	return func(ctx context.Context) (xrpl.Client, error) {
		c, err := xrpl.Dial(ctx, cfg.WSEndpoint, &wsCfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func (a *App) buildStores(ctx context.Context, cfg *Config, logger *log.Logger) (*Stores, error) {
	if cfg.UseMemory {
		trades := memory.NewTradeRecordStore()
		logger.Println("Using in-memory storage")
		return &Stores{
			Bots:     memory.NewBotStore(trades),
			Trades:   trades,
			Attempts: memory.NewAttemptLogStore(),
		}, nil
	}

	pool, err := pgstore.NewPoolWithConfig(ctx, cfg.PostgresDSN, pgstore.PoolConfig{
		MaxConns:         4,
		ApplicationName:  "xrpl-amm-bot",
		StatementTimeout: cfg.QueryTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	if cfg.Migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Println("Postgres migrations applied")
	}

	stores := &Stores{
		Bots:   pgstore.NewBotStore(pool),
		Trades: pgstore.NewTradeRecordStore(pool),
	}

	if cfg.ClickhouseDSN == "" {
		logger.Println("No ClickHouse DSN, attempt log disabled")
		return stores, nil
	}

	if cfg.Migrate {
		if err := chstore.Migrate(ctx, cfg.ClickhouseDSN); err != nil {
			return nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		logger.Println("ClickHouse migrations applied")
	}
	conn, err := chstore.NewConn(ctx, cfg.ClickhouseDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	a.closers = append(a.closers, func() { conn.Close() })
	stores.Attempts = chstore.NewAttemptLogStore(conn)

	return stores, nil
}

func (a *App) buildLock(ctx context.Context, cfg *Config, logger *log.Logger) (lock.Locker, error) {
	if cfg.RedisAddr == "" {
		return lock.NewLocalLock(), nil
	}

	client, err := lock.NewRedisClient(ctx, lock.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.closers = append(a.closers, func() { client.Close() })

	logger.Printf("Using redis pass lock at %s", cfg.RedisAddr)
	return lock.NewRedisLock(client, passLockKey, cfg.LockTTL), nil
}

func buildNotifier(cfg *Config, logger *log.Logger) (notify.Notifier, error) {
	if cfg.TelegramToken == "" {
		return notify.Noop{}, nil
	}
	tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChats, cfg.NewLogger("notify"))
	if err != nil {
		return nil, fmt.Errorf("create telegram notifier: %w", err)
	}
	logger.Printf("Pause alerts go to %d telegram chat(s)", len(cfg.TelegramChats))
	return tg, nil
}
