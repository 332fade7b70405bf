// Package app wires stores, ledger access, locking and notifications into
// an executor runner for the command binaries.
package app

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the runtime configuration shared by the binaries.
type Config struct {
	WSEndpoint    string
	PostgresDSN   string
	ClickhouseDSN string
	RedisAddr     string
	RedisPassword string
	TelegramToken string
	TelegramChats []int64

	UseMemory bool
	Migrate   bool

	QueryTimeout  time.Duration
	SubmitTimeout time.Duration
	RPS           float64
	LockTTL       time.Duration

	// LogOutput receives component logs. Default os.Stdout.
	LogOutput io.Writer
}

// RegisterFlags binds the shared flags to fs with environment defaults.
// The returned func must be called after fs.Parse to finish parsing.
func RegisterFlags(fs *flag.FlagSet) (*Config, func() error) {
	cfg := &Config{}
	chats := fs.String("telegram-chat-id", os.Getenv("TELEGRAM_CHAT_ID"), "Comma-separated Telegram chat IDs for pause alerts")

	fs.StringVar(&cfg.WSEndpoint, "ws-endpoint", os.Getenv("XRPL_WS_ENDPOINT"), "XRPL websocket endpoint")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	fs.StringVar(&cfg.ClickhouseDSN, "clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional attempt log)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", os.Getenv("REDIS_ADDR"), "Redis address for the pass lock (optional)")
	fs.StringVar(&cfg.RedisPassword, "redis-password", os.Getenv("REDIS_PASSWORD"), "Redis password")
	fs.StringVar(&cfg.TelegramToken, "telegram-token", os.Getenv("TELEGRAM_BOT_TOKEN"), "Telegram bot token (optional)")
	fs.BoolVar(&cfg.UseMemory, "use-memory", false, "Use in-memory storage instead of PostgreSQL")
	fs.BoolVar(&cfg.Migrate, "migrate", false, "Apply embedded migrations at startup")
	fs.DurationVar(&cfg.QueryTimeout, "query-timeout", 15*time.Second, "Per ledger query timeout")
	fs.DurationVar(&cfg.SubmitTimeout, "submit-timeout", 60*time.Second, "Submit-and-wait bound per trade")
	fs.Float64Var(&cfg.RPS, "rps", 10, "XRPL requests per second per connection (0 disables)")
	fs.DurationVar(&cfg.LockTTL, "lock-ttl", 10*time.Minute, "Redis pass lock TTL")

	finish := func() error {
		ids, err := parseChatIDs(*chats)
		if err != nil {
			return err
		}
		cfg.TelegramChats = ids
		return cfg.Validate()
	}
	return cfg, finish
}

// NewLogger returns a component logger writing to LogOutput.
func (c *Config) NewLogger(component string) *log.Logger {
	out := c.LogOutput
	if out == nil {
		out = os.Stdout
	}
	return log.New(out, "["+component+"] ", log.LstdFlags|log.Lshortfile)
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.WSEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required")
	}
	if !c.UseMemory && c.PostgresDSN == "" {
		return fmt.Errorf("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}
	if c.TelegramToken != "" && len(c.TelegramChats) == 0 {
		return fmt.Errorf("--telegram-chat-id is required with --telegram-token")
	}
	return nil
}

func parseChatIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram chat id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// LoadEnvFile loads environment variables from path if it exists.
// Variables already set are not overridden.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, value)
		}
	}
}
