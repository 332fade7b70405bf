package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"xrpl-amm-bot/internal/observability"
)

// ErrClosed is returned for requests on a closed or broken connection.
var ErrClosed = errors.New("xrpl connection closed")

// WSConfig configures the websocket client.
type WSConfig struct {
	// HandshakeTimeout bounds the websocket dial.
	HandshakeTimeout time.Duration
	// RequestTimeout bounds a request whose context has no deadline.
	RequestTimeout time.Duration
	// WriteTimeout bounds a single frame write.
	WriteTimeout time.Duration
	// RequestsPerSecond caps request rate; 0 disables the limiter.
	RequestsPerSecond float64
}

// DefaultWSConfig returns default websocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HandshakeTimeout:  10 * time.Second,
		RequestTimeout:    15 * time.Second,
		WriteTimeout:      10 * time.Second,
		RequestsPerSecond: 10,
	}
}

// WSClient implements Client over a single websocket connection.
// Responses are matched to requests by id; unsolicited stream messages are dropped.
type WSClient struct {
	endpoint string
	config   WSConfig
	limiter  *rate.Limiter

	conn      *websocket.Conn
	writeMu   sync.Mutex
	requestID atomic.Uint64

	pending   map[uint64]chan wsResponse
	pendingMu sync.Mutex
	readErr   error

	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// Compile-time interface check.
var _ Client = (*WSClient)(nil)

// Dial connects to a rippled/clio websocket endpoint.
func Dial(ctx context.Context, endpoint string, config *WSConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		conn:     conn,
		pending:  make(map[uint64]chan wsResponse),
		done:     make(chan struct{}),
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	c.wg.Add(1)
	go c.readLoop()

	return c, nil
}

// Close closes the websocket connection and fails pending requests.
func (c *WSClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.writeMu.Lock()
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.writeMu.Unlock()

	c.wg.Wait()
	return err
}

// readLoop dispatches responses to waiting requests until the connection fails.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.failPending(err)
			return
		}

		var resp wsResponse
		if err := json.Unmarshal(message, &resp); err != nil || resp.ID == 0 {
			continue
		}

		c.pendingMu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.pendingMu.Unlock()

		if ok {
			ch <- resp
		}
	}
}

// failPending records the read error and releases every waiter.
func (c *WSClient) failPending(err error) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	if c.closed.Load() {
		c.readErr = ErrClosed
	} else {
		c.readErr = fmt.Errorf("%w: %v", ErrClosed, err)
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// request sends command with params and decodes the result into out.
func (c *WSClient) request(ctx context.Context, command string, params map[string]interface{}, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordRPC(command, time.Since(start).Seconds(), err)
	}()

	if c.closed.Load() {
		return ErrClosed
	}
	if _, ok := ctx.Deadline(); !ok && c.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.RequestTimeout)
		defer cancel()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limit wait: %w", command, err)
		}
	}

	id := c.requestID.Add(1)
	msg := make(map[string]interface{}, len(params)+2)
	for k, v := range params {
		msg[k] = v
	}
	msg["id"] = id
	msg["command"] = command

	ch := make(chan wsResponse, 1)
	c.pendingMu.Lock()
	if c.readErr != nil {
		readErr := c.readErr
		c.pendingMu.Unlock()
		return readErr
	}
	c.pending[id] = ch
	c.pendingMu.Unlock()

	c.writeMu.Lock()
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	err = c.conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return fmt.Errorf("%s: write request: %w", command, err)
	}

	var resp wsResponse
	select {
	case r, ok := <-ch:
		if !ok {
			c.pendingMu.Lock()
			readErr := c.readErr
			c.pendingMu.Unlock()
			return fmt.Errorf("%s: %w", command, readErr)
		}
		resp = r
	case <-ctx.Done():
		c.forget(id)
		return fmt.Errorf("%s: %w", command, ctx.Err())
	case <-c.done:
		return fmt.Errorf("%s: %w", command, ErrClosed)
	}

	if resp.Status == "error" || resp.Error != "" {
		return &RPCError{Code: resp.Error, Number: resp.ErrorCode, Message: resp.ErrorMessage}
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("%s: unmarshal result: %w", command, err)
		}
	}
	return nil
}

func (c *WSClient) forget(id uint64) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// AccountInfo returns the account root at the given ledger.
func (c *WSClient) AccountInfo(ctx context.Context, account string, ledger string) (*AccountInfo, error) {
	var result accountInfoResult
	err := c.request(ctx, "account_info", map[string]interface{}{
		"account":      account,
		"ledger_index": ledger,
	}, &result)
	if err != nil {
		return nil, err
	}

	balance, err := DropsToXRP(result.AccountData.Balance)
	if err != nil {
		return nil, fmt.Errorf("account_info: %w", err)
	}

	info := &AccountInfo{
		Account:     result.AccountData.Account,
		BalanceXRP:  balance,
		Sequence:    result.AccountData.Sequence,
		OwnerCount:  result.AccountData.OwnerCount,
		LedgerIndex: result.LedgerIndex,
	}
	if info.LedgerIndex == 0 {
		info.LedgerIndex = result.LedgerCurrentIndex
	}
	return info, nil
}

// AccountLines returns every trust line of account, following pagination markers.
func (c *WSClient) AccountLines(ctx context.Context, account string, peer string) ([]TrustLine, error) {
	var lines []TrustLine
	var marker json.RawMessage

	for {
		params := map[string]interface{}{
			"account":      account,
			"ledger_index": LedgerValidated,
		}
		if peer != "" {
			params["peer"] = peer
		}
		if len(marker) > 0 {
			params["marker"] = marker
		}

		var result accountLinesResult
		if err := c.request(ctx, "account_lines", params, &result); err != nil {
			return nil, err
		}
		lines = append(lines, result.Lines...)

		if len(result.Marker) == 0 || string(result.Marker) == "null" {
			return lines, nil
		}
		marker = result.Marker
	}
}

// AMMInfo returns the pool for the asset pair.
func (c *WSClient) AMMInfo(ctx context.Context, asset, asset2 Issue) (*AMMInfo, error) {
	var result ammInfoResult
	err := c.request(ctx, "amm_info", map[string]interface{}{
		"asset":        issueParam(asset),
		"asset2":       issueParam(asset2),
		"ledger_index": LedgerValidated,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &AMMInfo{
		Account:    result.AMM.Account,
		Amount:     result.AMM.Amount,
		Amount2:    result.AMM.Amount2,
		TradingFee: result.AMM.TradingFee,
	}, nil
}

func issueParam(i Issue) map[string]string {
	if i.Currency == "XRP" || i.Currency == "" {
		return map[string]string{"currency": "XRP"}
	}
	return map[string]string{"currency": i.Currency, "issuer": i.Issuer}
}

// Fee returns the current transaction cost levels.
func (c *WSClient) Fee(ctx context.Context) (*FeeInfo, error) {
	var result feeResult
	if err := c.request(ctx, "fee", nil, &result); err != nil {
		return nil, err
	}

	info := &FeeInfo{LedgerCurrentIndex: result.LedgerCurrentIndex}
	var err error
	if info.BaseFee, err = parseDrops(result.Drops.BaseFee); err != nil {
		return nil, fmt.Errorf("fee: base_fee: %w", err)
	}
	if info.MinimumFee, err = parseDrops(result.Drops.MinimumFee); err != nil {
		return nil, fmt.Errorf("fee: minimum_fee: %w", err)
	}
	if info.OpenLedgerFee, err = parseDrops(result.Drops.OpenLedgerFee); err != nil {
		return nil, fmt.Errorf("fee: open_ledger_fee: %w", err)
	}
	return info, nil
}

func parseDrops(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

// LedgerCurrent returns the index of the current open ledger.
func (c *WSClient) LedgerCurrent(ctx context.Context) (uint32, error) {
	var result ledgerCurrentResult
	if err := c.request(ctx, "ledger_current", nil, &result); err != nil {
		return 0, err
	}
	return result.LedgerCurrentIndex, nil
}

// ValidatedLedger returns the index of the most recent validated ledger.
func (c *WSClient) ValidatedLedger(ctx context.Context) (uint32, error) {
	var result ledgerResult
	err := c.request(ctx, "ledger", map[string]interface{}{
		"ledger_index": LedgerValidated,
	}, &result)
	if err != nil {
		return 0, err
	}
	if !result.Validated {
		return 0, fmt.Errorf("ledger: server returned unvalidated ledger %d", result.LedgerIndex)
	}
	return result.LedgerIndex, nil
}

// Submit submits a signed transaction blob.
func (c *WSClient) Submit(ctx context.Context, txBlob string) (*SubmitResult, error) {
	var result submitResult
	if err := c.request(ctx, "submit", map[string]interface{}{"tx_blob": txBlob}, &result); err != nil {
		return nil, err
	}
	res := result.SubmitResult
	res.Hash = result.TxJSON.Hash
	return &res, nil
}

// Tx looks up a transaction by hash.
func (c *WSClient) Tx(ctx context.Context, hash string) (*TxResult, error) {
	var result txResult
	if err := c.request(ctx, "tx", map[string]interface{}{"transaction": hash}, &result); err != nil {
		return nil, err
	}
	res := &TxResult{
		Hash:        result.Hash,
		Validated:   result.Validated,
		LedgerIndex: result.LedgerIndex,
	}
	if result.Meta != nil {
		res.TransactionResult = result.Meta.TransactionResult
	}
	return res, nil
}

// wsResponse is the response envelope.
type wsResponse struct {
	ID           uint64          `json:"id"`
	Status       string          `json:"status"`
	Type         string          `json:"type"`
	Result       json.RawMessage `json:"result"`
	Error        string          `json:"error"`
	ErrorCode    int             `json:"error_code"`
	ErrorMessage string          `json:"error_message"`
}
