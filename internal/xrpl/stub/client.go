// Package stub provides an in-memory ledger implementing xrpl.Client for tests.
package stub

import (
	"context"
	"strings"
	"sync"

	"xrpl-amm-bot/internal/xrpl"
)

// Ledger is a shared in-memory ledger. Each Client call dials a new view of it.
type Ledger struct {
	mu sync.Mutex

	accounts map[string]*xrpl.AccountInfo
	lines    map[string][]xrpl.TrustLine
	pools    map[xrpl.Issue]*xrpl.AMMInfo
	txs      map[string]*xrpl.TxResult
	results  []string

	fee         xrpl.FeeInfo
	ledgerIndex uint32

	// Errors forces a command (e.g. "amm_info") to fail with the given error.
	Errors map[string]error
	// Panics makes a command panic with the given value.
	Panics map[string]interface{}

	submitted []string
	dials     int
	closes    int
}

// NewLedger creates an empty ledger at index 1000 with a 12 drop fee.
func NewLedger() *Ledger {
	return &Ledger{
		accounts:    make(map[string]*xrpl.AccountInfo),
		lines:       make(map[string][]xrpl.TrustLine),
		pools:       make(map[xrpl.Issue]*xrpl.AMMInfo),
		txs:         make(map[string]*xrpl.TxResult),
		fee:         xrpl.FeeInfo{BaseFee: 10, MinimumFee: 10, OpenLedgerFee: 12},
		ledgerIndex: 1000,
		Errors:      make(map[string]error),
		Panics:      make(map[string]interface{}),
	}
}

// SetAccount creates or replaces an account root.
func (l *Ledger) SetAccount(address string, balanceXRP float64, sequence uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[address] = &xrpl.AccountInfo{
		Account:    address,
		BalanceXRP: balanceXRP,
		Sequence:   sequence,
	}
}

// AddTrustLine appends a trust line to account.
func (l *Ledger) AddTrustLine(account string, line xrpl.TrustLine) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines[account] = append(l.lines[account], line)
}

// SetPool creates the XRP/token pool for the issued currency.
func (l *Ledger) SetPool(currency, issuer string, xrpReserve, tokenReserve float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	token := xrpl.Issue{Currency: currency, Issuer: issuer}
	l.pools[token] = &xrpl.AMMInfo{
		Account:    "rAMMPoolAccount",
		Amount:     xrpl.XRPAmount(xrpReserve),
		Amount2:    xrpl.TokenAmount(currency, issuer, tokenReserve),
		TradingFee: 500,
	}
}

// QueueResults scripts the results of the next submissions in order.
// tem, tef and tel codes are returned by submit; any other code is the
// validated result. Unscripted submissions succeed.
func (l *Ledger) QueueResults(codes ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, codes...)
}

// Submitted returns the signed blobs received so far.
func (l *Ledger) Submitted() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.submitted...)
}

// Dials returns how many clients were opened.
func (l *Ledger) Dials() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dials
}

// Closes returns how many clients were closed.
func (l *Ledger) Closes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closes
}

// Client opens a client on the ledger.
func (l *Ledger) Client() *Client {
	l.mu.Lock()
	l.dials++
	l.mu.Unlock()
	return &Client{ledger: l}
}

// Dial has the signature of an executor dialer.
func (l *Ledger) Dial(_ context.Context) (xrpl.Client, error) {
	if err := l.fault("dial"); err != nil {
		return nil, err
	}
	return l.Client(), nil
}

// fault returns the scripted error for command, panicking if scripted to.
// Caller must not hold mu.
func (l *Ledger) fault(command string) error {
	l.mu.Lock()
	p, doPanic := l.Panics[command]
	err := l.Errors[command]
	l.mu.Unlock()
	if doPanic {
		panic(p)
	}
	return err
}

// Client implements xrpl.Client against a Ledger.
type Client struct {
	ledger *Ledger
	closed bool
}

// Compile-time interface check.
var _ xrpl.Client = (*Client)(nil)

// AccountInfo returns the account root or actNotFound.
func (c *Client) AccountInfo(_ context.Context, account string, _ string) (*xrpl.AccountInfo, error) {
	if err := c.ledger.fault("account_info"); err != nil {
		return nil, err
	}
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	info, ok := l.accounts[account]
	if !ok {
		return nil, &xrpl.RPCError{Code: xrpl.ErrorCodeActNotFound, Message: "Account not found."}
	}
	out := *info
	out.LedgerIndex = l.ledgerIndex
	return &out, nil
}

// AccountLines returns the account's trust lines, filtered by peer.
func (c *Client) AccountLines(_ context.Context, account string, peer string) ([]xrpl.TrustLine, error) {
	if err := c.ledger.fault("account_lines"); err != nil {
		return nil, err
	}
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[account]; !ok {
		return nil, &xrpl.RPCError{Code: xrpl.ErrorCodeActNotFound}
	}
	var out []xrpl.TrustLine
	for _, line := range l.lines[account] {
		if peer == "" || line.Account == peer {
			out = append(out, line)
		}
	}
	return out, nil
}

// AMMInfo returns the pool for an XRP/token pair or actNotFound.
func (c *Client) AMMInfo(_ context.Context, asset, asset2 xrpl.Issue) (*xrpl.AMMInfo, error) {
	if err := c.ledger.fault("amm_info"); err != nil {
		return nil, err
	}
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	token := asset2
	if asset != xrpl.XRPIssue {
		token = asset
	}
	pool, ok := l.pools[token]
	if !ok {
		return nil, &xrpl.RPCError{Code: xrpl.ErrorCodeActNotFound, Message: "Account not found."}
	}
	out := *pool
	return &out, nil
}

// Fee returns the configured fee levels.
func (c *Client) Fee(_ context.Context) (*xrpl.FeeInfo, error) {
	if err := c.ledger.fault("fee"); err != nil {
		return nil, err
	}
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.fee
	out.LedgerCurrentIndex = l.ledgerIndex
	return &out, nil
}

// LedgerCurrent returns the current ledger index.
func (c *Client) LedgerCurrent(_ context.Context) (uint32, error) {
	if err := c.ledger.fault("ledger_current"); err != nil {
		return 0, err
	}
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ledgerIndex, nil
}

// ValidatedLedger returns the current index; the stub validates every ledger on close.
func (c *Client) ValidatedLedger(_ context.Context) (uint32, error) {
	if err := c.ledger.fault("ledger"); err != nil {
		return 0, err
	}
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ledgerIndex, nil
}

// Submit records the blob and applies the next scripted result.
func (c *Client) Submit(_ context.Context, txBlob string) (*xrpl.SubmitResult, error) {
	if err := c.ledger.fault("submit"); err != nil {
		return nil, err
	}
	hash, err := xrpl.HashTxBlob(txBlob)
	if err != nil {
		return nil, &xrpl.RPCError{Code: "invalidTransaction", Message: err.Error()}
	}

	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	l.submitted = append(l.submitted, txBlob)
	code := xrpl.ResultSuccess
	if len(l.results) > 0 {
		code = l.results[0]
		l.results = l.results[1:]
	}

	if strings.HasPrefix(code, "tem") || strings.HasPrefix(code, "tef") || strings.HasPrefix(code, "tel") {
		return &xrpl.SubmitResult{EngineResult: code, Hash: hash}, nil
	}

	l.ledgerIndex++
	l.txs[hash] = &xrpl.TxResult{
		Hash:              hash,
		Validated:         true,
		LedgerIndex:       l.ledgerIndex,
		TransactionResult: code,
	}
	return &xrpl.SubmitResult{
		EngineResult: xrpl.ResultSuccess,
		Accepted:     true,
		Hash:         hash,
	}, nil
}

// Tx returns a submitted transaction or txnNotFound.
func (c *Client) Tx(_ context.Context, hash string) (*xrpl.TxResult, error) {
	if err := c.ledger.fault("tx"); err != nil {
		return nil, err
	}
	l := c.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, ok := l.txs[hash]
	if !ok {
		return nil, &xrpl.RPCError{Code: xrpl.ErrorCodeTxnNotFound}
	}
	out := *tx
	return &out, nil
}

// Close marks the client closed.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.ledger.mu.Lock()
	c.ledger.closes++
	c.ledger.mu.Unlock()
	return nil
}
