package xrpl

import "context"

// Ledger selectors for account queries.
const (
	LedgerValidated = "validated"
	LedgerCurrent   = "current"
)

// Client defines the XRPL websocket API subset the executor depends on.
type Client interface {
	// AccountInfo returns the account root at the given ledger (LedgerValidated or LedgerCurrent).
	// Returns an *RPCError with code actNotFound for unfunded accounts.
	AccountInfo(ctx context.Context, account string, ledger string) (*AccountInfo, error)

	// AccountLines returns all trust lines of account, optionally restricted to one peer.
	AccountLines(ctx context.Context, account string, peer string) ([]TrustLine, error)

	// AMMInfo returns the pool for the asset pair.
	// Returns an *RPCError with code actNotFound when no pool exists.
	AMMInfo(ctx context.Context, asset, asset2 Issue) (*AMMInfo, error)

	// Fee returns the current transaction cost levels.
	Fee(ctx context.Context) (*FeeInfo, error)

	// LedgerCurrent returns the index of the current open ledger.
	LedgerCurrent(ctx context.Context) (uint32, error)

	// ValidatedLedger returns the index of the most recent validated ledger.
	ValidatedLedger(ctx context.Context) (uint32, error)

	// Submit submits a signed transaction blob (hex).
	Submit(ctx context.Context, txBlob string) (*SubmitResult, error)

	// Tx looks up a transaction by hash.
	// Returns an *RPCError with code txnNotFound if the server does not know it.
	Tx(ctx context.Context, hash string) (*TxResult, error)

	// Close closes the underlying connection.
	Close() error
}
