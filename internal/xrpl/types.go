package xrpl

import (
	"encoding/json"
	"fmt"
)

// Issue identifies an asset: XRP (Currency "XRP", no issuer) or an issued currency.
type Issue struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer,omitempty"`
}

// XRPIssue is the native asset.
var XRPIssue = Issue{Currency: "XRP"}

// AccountInfo is the subset of account_data used here.
type AccountInfo struct {
	Account     string
	BalanceXRP  float64
	Sequence    uint32
	OwnerCount  uint32
	LedgerIndex uint32
}

// TrustLine is one entry of account_lines.
type TrustLine struct {
	Account  string `json:"account"` // counterparty (issuer)
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
	Limit    string `json:"limit"`
}

// AMMInfo is the pool state returned by amm_info.
type AMMInfo struct {
	Account    string
	Amount     Amount
	Amount2    Amount
	TradingFee int
}

// FeeInfo holds transaction cost levels in drops.
type FeeInfo struct {
	BaseFee            int64
	MinimumFee         int64
	OpenLedgerFee      int64
	LedgerCurrentIndex uint32
}

// SubmitResult is the preliminary outcome of submit.
type SubmitResult struct {
	EngineResult        string `json:"engine_result"`
	EngineResultCode    int    `json:"engine_result_code"`
	EngineResultMessage string `json:"engine_result_message"`
	Accepted            bool   `json:"accepted"`
	Hash                string `json:"-"`
}

// TxResult is the outcome of a tx lookup.
type TxResult struct {
	Hash              string
	Validated         bool
	LedgerIndex       uint32
	TransactionResult string
}

// Success reports whether the transaction validated with tesSUCCESS.
func (r *TxResult) Success() bool {
	return r != nil && r.Validated && r.TransactionResult == ResultSuccess
}

// Raw wire shapes.

type accountInfoResult struct {
	AccountData struct {
		Account    string `json:"Account"`
		Balance    string `json:"Balance"`
		Sequence   uint32 `json:"Sequence"`
		OwnerCount uint32 `json:"OwnerCount"`
	} `json:"account_data"`
	LedgerIndex        uint32 `json:"ledger_index"`
	LedgerCurrentIndex uint32 `json:"ledger_current_index"`
}

type accountLinesResult struct {
	Lines  []TrustLine     `json:"lines"`
	Marker json.RawMessage `json:"marker,omitempty"`
}

type ammInfoResult struct {
	AMM struct {
		Account    string `json:"account"`
		Amount     Amount `json:"amount"`
		Amount2    Amount `json:"amount2"`
		TradingFee int    `json:"trading_fee"`
	} `json:"amm"`
}

type feeResult struct {
	Drops struct {
		BaseFee       string `json:"base_fee"`
		MinimumFee    string `json:"minimum_fee"`
		OpenLedgerFee string `json:"open_ledger_fee"`
	} `json:"drops"`
	LedgerCurrentIndex uint32 `json:"ledger_current_index"`
}

type ledgerCurrentResult struct {
	LedgerCurrentIndex uint32 `json:"ledger_current_index"`
}

type ledgerResult struct {
	LedgerIndex uint32 `json:"ledger_index"`
	Validated   bool   `json:"validated"`
}

type submitResult struct {
	SubmitResult
	TxJSON struct {
		Hash string `json:"hash"`
	} `json:"tx_json"`
}

type txResult struct {
	Hash        string `json:"hash"`
	Validated   bool   `json:"validated"`
	LedgerIndex uint32 `json:"ledger_index"`
	Meta        *struct {
		TransactionResult string `json:"TransactionResult"`
	} `json:"meta"`
}

// RPCError is an error response from the server.
type RPCError struct {
	Code    string // e.g. actNotFound
	Number  int
	Message string
}

func (e *RPCError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("xrpl error %s", e.Code)
	}
	return fmt.Sprintf("xrpl error %s: %s", e.Code, e.Message)
}
