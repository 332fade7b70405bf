package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handlerFunc answers one request with a result, or an error code when errCode is set.
type handlerFunc func(req map[string]interface{}) (result interface{}, errCode string)

func newTestNode(t *testing.T, handle handlerFunc) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req map[string]interface{}
			if err := json.Unmarshal(msg, &req); err != nil {
				t.Errorf("unmarshal request: %v", err)
				return
			}

			result, errCode := handle(req)
			resp := map[string]interface{}{"id": req["id"], "type": "response"}
			if errCode != "" {
				resp["status"] = "error"
				resp["error"] = errCode
				resp["error_message"] = "forced"
			} else {
				resp["status"] = "success"
				resp["result"] = result
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dialTestNode(t *testing.T, url string) *WSClient {
	t.Helper()
	cfg := DefaultWSConfig()
	cfg.RequestsPerSecond = 0
	cfg.RequestTimeout = 2 * time.Second

	client, err := Dial(context.Background(), url, &cfg)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestWSClient_AccountInfo(t *testing.T) {
	url := newTestNode(t, func(req map[string]interface{}) (interface{}, string) {
		if req["command"] != "account_info" {
			t.Errorf("command = %v", req["command"])
		}
		if req["ledger_index"] != LedgerValidated {
			t.Errorf("ledger_index = %v", req["ledger_index"])
		}
		return map[string]interface{}{
			"account_data": map[string]interface{}{
				"Account":    req["account"],
				"Balance":    "25500000",
				"Sequence":   42,
				"OwnerCount": 3,
			},
			"ledger_index": 900,
		}, ""
	})

	client := dialTestNode(t, url)
	info, err := client.AccountInfo(context.Background(), "rWallet", LedgerValidated)
	if err != nil {
		t.Fatalf("AccountInfo: %v", err)
	}
	if info.BalanceXRP != 25.5 || info.Sequence != 42 || info.OwnerCount != 3 || info.LedgerIndex != 900 {
		t.Errorf("unexpected account info: %+v", info)
	}
}

func TestWSClient_RPCError(t *testing.T) {
	url := newTestNode(t, func(req map[string]interface{}) (interface{}, string) {
		return nil, ErrorCodeActNotFound
	})

	client := dialTestNode(t, url)
	_, err := client.AccountInfo(context.Background(), "rMissing", LedgerValidated)

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *RPCError, got %v", err)
	}
	if !IsErrorCode(err, ErrorCodeActNotFound) {
		t.Errorf("code = %s", rpcErr.Code)
	}
}

func TestWSClient_AccountLinesPagination(t *testing.T) {
	var calls atomic.Int32
	url := newTestNode(t, func(req map[string]interface{}) (interface{}, string) {
		calls.Add(1)
		if req["peer"] != "rIssuer" {
			t.Errorf("peer = %v", req["peer"])
		}
		if _, ok := req["marker"]; !ok {
			return map[string]interface{}{
				"lines": []map[string]string{
					{"account": "rIssuer", "balance": "10", "currency": "USD", "limit": "1000"},
				},
				"marker": "page2",
			}, ""
		}
		if req["marker"] != "page2" {
			t.Errorf("marker = %v", req["marker"])
		}
		return map[string]interface{}{
			"lines": []map[string]string{
				{"account": "rIssuer", "balance": "5.5", "currency": "USD", "limit": "1000"},
			},
		}, ""
	})

	client := dialTestNode(t, url)
	lines, err := client.AccountLines(context.Background(), "rWallet", "rIssuer")
	if err != nil {
		t.Fatalf("AccountLines: %v", err)
	}
	if len(lines) != 2 || calls.Load() != 2 {
		t.Fatalf("got %d lines in %d calls, want 2 in 2", len(lines), calls.Load())
	}
	if lines[1].Balance != "5.5" {
		t.Errorf("second line balance = %s", lines[1].Balance)
	}
}

func TestWSClient_AMMInfo(t *testing.T) {
	url := newTestNode(t, func(req map[string]interface{}) (interface{}, string) {
		asset := req["asset"].(map[string]interface{})
		if asset["currency"] != "XRP" || asset["issuer"] != nil {
			t.Errorf("asset = %v", asset)
		}
		asset2 := req["asset2"].(map[string]interface{})
		if asset2["currency"] != "USD" || asset2["issuer"] != "rIssuer" {
			t.Errorf("asset2 = %v", asset2)
		}
		return map[string]interface{}{
			"amm": map[string]interface{}{
				"account":     "rPool",
				"amount":      "1000000000",
				"amount2":     map[string]string{"currency": "USD", "issuer": "rIssuer", "value": "2000000"},
				"trading_fee": 600,
			},
		}, ""
	})

	client := dialTestNode(t, url)
	info, err := client.AMMInfo(context.Background(), XRPIssue, Issue{Currency: "USD", Issuer: "rIssuer"})
	if err != nil {
		t.Fatalf("AMMInfo: %v", err)
	}
	xrp, _ := info.Amount.Float()
	tokens, _ := info.Amount2.Float()
	if xrp != 1000 || tokens != 2000000 || info.TradingFee != 600 {
		t.Errorf("unexpected pool: %+v", info)
	}
}

func TestWSClient_FeeAndLedger(t *testing.T) {
	url := newTestNode(t, func(req map[string]interface{}) (interface{}, string) {
		switch req["command"] {
		case "fee":
			return map[string]interface{}{
				"drops": map[string]string{
					"base_fee":        "10",
					"minimum_fee":     "10",
					"open_ledger_fee": "15",
				},
				"ledger_current_index": 500,
			}, ""
		case "ledger_current":
			return map[string]interface{}{"ledger_current_index": 501}, ""
		case "ledger":
			if req["ledger_index"] != "validated" {
				return nil, "invalidParams"
			}
			return map[string]interface{}{"ledger_index": 499, "ledger_hash": "ABCD", "validated": true}, ""
		}
		return nil, "unknownCmd"
	})

	client := dialTestNode(t, url)
	fee, err := client.Fee(context.Background())
	if err != nil {
		t.Fatalf("Fee: %v", err)
	}
	if fee.BaseFee != 10 || fee.OpenLedgerFee != 15 || fee.LedgerCurrentIndex != 500 {
		t.Errorf("unexpected fee: %+v", fee)
	}

	current, err := client.LedgerCurrent(context.Background())
	if err != nil {
		t.Fatalf("LedgerCurrent: %v", err)
	}
	if current != 501 {
		t.Errorf("current = %d, want 501", current)
	}

	validated, err := client.ValidatedLedger(context.Background())
	if err != nil {
		t.Fatalf("ValidatedLedger: %v", err)
	}
	if validated != 499 {
		t.Errorf("validated = %d, want 499", validated)
	}
}

func TestWSClient_SubmitAndTx(t *testing.T) {
	url := newTestNode(t, func(req map[string]interface{}) (interface{}, string) {
		switch req["command"] {
		case "submit":
			if req["tx_blob"] != "ABCD" {
				t.Errorf("tx_blob = %v", req["tx_blob"])
			}
			return map[string]interface{}{
				"engine_result":      "tesSUCCESS",
				"engine_result_code": 0,
				"accepted":           true,
				"tx_json":            map[string]string{"hash": "HASH1"},
			}, ""
		case "tx":
			return map[string]interface{}{
				"hash":         req["transaction"],
				"validated":    true,
				"ledger_index": 77,
				"meta":         map[string]string{"TransactionResult": "tecPATH_PARTIAL"},
			}, ""
		}
		return nil, "unknownCmd"
	})

	client := dialTestNode(t, url)
	sub, err := client.Submit(context.Background(), "ABCD")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.EngineResult != ResultSuccess || sub.Hash != "HASH1" || !sub.Accepted {
		t.Errorf("unexpected submit result: %+v", sub)
	}

	tx, err := client.Tx(context.Background(), "HASH1")
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if !tx.Validated || tx.TransactionResult != ResultPathPartial || tx.Success() {
		t.Errorf("unexpected tx: %+v", tx)
	}
}

func TestWSClient_Closed(t *testing.T) {
	url := newTestNode(t, func(req map[string]interface{}) (interface{}, string) {
		return map[string]interface{}{"ledger_current_index": 1}, ""
	})

	client := dialTestNode(t, url)
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := client.LedgerCurrent(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("error after close = %v, want ErrClosed", err)
	}
}

func TestWSClient_ContextTimeout(t *testing.T) {
	url := newTestNode(t, func(req map[string]interface{}) (interface{}, string) {
		time.Sleep(200 * time.Millisecond)
		return map[string]interface{}{"ledger_current_index": 1}, ""
	})

	client := dialTestNode(t, url)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := client.LedgerCurrent(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}
