package executor

import (
	"testing"

	"xrpl-amm-bot/internal/domain"
	"xrpl-amm-bot/internal/xrpl"
)

const testIssuer = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"

func TestBuildPayment_Buy(t *testing.T) {
	token := domain.TargetToken{Currency: "USD", Issuer: testIssuer}
	p, err := BuildPayment(domain.DirectionBuy, 2, 4000, 10, token, "rAccount")
	if err != nil {
		t.Fatalf("BuildPayment() error = %v", err)
	}

	if p.Account != "rAccount" || p.Destination != "rAccount" {
		t.Errorf("payment is not a self-payment: %s -> %s", p.Account, p.Destination)
	}
	if p.Amount.IsXRP() || p.Amount.Currency != "USD" || p.Amount.Issuer != testIssuer {
		t.Errorf("Amount = %+v, want USD token", p.Amount)
	}
	if want := xrpl.FormatTokenValue(4000 / SlippageMultiplier(10)); p.Amount.Value != want {
		t.Errorf("Amount.Value = %s, want %s", p.Amount.Value, want)
	}
	if p.SendMax == nil || !p.SendMax.IsXRP() {
		t.Fatalf("SendMax = %+v, want XRP", p.SendMax)
	}
	if p.SendMax.Drops != "2200000" {
		t.Errorf("SendMax.Drops = %s, want 2200000", p.SendMax.Drops)
	}
}

func TestBuildPayment_Sell(t *testing.T) {
	token := domain.TargetToken{Currency: "USD", Issuer: testIssuer}
	p, err := BuildPayment(domain.DirectionSell, 2, 4000, 10, token, "rAccount")
	if err != nil {
		t.Fatalf("BuildPayment() error = %v", err)
	}

	if !p.Amount.IsXRP() {
		t.Fatalf("Amount = %+v, want XRP", p.Amount)
	}
	// 2/1.1 = 1.81818181..., floored to 1.818181 XRP.
	if p.Amount.Drops != "1818181" {
		t.Errorf("Amount.Drops = %s, want 1818181", p.Amount.Drops)
	}
	if p.SendMax == nil || p.SendMax.IsXRP() {
		t.Fatalf("SendMax = %+v, want token", p.SendMax)
	}
	if want := xrpl.FormatTokenValue(4000 * SlippageMultiplier(10)); p.SendMax.Value != want {
		t.Errorf("SendMax.Value = %s, want %s", p.SendMax.Value, want)
	}
}

func TestBuildPayment_LongCurrency(t *testing.T) {
	token := domain.TargetToken{Currency: "SOLO", Issuer: testIssuer}
	p, err := BuildPayment(domain.DirectionBuy, 1, 100, 0, token, "rAccount")
	if err != nil {
		t.Fatalf("BuildPayment() error = %v", err)
	}
	if p.Amount.Currency != "534F4C4F00000000000000000000000000000000" {
		t.Errorf("Amount.Currency = %s", p.Amount.Currency)
	}
}

func TestBuildPayment_Invalid(t *testing.T) {
	token := domain.TargetToken{Currency: "USD", Issuer: testIssuer}

	if _, err := BuildPayment(domain.DirectionBuy, 0, 100, 5, token, "r"); err == nil {
		t.Error("zero XRP amount should fail")
	}
	if _, err := BuildPayment(domain.DirectionSell, 1, -1, 5, token, "r"); err == nil {
		t.Error("negative token amount should fail")
	}
	if _, err := BuildPayment(domain.DirectionSell, 0.0000001, 1, 5, token, "r"); err == nil {
		t.Error("sub-drop XRP amount should fail")
	}
	if _, err := BuildPayment("HOLD", 1, 1, 5, token, "r"); err == nil {
		t.Error("unknown direction should fail")
	}
}
