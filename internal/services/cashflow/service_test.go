package cashflow

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func flow(date time.Time, amount string, typ models.TransactionType, isin string) models.CashFlow {
	return models.CashFlow{Date: date, Amount: dec(amount), Type: typ, ISIN: isin, Bank: models.BankAvanza}
}

func sampleFlows() []models.CashFlow {
	return []models.CashFlow{
		flow(day(2024, 3, 1), "250", models.TxDividend, "SE1"),
		flow(day(2024, 1, 1), "1000", models.TxDeposit, ""),
		flow(day(2024, 1, 2), "-800", models.TxBuy, "SE1"),
		flow(day(2024, 2, 1), "-300", models.TxWithdrawal, ""),
		flow(day(2024, 2, 15), "-5", models.TxFee, "SE1"),
		flow(day(2024, 2, 20), "12", models.TxInterest, ""),
		flow(day(2024, 4, 1), "900", models.TxCurrentHolding, "SE1"),
		flow(day(2024, 1, 5), "-400", models.TxBuy, "SE2"),
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    models.XIRRMethod
		wantErr bool
	}{
		{"portfolio", models.XIRRPortfolio, false},
		{" Holding ", models.XIRRHolding, false},
		{"simple", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownMethod) {
				t.Errorf("ParseMethod(%q) error = %v, want ErrUnknownMethod", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseMethod(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestSelectXIRRFlows_Portfolio(t *testing.T) {
	svc := NewService(common.NewSilentLogger())
	flows, err := svc.SelectXIRRFlows(sampleFlows(), models.XIRRPortfolio, "")
	if err != nil {
		t.Fatalf("SelectXIRRFlows failed: %v", err)
	}

	// deposit, withdrawal, fee, dividend, current holding; buys and interest excluded
	if len(flows) != 5 {
		t.Fatalf("expected 5 flows, got %d", len(flows))
	}
	if flows[0].Type != models.TxDeposit || !flows[0].Amount.Equal(dec("-1000")) {
		t.Errorf("deposit should be first and negative, got %s %s", flows[0].Type, flows[0].Amount)
	}
	if flows[1].Type != models.TxWithdrawal || !flows[1].Amount.Equal(dec("300")) {
		t.Errorf("withdrawal should be positive, got %s %s", flows[1].Type, flows[1].Amount)
	}
	for i := 1; i < len(flows); i++ {
		if flows[i].Date.Before(flows[i-1].Date) {
			t.Errorf("flows not sorted at %d", i)
		}
	}
}

func TestSelectXIRRFlows_DoesNotMutateLedger(t *testing.T) {
	svc := NewService(common.NewSilentLogger())
	ledger := sampleFlows()
	if _, err := svc.SelectXIRRFlows(ledger, models.XIRRPortfolio, ""); err != nil {
		t.Fatal(err)
	}
	if !ledger[1].Amount.Equal(dec("1000")) {
		t.Errorf("ledger deposit changed to %s", ledger[1].Amount)
	}
}

func TestSelectXIRRFlows_Holding(t *testing.T) {
	svc := NewService(common.NewSilentLogger())
	flows, err := svc.SelectXIRRFlows(sampleFlows(), models.XIRRHolding, "SE1")
	if err != nil {
		t.Fatalf("SelectXIRRFlows failed: %v", err)
	}
	if len(flows) != 4 {
		t.Fatalf("expected buy, fee, dividend, current holding for SE1; got %d", len(flows))
	}
	if !flows[0].Amount.Equal(dec("-800")) {
		t.Errorf("holding method keeps raw signs, got %s", flows[0].Amount)
	}

	if _, err := svc.SelectXIRRFlows(sampleFlows(), models.XIRRHolding, ""); err == nil {
		t.Error("expected error without ISIN")
	}
	if _, err := svc.SelectXIRRFlows(sampleFlows(), "bogus", ""); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestBalance(t *testing.T) {
	flows := sampleFlows()

	// everything except the current holding snapshot
	all := Balance(flows, day(2025, 1, 1))
	if !all.Equal(dec("-243")) {
		t.Errorf("Balance = %s, want -243", all)
	}

	// strictly before cutoff
	early := Balance(flows, day(2024, 1, 5))
	if !early.Equal(dec("200")) {
		t.Errorf("Balance before 2024-01-05 = %s, want 200", early)
	}
}

func TestCapitalSummary(t *testing.T) {
	svc := NewService(common.NewSilentLogger())
	overview := models.NewOverview()
	overview.DepositAmountTotal = dec("1000")
	overview.WithdrawalAmountTotal = dec("300")
	overview.TotalCurrentHoldings = dec("900")
	overview.CashFlows = sampleFlows()

	s := svc.CapitalSummary(overview)

	if !s.NetCapitalDeployed.Equal(dec("700")) {
		t.Errorf("NetCapitalDeployed = %s, want 700", s.NetCapitalDeployed)
	}
	if !s.CashBalance.Equal(dec("-243")) {
		t.Errorf("CashBalance = %s, want -243", s.CashBalance)
	}
	if !s.CurrentPortfolioValue.Equal(dec("657")) {
		t.Errorf("CurrentPortfolioValue = %s, want 657", s.CurrentPortfolioValue)
	}
	// (657 - 700) / 700 * 100 = -6.142857...
	if !s.SimpleReturnPct.Equal(dec("-6.14")) {
		t.Errorf("SimpleReturnPct = %s, want -6.14", s.SimpleReturnPct)
	}
	if s.TransactionCount != 7 {
		t.Errorf("TransactionCount = %d, want 7", s.TransactionCount)
	}
	if s.FirstTransactionDate == nil || !s.FirstTransactionDate.Equal(day(2024, 1, 1)) {
		t.Errorf("FirstTransactionDate = %v", s.FirstTransactionDate)
	}
}

func TestCapitalSummary_NoCapital(t *testing.T) {
	svc := NewService(common.NewSilentLogger())
	s := svc.CapitalSummary(models.NewOverview())
	if !s.SimpleReturnPct.IsZero() || s.FirstTransactionDate != nil {
		t.Errorf("empty ledger summary = %+v", s)
	}
}
