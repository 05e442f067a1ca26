package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func qty(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestSnapZero(t *testing.T) {
	assert.True(t, SnapZero(decimal.RequireFromString("0.0000000000001")).IsZero())
	assert.True(t, SnapZero(decimal.RequireFromString("-0.000000000001")).IsZero())
	assert.False(t, SnapZero(decimal.RequireFromString("0.00000000001")).IsZero())
}

func TestAsset_Record(t *testing.T) {
	a := NewAsset("SE0000000001")
	a.Record(Transaction{Date: date(2024, 3, 1), Bank: BankAvanza, Account: "ISK", Type: TxDividend, Name: "Acme", Currency: "USD"})
	a.Record(Transaction{Date: date(2024, 1, 1), Bank: BankAvanza, Account: "KF", Type: TxBuy, Name: "Acme B", Currency: "SEK"})
	a.Record(Transaction{Date: date(2024, 2, 1), Bank: BankAvanza, Account: "ISK", Type: TxSell, Name: "Acme"})
	a.Record(Transaction{Date: date(2024, 2, 1), Bank: BankNordnet, Account: "AF", Type: TxBuy, Name: "Acme"})

	assert.Equal(t, "Acme", a.Name)
	assert.Equal(t, "SEK", a.Currency)
	assert.Equal(t, date(2024, 1, 1), a.FirstTransactionDate)
	assert.Equal(t, date(2024, 3, 1), a.LastTransactionDate)
	assert.Equal(t, []string{"ISK", "KF"}, a.BankAccounts[BankAvanza])
	assert.Equal(t, []string{"AF"}, a.BankAccounts[BankNordnet])
	assert.Equal(t, []string{"Acme", "Acme B"}, a.TransactionNames)
	assert.Len(t, a.Transactions, 4)
}

func TestAsset_AddShares(t *testing.T) {
	a := NewAsset("SE0000000001")
	a.AddShares(decimal.RequireFromString("0.3"))
	a.AddShares(decimal.RequireFromString("-0.1"))
	a.AddShares(decimal.RequireFromString("-0.2"))
	assert.True(t, a.CurrentNumberOfShares.IsZero())
	assert.False(t, a.IsHeld())

	a.AddShares(decimal.NewFromInt(5))
	assert.True(t, a.IsHeld())
}

func TestAsset_NetQuantity(t *testing.T) {
	a := NewAsset("SE0000000001")
	a.Record(Transaction{Type: TxBuy, Quantity: qty("10")})
	a.Record(Transaction{Type: TxSell, Quantity: qty("-4")})
	a.Record(Transaction{Type: TxShareSplit, Quantity: qty("6")})
	a.Record(Transaction{Type: TxShareTransfer, Quantity: qty("-2")})
	a.Record(Transaction{Type: TxDividend, Quantity: qty("10")})
	a.Record(Transaction{Type: TxBuy})

	assert.True(t, a.NetQuantity().Equal(decimal.NewFromInt(10)), a.NetQuantity().String())
}

func TestAsset_CurrentValue(t *testing.T) {
	a := NewAsset("SE0000000001")
	assert.True(t, a.CurrentValue().IsZero())
	a.CurrentValueOfShares = decimal.NewNullDecimal(decimal.NewFromInt(250))
	assert.True(t, a.CurrentValue().Equal(decimal.NewFromInt(250)))
}

func TestLedger(t *testing.T) {
	l := NewLedger()
	b := l.Asset("B")
	assert.Same(t, b, l.Asset("B"))
	l.Asset("A")

	sorted := l.SortedAssets()
	assert.Equal(t, "A", sorted[0].ISIN)
	assert.Equal(t, "B", sorted[1].ISIN)
}

func TestOverview_SortCashFlows(t *testing.T) {
	o := NewOverview()
	o.AppendCashFlow(Transaction{Date: date(2024, 2, 1), Name: "second", Amount: qty("5")})
	o.AppendCashFlow(Transaction{Date: date(2024, 1, 1), Name: "first"})
	o.AppendCashFlow(Transaction{Date: date(2024, 2, 1), Name: "third"})

	o.SortCashFlows()

	assert.Equal(t, "first", o.CashFlows[0].Name)
	assert.True(t, o.CashFlows[0].Amount.IsZero())
	assert.Equal(t, "second", o.CashFlows[1].Name)
	assert.Equal(t, "third", o.CashFlows[2].Name)
}
