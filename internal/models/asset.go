package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Tolerance is the magnitude below which a decimal aggregate is treated as zero.
var Tolerance = decimal.New(1, -12)

// SnapZero returns zero when d is within Tolerance of zero, d otherwise.
func SnapZero(d decimal.Decimal) decimal.Decimal {
	if d.Abs().LessThanOrEqual(Tolerance) {
		return decimal.Zero
	}
	return d
}

// Asset is the per-instrument aggregate for one calculation run, keyed by ISIN.
type Asset struct {
	Name     string `json:"name"`
	ISIN     string `json:"isin"`
	Currency string `json:"currency,omitempty"`

	Buy                   decimal.Decimal `json:"buy"`
	Sell                  decimal.Decimal `json:"sell"`
	Dividend              decimal.Decimal `json:"dividend"`
	CommissionBuy         decimal.Decimal `json:"commission_buy"`
	CommissionSell        decimal.Decimal `json:"commission_sell"`
	Fee                   decimal.Decimal `json:"fee"`
	ForeignWithholdingTax decimal.Decimal `json:"foreign_withholding_tax"`

	CurrentNumberOfShares decimal.Decimal     `json:"current_number_of_shares"`
	CostBasis             decimal.Decimal     `json:"cost_basis"`
	RealizedGainLoss      decimal.Decimal     `json:"realized_gain_loss"`
	UnrealizedGainLoss    decimal.Decimal     `json:"unrealized_gain_loss"`
	CurrentPricePerShare  decimal.NullDecimal `json:"current_price_per_share"`
	CurrentValueOfShares  decimal.NullDecimal `json:"current_value_of_shares"`
	XIRR                  *float64            `json:"xirr,omitempty"`

	FirstTransactionDate time.Time         `json:"first_transaction_date"`
	LastTransactionDate  time.Time         `json:"last_transaction_date"`
	BankAccounts         map[Bank][]string `json:"bank_accounts"`
	TransactionNames     []string          `json:"transaction_names"`
	Transactions         []Transaction     `json:"transactions"`
}

// NewAsset creates an empty asset for the given ISIN.
func NewAsset(isin string) *Asset {
	return &Asset{
		ISIN:         isin,
		BankAccounts: make(map[Bank][]string),
	}
}

// Record appends tx to the asset's history and updates its audit metadata.
func (a *Asset) Record(tx Transaction) {
	if a.Name == "" {
		a.Name = tx.Name
	}
	if a.Currency == "" && tx.Currency != "" && tx.Type.IsTrade() {
		a.Currency = tx.Currency
	}
	if a.FirstTransactionDate.IsZero() || tx.Date.Before(a.FirstTransactionDate) {
		a.FirstTransactionDate = tx.Date
	}
	if tx.Date.After(a.LastTransactionDate) {
		a.LastTransactionDate = tx.Date
	}
	a.addBankAccount(tx.Bank, tx.Account)
	a.addTransactionName(tx.Name)
	a.Transactions = append(a.Transactions, tx)
}

// AddShares adjusts the held quantity by a signed delta, snapping near-zero
// results to exactly zero.
func (a *Asset) AddShares(delta decimal.Decimal) {
	a.CurrentNumberOfShares = SnapZero(a.CurrentNumberOfShares.Add(delta))
}

// IsHeld reports whether the asset currently has a positive share count.
func (a *Asset) IsHeld() bool {
	return a.CurrentNumberOfShares.IsPositive()
}

// CurrentValue returns the last valuation, or zero when none was made.
func (a *Asset) CurrentValue() decimal.Decimal {
	if a.CurrentValueOfShares.Valid {
		return a.CurrentValueOfShares.Decimal
	}
	return decimal.Zero
}

// NetQuantity sums the signed quantities of every share-moving transaction in
// the asset's history, including transfers and splits.
func (a *Asset) NetQuantity() decimal.Decimal {
	net := decimal.Zero
	for _, tx := range a.Transactions {
		switch tx.Type {
		case TxBuy, TxSell, TxShareSplit, TxShareTransfer:
			net = net.Add(tx.QuantityOrZero())
		}
	}
	return net
}

func (a *Asset) addBankAccount(bank Bank, account string) {
	if a.BankAccounts == nil {
		a.BankAccounts = make(map[Bank][]string)
	}
	accounts := a.BankAccounts[bank]
	for _, existing := range accounts {
		if existing == account {
			return
		}
	}
	accounts = append(accounts, account)
	sort.Strings(accounts)
	a.BankAccounts[bank] = accounts
}

func (a *Asset) addTransactionName(name string) {
	if name == "" {
		return
	}
	for _, existing := range a.TransactionNames {
		if existing == name {
			return
		}
	}
	a.TransactionNames = append(a.TransactionNames, name)
}
