// Package models defines data structures for Folio
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Bank identifies the institution a transaction was exported from.
type Bank string

const (
	BankAvanza       Bank = "AVANZA"
	BankNordnet      Bank = "NORDNET"
	BankNotSpecified Bank = "NOT_SPECIFIED"
)

var validBanks = map[Bank]bool{
	BankAvanza:       true,
	BankNordnet:      true,
	BankNotSpecified: true,
}

// ParseBank maps a case-insensitive bank name onto the closed Bank set.
func ParseBank(s string) (Bank, error) {
	b := Bank(strings.ToUpper(strings.TrimSpace(s)))
	if b == "" {
		return BankNotSpecified, nil
	}
	if !validBanks[b] {
		return "", fmt.Errorf("unknown bank %q", s)
	}
	return b, nil
}

// TransactionType is the closed set of normalized transaction kinds.
type TransactionType string

const (
	TxBuy                           TransactionType = "buy"
	TxSell                          TransactionType = "sell"
	TxDividend                      TransactionType = "dividend"
	TxFee                           TransactionType = "fee"
	TxTax                           TransactionType = "tax"
	TxForeignWithholdingTax         TransactionType = "foreign_withholding_tax"
	TxReturnedForeignWithholdingTax TransactionType = "returned_foreign_withholding_tax"
	TxInterest                      TransactionType = "interest"
	TxShareTransfer                 TransactionType = "share_transfer"
	TxShareSplit                    TransactionType = "share_split"
	TxDeposit                       TransactionType = "deposit"
	TxWithdrawal                    TransactionType = "withdrawal"
	TxShareLoanPayout               TransactionType = "share_loan_payout"
	TxOther                         TransactionType = "other"
	TxCurrentHolding                TransactionType = "current_holding"
)

// TransactionTypes lists every member of the closed set in declaration order.
var TransactionTypes = []TransactionType{
	TxBuy, TxSell, TxDividend, TxFee, TxTax, TxForeignWithholdingTax,
	TxReturnedForeignWithholdingTax, TxInterest, TxShareTransfer, TxShareSplit,
	TxDeposit, TxWithdrawal, TxShareLoanPayout, TxOther, TxCurrentHolding,
}

// Valid reports whether t is a member of the closed set.
func (t TransactionType) Valid() bool {
	for _, v := range TransactionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsExternalFlow reports whether t moves capital into or out of the account.
func (t TransactionType) IsExternalFlow() bool {
	return t == TxDeposit || t == TxWithdrawal
}

// IsTrade reports whether t is a buy or a sell.
func (t TransactionType) IsTrade() bool {
	return t == TxBuy || t == TxSell
}

// Transaction is a single normalized brokerage record. It is produced by an
// external normalizer and treated as read-only by every component.
type Transaction struct {
	Date             time.Time           `json:"date"`
	Bank             Bank                `json:"bank"`
	Account          string              `json:"account"`
	Type             TransactionType     `json:"type"`
	Name             string              `json:"name"`
	Description      string              `json:"description,omitempty"`
	Quantity         decimal.NullDecimal `json:"quantity"`
	Price            decimal.NullDecimal `json:"price"`
	PricePerShareSEK decimal.NullDecimal `json:"price_per_share_sek"`
	Amount           decimal.NullDecimal `json:"amount"`
	Commission       decimal.NullDecimal `json:"commission"`
	Currency         string              `json:"currency"`
	ISIN             string              `json:"isin,omitempty"`
	ExchangeRate     decimal.NullDecimal `json:"exchange_rate"`
}

// QuantityOrZero returns the signed quantity, or zero when absent.
func (t Transaction) QuantityOrZero() decimal.Decimal {
	if t.Quantity.Valid {
		return t.Quantity.Decimal
	}
	return decimal.Zero
}

// AmountOrZero returns the signed amount, or zero when absent.
func (t Transaction) AmountOrZero() decimal.Decimal {
	if t.Amount.Valid {
		return t.Amount.Decimal
	}
	return decimal.Zero
}

// CommissionOrZero returns the commission, or zero when absent.
func (t Transaction) CommissionOrZero() decimal.Decimal {
	if t.Commission.Valid {
		return t.Commission.Decimal
	}
	return decimal.Zero
}

// HasISIN reports whether the transaction refers to an instrument.
func (t Transaction) HasISIN() bool {
	return strings.TrimSpace(t.ISIN) != ""
}

const dateLayout = "2006-01-02"

// UnmarshalJSON accepts the date either as RFC 3339 or as a plain YYYY-MM-DD
// and rejects banks outside the closed set.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type alias Transaction
	aux := struct {
		Date string `json:"date"`
		*alias
	}{alias: (*alias)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d, err := ParseDate(aux.Date)
	if err != nil {
		return err
	}
	t.Date = d
	bank, err := ParseBank(string(t.Bank))
	if err != nil {
		return err
	}
	t.Bank = bank
	return nil
}

// ParseDate parses a YYYY-MM-DD or RFC 3339 date and truncates it to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(dateLayout, s); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return DateOf(d), nil
}

// DateOf drops the time-of-day component of t.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SortTransactions orders transactions by date, then bank, then ISIN. The sort
// is stable so same-key records keep their export order.
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Bank != b.Bank {
			return a.Bank < b.Bank
		}
		return a.ISIN < b.ISIN
	})
}

// TransactionsDigest returns a SHA-256 content hash of txs, used to key
// cached snapshots built from them.
func TransactionsDigest(txs []Transaction) (string, error) {
	data, err := json.Marshal(txs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transactions: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
