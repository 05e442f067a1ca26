package portfolio

import (
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/models"
)

// handler applies one transaction type. asset is used when the transaction
// carries an ISIN, account when it does not; a nil side means the type is not
// supported at that level. cashFlow marks types that move money.
type handler struct {
	asset    func(a *models.Asset, o *models.Overview, tx models.Transaction)
	account  func(o *models.Overview, tx models.Transaction)
	cashFlow bool
}

// handlers is the single dispatch table over the closed TransactionType set.
// Types without an entry (other, current_holding) are never routed.
var handlers = map[models.TransactionType]handler{
	models.TxBuy: {
		asset: func(a *models.Asset, o *models.Overview, tx models.Transaction) {
			spent := tx.AmountOrZero().Neg()
			commission := tx.CommissionOrZero().Abs()
			a.Buy = a.Buy.Add(spent)
			a.CommissionBuy = a.CommissionBuy.Add(commission)
			a.AddShares(tx.QuantityOrZero())
			o.TotalBuyAmount = o.TotalBuyAmount.Add(spent)
			o.TotalBuyCommission = o.TotalBuyCommission.Add(commission)
		},
		cashFlow: true,
	},
	models.TxSell: {
		asset: func(a *models.Asset, o *models.Overview, tx models.Transaction) {
			received := tx.AmountOrZero()
			commission := tx.CommissionOrZero().Abs()
			a.Sell = a.Sell.Add(received)
			a.CommissionSell = a.CommissionSell.Add(commission)
			a.AddShares(tx.QuantityOrZero())
			o.TotalSellAmount = o.TotalSellAmount.Add(received)
			o.TotalSellCommission = o.TotalSellCommission.Add(commission)
		},
		cashFlow: true,
	},
	models.TxDividend: {
		asset: func(a *models.Asset, o *models.Overview, tx models.Transaction) {
			a.Dividend = a.Dividend.Add(tx.AmountOrZero())
			o.TotalDividend = o.TotalDividend.Add(tx.AmountOrZero())
		},
		cashFlow: true,
	},
	models.TxShareSplit: {
		asset: func(a *models.Asset, _ *models.Overview, tx models.Transaction) {
			a.AddShares(tx.QuantityOrZero())
		},
	},
	models.TxShareTransfer: {
		asset: func(a *models.Asset, _ *models.Overview, tx models.Transaction) {
			a.AddShares(tx.QuantityOrZero())
		},
	},
	models.TxForeignWithholdingTax: {
		asset: func(a *models.Asset, o *models.Overview, tx models.Transaction) {
			a.ForeignWithholdingTax = a.ForeignWithholdingTax.Add(tx.AmountOrZero())
			o.TotalForeignWithholdingTax = o.TotalForeignWithholdingTax.Add(tx.AmountOrZero())
		},
		cashFlow: true,
	},
	models.TxFee: {
		asset: func(a *models.Asset, o *models.Overview, tx models.Transaction) {
			a.Fee = a.Fee.Add(tx.AmountOrZero())
			o.TotalFee = o.TotalFee.Add(tx.AmountOrZero())
		},
		account: func(o *models.Overview, tx models.Transaction) {
			o.TotalFee = o.TotalFee.Add(tx.AmountOrZero())
		},
		cashFlow: true,
	},
	models.TxDeposit: {
		account: func(o *models.Overview, tx models.Transaction) {
			o.DepositAmountTotal = o.DepositAmountTotal.Add(tx.AmountOrZero().Abs())
		},
		cashFlow: true,
	},
	models.TxWithdrawal: {
		account: func(o *models.Overview, tx models.Transaction) {
			o.WithdrawalAmountTotal = o.WithdrawalAmountTotal.Add(tx.AmountOrZero().Abs())
		},
		cashFlow: true,
	},
	models.TxInterest: {
		account: func(o *models.Overview, tx models.Transaction) {
			o.TotalInterest = o.TotalInterest.Add(tx.AmountOrZero())
		},
		cashFlow: true,
	},
	models.TxTax: {
		account: func(o *models.Overview, tx models.Transaction) {
			o.TotalTax = o.TotalTax.Add(tx.AmountOrZero())
		},
		cashFlow: true,
	},
	models.TxReturnedForeignWithholdingTax: {
		account: func(o *models.Overview, tx models.Transaction) {
			o.TotalReturnedForeignWithholdingTax = o.TotalReturnedForeignWithholdingTax.Add(tx.AmountOrZero())
		},
		cashFlow: true,
	},
	models.TxShareLoanPayout: {
		account: func(o *models.Overview, tx models.Transaction) {
			o.TotalShareLoanPayout = o.TotalShareLoanPayout.Add(tx.AmountOrZero())
		},
		cashFlow: true,
	},
}

// Router classifies transactions and applies them to a ledger.
type Router struct {
	diag   *common.Diagnostics
	logger *common.Logger
}

// NewRouter creates a router reporting skipped transactions to diag.
func NewRouter(diag *common.Diagnostics, logger *common.Logger) *Router {
	return &Router{diag: diag, logger: logger}
}

// Route applies txs to ledger in order. txs must already be sorted by date,
// bank and ISIN. It returns the number of transactions applied.
func (r *Router) Route(ledger *models.Ledger, txs []models.Transaction) int {
	applied := 0
	for _, tx := range txs {
		if r.Apply(ledger, tx) {
			applied++
		}
	}
	r.logger.Debug().
		Int("transactions", len(txs)).
		Int("applied", applied).
		Int("assets", len(ledger.Assets)).
		Msg("Transactions routed")
	return applied
}

// Apply routes a single transaction. Unsupported types are reported as a
// warning and skipped; the return value reports whether tx was applied.
func (r *Router) Apply(ledger *models.Ledger, tx models.Transaction) bool {
	h, known := handlers[tx.Type]

	if tx.HasISIN() {
		if !known || h.asset == nil {
			r.skip(tx, "instrument")
			return false
		}
		asset := ledger.Asset(tx.ISIN)
		asset.Record(tx)
		h.asset(asset, ledger.Overview, tx)
	} else {
		if !known || h.account == nil {
			r.skip(tx, "account")
			return false
		}
		h.account(ledger.Overview, tx)
	}

	if h.cashFlow {
		ledger.Overview.AppendCashFlow(tx)
	}
	return true
}

func (r *Router) skip(tx models.Transaction, level string) {
	kind := "unsupported " + level
	if !tx.Type.Valid() {
		kind = "unknown"
	}
	r.diag.Warning("Skipped %s transaction %q (%s) on %s: %s",
		kind, tx.Type, tx.Name, tx.Date.Format("2006-01-02"), tx.Description)
	r.logger.Warn().
		Str("type", string(tx.Type)).
		Str("isin", tx.ISIN).
		Str("bank", string(tx.Bank)).
		Time("date", tx.Date).
		Msg("Unsupported transaction skipped")
}
