package models

import (
	"fmt"
	"time"

	"github.com/rocjay1/card-simulator/internal/billing"
	"github.com/shopspring/decimal"
)

// DateLayout is the storage and CSV format of transaction dates.
const DateLayout = "2006-01-02"

// Transaction represents a single imported card transaction.
type Transaction struct {
	ID            string                  `json:"id,omitempty"` // RowKey, set by storage
	Date          string                  `json:"date"`
	Name          string                  `json:"name"`
	AccountNumber int                     `json:"account_number"`
	Amount        decimal.Decimal         `json:"amount"`
	Type          billing.TransactionType `json:"type"`
	International bool                    `json:"international"`
	Posted        bool                    `json:"posted"` // Charged to the card balance
}

// Time parses the transaction date.
func (t Transaction) Time() (time.Time, error) {
	return time.Parse(DateLayout, t.Date)
}

// ToBilling converts the record into an engine transaction.
func (t Transaction) ToBilling() (billing.Transaction, error) {
	ts, err := t.Time()
	if err != nil {
		return billing.Transaction{}, fmt.Errorf("invalid date %q: %w", t.Date, err)
	}
	txn := billing.Transaction{
		Type:            t.Type,
		Amount:          t.Amount,
		Timestamp:       ts,
		IsInternational: t.International,
	}
	if txn.Type == "" {
		txn.Type = billing.TypePurchase
	}
	if err := txn.Validate(); err != nil {
		return billing.Transaction{}, err
	}
	return txn, nil
}

// ToBillingTransactions converts a batch, failing on the first invalid record.
func ToBillingTransactions(transactions []Transaction) ([]billing.Transaction, error) {
	out := make([]billing.Transaction, 0, len(transactions))
	for _, t := range transactions {
		txn, err := t.ToBilling()
		if err != nil {
			return nil, fmt.Errorf("transaction %s %q: %w", t.Date, t.Name, err)
		}
		out = append(out, txn)
	}
	return out, nil
}
