// Package billing computes credit-card statements, fees, interest and payoff
// projections. Every function is a pure function of its arguments: nothing
// is cached, logged or persisted, so callers may share it freely across
// goroutines.
package billing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies an account activity.
type TransactionType string

const (
	TypePurchase        TransactionType = "PURCHASE"
	TypeCashAdvance     TransactionType = "CASH_ADVANCE"
	TypeBalanceTransfer TransactionType = "BALANCE_TRANSFER"
	TypePayment         TransactionType = "PAYMENT"
	TypeRefund          TransactionType = "REFUND"
	TypeFee             TransactionType = "FEE"
	TypeInterest        TransactionType = "INTEREST"
)

var transactionTypes = []TransactionType{
	TypePurchase,
	TypeCashAdvance,
	TypeBalanceTransfer,
	TypePayment,
	TypeRefund,
	TypeFee,
	TypeInterest,
}

// ParseTransactionType maps a case-insensitive name to a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	normalized := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !normalized.Valid() {
		return "", inputErr("type", "unknown transaction type "+s)
	}
	return normalized, nil
}

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	for _, known := range transactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsCredit reports whether the activity lowers the balance.
func (t TransactionType) IsCredit() bool {
	return t == TypePayment || t == TypeRefund
}

// Transaction is a read-only account activity record.
type Transaction struct {
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Timestamp       time.Time       `json:"timestamp"`
	IsInternational bool            `json:"is_international"`
}

// Validate checks the per-transaction preconditions.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return inputErr("type", "unknown transaction type "+string(t.Type))
	}
	if !t.Amount.IsPositive() {
		return inputErr("amount", "must be greater than zero")
	}
	return nil
}

// signedAmount is the effect of the transaction on the balance.
func (t Transaction) signedAmount() decimal.Decimal {
	if t.Type.IsCredit() {
		return t.Amount.Neg()
	}
	return t.Amount
}

// AccountState is a caller-owned snapshot of a card's terms and balance.
type AccountState struct {
	CreditLimit            decimal.Decimal `json:"credit_limit"`
	CurrentBalance         decimal.Decimal `json:"current_balance"`
	APR                    decimal.Decimal `json:"apr"`
	CycleStartDay          int             `json:"cycle_start_day"`
	BillingCycleLengthDays int             `json:"billing_cycle_length_days"`
	GracePeriodDays        int             `json:"grace_period_days"`
}

// validateTerms checks the invariants every operation relies on.
func (a AccountState) validateTerms() error {
	if !a.CreditLimit.IsPositive() {
		return configErr("credit_limit", "must be greater than zero")
	}
	if a.APR.IsNegative() {
		return configErr("apr", "must not be negative")
	}
	return nil
}

// validateCycle additionally checks the fields cycle generation needs.
func (a AccountState) validateCycle() error {
	if err := a.validateTerms(); err != nil {
		return err
	}
	if a.BillingCycleLengthDays <= 0 {
		return configErr("billing_cycle_length_days", "must be greater than zero")
	}
	if a.GracePeriodDays < 0 {
		return configErr("grace_period_days", "must not be negative")
	}
	if a.CycleStartDay < 0 || a.CycleStartDay > 28 {
		return configErr("cycle_start_day", "must be between 1 and 28, or 0 for none")
	}
	return nil
}

// Validate checks that the account can be billed.
func (a AccountState) Validate() error {
	return a.validateCycle()
}

// Utilization returns the balance as a percentage of the credit limit.
func (a AccountState) Utilization() decimal.Decimal {
	if !a.CreditLimit.IsPositive() {
		return decimal.Zero
	}
	return a.CurrentBalance.Div(a.CreditLimit).Mul(hundred)
}
