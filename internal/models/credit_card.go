package models

import (
	"github.com/rocjay1/card-simulator/internal/billing"
	"github.com/shopspring/decimal"
)

// CreditCard represents a managed credit card and its billing terms.
type CreditCard struct {
	ID               string          `json:"id"` // RowKey
	Name             string          `json:"name"`
	AccountNumber    int             `json:"account_number"` // Last 4 digits
	CreditLimit      decimal.Decimal `json:"credit_limit"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	StatementBalance decimal.Decimal `json:"statement_balance"`
	APR              decimal.Decimal `json:"apr"`
	CycleStartDay    int             `json:"cycle_start_day"`
	CycleLengthDays  int             `json:"cycle_length_days"`
	GracePeriodDays  *int            `json:"grace_period_days"` // Unset takes the configured default
	FeeProduct       string          `json:"fee_product,omitempty"`
	LastReconciled   string          `json:"last_reconciled,omitempty"` // ISO 8601 date string
	LastClosedCycle  int             `json:"last_closed_cycle"`         // Highest statement applied to the balances
	Utilization      float64         `json:"utilization"`               // Calculated
	MinimumDue       float64         `json:"minimum_due"`               // Calculated
}

// AccountState snapshots the card for the billing engine.
func (c *CreditCard) AccountState() billing.AccountState {
	return billing.AccountState{
		CreditLimit:            c.CreditLimit,
		CurrentBalance:         c.CurrentBalance,
		APR:                    c.APR,
		CycleStartDay:          c.CycleStartDay,
		BillingCycleLengthDays: c.CycleLengthDays,
		GracePeriodDays:        c.GracePeriod(),
	}
}

// GracePeriod returns the grace period in days, zero when unset.
func (c *CreditCard) GracePeriod() int {
	if c.GracePeriodDays == nil {
		return 0
	}
	return *c.GracePeriodDays
}

// CalculateUtilization returns the current balance as a percentage of the limit.
func (c *CreditCard) CalculateUtilization() decimal.Decimal {
	return c.AccountState().Utilization()
}

// CalculateMinimumDue returns the minimum payment on the last statement balance.
func (c *CreditCard) CalculateMinimumDue() decimal.Decimal {
	return billing.MinimumPayment(c.StatementBalance, decimal.Zero)
}

// PopulateCalculatedFields populates the float64 fields for JSON output.
func (c *CreditCard) PopulateCalculatedFields() {
	c.Utilization = billing.RoundCents(c.CalculateUtilization()).InexactFloat64()
	c.MinimumDue = c.CalculateMinimumDue().InexactFloat64()
}
