package billing

import "github.com/shopspring/decimal"

// impactHorizonDays is the month length used for MonthlyInterestImpact.
var impactHorizonDays = decimal.NewFromInt(30)

// TransactionImpact previews what posting one transaction would do to an
// account.
type TransactionImpact struct {
	Fees                  decimal.Decimal `json:"fees"`
	TotalCharged          decimal.Decimal `json:"total_charged"`
	NewBalance            decimal.Decimal `json:"new_balance"`
	NewUtilizationPct     decimal.Decimal `json:"new_utilization_pct"`
	UtilizationDeltaPct   decimal.Decimal `json:"utilization_delta_pct"`
	MonthlyInterestImpact decimal.Decimal `json:"monthly_interest_impact"`
	AnnualInterestImpact  decimal.Decimal `json:"annual_interest_impact"`
}

// PreviewImpact computes the effect of txn on account without changing it.
// The new balance never drops below zero; an overpayment surplus is not
// tracked.
func PreviewImpact(account AccountState, fees FeeStructure, txn Transaction) (TransactionImpact, error) {
	if err := account.validateTerms(); err != nil {
		return TransactionImpact{}, err
	}
	fees = fees.WithDefaults()
	if err := fees.Validate(); err != nil {
		return TransactionImpact{}, err
	}
	if err := txn.Validate(); err != nil {
		return TransactionImpact{}, err
	}

	impact := TransactionImpact{
		Fees:                  RoundCents(fees.TransactionFee(txn)),
		MonthlyInterestImpact: decimal.Zero,
		AnnualInterestImpact:  decimal.Zero,
	}
	if txn.Type.IsCredit() {
		impact.TotalCharged = RoundCents(txn.Amount.Neg())
	} else {
		impact.TotalCharged = RoundCents(txn.Amount).Add(impact.Fees)
	}
	impact.NewBalance = RoundCents(decimal.Max(decimal.Zero, account.CurrentBalance.Add(impact.TotalCharged)))
	impact.NewUtilizationPct = impact.NewBalance.Div(account.CreditLimit).Mul(hundred)
	impact.UtilizationDeltaPct = impact.NewUtilizationPct.Sub(account.Utilization())

	if impact.TotalCharged.IsPositive() {
		impact.MonthlyInterestImpact = RoundCents(impact.TotalCharged.Mul(DailyRate(account.APR)).Mul(impactHorizonDays))
		impact.AnnualInterestImpact = RoundCents(Percent(impact.TotalCharged, account.APR))
	}
	return impact, nil
}
