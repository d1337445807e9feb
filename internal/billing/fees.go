package billing

import "github.com/shopspring/decimal"

// Fee floors and caps applied when a FeeStructure leaves them unset.
var (
	DefaultLateFeeCap                = decimal.NewFromInt(40)
	DefaultCashAdvanceFeeFlatMin     = decimal.NewFromInt(10)
	DefaultBalanceTransferFeeFlatMin = decimal.NewFromInt(5)
	DefaultBalanceTransferFeeCap     = decimal.NewFromInt(200)
)

// The fee functions below assume non-negative, pre-validated amounts and
// never return an error. Callers validate input (see Transaction.Validate).

// LateFee is pct percent of the balance with a flat floor, capped at cap.
func LateFee(balance, pct, flat, cap decimal.Decimal) decimal.Decimal {
	return decimal.Min(PercentOrFlat(balance, pct, flat), cap)
}

// OverlimitFee charges on the amount above the limit, or nothing when the
// balance is within it.
func OverlimitFee(balance, limit, pct, flat decimal.Decimal) decimal.Decimal {
	if balance.LessThanOrEqual(limit) {
		return decimal.Zero
	}
	return PercentOrFlat(balance.Sub(limit), pct, flat)
}

// ForeignTransactionFee is pct percent of the amount.
func ForeignTransactionFee(amount, pct decimal.Decimal) decimal.Decimal {
	return Percent(amount, pct)
}

// CashAdvanceFee is pct percent of the amount with a flat floor.
func CashAdvanceFee(amount, pct, flatMinimum decimal.Decimal) decimal.Decimal {
	return PercentOrFlat(amount, pct, flatMinimum)
}

// BalanceTransferFee is pct percent of the amount bounded to [flatMinimum, cap].
func BalanceTransferFee(amount, pct, flatMinimum, cap decimal.Decimal) decimal.Decimal {
	return Clamp(PercentOrFlat(amount, pct, flatMinimum), flatMinimum, cap)
}

// FeeStructure is the fee schedule of a card product. Percentages are in
// percent (3 means 3%).
type FeeStructure struct {
	LateFeePct                decimal.Decimal `json:"late_fee_pct"`
	LateFeeFlat               decimal.Decimal `json:"late_fee_flat"`
	LateFeeCap                decimal.Decimal `json:"late_fee_cap"`
	OverlimitFeePct           decimal.Decimal `json:"overlimit_fee_pct"`
	OverlimitFeeFlat          decimal.Decimal `json:"overlimit_fee_flat"`
	ForeignTransFeePct        decimal.Decimal `json:"foreign_trans_fee_pct"`
	CashAdvanceFeePct         decimal.Decimal `json:"cash_advance_fee_pct"`
	CashAdvanceFeeFlatMin     decimal.Decimal `json:"cash_advance_fee_flat_min"`
	BalanceTransferFeePct     decimal.Decimal `json:"balance_transfer_fee_pct"`
	BalanceTransferFeeFlatMin decimal.Decimal `json:"balance_transfer_fee_flat_min"`
	BalanceTransferFeeCap     decimal.Decimal `json:"balance_transfer_fee_cap"`
	AnnualFee                 decimal.Decimal `json:"annual_fee"`
}

// DefaultFeeStructure returns the reference card product.
func DefaultFeeStructure() FeeStructure {
	return FeeStructure{
		LateFeePct:                decimal.NewFromInt(5),
		LateFeeFlat:               decimal.NewFromInt(35),
		LateFeeCap:                DefaultLateFeeCap,
		OverlimitFeeFlat:          decimal.NewFromInt(35),
		ForeignTransFeePct:        decimal.NewFromInt(3),
		CashAdvanceFeePct:         decimal.NewFromInt(5),
		CashAdvanceFeeFlatMin:     DefaultCashAdvanceFeeFlatMin,
		BalanceTransferFeePct:     decimal.NewFromInt(3),
		BalanceTransferFeeFlatMin: DefaultBalanceTransferFeeFlatMin,
		BalanceTransferFeeCap:     DefaultBalanceTransferFeeCap,
	}
}

// WithDefaults returns a copy with unset floors and caps filled in.
func (f FeeStructure) WithDefaults() FeeStructure {
	if f.LateFeeCap.IsZero() {
		f.LateFeeCap = DefaultLateFeeCap
	}
	if f.CashAdvanceFeeFlatMin.IsZero() {
		f.CashAdvanceFeeFlatMin = DefaultCashAdvanceFeeFlatMin
	}
	if f.BalanceTransferFeeFlatMin.IsZero() {
		f.BalanceTransferFeeFlatMin = DefaultBalanceTransferFeeFlatMin
	}
	if f.BalanceTransferFeeCap.IsZero() {
		f.BalanceTransferFeeCap = DefaultBalanceTransferFeeCap
	}
	return f
}

// Validate rejects negative fee parameters and inverted balance-transfer bounds.
func (f FeeStructure) Validate() error {
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"late_fee_pct", f.LateFeePct},
		{"late_fee_flat", f.LateFeeFlat},
		{"late_fee_cap", f.LateFeeCap},
		{"overlimit_fee_pct", f.OverlimitFeePct},
		{"overlimit_fee_flat", f.OverlimitFeeFlat},
		{"foreign_trans_fee_pct", f.ForeignTransFeePct},
		{"cash_advance_fee_pct", f.CashAdvanceFeePct},
		{"cash_advance_fee_flat_min", f.CashAdvanceFeeFlatMin},
		{"balance_transfer_fee_pct", f.BalanceTransferFeePct},
		{"balance_transfer_fee_flat_min", f.BalanceTransferFeeFlatMin},
		{"balance_transfer_fee_cap", f.BalanceTransferFeeCap},
		{"annual_fee", f.AnnualFee},
	}
	for _, field := range fields {
		if field.value.IsNegative() {
			return configErr(field.name, "must not be negative")
		}
	}
	if f.BalanceTransferFeeCap.LessThan(f.BalanceTransferFeeFlatMin) {
		return configErr("balance_transfer_fee_cap", "must not be below balance_transfer_fee_flat_min")
	}
	return nil
}

// LateFee applies the structure's late-fee terms to balance.
func (f FeeStructure) LateFee(balance decimal.Decimal) decimal.Decimal {
	return LateFee(balance, f.LateFeePct, f.LateFeeFlat, f.LateFeeCap)
}

// OverlimitFee applies the structure's overlimit terms.
func (f FeeStructure) OverlimitFee(balance, limit decimal.Decimal) decimal.Decimal {
	return OverlimitFee(balance, limit, f.OverlimitFeePct, f.OverlimitFeeFlat)
}

// TransactionFee returns the fee a single transaction incurs. Payments,
// refunds, fees and interest postings incur none.
func (f FeeStructure) TransactionFee(txn Transaction) decimal.Decimal {
	switch txn.Type {
	case TypeCashAdvance:
		return CashAdvanceFee(txn.Amount, f.CashAdvanceFeePct, f.CashAdvanceFeeFlatMin)
	case TypeBalanceTransfer:
		return BalanceTransferFee(txn.Amount, f.BalanceTransferFeePct, f.BalanceTransferFeeFlatMin, f.BalanceTransferFeeCap)
	case TypePurchase:
		if txn.IsInternational {
			return ForeignTransactionFee(txn.Amount, f.ForeignTransFeePct)
		}
	}
	return decimal.Zero
}
