package billing

import "github.com/shopspring/decimal"

var (
	hundred       = decimal.NewFromInt(100)
	daysPerYear   = decimal.NewFromInt(365)
	monthsPerYear = decimal.NewFromInt(12)
)

// DailyRate converts an annual percentage rate into a daily periodic rate.
// An APR of 18.25 yields 0.0005.
func DailyRate(aprPercent decimal.Decimal) decimal.Decimal {
	return aprPercent.Div(daysPerYear).Div(hundred)
}

// MonthlyRate converts an annual percentage rate into a monthly periodic rate.
func MonthlyRate(aprPercent decimal.Decimal) decimal.Decimal {
	return aprPercent.Div(monthsPerYear).Div(hundred)
}

// Percent returns pct percent of base.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred)
}

// PercentOrFlat returns pct percent of base, or flatMinimum when that is larger.
func PercentOrFlat(base, pct, flatMinimum decimal.Decimal) decimal.Decimal {
	return decimal.Max(Percent(base, pct), flatMinimum)
}

// Clamp bounds value to [min, max].
func Clamp(value, min, max decimal.Decimal) decimal.Decimal {
	if value.LessThan(min) {
		return min
	}
	if value.GreaterThan(max) {
		return max
	}
	return value
}

// RoundCents rounds a currency amount to two decimal places.
func RoundCents(value decimal.Decimal) decimal.Decimal {
	return value.Round(2)
}
