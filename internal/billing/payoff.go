package billing

import "github.com/shopspring/decimal"

// MaxPayoffMonths caps every payoff loop at fifty years.
const MaxPayoffMonths = 600

// workingPlaces bounds the precision of running balances between months.
const workingPlaces = 10

var payoffTolerance = decimal.New(1, -2)

// Outcome tags how a payoff projection ended.
type Outcome string

const (
	OutcomeConverged Outcome = "converged"
	// OutcomePaymentBelowInterest means a month's payment did not cover that
	// month's interest, so the balance can never reach zero.
	OutcomePaymentBelowInterest Outcome = "payment_below_interest"
	// OutcomeIterationCap means the balance was still open after MaxPayoffMonths.
	OutcomeIterationCap Outcome = "iteration_cap"
)

// PayoffScenario is the result of a projection. TotalMonths, TotalInterest
// and TotalPaid are only meaningful when the scenario converged.
type PayoffScenario struct {
	Balance        decimal.Decimal `json:"balance"`
	APR            decimal.Decimal `json:"apr"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	TotalMonths    int             `json:"total_months"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	Outcome        Outcome         `json:"outcome"`
}

// Converged reports whether the balance is paid off.
func (s PayoffScenario) Converged() bool { return s.Outcome == OutcomeConverged }

// IsNonConvergent reports whether the payment never clears the balance.
func (s PayoffScenario) IsNonConvergent() bool { return !s.Converged() }

// ScheduleRow is one month of an amortization schedule.
type ScheduleRow struct {
	Month     int             `json:"month"`
	Payment   decimal.Decimal `json:"payment"`
	Interest  decimal.Decimal `json:"interest"`
	Principal decimal.Decimal `json:"principal"`
	Balance   decimal.Decimal `json:"balance"`
}

// Project runs the month-by-month payoff of balance at a fixed payment.
func Project(balance, aprPercent, monthlyPayment decimal.Decimal) (PayoffScenario, error) {
	scenario, _, err := project(balance, aprPercent, monthlyPayment, fixedPayment(monthlyPayment), false)
	return scenario, err
}

// Schedule is Project plus the per-month rows. Rows stop where the
// projection stops, so a non-convergent schedule lists the months paid
// before the failure.
func Schedule(balance, aprPercent, monthlyPayment decimal.Decimal) (PayoffScenario, []ScheduleRow, error) {
	return project(balance, aprPercent, monthlyPayment, fixedPayment(monthlyPayment), true)
}

// ProjectMinimumPayments pays the statement minimum each month: 2% of the
// remaining balance with the $35 floor.
func ProjectMinimumPayments(balance, aprPercent decimal.Decimal) (PayoffScenario, error) {
	minimum := func(remaining decimal.Decimal) decimal.Decimal {
		return decimal.Max(Percent(remaining, MinimumPaymentPct), MinimumPaymentFloor)
	}
	scenario, _, err := project(balance, aprPercent, minimum(balance), minimum, false)
	return scenario, err
}

// ComparePayments projects the same balance at several payments. Results
// keep the order of payments.
func ComparePayments(balance, aprPercent decimal.Decimal, payments ...decimal.Decimal) ([]PayoffScenario, error) {
	out := make([]PayoffScenario, 0, len(payments))
	for _, payment := range payments {
		scenario, err := Project(balance, aprPercent, payment)
		if err != nil {
			return nil, err
		}
		out = append(out, scenario)
	}
	return out, nil
}

// RequiredPayment returns the smallest whole-cent fixed payment that clears
// balance within months.
func RequiredPayment(balance, aprPercent decimal.Decimal, months int) (decimal.Decimal, error) {
	if err := validatePayoffInput(balance, aprPercent, decimal.Zero); err != nil {
		return decimal.Zero, err
	}
	if months <= 0 || months > MaxPayoffMonths {
		return decimal.Zero, inputErr("months", "must be between 1 and 600")
	}
	if !balance.IsPositive() {
		return decimal.Zero, nil
	}
	n := decimal.NewFromInt(int64(months))
	rate := MonthlyRate(aprPercent)
	if rate.IsZero() {
		return balance.Div(n).RoundCeil(2), nil
	}
	// payment = B*r / (1 - (1+r)^-n) = B*r*g / (g - 1) with g = (1+r)^n
	growth := decimal.NewFromInt(1)
	onePlus := growth.Add(rate)
	for i := 0; i < months; i++ {
		growth = growth.Mul(onePlus).Round(16)
	}
	payment := balance.Mul(rate).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
	return payment.RoundCeil(2), nil
}

func fixedPayment(payment decimal.Decimal) func(decimal.Decimal) decimal.Decimal {
	return func(decimal.Decimal) decimal.Decimal { return payment }
}

func validatePayoffInput(balance, aprPercent, payment decimal.Decimal) error {
	if aprPercent.IsNegative() {
		return configErr("apr", "must not be negative")
	}
	if balance.IsNegative() {
		return inputErr("balance", "must not be negative")
	}
	if payment.IsNegative() {
		return inputErr("monthly_payment", "must not be negative")
	}
	return nil
}

// project amortizes balance month by month. paymentFor returns the payment
// due on a remaining balance. Interest and balances carry workingPlaces
// digits between months and are rounded to cents only in the result.
func project(balance, aprPercent, headline decimal.Decimal, paymentFor func(decimal.Decimal) decimal.Decimal, withRows bool) (PayoffScenario, []ScheduleRow, error) {
	if err := validatePayoffInput(balance, aprPercent, headline); err != nil {
		return PayoffScenario{}, nil, err
	}
	scenario := PayoffScenario{
		Balance:        RoundCents(balance),
		APR:            aprPercent,
		MonthlyPayment: RoundCents(headline),
		TotalInterest:  decimal.Zero,
		TotalPaid:      decimal.Zero,
	}
	var rows []ScheduleRow

	rate := MonthlyRate(aprPercent)
	remaining := balance
	totalInterest, totalPaid := decimal.Zero, decimal.Zero
	months := 0
	for remaining.GreaterThan(payoffTolerance) {
		if months == MaxPayoffMonths {
			scenario.Outcome = OutcomeIterationCap
			return scenario, rows, nil
		}
		interest := remaining.Mul(rate).Round(workingPlaces)
		principal := decimal.Min(paymentFor(remaining).Sub(interest), remaining)
		if !principal.IsPositive() {
			scenario.Outcome = OutcomePaymentBelowInterest
			return scenario, rows, nil
		}
		remaining = remaining.Sub(principal)
		totalInterest = totalInterest.Add(interest)
		totalPaid = totalPaid.Add(principal).Add(interest)
		months++
		if withRows {
			rows = append(rows, ScheduleRow{
				Month:     months,
				Payment:   RoundCents(principal.Add(interest)),
				Interest:  RoundCents(interest),
				Principal: RoundCents(principal),
				Balance:   RoundCents(remaining),
			})
		}
	}

	scenario.Outcome = OutcomeConverged
	scenario.TotalMonths = months
	scenario.TotalInterest = RoundCents(totalInterest)
	scenario.TotalPaid = RoundCents(totalPaid)
	return scenario, rows, nil
}
