package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Minimum payment terms.
var (
	MinimumPaymentPct   = decimal.NewFromInt(2)
	MinimumPaymentFloor = decimal.NewFromInt(35)
)

// annualFeeEvery is the number of cycles between annual fee assessments.
const annualFeeEvery = 12

// BillingCycle is one closed statement period. Dates are calendar dates in
// UTC; the cycle covers [StartDate, EndDate).
type BillingCycle struct {
	CycleNumber         int             `json:"cycle_number"`
	StartDate           time.Time       `json:"start_date"`
	EndDate             time.Time       `json:"end_date"`
	DueDate             time.Time       `json:"due_date"`
	DaysInCycle         int             `json:"days_in_cycle"`
	StartingBalance     decimal.Decimal `json:"starting_balance"`
	EndingBalance       decimal.Decimal `json:"ending_balance"`
	AverageDailyBalance decimal.Decimal `json:"average_daily_balance"`
	TotalPurchases      decimal.Decimal `json:"total_purchases"`
	TotalPayments       decimal.Decimal `json:"total_payments"`
	InterestCharged     decimal.Decimal `json:"interest_charged"`
	FeesCharged         decimal.Decimal `json:"fees_charged"`
	LateFee             decimal.Decimal `json:"late_fee"`
	OverlimitFee        decimal.Decimal `json:"overlimit_fee"`
	AnnualFee           decimal.Decimal `json:"annual_fee"`
	MinimumPayment      decimal.Decimal `json:"minimum_payment"`
}

// PreviousCycle is the last closed cycle together with its payment status.
type PreviousCycle struct {
	Cycle BillingCycle
	Paid  bool
}

// CycleRequest carries everything GenerateCycle needs. AsOf is the caller's
// notion of today.
type CycleRequest struct {
	Previous     *PreviousCycle
	Account      AccountState
	Fees         FeeStructure
	Transactions []Transaction
	AsOf         time.Time
}

// CycleDates is the date frame of a billing cycle.
type CycleDates struct {
	Start time.Time
	End   time.Time
	Due   time.Time
}

// NextCycleDates returns the frame of the cycle that follows previous.
func NextCycleDates(previous BillingCycle, account AccountState) (CycleDates, error) {
	if err := account.validateCycle(); err != nil {
		return CycleDates{}, err
	}
	return frameFrom(civilDate(previous.EndDate).AddDate(0, 0, 1), account), nil
}

// FirstCycleDates returns the frame of a card's first cycle. When the account
// has a cycle start day the cycle begins on the most recent such day on or
// before asOf; otherwise it begins on asOf.
func FirstCycleDates(asOf time.Time, account AccountState) (CycleDates, error) {
	if err := account.validateCycle(); err != nil {
		return CycleDates{}, err
	}
	return frameFrom(firstCycleStart(asOf, account.CycleStartDay), account), nil
}

func firstCycleStart(asOf time.Time, startDay int) time.Time {
	start := civilDate(asOf)
	if startDay <= 0 {
		return start
	}
	aligned := time.Date(start.Year(), start.Month(), startDay, 0, 0, 0, 0, time.UTC)
	if aligned.After(start) {
		aligned = aligned.AddDate(0, -1, 0)
	}
	return aligned
}

func frameFrom(start time.Time, account AccountState) CycleDates {
	end := start.AddDate(0, 0, account.BillingCycleLengthDays)
	return CycleDates{
		Start: start,
		End:   end,
		Due:   end.AddDate(0, 0, account.GracePeriodDays),
	}
}

// GenerateCycle closes the next billing cycle. It never modifies the request;
// persisting the new balance is up to the caller.
func GenerateCycle(req CycleRequest) (BillingCycle, error) {
	if err := req.Account.validateCycle(); err != nil {
		return BillingCycle{}, err
	}
	fees := req.Fees.WithDefaults()
	if err := fees.Validate(); err != nil {
		return BillingCycle{}, err
	}
	if req.AsOf.IsZero() {
		return BillingCycle{}, inputErr("as_of", "is required")
	}

	account := req.Account
	cycle := BillingCycle{
		CycleNumber:     1,
		StartingBalance: account.CurrentBalance,
	}
	var dates CycleDates
	if req.Previous != nil {
		cycle.CycleNumber = req.Previous.Cycle.CycleNumber + 1
		cycle.StartingBalance = req.Previous.Cycle.EndingBalance
		dates = frameFrom(civilDate(req.Previous.Cycle.EndDate).AddDate(0, 0, 1), account)
	} else {
		dates = frameFrom(firstCycleStart(req.AsOf, account.CycleStartDay), account)
	}
	cycle.StartDate, cycle.EndDate, cycle.DueDate = dates.Start, dates.End, dates.Due
	cycle.DaysInCycle = account.BillingCycleLengthDays

	sorted, err := sortedActivity(req.Transactions)
	if err != nil {
		return BillingCycle{}, err
	}
	sum, inWindow := sweep(cycle.StartingBalance, sorted, dates.Start, cycle.DaysInCycle)
	adb := sum.Div(decimal.NewFromInt(int64(cycle.DaysInCycle)))

	purchases, payments := decimal.Zero, decimal.Zero
	for _, txn := range inWindow {
		if txn.Type.IsCredit() {
			payments = payments.Add(txn.Amount)
		} else {
			purchases = purchases.Add(txn.Amount)
		}
	}

	cycle.AverageDailyBalance = RoundCents(adb)
	cycle.TotalPurchases = RoundCents(purchases)
	cycle.TotalPayments = RoundCents(payments)
	cycle.InterestCharged = RoundCents(PeriodInterest(adb, account.APR, cycle.DaysInCycle))

	if prev := req.Previous; prev != nil && !prev.Paid && civilDate(req.AsOf).After(civilDate(prev.Cycle.DueDate)) && prev.Cycle.EndingBalance.IsPositive() {
		cycle.LateFee = RoundCents(fees.LateFee(prev.Cycle.EndingBalance))
	}
	cycle.OverlimitFee = RoundCents(fees.OverlimitFee(account.CurrentBalance, account.CreditLimit))
	if cycle.CycleNumber%annualFeeEvery == 1 {
		cycle.AnnualFee = RoundCents(fees.AnnualFee)
	}
	cycle.FeesCharged = cycle.LateFee.Add(cycle.OverlimitFee).Add(cycle.AnnualFee)

	cycle.EndingBalance = RoundCents(cycle.StartingBalance).
		Add(cycle.TotalPurchases).
		Sub(cycle.TotalPayments).
		Add(cycle.InterestCharged).
		Add(cycle.FeesCharged)
	cycle.MinimumPayment = MinimumPayment(cycle.EndingBalance, cycle.InterestCharged.Add(cycle.FeesCharged))
	return cycle, nil
}

// MinimumPayment is the larger of 2% of the balance, the $35 floor and the
// cycle's interest and fees, never more than the balance itself.
func MinimumPayment(endingBalance, interestAndFees decimal.Decimal) decimal.Decimal {
	if !endingBalance.IsPositive() {
		return decimal.Zero
	}
	due := decimal.Max(Percent(endingBalance, MinimumPaymentPct), MinimumPaymentFloor, interestAndFees)
	return RoundCents(decimal.Min(due, endingBalance))
}
