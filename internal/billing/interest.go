package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// civilDate drops the time of day so balances are compared per calendar day.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from start to end.
func DaysBetween(start, end time.Time) int {
	return int(civilDate(end).Sub(civilDate(start)).Hours() / 24)
}

// AverageDailyBalance samples the balance once per calendar day in
// [startDate, endDate) and returns the mean. Activity dated before startDate
// counts from the first day; activity on or after endDate is outside the
// period and ignored.
func AverageDailyBalance(startingBalance decimal.Decimal, transactions []Transaction, startDate, endDate time.Time) (decimal.Decimal, error) {
	days := DaysBetween(startDate, endDate)
	if days <= 0 {
		return decimal.Zero, inputErr("end_date", "must be after start_date")
	}
	sorted, err := sortedActivity(transactions)
	if err != nil {
		return decimal.Zero, err
	}
	sum, _ := sweep(startingBalance, sorted, civilDate(startDate), days)
	return sum.Div(decimal.NewFromInt(int64(days))), nil
}

// PeriodInterest charges the daily rate on the average daily balance for
// every day of the cycle. A zero or credit balance accrues nothing.
func PeriodInterest(avgDailyBalance, aprPercent decimal.Decimal, daysInCycle int) decimal.Decimal {
	if !avgDailyBalance.IsPositive() || daysInCycle <= 0 {
		return decimal.Zero
	}
	return avgDailyBalance.Mul(DailyRate(aprPercent)).Mul(decimal.NewFromInt(int64(daysInCycle)))
}

// sortedActivity validates the transactions and returns a copy ordered by
// calendar date. Same-day order is preserved.
func sortedActivity(transactions []Transaction) ([]Transaction, error) {
	sorted := make([]Transaction, len(transactions))
	for i, txn := range transactions {
		if err := txn.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		sorted[i] = txn
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return civilDate(sorted[i].Timestamp).Before(civilDate(sorted[j].Timestamp))
	})
	return sorted, nil
}

// sweep walks days calendar days from start, applying each transaction on
// its day. It returns the sum of daily balances and the transactions that
// fell inside the window.
func sweep(startingBalance decimal.Decimal, sorted []Transaction, start time.Time, days int) (decimal.Decimal, []Transaction) {
	balance := startingBalance
	sum := decimal.Zero
	next := 0
	for day := 0; day < days; day++ {
		current := start.AddDate(0, 0, day)
		for next < len(sorted) && !civilDate(sorted[next].Timestamp).After(current) {
			balance = balance.Add(sorted[next].signedAmount())
			next++
		}
		sum = sum.Add(balance)
	}
	return sum, sorted[:next]
}
