package billing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Strategy decides which debt receives money left over after minimums.
type Strategy string

const (
	// StrategySnowball targets the smallest balance first.
	StrategySnowball Strategy = "snowball"
	// StrategyAvalanche targets the highest APR first.
	StrategyAvalanche Strategy = "avalanche"
)

// ParseStrategy maps a name to a Strategy. An empty name is avalanche.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyAvalanche:
		return StrategyAvalanche, nil
	case StrategySnowball:
		return StrategySnowball, nil
	}
	return "", inputErr("strategy", "unknown payoff strategy "+s)
}

// Debt is one balance in a multi-card payoff plan.
type Debt struct {
	Name           string          `json:"name"`
	Balance        decimal.Decimal `json:"balance"`
	APR            decimal.Decimal `json:"apr"`
	MinimumPayment decimal.Decimal `json:"minimum_payment"`
}

// DebtPayoff reports when and at what cost one debt was cleared.
type DebtPayoff struct {
	Name         string          `json:"name"`
	PayoffMonth  int             `json:"payoff_month"`
	InterestPaid decimal.Decimal `json:"interest_paid"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
}

// PayoffPlan is the result of PlanPayoff. Debts are listed in the order
// they were cleared.
type PayoffPlan struct {
	Strategy      Strategy        `json:"strategy"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
	TotalMonths   int             `json:"total_months"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	Outcome       Outcome         `json:"outcome"`
	Debts         []DebtPayoff    `json:"debts"`
}

// Converged reports whether every debt is paid off.
func (p PayoffPlan) Converged() bool { return p.Outcome == OutcomeConverged }

// StrategyComparison places both strategies side by side.
type StrategyComparison struct {
	Avalanche     PayoffPlan      `json:"avalanche"`
	Snowball      PayoffPlan      `json:"snowball"`
	InterestSaved decimal.Decimal `json:"interest_saved"`
	Recommended   Strategy        `json:"recommended"`
}

type debtState struct {
	Debt
	index     int
	remaining decimal.Decimal
	interest  decimal.Decimal
	paid      decimal.Decimal
}

// PlanPayoff pays every minimum each month and sends the rest of the budget
// to the debt the strategy targets, moving on as debts are cleared.
func PlanPayoff(debts []Debt, monthlyBudget decimal.Decimal, strategy Strategy) (PayoffPlan, error) {
	if strategy != StrategySnowball && strategy != StrategyAvalanche {
		return PayoffPlan{}, inputErr("strategy", "unknown payoff strategy "+string(strategy))
	}
	if !monthlyBudget.IsPositive() {
		return PayoffPlan{}, inputErr("monthly_budget", "must be greater than zero")
	}
	states := make([]*debtState, 0, len(debts))
	minimums := decimal.Zero
	for i, d := range debts {
		if d.APR.IsNegative() {
			return PayoffPlan{}, configErr(fmt.Sprintf("debts[%d].apr", i), "must not be negative")
		}
		if d.Balance.IsNegative() || d.MinimumPayment.IsNegative() {
			return PayoffPlan{}, inputErr(fmt.Sprintf("debts[%d]", i), "balance and minimum payment must not be negative")
		}
		if d.Balance.GreaterThan(payoffTolerance) {
			minimums = minimums.Add(d.MinimumPayment)
		}
		states = append(states, &debtState{Debt: d, index: i, remaining: d.Balance, interest: decimal.Zero, paid: decimal.Zero})
	}
	if monthlyBudget.LessThan(minimums) {
		return PayoffPlan{}, inputErr("monthly_budget", "must cover the sum of minimum payments")
	}

	plan := PayoffPlan{Strategy: strategy, MonthlyBudget: RoundCents(monthlyBudget)}
	cleared := make([]DebtPayoff, 0, len(states))
	for _, s := range states {
		if !s.remaining.GreaterThan(payoffTolerance) {
			cleared = append(cleared, DebtPayoff{Name: s.Name, InterestPaid: decimal.Zero, TotalPaid: decimal.Zero})
		}
	}

	month := 0
	for open := openDebts(states); len(open) > 0; open = openDebts(states) {
		if month == MaxPayoffMonths {
			plan.Outcome = OutcomeIterationCap
			return finishPlan(plan, states, cleared), nil
		}
		month++

		before := decimal.Zero
		for _, s := range open {
			before = before.Add(s.remaining)
			interest := s.remaining.Mul(MonthlyRate(s.APR)).Round(workingPlaces)
			s.remaining = s.remaining.Add(interest)
			s.interest = s.interest.Add(interest)
		}

		budget := monthlyBudget
		for _, s := range open {
			budget = budget.Sub(pay(s, decimal.Min(s.MinimumPayment, budget)))
		}
		for _, s := range targetOrder(open, strategy) {
			if !budget.IsPositive() {
				break
			}
			budget = budget.Sub(pay(s, budget))
		}

		after := decimal.Zero
		for _, s := range open {
			after = after.Add(s.remaining)
			if !s.remaining.GreaterThan(payoffTolerance) {
				cleared = append(cleared, DebtPayoff{
					Name:         s.Name,
					PayoffMonth:  month,
					InterestPaid: RoundCents(s.interest),
					TotalPaid:    RoundCents(s.paid),
				})
			}
		}
		if !after.LessThan(before) {
			plan.Outcome = OutcomePaymentBelowInterest
			return finishPlan(plan, states, cleared), nil
		}
	}

	plan.Outcome = OutcomeConverged
	plan.TotalMonths = month
	return finishPlan(plan, states, cleared), nil
}

// CompareStrategies runs both strategies over the same debts and budget.
// Avalanche is recommended unless snowball pays strictly less interest.
func CompareStrategies(debts []Debt, monthlyBudget decimal.Decimal) (StrategyComparison, error) {
	avalanche, err := PlanPayoff(debts, monthlyBudget, StrategyAvalanche)
	if err != nil {
		return StrategyComparison{}, err
	}
	snowball, err := PlanPayoff(debts, monthlyBudget, StrategySnowball)
	if err != nil {
		return StrategyComparison{}, err
	}
	cmp := StrategyComparison{
		Avalanche:     avalanche,
		Snowball:      snowball,
		InterestSaved: snowball.TotalInterest.Sub(avalanche.TotalInterest),
		Recommended:   StrategyAvalanche,
	}
	if snowball.Converged() && (!avalanche.Converged() || cmp.InterestSaved.IsNegative()) {
		cmp.Recommended = StrategySnowball
	}
	return cmp, nil
}

func pay(s *debtState, amount decimal.Decimal) decimal.Decimal {
	amount = decimal.Min(amount, s.remaining)
	if !amount.IsPositive() {
		return decimal.Zero
	}
	s.remaining = s.remaining.Sub(amount)
	s.paid = s.paid.Add(amount)
	return amount
}

func openDebts(states []*debtState) []*debtState {
	var open []*debtState
	for _, s := range states {
		if s.remaining.GreaterThan(payoffTolerance) {
			open = append(open, s)
		}
	}
	return open
}

// targetOrder sorts a copy of open by the strategy's priority. Ties fall
// back to the other strategy's key, then to input order.
func targetOrder(open []*debtState, strategy Strategy) []*debtState {
	order := append([]*debtState(nil), open...)
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		byBalance := a.remaining.Cmp(b.remaining)
		byAPR := b.APR.Cmp(a.APR)
		first, second := byAPR, byBalance
		if strategy == StrategySnowball {
			first, second = byBalance, byAPR
		}
		if first != 0 {
			return first < 0
		}
		if second != 0 {
			return second < 0
		}
		return a.index < b.index
	})
	return order
}

func finishPlan(plan PayoffPlan, states []*debtState, cleared []DebtPayoff) PayoffPlan {
	interest, paid := decimal.Zero, decimal.Zero
	for _, s := range states {
		interest = interest.Add(s.interest)
		paid = paid.Add(s.paid)
	}
	plan.TotalInterest = RoundCents(interest)
	plan.TotalPaid = RoundCents(paid)
	plan.Debts = cleared
	return plan
}
