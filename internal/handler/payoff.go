package handler

import (
	"context"
	"net/http"

	"github.com/rocjay1/card-simulator/internal/billing"
	"github.com/shopspring/decimal"
)

type payoffRequest struct {
	CardID          string              `json:"card_id"`
	Balance         decimal.Decimal     `json:"balance"`
	APR             decimal.Decimal     `json:"apr"`
	MonthlyPayment  decimal.NullDecimal `json:"monthly_payment"`
	IncludeSchedule bool                `json:"include_schedule"`
}

type payoffResponse struct {
	Scenario billing.PayoffScenario `json:"scenario"`
	Schedule []billing.ScheduleRow  `json:"schedule,omitempty"`
}

type compareRequest struct {
	CardID   string            `json:"card_id"`
	Balance  decimal.Decimal   `json:"balance"`
	APR      decimal.Decimal   `json:"apr"`
	Payments []decimal.Decimal `json:"payments"`
}

type requiredRequest struct {
	CardID  string          `json:"card_id"`
	Balance decimal.Decimal `json:"balance"`
	APR     decimal.Decimal `json:"apr"`
	Months  int             `json:"months"`
}

type planRequest struct {
	Debts         []billing.Debt  `json:"debts"`
	CardIDs       []string        `json:"card_ids"`
	MonthlyBudget decimal.Decimal `json:"monthly_budget"`
	Strategy      string          `json:"strategy"`
}

// strategyCompare asks /api/payoff/plan to run both strategies.
const strategyCompare = "compare"

// cardTerms replaces balance and apr with the stored card's when cardID is set.
func (d *Dependencies) cardTerms(ctx context.Context, cardID string, balance, apr *decimal.Decimal) error {
	if cardID == "" {
		return nil
	}
	card, err := d.Database.GetCreditCard(ctx, cardID)
	if err != nil {
		return err
	}
	*balance, *apr = card.CurrentBalance, card.APR
	return nil
}

// HandlePayoff projects paying a balance down with a fixed monthly payment,
// or with the minimum payment when none is given.
func (d *Dependencies) HandlePayoff(w http.ResponseWriter, r *http.Request) {
	var req payoffRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := d.cardTerms(r.Context(), req.CardID, &req.Balance, &req.APR); err != nil {
		writeFailure(w, "Failed to load card", err)
		return
	}

	var (
		resp payoffResponse
		err  error
	)
	switch {
	case !req.MonthlyPayment.Valid:
		resp.Scenario, err = billing.ProjectMinimumPayments(req.Balance, req.APR)
	case req.IncludeSchedule:
		resp.Scenario, resp.Schedule, err = billing.Schedule(req.Balance, req.APR, req.MonthlyPayment.Decimal)
	default:
		resp.Scenario, err = billing.Project(req.Balance, req.APR, req.MonthlyPayment.Decimal)
	}
	if err != nil {
		writeFailure(w, "Failed to project payoff", err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// HandleComparePayments projects several monthly payments side by side.
func (d *Dependencies) HandleComparePayments(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Payments) == 0 {
		WriteError(w, http.StatusBadRequest, "At least one payment is required")
		return
	}
	if err := d.cardTerms(r.Context(), req.CardID, &req.Balance, &req.APR); err != nil {
		writeFailure(w, "Failed to load card", err)
		return
	}

	scenarios, err := billing.ComparePayments(req.Balance, req.APR, req.Payments...)
	if err != nil {
		writeFailure(w, "Failed to compare payments", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"scenarios": scenarios})
}

// HandleRequiredPayment returns the payment that clears a balance in a given
// number of months.
func (d *Dependencies) HandleRequiredPayment(w http.ResponseWriter, r *http.Request) {
	var req requiredRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := d.cardTerms(r.Context(), req.CardID, &req.Balance, &req.APR); err != nil {
		writeFailure(w, "Failed to load card", err)
		return
	}

	payment, err := billing.RequiredPayment(req.Balance, req.APR, req.Months)
	if err != nil {
		writeFailure(w, "Failed to compute required payment", err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"months":          req.Months,
		"monthly_payment": payment,
	})
}

// HandlePayoffPlan splits a monthly budget across several debts.
func (d *Dependencies) HandlePayoffPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeBody(w, r, &req) {
		return
	}

	debts := req.Debts
	for _, id := range req.CardIDs {
		card, err := d.Database.GetCreditCard(r.Context(), id)
		if err != nil {
			writeFailure(w, "Failed to load card", err)
			return
		}
		debts = append(debts, billing.Debt{
			Name:           card.Name,
			Balance:        card.CurrentBalance,
			APR:            card.APR,
			MinimumPayment: billing.MinimumPayment(card.CurrentBalance, decimal.Zero),
		})
	}
	if len(debts) == 0 {
		WriteError(w, http.StatusBadRequest, "At least one debt or card_id is required")
		return
	}

	if req.Strategy == strategyCompare {
		comparison, err := billing.CompareStrategies(debts, req.MonthlyBudget)
		if err != nil {
			writeFailure(w, "Failed to compare strategies", err)
			return
		}
		WriteJSON(w, http.StatusOK, comparison)
		return
	}

	strategy, err := billing.ParseStrategy(req.Strategy)
	if err != nil {
		writeFailure(w, "Invalid strategy", err)
		return
	}
	plan, err := billing.PlanPayoff(debts, req.MonthlyBudget, strategy)
	if err != nil {
		writeFailure(w, "Failed to plan payoff", err)
		return
	}
	WriteJSON(w, http.StatusOK, plan)
}
