package models

import "github.com/rocjay1/card-simulator/internal/billing"

// Statement is a closed billing cycle persisted for a card.
type Statement struct {
	ID     string `json:"id"`
	CardID string `json:"card_id"`
	billing.BillingCycle
	Paid      bool   `json:"paid"`
	CreatedAt string `json:"created_at"`
}

// PreviousCycle returns the statement as the engine's previous-cycle input.
func (s *Statement) PreviousCycle() *billing.PreviousCycle {
	if s == nil {
		return nil
	}
	return &billing.PreviousCycle{Cycle: s.BillingCycle, Paid: s.Paid}
}
