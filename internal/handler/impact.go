package handler

import (
	"net/http"

	"github.com/rocjay1/card-simulator/internal/billing"
)

type impactRequest struct {
	CardID      string               `json:"card_id"`
	Account     billing.AccountState `json:"account"`
	FeeProduct  string               `json:"fee_product"`
	Transaction billing.Transaction  `json:"transaction"`
}

// HandleImpact previews what a transaction would do to a card without
// posting it.
func (d *Dependencies) HandleImpact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req impactRequest
	if !decodeBody(w, r, &req) {
		return
	}

	account, product := req.Account, req.FeeProduct
	if req.CardID != "" {
		card, err := d.Database.GetCreditCard(r.Context(), req.CardID)
		if err != nil {
			writeFailure(w, "Failed to load card", err)
			return
		}
		account, product = card.AccountState(), card.FeeProduct
	}

	fees, err := d.Config.FeeStructure(product)
	if err != nil {
		writeFailure(w, "Invalid fee product", err)
		return
	}
	impact, err := billing.PreviewImpact(account, fees, req.Transaction)
	if err != nil {
		writeFailure(w, "Failed to preview transaction", err)
		return
	}
	WriteJSON(w, http.StatusOK, impact)
}
