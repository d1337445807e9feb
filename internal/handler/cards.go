package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/rocjay1/card-simulator/internal/models"
)

// HandleCreditCards handles GET, POST, and DELETE requests for credit cards.
func (d *Dependencies) HandleCreditCards(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if id := r.URL.Query().Get("id"); id != "" {
			card, err := d.Database.GetCreditCard(r.Context(), id)
			if err != nil {
				writeFailure(w, "Failed to get credit card", err)
				return
			}
			card.PopulateCalculatedFields()
			WriteJSON(w, http.StatusOK, card)
			return
		}

		slog.Info("fetching credit cards", "method", r.Method, "path", r.URL.Path)
		cards, err := d.Database.GetCreditCards(r.Context())
		if err != nil {
			writeFailure(w, "Failed to get credit cards", err)
			return
		}
		slog.Info("successfully retrieved credit cards", "count", len(cards))
		for i := range cards {
			cards[i].PopulateCalculatedFields()
		}
		WriteJSON(w, http.StatusOK, cards)

	case http.MethodPost:
		slog.Info("saving credit card", "method", r.Method, "path", r.URL.Path)
		var card models.CreditCard
		if !decodeBody(w, r, &card) {
			return
		}

		d.Config.ApplyCardDefaults(&card)
		if card.LastReconciled == "" {
			card.LastReconciled = d.now().Format(models.DateLayout)
		}
		if err := card.AccountState().Validate(); err != nil {
			writeFailure(w, "Invalid card terms", err)
			return
		}
		if _, err := d.Config.FeeStructure(card.FeeProduct); err != nil {
			writeFailure(w, "Invalid card terms", err)
			return
		}

		if card.ID == "" {
			card.ID = uuid.New().String()
		}

		if err := d.Database.SaveCreditCard(r.Context(), card); err != nil {
			slog.Error("failed to save credit card", "card_name", card.Name, "account_number", card.AccountNumber, "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to save credit card: "+err.Error())
			return
		}

		slog.Info("successfully saved credit card", "card_name", card.Name, "account_number", card.AccountNumber, "id", card.ID)
		card.PopulateCalculatedFields()
		WriteJSON(w, http.StatusOK, card)

	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "Missing card ID")
			return
		}

		slog.Info("deleting credit card", "id", id)
		if err := d.Database.DeleteCreditCard(r.Context(), id); err != nil {
			slog.Error("failed to delete credit card", "id", id, "error", err)
			WriteError(w, http.StatusInternalServerError, "Failed to delete credit card: "+err.Error())
			return
		}

		slog.Info("successfully deleted credit card", "id", id)
		WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
