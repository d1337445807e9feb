package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rocjay1/card-simulator/internal/billing"
	"github.com/rocjay1/card-simulator/internal/models"
	"github.com/rocjay1/card-simulator/internal/services"
)

// maxCatchUpCycles bounds how many overdue cycles one card closes per run.
const maxCatchUpCycles = 12

var errCycleOpen = errors.New("billing cycle still open")

// HandleStatements returns the latest statement (GET) or closes the card's
// next billing cycle (POST).
func (d *Dependencies) HandleStatements(w http.ResponseWriter, r *http.Request) {
	cardID := r.URL.Query().Get("card_id")
	if cardID == "" {
		WriteError(w, http.StatusBadRequest, "Missing card_id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		st, err := d.Database.GetLatestStatement(r.Context(), cardID)
		if err != nil {
			writeFailure(w, "Failed to get statement", err)
			return
		}
		if st == nil {
			WriteError(w, http.StatusNotFound, "No statements for card "+cardID)
			return
		}
		WriteJSON(w, http.StatusOK, st)

	case http.MethodPost:
		card, err := d.Database.GetCreditCard(r.Context(), cardID)
		if err != nil {
			writeFailure(w, "Failed to get credit card", err)
			return
		}
		st, err := d.closeNextCycle(r.Context(), *card, d.now())
		if err != nil {
			writeFailure(w, "Failed to close billing cycle", err)
			return
		}
		WriteJSON(w, http.StatusCreated, st)

	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// HandleStatementPaid marks a statement as paid.
func (d *Dependencies) HandleStatementPaid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	cardID := r.URL.Query().Get("card_id")
	cycle, err := strconv.Atoi(r.URL.Query().Get("cycle"))
	if cardID == "" || err != nil || cycle <= 0 {
		WriteError(w, http.StatusBadRequest, "card_id and a positive cycle are required")
		return
	}

	if err := d.Database.MarkStatementPaid(r.Context(), cardID, cycle); err != nil {
		writeFailure(w, "Failed to mark statement paid", err)
		return
	}
	slog.Info("marked statement paid", "card_id", cardID, "cycle", cycle)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

// CloseDueCycles closes every cycle that has ended for every card. A card
// that fails is logged and skipped; the returned error reports the first
// failure after all cards were attempted.
func (d *Dependencies) CloseDueCycles(ctx context.Context) (int, error) {
	cards, err := d.Database.GetCreditCards(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list credit cards: %w", err)
	}

	asOf := d.now()
	closed := 0
	var firstErr error
	for _, card := range cards {
		n, err := d.closeCardCycles(ctx, card, asOf)
		closed += n
		if err != nil {
			slog.Error("failed to close billing cycles", "card_id", card.ID, "card_name", card.Name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("card %s: %w", card.ID, err)
			}
		}
	}

	slog.Info("cycle closing complete", "cards", len(cards), "statements_closed", closed)
	return closed, firstErr
}

func (d *Dependencies) closeCardCycles(ctx context.Context, card models.CreditCard, asOf time.Time) (int, error) {
	for closed := 0; closed < maxCatchUpCycles; closed++ {
		if closed > 0 {
			refreshed, err := d.Database.GetCreditCard(ctx, card.ID)
			if err != nil {
				return closed, err
			}
			card = *refreshed
		}
		if _, err := d.closeNextCycle(ctx, card, asOf); err != nil {
			if errors.Is(err, errCycleOpen) {
				return closed, nil
			}
			return closed, err
		}
	}
	slog.Warn("card still has overdue cycles", "card_id", card.ID, "closed", maxCatchUpCycles)
	return maxCatchUpCycles, nil
}

// closeNextCycle generates, persists and archives the card's next statement.
// It returns errCycleOpen when that cycle has not ended by asOf.
func (d *Dependencies) closeNextCycle(ctx context.Context, card models.CreditCard, asOf time.Time) (*models.Statement, error) {
	prev, err := d.Database.GetLatestStatement(ctx, card.ID)
	if err != nil {
		return nil, err
	}
	if prev != nil && card.LastClosedCycle < prev.CycleNumber {
		// The statement was saved but its charges never reached the card.
		slog.Warn("applying pending statement", "card_id", card.ID, "cycle", prev.CycleNumber, "card_cycle", card.LastClosedCycle)
		if err := d.applyStatement(ctx, *prev); err != nil {
			return nil, err
		}
		refreshed, err := d.Database.GetCreditCard(ctx, card.ID)
		if err != nil {
			return nil, err
		}
		card = *refreshed
	}

	account := card.AccountState()
	var (
		dates    billing.CycleDates
		from     time.Time
		engineAt = asOf
	)
	if prev != nil {
		dates, err = billing.NextCycleDates(prev.BillingCycle, account)
		// Activity on the previous cycle's end date is carried into this one.
		from = prev.EndDate
	} else {
		// The first cycle opens at the reconciled balance.
		account.CurrentBalance = card.StatementBalance
		engineAt, err = firstCycleAnchor(card, asOf)
		if err != nil {
			return nil, err
		}
		dates, err = billing.FirstCycleDates(engineAt, account)
		from = dates.Start
	}
	if err != nil {
		return nil, err
	}
	if asOf.Before(dates.End) {
		return nil, fmt.Errorf("%w: ends %s", errCycleOpen, dates.End.Format(models.DateLayout))
	}

	fees, err := d.Config.FeeStructure(card.FeeProduct)
	if err != nil {
		return nil, err
	}
	stored, err := d.Database.GetTransactions(ctx, card.AccountNumber, from, dates.End)
	if err != nil {
		return nil, err
	}
	txns, err := models.ToBillingTransactions(stored)
	if err != nil {
		return nil, err
	}

	cycle, err := billing.GenerateCycle(billing.CycleRequest{
		Previous:     prev.PreviousCycle(),
		Account:      account,
		Fees:         fees,
		Transactions: txns,
		AsOf:         engineAt,
	})
	if err != nil {
		return nil, err
	}

	st := models.Statement{
		ID:           uuid.New().String(),
		CardID:       card.ID,
		BillingCycle: cycle,
		CreatedAt:    asOf.Format(time.RFC3339),
	}
	if err := d.Database.SaveStatement(ctx, st); err != nil {
		return nil, err
	}
	if err := d.applyStatement(ctx, st); err != nil {
		return nil, err
	}
	slog.Info("closed billing cycle",
		"card_id", card.ID,
		"cycle", cycle.CycleNumber,
		"ending_balance", cycle.EndingBalance.String(),
		"interest", cycle.InterestCharged.String(),
		"fees", cycle.FeesCharged.String(),
	)

	blobName := services.StatementBlobName(st)
	if err := d.Blob.UploadHTML(ctx, d.Config.Storage.StatementsContainer, blobName, services.RenderStatement(card, st)); err != nil {
		slog.Warn("failed to archive statement", "card_id", card.ID, "blob_name", blobName, "error", err)
	}
	return &st, nil
}

// applyStatement moves a saved statement's balance and charges onto its card.
// The card ignores cycles it already holds, so a retried or concurrent close
// charges each cycle once.
func (d *Dependencies) applyStatement(ctx context.Context, st models.Statement) error {
	charges := st.InterestCharged.Add(st.FeesCharged)
	if err := d.Database.UpdateCardStatement(ctx, st.CardID, st.CycleNumber, st.EndingBalance, charges); err != nil {
		return fmt.Errorf("failed to apply statement %d to card: %w", st.CycleNumber, err)
	}
	return nil
}

// firstCycleAnchor is the date the card's first cycle is framed from.
func firstCycleAnchor(card models.CreditCard, asOf time.Time) (time.Time, error) {
	if card.LastReconciled == "" {
		return asOf, nil
	}
	anchor, err := time.Parse(models.DateLayout, card.LastReconciled)
	if err != nil {
		return time.Time{}, &billing.InvalidInputError{Field: "last_reconciled", Reason: err.Error()}
	}
	return anchor, nil
}
