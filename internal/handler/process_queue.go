package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"

	"github.com/rocjay1/card-simulator/internal/billing"
	"github.com/rocjay1/card-simulator/internal/csvparse"
	"github.com/rocjay1/card-simulator/internal/models"
	"github.com/rocjay1/card-simulator/internal/services"
	"github.com/shopspring/decimal"
)

// invokeRequest represents the payload from Azure Functions Custom Handler.
type invokeRequest struct {
	Data     map[string]any `json:"Data"`
	Metadata map[string]any `json:"Metadata"`
}

// importMessage is the queue payload written by HandleUpload.
type importMessage struct {
	BlobName string `json:"blob_name"`
	Filename string `json:"filename"`
}

// ProcessQueue handles the queue trigger for processing uploaded CSVs.
func (d *Dependencies) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	var invokeReq invokeRequest
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("failed to read queue request body", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	if err := json.Unmarshal(bodyBytes, &invokeReq); err != nil {
		slog.Error("failed to unmarshal queue request", "error", err)
		WriteError(w, http.StatusBadRequest, "Failed to unmarshal request")
		return
	}

	queueItemVal, ok := invokeReq.Data["queueItem"]
	if !ok {
		queueItemVal, ok = invokeReq.Data["queueitem"]
		if !ok {
			WriteError(w, http.StatusBadRequest, "Missing queueItem in Data")
			return
		}
	}

	queueItemStr, ok := queueItemVal.(string)
	if !ok {
		WriteError(w, http.StatusBadRequest, "queueItem is not a string")
		return
	}

	var msg importMessage
	if err := json.Unmarshal([]byte(queueItemStr), &msg); err != nil {
		slog.Error("failed to unmarshal queueItem", "error", err)
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid queueItem JSON: %v", err))
		return
	}
	if msg.BlobName == "" {
		slog.Warn("queue message missing blob_name", "queue_item", queueItemStr)
		WriteError(w, http.StatusBadRequest, "Missing blob_name")
		return
	}

	ctx := r.Context()
	container := d.Config.Storage.UploadsContainer
	slog.Info("processing queue item", "blob_name", msg.BlobName, "container", container)

	csvContent, err := d.Blob.DownloadText(ctx, container, msg.BlobName)
	if err != nil {
		slog.Error("failed to download CSV from blob", "blob_name", msg.BlobName, "container", container, "error", err)
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to download CSV: %v", err))
		return
	}

	transactions, rowErrors := csvparse.ParseCSV(csvContent)
	slog.Info("parsed CSV content", "blob_name", msg.BlobName, "transactions_count", len(transactions), "errors_count", len(rowErrors))

	if len(rowErrors) > 0 {
		reportName := services.ImportReportBlobName(msg.BlobName)
		if err := d.Blob.UploadHTML(ctx, container, reportName, services.RenderImportReport(msg.BlobName, rowErrors)); err != nil {
			slog.Warn("failed to upload import report", "blob_name", reportName, "error", err)
		}
	}
	if len(transactions) == 0 {
		// Consume the message so it doesn't retry forever.
		slog.Warn("no valid transactions in upload", "blob_name", msg.BlobName, "errors_count", len(rowErrors))
		w.WriteHeader(http.StatusOK)
		return
	}

	pending, err := d.Database.SaveTransactions(ctx, transactions)
	if err != nil {
		slog.Error("failed to save transactions", "total_count", len(transactions), "error", err)
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save transactions: %v", err))
		return
	}
	slog.Info("saved transactions", "pending_count", len(pending), "total_parsed", len(transactions))

	if len(pending) > 0 {
		// Unposted rows come back from SaveTransactions when the host redelivers the message.
		if err := d.postTransactions(ctx, pending); err != nil {
			slog.Error("failed to post imported transactions", "blob_name", msg.BlobName, "error", err)
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to post transactions: %v", err))
			return
		}
	}

	slog.Info("queue processing complete", "blob_name", msg.BlobName, "posted_count", len(pending))
	w.WriteHeader(http.StatusOK)
}

// postTransactions charges each pending transaction, plus any fee it incurs,
// to its card. Fees are stored as FEE transactions so later cycles see them.
// Transactions predating a card's reconciliation date are already part of
// its balance and are skipped. Rows are marked posted once their card's
// balance update succeeds.
func (d *Dependencies) postTransactions(ctx context.Context, transactions []models.Transaction) error {
	cards, err := d.Database.GetCreditCards(ctx)
	if err != nil {
		return fmt.Errorf("failed to get credit cards for balance updates: %w", err)
	}
	accounts := make(map[int]*models.CreditCard, len(cards))
	for i := range cards {
		accounts[cards[i].AccountNumber] = &cards[i]
	}

	deltas := make(map[int]decimal.Decimal)
	charged := make(map[int][]models.Transaction)
	var settled, feeTransactions []models.Transaction
	for _, t := range transactions {
		card, ok := accounts[t.AccountNumber]
		if !ok {
			slog.Warn("transaction for unknown card", "account_number", t.AccountNumber, "date", t.Date)
			continue
		}
		if card.LastReconciled != "" && t.Date < card.LastReconciled {
			slog.Info("skipping old transaction", "transaction_date", t.Date, "card_name", card.Name, "last_reconciled", card.LastReconciled)
			settled = append(settled, t)
			continue
		}

		fees, err := d.Config.FeeStructure(card.FeeProduct)
		if err != nil {
			return err
		}
		txn, err := t.ToBilling()
		if err != nil {
			slog.Warn("skipping invalid transaction", "date", t.Date, "name", t.Name, "error", err)
			continue
		}
		impact, err := billing.PreviewImpact(card.AccountState(), fees, txn)
		if err != nil {
			slog.Warn("cannot price transaction", "card_name", card.Name, "error", err)
			continue
		}

		card.CurrentBalance = card.CurrentBalance.Add(impact.TotalCharged)
		deltas[t.AccountNumber] = deltas[t.AccountNumber].Add(impact.TotalCharged)
		charged[t.AccountNumber] = append(charged[t.AccountNumber], t)
		if impact.Fees.IsPositive() {
			// Charged through the parent row's delta.
			feeTransactions = append(feeTransactions, models.Transaction{
				Date:          t.Date,
				Name:          t.Name + " fee",
				AccountNumber: t.AccountNumber,
				Amount:        impact.Fees,
				Type:          billing.TypeFee,
				Posted:        true,
			})
		}
		slog.Debug("posted transaction",
			"card_name", card.Name,
			"total_charged", impact.TotalCharged.String(),
			"utilization_pct", billing.RoundCents(impact.NewUtilizationPct).String(),
		)
	}

	if len(feeTransactions) > 0 {
		if _, err := d.Database.SaveTransactions(ctx, feeTransactions); err != nil {
			return fmt.Errorf("failed to save fee transactions: %w", err)
		}
	}

	accountNumbers := make([]int, 0, len(deltas))
	for accNum := range deltas {
		accountNumbers = append(accountNumbers, accNum)
	}
	sort.Ints(accountNumbers)

	var firstErr error
	for _, accNum := range accountNumbers {
		delta := deltas[accNum]
		if err := d.Database.UpdateCardBalance(ctx, accNum, delta); err != nil {
			slog.Error("failed to update card balance", "account_number", accNum, "delta", delta.String(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		slog.Info("updated card balance", "account_number", accNum, "delta", delta.String())
		settled = append(settled, charged[accNum]...)
	}

	if len(settled) > 0 {
		if err := d.Database.MarkTransactionsPosted(ctx, settled); err != nil {
			slog.Error("failed to mark transactions posted", "count", len(settled), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
