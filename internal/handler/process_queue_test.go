package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rocjay1/card-simulator/internal/billing"
	"github.com/rocjay1/card-simulator/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queueRequest(t *testing.T, item string) *http.Request {
	t.Helper()
	body, err := json.Marshal(map[string]any{"Data": map[string]any{"queueItem": item}})
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/ProcessQueue", bytes.NewBuffer(body))
}

func TestProcessQueue_Success(t *testing.T) {
	deps, mockDb, mockBlob, _ := newTestDeps(t, day(2024, 3, 10))

	blobContent := "Date,Name,Account Number,Amount,Type,International\n" +
		"2024-03-05,Coffee,1234,4.50,,\n" +
		"2024-03-06,Hotel,1234,200,PURCHASE,yes\n" +
		"2024-03-07,Payment,1234,100,PAYMENT,\n" +
		"2024-02-20,Before reconcile,1234,75,,\n" +
		"2024-03-08,Broken,1234,abc,,\n"
	mockBlob.DownloadTextFunc = func(ctx context.Context, containerName, blobName string) (string, error) {
		assert.Equal(t, "uploads", containerName)
		assert.Equal(t, "test-blob.csv", blobName)
		return blobContent, nil
	}
	var reportName string
	mockBlob.UploadHTMLFunc = func(ctx context.Context, containerName, blobName, html string) error {
		reportName = blobName
		assert.Contains(t, html, "Row 6")
		return nil
	}

	var saved [][]models.Transaction
	mockDb.SaveTransactionsFunc = func(ctx context.Context, transactions []models.Transaction) ([]models.Transaction, error) {
		saved = append(saved, transactions)
		return transactions, nil
	}

	card := testCard()
	card.LastReconciled = "2024-03-01"
	mockDb.GetCreditCardsFunc = func(ctx context.Context) ([]models.CreditCard, error) {
		return []models.CreditCard{card}, nil
	}

	var delta decimal.Decimal
	mockDb.UpdateCardBalanceFunc = func(ctx context.Context, accountNumber int, d decimal.Decimal) error {
		assert.Equal(t, 1234, accountNumber)
		delta = d
		return nil
	}
	var posted []string
	mockDb.MarkTransactionsPostedFunc = func(ctx context.Context, transactions []models.Transaction) error {
		for _, txn := range transactions {
			posted = append(posted, txn.Name)
		}
		return nil
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"blob_name": "test-blob.csv"}`))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []string{"Coffee", "Hotel", "Payment", "Before reconcile"}, posted)
	assert.Equal(t, "test-blob.report.html", reportName)

	require.Len(t, saved, 2)
	assert.Len(t, saved[0], 4)
	require.Len(t, saved[1], 1)
	fee := saved[1][0]
	assert.Equal(t, billing.TypeFee, fee.Type)
	assert.True(t, fee.Posted)
	assert.Equal(t, "Hotel fee", fee.Name)
	assert.True(t, fee.Amount.Equal(dec("6")), fee.Amount.String())

	// 4.50 + (200 + 6 foreign fee) - 100; the pre-reconcile row is skipped.
	assert.True(t, delta.Equal(dec("110.50")), delta.String())
}

func TestProcessQueue_BalanceUpdateFailureIsRetried(t *testing.T) {
	deps, mockDb, mockBlob, _ := newTestDeps(t, day(2024, 3, 10))
	mockBlob.DownloadTextFunc = func(ctx context.Context, containerName, blobName string) (string, error) {
		return "Date,Name,Account Number,Amount\n" +
			"2024-02-20,Before reconcile,1234,75\n" +
			"2024-03-05,Coffee,1234,4.50\n", nil
	}
	card := testCard()
	card.LastReconciled = "2024-03-01"
	mockDb.GetCreditCardsFunc = func(ctx context.Context) ([]models.CreditCard, error) {
		return []models.CreditCard{card}, nil
	}

	// Storage keeps unposted rows pending across deliveries.
	postedRows := map[string]bool{}
	mockDb.SaveTransactionsFunc = func(ctx context.Context, transactions []models.Transaction) ([]models.Transaction, error) {
		var pending []models.Transaction
		for _, txn := range transactions {
			txn.ID = txn.Date + "/" + txn.Name
			if !txn.Posted && !postedRows[txn.ID] {
				pending = append(pending, txn)
			}
		}
		return pending, nil
	}
	mockDb.MarkTransactionsPostedFunc = func(ctx context.Context, transactions []models.Transaction) error {
		for _, txn := range transactions {
			postedRows[txn.ID] = true
		}
		return nil
	}
	attempts := 0
	balance := card.CurrentBalance
	mockDb.UpdateCardBalanceFunc = func(ctx context.Context, accountNumber int, delta decimal.Decimal) error {
		attempts++
		if attempts == 1 {
			return errors.New("table unavailable")
		}
		balance = balance.Add(delta)
		return nil
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"blob_name": "retry.csv"}`))
	require.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())
	assert.True(t, postedRows["2024-02-20/Before reconcile"])
	assert.False(t, postedRows["2024-03-05/Coffee"])

	w = httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"blob_name": "retry.csv"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, postedRows["2024-03-05/Coffee"])
	assert.True(t, balance.Equal(dec("504.50")), balance.String())

	// A third delivery finds nothing left to post.
	w = httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"blob_name": "retry.csv"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, attempts)
}

func TestProcessQueue_NothingNew(t *testing.T) {
	deps, mockDb, mockBlob, _ := newTestDeps(t, day(2024, 3, 10))
	mockBlob.DownloadTextFunc = func(ctx context.Context, containerName, blobName string) (string, error) {
		return "Date,Name,Account Number,Amount\n2024-03-05,Coffee,1234,4.50\n", nil
	}
	mockDb.SaveTransactionsFunc = func(ctx context.Context, transactions []models.Transaction) ([]models.Transaction, error) {
		return nil, nil
	}
	mockDb.GetCreditCardsFunc = func(ctx context.Context) ([]models.CreditCard, error) {
		t.Fatal("cards should not be loaded when nothing is new")
		return nil, nil
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"blob_name": "dup.csv"}`))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProcessQueue_DownloadError(t *testing.T) {
	deps, _, mockBlob, _ := newTestDeps(t, day(2024, 3, 10))
	mockBlob.DownloadTextFunc = func(ctx context.Context, containerName, blobName string) (string, error) {
		return "", errors.New("download failed")
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"blob_name": "test-blob.csv"}`))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to download CSV")
}

func TestProcessQueue_ValidationError(t *testing.T) {
	deps, mockDb, mockBlob, _ := newTestDeps(t, day(2024, 3, 10))
	mockBlob.DownloadTextFunc = func(ctx context.Context, containerName, blobName string) (string, error) {
		return "Invalid CSV Content\nstill,invalid", nil
	}
	reported := false
	mockBlob.UploadHTMLFunc = func(ctx context.Context, containerName, blobName, html string) error {
		reported = true
		return nil
	}
	mockDb.SaveTransactionsFunc = func(ctx context.Context, transactions []models.Transaction) ([]models.Transaction, error) {
		t.Fatal("nothing should be saved")
		return nil, nil
	}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{"blob_name": "test-blob.csv"}`))

	// The message is consumed so the host does not retry it.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reported)
}

func TestProcessQueue_InvalidBody(t *testing.T) {
	deps := &Dependencies{}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()

	deps.ProcessQueue(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessQueue_MissingBlobName(t *testing.T) {
	deps := &Dependencies{}

	w := httptest.NewRecorder()
	deps.ProcessQueue(w, queueRequest(t, `{}`))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
