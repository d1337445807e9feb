package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rocjay1/card-simulator/internal/config"
	"github.com/rocjay1/card-simulator/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestDeps wires mocks with the default configuration and a fixed clock.
func newTestDeps(t *testing.T, now time.Time) (*Dependencies, *MockDatabaseClient, *MockBlobClient, *MockQueueClient) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)

	db, blob, queue := &MockDatabaseClient{}, &MockBlobClient{}, &MockQueueClient{}
	deps := &Dependencies{
		Database: db,
		Blob:     blob,
		Queue:    queue,
		Config:   cfg,
		Now:      func() time.Time { return now },
	}
	return deps, db, blob, queue
}

func testCard() models.CreditCard {
	grace := 25
	return models.CreditCard{
		ID:              "card-1",
		Name:            "Everyday",
		AccountNumber:   1234,
		CreditLimit:     dec("5000"),
		CurrentBalance:  dec("500"),
		APR:             dec("18.99"),
		CycleStartDay:   1,
		CycleLengthDays: 30,
		GracePeriodDays: &grace,
		FeeProduct:      "standard",
		LastReconciled:  "2024-01-01",
	}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(method, target, bytes.NewReader(data))
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}
