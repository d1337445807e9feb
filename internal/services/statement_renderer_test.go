package services

import (
	"testing"
	"time"

	"github.com/rocjay1/card-simulator/internal/billing"
	"github.com/rocjay1/card-simulator/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRenderStatement(t *testing.T) {
	card := models.CreditCard{Name: "Tom & Jerry's Card", AccountNumber: 42, APR: decimal.RequireFromString("18.99")}
	st := models.Statement{
		CardID: "card-1",
		BillingCycle: billing.BillingCycle{
			CycleNumber:         2,
			StartDate:           time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			EndDate:             time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
			DueDate:             time.Date(2024, 3, 27, 0, 0, 0, 0, time.UTC),
			DaysInCycle:         30,
			StartingBalance:     decimal.RequireFromString("1000"),
			AverageDailyBalance: decimal.RequireFromString("1000"),
			InterestCharged:     decimal.RequireFromString("15.61"),
			LateFee:             decimal.RequireFromString("40"),
			EndingBalance:       decimal.RequireFromString("1055.61"),
			MinimumPayment:      decimal.RequireFromString("55.61"),
		},
	}

	out := RenderStatement(card, st)
	assert.Contains(t, out, "Tom &amp; Jerry&#39;s Card (...0042)")
	assert.Contains(t, out, "Statement 2: Feb 1, 2024 to Mar 2, 2024")
	assert.Contains(t, out, "Late fee")
	assert.NotContains(t, out, "Annual fee")
	assert.Contains(t, out, "$1055.61")
	assert.Contains(t, out, "$55.61")
	assert.Contains(t, out, "Mar 27, 2024")
	assert.Contains(t, out, "18.99% APR")

	assert.Equal(t, "card-1/000002.html", StatementBlobName(st))
}

func TestRenderImportReport(t *testing.T) {
	out := RenderImportReport("2024/upload.csv", []string{"Row 3: invalid Amount: <abc>", "Row 9: Missing column: Date"})

	assert.Contains(t, out, "2 row(s)")
	assert.Contains(t, out, "<li>Row 3: invalid Amount: &lt;abc&gt;</li>")
	assert.Contains(t, out, "Missing column: Date")
	assert.Equal(t, "2024/upload.report.html", ImportReportBlobName("2024/upload.csv"))
}
