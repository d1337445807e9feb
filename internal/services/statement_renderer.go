package services

import (
	"fmt"
	"html"
	"strings"

	"github.com/rocjay1/card-simulator/internal/models"
	"github.com/shopspring/decimal"
)

const displayDate = "Jan 2, 2006"

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func statementRow(label, value string) string {
	return fmt.Sprintf(`<tr><td style="padding: 6px 0; color: #555;">%s</td><td style="padding: 6px 0; text-align: right;">%s</td></tr>`, label, value)
}

// StatementBlobName is where a rendered statement is archived.
func StatementBlobName(st models.Statement) string {
	return fmt.Sprintf("%s/%06d.html", st.CardID, st.CycleNumber)
}

// RenderStatement renders a closed billing cycle as a standalone HTML document.
func RenderStatement(card models.CreditCard, st models.Statement) string {
	var rows strings.Builder
	rows.WriteString(statementRow("Previous balance", money(st.StartingBalance)))
	rows.WriteString(statementRow("Purchases and advances", money(st.TotalPurchases)))
	rows.WriteString(statementRow("Payments and credits", "-"+money(st.TotalPayments)))
	rows.WriteString(statementRow("Interest charged", money(st.InterestCharged)))
	if st.LateFee.IsPositive() {
		rows.WriteString(statementRow("Late fee", money(st.LateFee)))
	}
	if st.OverlimitFee.IsPositive() {
		rows.WriteString(statementRow("Overlimit fee", money(st.OverlimitFee)))
	}
	if st.AnnualFee.IsPositive() {
		rows.WriteString(statementRow("Annual fee", money(st.AnnualFee)))
	}
	rows.WriteString(statementRow("<strong>New balance</strong>", "<strong>"+money(st.EndingBalance)+"</strong>"))

	return fmt.Sprintf(`
		<html>
		<body style="font-family: 'Segoe UI', sans-serif; color: #333; line-height: 1.6; background-color: #f4f4f4; margin: 0; padding: 20px;">
			<div style="max-width: 600px; margin: 0 auto; background: white; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
				<div style="background-color: #0078d4; padding: 20px; text-align: center; color: white;">
					<h2 style="margin: 0;">%s (...%04d)</h2>
					<p style="margin: 4px 0 0;">Statement %d: %s to %s</p>
				</div>
				<div style="padding: 20px;">
					<table style="width: 100%%; border-collapse: collapse;">%s</table>
					<p>Average daily balance %s over %d days at %s%% APR.</p>
					<div style="background-color: #f0f6ff; border-left: 5px solid #0078d4; padding: 15px;">
						Minimum payment <strong>%s</strong> due by <strong>%s</strong>
					</div>
				</div>
			</div>
		</body>
		</html>
	`,
		html.EscapeString(card.Name), card.AccountNumber,
		st.CycleNumber, st.StartDate.Format(displayDate), st.EndDate.Format(displayDate),
		rows.String(),
		money(st.AverageDailyBalance), st.DaysInCycle, card.APR.String(),
		money(st.MinimumPayment), st.DueDate.Format(displayDate),
	)
}

// ImportReportBlobName is where the report for a processed upload is archived.
func ImportReportBlobName(uploadBlob string) string {
	return strings.TrimSuffix(uploadBlob, ".csv") + ".report.html"
}

// RenderImportReport renders the rows an upload had to skip.
func RenderImportReport(blobName string, rowErrors []string) string {
	var items strings.Builder
	for _, e := range rowErrors {
		items.WriteString(fmt.Sprintf("<li>%s</li>", html.EscapeString(e)))
	}

	return fmt.Sprintf(`
		<html>
		<body style="font-family: 'Segoe UI', sans-serif; color: #333; line-height: 1.6; background-color: #f4f4f4; margin: 0; padding: 20px;">
			<div style="max-width: 600px; margin: 0 auto; background: white; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
				<div style="background-color: #d13438; padding: 20px; text-align: center; color: white;">
					<h2 style="margin: 0;">Import Report</h2>
				</div>
				<div style="padding: 20px;">
					<p>%d row(s) of <code>%s</code> were skipped:</p>
					<ul style="margin-bottom: 0; padding-left: 20px;">%s</ul>
				</div>
			</div>
		</body>
		</html>
	`, len(rowErrors), html.EscapeString(blobName), items.String())
}
