package csvparse

import (
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/rocjay1/card-simulator/internal/billing"
	"github.com/rocjay1/card-simulator/internal/models"
	"github.com/shopspring/decimal"
)

// ParseCSV parses transactions from a CSV string.
// It returns a list of transactions and a list of error messages for invalid rows.
func ParseCSV(content string) ([]models.Transaction, []string) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, []string{fmt.Sprintf("Failed to read CSV: %v", err)}
	}

	if len(records) < 2 {
		return []models.Transaction{}, nil // Empty or header-only
	}

	headers := parseHeaders(records[0])
	for _, required := range []string{"Date", "Name", "Account Number", "Amount"} {
		if !contains(headers, required) {
			return nil, []string{fmt.Sprintf("Missing column: %s", required)}
		}
	}

	var transactions []models.Transaction
	var errors []string

	for i, record := range records[1:] {
		rowNum := i + 2
		if len(record) < len(headers) {
			errors = append(errors, fmt.Sprintf("Row %d: Not enough fields", rowNum))
			continue
		}

		rowMap := make(map[string]string)
		for j, header := range headers {
			rowMap[header] = strings.TrimSpace(record[j])
		}

		t, err := mapToTransaction(rowMap)
		if err != nil {
			errors = append(errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		transactions = append(transactions, *t)
	}

	return transactions, errors
}

func parseHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, h := range row {
		headers[i] = strings.TrimSpace(h)
	}
	return headers
}

func contains(headers []string, name string) bool {
	for _, h := range headers {
		if h == name {
			return true
		}
	}
	return false
}

func mapToTransaction(row map[string]string) (*models.Transaction, error) {
	dateStr := row["Date"]
	if dateStr == "" {
		return nil, fmt.Errorf("missing Date")
	}
	if _, err := time.Parse(models.DateLayout, dateStr); err != nil {
		return nil, fmt.Errorf("invalid Date format: %s", dateStr)
	}

	name := row["Name"]
	if name == "" {
		return nil, fmt.Errorf("missing Name")
	}

	accNumStr := row["Account Number"]
	if accNumStr == "" {
		return nil, fmt.Errorf("missing Account Number")
	}
	var accNum int
	if _, err := fmt.Sscanf(accNumStr, "%d", &accNum); err != nil {
		return nil, fmt.Errorf("invalid Account Number: %s", accNumStr)
	}

	amountStr := row["Amount"]
	if amountStr == "" {
		return nil, fmt.Errorf("missing Amount")
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Amount: %s", amountStr)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("non-positive Amount: %s", amountStr)
	}

	txnType := billing.TypePurchase
	if typeStr := row["Type"]; typeStr != "" {
		txnType, err = billing.ParseTransactionType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("invalid Type: %s", typeStr)
		}
	}

	var international bool
	switch strings.ToLower(row["International"]) {
	case "true", "yes", "y", "1":
		international = true
	case "false", "no", "n", "0", "":
		international = false
	default:
		return nil, fmt.Errorf("invalid International: %s", row["International"])
	}

	return &models.Transaction{
		Date:          dateStr,
		Name:          name,
		AccountNumber: accNum,
		Amount:        amount,
		Type:          txnType,
		International: international,
	}, nil
}
