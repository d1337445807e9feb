package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rocjay1/card-simulator/internal/billing"
	"github.com/rocjay1/card-simulator/internal/models"
	"github.com/shopspring/decimal"
)

// entity is a decoded Table Storage row.
type entity map[string]any

func (e entity) getString(key string) string {
	if v, ok := e[key].(string); ok {
		return v
	}
	return ""
}

// getDecimal reads money written as a string, falling back to numbers written
// by older rows.
func (e entity) getDecimal(key string) decimal.Decimal {
	switch v := e[key].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(v)
	}
	return decimal.Zero
}

func (e entity) getInt(key string) int {
	switch v := e[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		i, _ := strconv.Atoi(v)
		return i
	}
	return 0
}

// getIntPtr is getInt for optional fields; a missing key yields nil.
func (e entity) getIntPtr(key string) *int {
	if _, ok := e[key]; !ok {
		return nil
	}
	v := e.getInt(key)
	return &v
}

func (e entity) getBool(key string) bool {
	switch v := e[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

func (e entity) getDate(key string) time.Time {
	t, err := time.Parse(models.DateLayout, e.getString(key))
	if err != nil {
		return time.Time{}
	}
	return t
}

// stripMetadata drops service-managed properties before a row is written back.
func (e entity) stripMetadata() {
	for key := range e {
		if strings.HasPrefix(key, "odata.") || key == "Timestamp" {
			delete(e, key)
		}
	}
}

func hashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

func statementRowKey(cycleNumber int) string {
	return fmt.Sprintf("%06d", cycleNumber)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateLayout)
}

func cardToEntity(card models.CreditCard) entity {
	return entity{
		"PartitionKey":     cardsPartition,
		"RowKey":           card.ID,
		"Name":             card.Name,
		"AccountNumber":    card.AccountNumber,
		"CreditLimit":      card.CreditLimit.String(),
		"CurrentBalance":   card.CurrentBalance.String(),
		"StatementBalance": card.StatementBalance.String(),
		"APR":              card.APR.String(),
		"CycleStartDay":    card.CycleStartDay,
		"CycleLengthDays":  card.CycleLengthDays,
		"GracePeriodDays":  card.GracePeriod(),
		"FeeProduct":       card.FeeProduct,
		"LastReconciled":   card.LastReconciled,
		"LastClosedCycle":  card.LastClosedCycle,
	}
}

func cardFromEntity(e entity) models.CreditCard {
	return models.CreditCard{
		ID:               e.getString("RowKey"),
		Name:             e.getString("Name"),
		AccountNumber:    e.getInt("AccountNumber"),
		CreditLimit:      e.getDecimal("CreditLimit"),
		CurrentBalance:   e.getDecimal("CurrentBalance"),
		StatementBalance: e.getDecimal("StatementBalance"),
		APR:              e.getDecimal("APR"),
		CycleStartDay:    e.getInt("CycleStartDay"),
		CycleLengthDays:  e.getInt("CycleLengthDays"),
		GracePeriodDays:  e.getIntPtr("GracePeriodDays"),
		FeeProduct:       e.getString("FeeProduct"),
		LastReconciled:   e.getString("LastReconciled"),
		LastClosedCycle:  e.getInt("LastClosedCycle"),
	}
}

// applyStatement records a closed cycle on a card entity: the statement
// balance is replaced and the cycle's charges are added to the current
// balance. It reports false when the card already holds that cycle or a
// later one.
func applyStatement(e entity, cycleNumber int, statementBalance, charges decimal.Decimal) bool {
	if e.getInt("LastClosedCycle") >= cycleNumber {
		return false
	}
	e["LastClosedCycle"] = cycleNumber
	e["StatementBalance"] = statementBalance.String()
	e["CurrentBalance"] = e.getDecimal("CurrentBalance").Add(charges).String()
	return true
}

func transactionToEntity(partitionKey, rowKey string, t models.Transaction, importedAt string) entity {
	txType := t.Type
	if txType == "" {
		txType = billing.TypePurchase
	}
	return entity{
		"PartitionKey":  partitionKey,
		"RowKey":        rowKey,
		"Date":          t.Date,
		"Name":          t.Name,
		"Amount":        t.Amount.String(),
		"AccountNumber": t.AccountNumber,
		"Type":          string(txType),
		"International": t.International,
		"Posted":        t.Posted,
		"ImportedAt":    importedAt,
	}
}

func transactionFromEntity(e entity) models.Transaction {
	return models.Transaction{
		ID:            e.getString("RowKey"),
		Date:          e.getString("Date"),
		Name:          e.getString("Name"),
		AccountNumber: e.getInt("AccountNumber"),
		Amount:        e.getDecimal("Amount"),
		Type:          billing.TransactionType(e.getString("Type")),
		International: e.getBool("International"),
		Posted:        isPosted(e),
	}
}

// isPosted reads the Posted flag. Rows written before the flag existed were
// charged when they were imported.
func isPosted(e entity) bool {
	if _, ok := e["Posted"]; !ok {
		return true
	}
	return e.getBool("Posted")
}

func statementToEntity(st models.Statement) entity {
	return entity{
		"PartitionKey":        st.CardID,
		"RowKey":              statementRowKey(st.CycleNumber),
		"ID":                  st.ID,
		"CycleNumber":         st.CycleNumber,
		"StartDate":           formatDate(st.StartDate),
		"EndDate":             formatDate(st.EndDate),
		"DueDate":             formatDate(st.DueDate),
		"DaysInCycle":         st.DaysInCycle,
		"StartingBalance":     st.StartingBalance.String(),
		"EndingBalance":       st.EndingBalance.String(),
		"AverageDailyBalance": st.AverageDailyBalance.String(),
		"TotalPurchases":      st.TotalPurchases.String(),
		"TotalPayments":       st.TotalPayments.String(),
		"InterestCharged":     st.InterestCharged.String(),
		"FeesCharged":         st.FeesCharged.String(),
		"LateFee":             st.LateFee.String(),
		"OverlimitFee":        st.OverlimitFee.String(),
		"AnnualFee":           st.AnnualFee.String(),
		"MinimumPayment":      st.MinimumPayment.String(),
		"Paid":                st.Paid,
		"CreatedAt":           st.CreatedAt,
	}
}

func statementFromEntity(e entity) models.Statement {
	return models.Statement{
		ID:     e.getString("ID"),
		CardID: e.getString("PartitionKey"),
		BillingCycle: billing.BillingCycle{
			CycleNumber:         e.getInt("CycleNumber"),
			StartDate:           e.getDate("StartDate"),
			EndDate:             e.getDate("EndDate"),
			DueDate:             e.getDate("DueDate"),
			DaysInCycle:         e.getInt("DaysInCycle"),
			StartingBalance:     e.getDecimal("StartingBalance"),
			EndingBalance:       e.getDecimal("EndingBalance"),
			AverageDailyBalance: e.getDecimal("AverageDailyBalance"),
			TotalPurchases:      e.getDecimal("TotalPurchases"),
			TotalPayments:       e.getDecimal("TotalPayments"),
			InterestCharged:     e.getDecimal("InterestCharged"),
			FeesCharged:         e.getDecimal("FeesCharged"),
			LateFee:             e.getDecimal("LateFee"),
			OverlimitFee:        e.getDecimal("OverlimitFee"),
			AnnualFee:           e.getDecimal("AnnualFee"),
			MinimumPayment:      e.getDecimal("MinimumPayment"),
		},
		Paid:      e.getBool("Paid"),
		CreatedAt: e.getString("CreatedAt"),
	}
}
