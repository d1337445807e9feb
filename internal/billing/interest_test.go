package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverageDailyBalance_ConstantBalance(t *testing.T) {
	adb, err := AverageDailyBalance(dec("1234.56"), nil, day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)
	assertDecimal(t, "1234.56", adb)
}

func TestAverageDailyBalance_MidCyclePurchase(t *testing.T) {
	txns := []Transaction{
		{Type: TypePurchase, Amount: dec("500"), Timestamp: time.Date(2024, 1, 16, 23, 59, 0, 0, time.UTC)},
	}
	adb, err := AverageDailyBalance(dec("0"), txns, day(2024, 1, 1), day(2024, 1, 31))
	require.NoError(t, err)
	assertDecimal(t, "250", adb)
}

func TestAverageDailyBalance_PaymentLowersBalance(t *testing.T) {
	txns := []Transaction{
		{Type: TypePayment, Amount: dec("400"), Timestamp: day(2024, 1, 11)},
	}
	adb, err := AverageDailyBalance(dec("1000"), txns, day(2024, 1, 1), day(2024, 1, 21))
	require.NoError(t, err)
	assertDecimal(t, "800", adb)
}

func TestAverageDailyBalance_WindowEdges(t *testing.T) {
	txns := []Transaction{
		{Type: TypePurchase, Amount: dec("300"), Timestamp: day(2024, 1, 21)},
		{Type: TypePurchase, Amount: dec("100"), Timestamp: day(2023, 12, 25)},
	}
	adb, err := AverageDailyBalance(dec("0"), txns, day(2024, 1, 1), day(2024, 1, 21))
	require.NoError(t, err)
	assertDecimal(t, "100", adb)
	assert.True(t, txns[0].Amount.Equal(dec("300")), "input order untouched")
}

func TestAverageDailyBalance_InvalidInput(t *testing.T) {
	_, err := AverageDailyBalance(dec("100"), nil, day(2024, 1, 1), day(2024, 1, 1))
	require.Error(t, err)
	var inputErr *InvalidInputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, "end_date", inputErr.Field)

	_, err = AverageDailyBalance(dec("100"), nil, day(2024, 2, 1), day(2024, 1, 1))
	assert.True(t, errors.Is(err, ErrInvalidInput))

	bad := []Transaction{{Type: TypePurchase, Amount: dec("-5"), Timestamp: day(2024, 1, 2)}}
	_, err = AverageDailyBalance(dec("100"), bad, day(2024, 1, 1), day(2024, 1, 31))
	assert.True(t, errors.Is(err, ErrInvalidInput))

	unknown := []Transaction{{Type: "CHARGEBACK", Amount: dec("5"), Timestamp: day(2024, 1, 2)}}
	_, err = AverageDailyBalance(dec("100"), unknown, day(2024, 1, 1), day(2024, 1, 31))
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestPeriodInterest(t *testing.T) {
	assertDecimal(t, "15", PeriodInterest(dec("1000"), dec("18.25"), 30))
	assertDecimal(t, "0", PeriodInterest(dec("0"), dec("18.25"), 30))
	assertDecimal(t, "0", PeriodInterest(dec("-50"), dec("18.25"), 30))
	assertDecimal(t, "0", PeriodInterest(dec("1000"), dec("0"), 30))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 30, DaysBetween(day(2024, 1, 1), day(2024, 1, 31)))
	assert.Equal(t, 29, DaysBetween(time.Date(2024, 2, 1, 18, 0, 0, 0, time.UTC), day(2024, 3, 1)))
}
