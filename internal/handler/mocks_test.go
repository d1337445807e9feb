package handler

import (
	"context"
	"time"

	"github.com/rocjay1/card-simulator/internal/models"
	"github.com/shopspring/decimal"
)

// MockDatabaseClient is a mock implementation of DatabaseClient
type MockDatabaseClient struct {
	GetCreditCardsFunc         func(ctx context.Context) ([]models.CreditCard, error)
	GetCreditCardFunc          func(ctx context.Context, id string) (*models.CreditCard, error)
	SaveCreditCardFunc         func(ctx context.Context, card models.CreditCard) error
	DeleteCreditCardFunc       func(ctx context.Context, id string) error
	UpdateCardBalanceFunc      func(ctx context.Context, accountNumber int, delta decimal.Decimal) error
	UpdateCardStatementFunc    func(ctx context.Context, cardID string, cycleNumber int, statementBalance, charges decimal.Decimal) error
	SaveTransactionsFunc       func(ctx context.Context, transactions []models.Transaction) ([]models.Transaction, error)
	MarkTransactionsPostedFunc func(ctx context.Context, transactions []models.Transaction) error
	GetTransactionsFunc        func(ctx context.Context, accountNumber int, from, to time.Time) ([]models.Transaction, error)
	GetLatestStatementFunc     func(ctx context.Context, cardID string) (*models.Statement, error)
	SaveStatementFunc          func(ctx context.Context, st models.Statement) error
	MarkStatementPaidFunc      func(ctx context.Context, cardID string, cycleNumber int) error
}

func (m *MockDatabaseClient) GetCreditCards(ctx context.Context) ([]models.CreditCard, error) {
	if m.GetCreditCardsFunc != nil {
		return m.GetCreditCardsFunc(ctx)
	}
	return nil, nil
}

func (m *MockDatabaseClient) GetCreditCard(ctx context.Context, id string) (*models.CreditCard, error) {
	if m.GetCreditCardFunc != nil {
		return m.GetCreditCardFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockDatabaseClient) SaveCreditCard(ctx context.Context, card models.CreditCard) error {
	if m.SaveCreditCardFunc != nil {
		return m.SaveCreditCardFunc(ctx, card)
	}
	return nil
}

func (m *MockDatabaseClient) DeleteCreditCard(ctx context.Context, id string) error {
	if m.DeleteCreditCardFunc != nil {
		return m.DeleteCreditCardFunc(ctx, id)
	}
	return nil
}

func (m *MockDatabaseClient) UpdateCardBalance(ctx context.Context, accountNumber int, delta decimal.Decimal) error {
	if m.UpdateCardBalanceFunc != nil {
		return m.UpdateCardBalanceFunc(ctx, accountNumber, delta)
	}
	return nil
}

func (m *MockDatabaseClient) UpdateCardStatement(ctx context.Context, cardID string, cycleNumber int, statementBalance, charges decimal.Decimal) error {
	if m.UpdateCardStatementFunc != nil {
		return m.UpdateCardStatementFunc(ctx, cardID, cycleNumber, statementBalance, charges)
	}
	return nil
}

func (m *MockDatabaseClient) SaveTransactions(ctx context.Context, transactions []models.Transaction) ([]models.Transaction, error) {
	if m.SaveTransactionsFunc != nil {
		return m.SaveTransactionsFunc(ctx, transactions)
	}
	return transactions, nil
}

func (m *MockDatabaseClient) MarkTransactionsPosted(ctx context.Context, transactions []models.Transaction) error {
	if m.MarkTransactionsPostedFunc != nil {
		return m.MarkTransactionsPostedFunc(ctx, transactions)
	}
	return nil
}

func (m *MockDatabaseClient) GetTransactions(ctx context.Context, accountNumber int, from, to time.Time) ([]models.Transaction, error) {
	if m.GetTransactionsFunc != nil {
		return m.GetTransactionsFunc(ctx, accountNumber, from, to)
	}
	return nil, nil
}

func (m *MockDatabaseClient) GetLatestStatement(ctx context.Context, cardID string) (*models.Statement, error) {
	if m.GetLatestStatementFunc != nil {
		return m.GetLatestStatementFunc(ctx, cardID)
	}
	return nil, nil
}

func (m *MockDatabaseClient) SaveStatement(ctx context.Context, st models.Statement) error {
	if m.SaveStatementFunc != nil {
		return m.SaveStatementFunc(ctx, st)
	}
	return nil
}

func (m *MockDatabaseClient) MarkStatementPaid(ctx context.Context, cardID string, cycleNumber int) error {
	if m.MarkStatementPaidFunc != nil {
		return m.MarkStatementPaidFunc(ctx, cardID, cycleNumber)
	}
	return nil
}

// MockBlobClient is a mock implementation of BlobClient
type MockBlobClient struct {
	UploadTextFunc   func(ctx context.Context, containerName, blobName, content string) error
	UploadHTMLFunc   func(ctx context.Context, containerName, blobName, html string) error
	DownloadTextFunc func(ctx context.Context, containerName, blobName string) (string, error)
}

func (m *MockBlobClient) UploadText(ctx context.Context, containerName, blobName, content string) error {
	if m.UploadTextFunc != nil {
		return m.UploadTextFunc(ctx, containerName, blobName, content)
	}
	return nil
}

func (m *MockBlobClient) UploadHTML(ctx context.Context, containerName, blobName, html string) error {
	if m.UploadHTMLFunc != nil {
		return m.UploadHTMLFunc(ctx, containerName, blobName, html)
	}
	return nil
}

func (m *MockBlobClient) DownloadText(ctx context.Context, containerName, blobName string) (string, error) {
	if m.DownloadTextFunc != nil {
		return m.DownloadTextFunc(ctx, containerName, blobName)
	}
	return "", nil
}

// MockQueueClient is a mock implementation of QueueClient
type MockQueueClient struct {
	EnqueueMessageFunc func(ctx context.Context, queueName string, message any) error
}

func (m *MockQueueClient) EnqueueMessage(ctx context.Context, queueName string, message any) error {
	if m.EnqueueMessageFunc != nil {
		return m.EnqueueMessageFunc(ctx, queueName, message)
	}
	return nil
}
