package handler

import (
	"context"
	"time"

	"github.com/rocjay1/card-simulator/internal/models"
	"github.com/shopspring/decimal"
)

// DatabaseClient defines the interface for database operations used by handlers.
type DatabaseClient interface {
	GetCreditCards(ctx context.Context) ([]models.CreditCard, error)
	GetCreditCard(ctx context.Context, id string) (*models.CreditCard, error)
	SaveCreditCard(ctx context.Context, card models.CreditCard) error
	DeleteCreditCard(ctx context.Context, id string) error
	UpdateCardBalance(ctx context.Context, accountNumber int, delta decimal.Decimal) error
	UpdateCardStatement(ctx context.Context, cardID string, cycleNumber int, statementBalance, charges decimal.Decimal) error

	SaveTransactions(ctx context.Context, transactions []models.Transaction) ([]models.Transaction, error)
	MarkTransactionsPosted(ctx context.Context, transactions []models.Transaction) error
	GetTransactions(ctx context.Context, accountNumber int, from, to time.Time) ([]models.Transaction, error)

	GetLatestStatement(ctx context.Context, cardID string) (*models.Statement, error)
	SaveStatement(ctx context.Context, st models.Statement) error
	MarkStatementPaid(ctx context.Context, cardID string, cycleNumber int) error
}

// BlobClient defines the interface for blob storage operations used by handlers.
type BlobClient interface {
	UploadText(ctx context.Context, containerName, blobName, content string) error
	UploadHTML(ctx context.Context, containerName, blobName, html string) error
	DownloadText(ctx context.Context, containerName, blobName string) (string, error)
}

// QueueClient defines the interface for queue operations used by handlers.
type QueueClient interface {
	EnqueueMessage(ctx context.Context, queueName string, message any) error
}
