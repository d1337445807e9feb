package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/rocjay1/card-simulator/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an entity kept changing underneath an update.
	ErrConflict = errors.New("concurrent update conflict")
)

const (
	cardsPartition    = "CREDIT_CARDS"
	batchSize         = 100
	maxUpdateAttempts = 3
)

// TableNames are the Azure tables the service reads and writes.
type TableNames struct {
	Cards        string
	Transactions string
	Statements   string
}

// DatabaseService handles interactions with Azure Table Storage.
type DatabaseService struct {
	serviceClient *aztables.ServiceClient
	tables        TableNames
}

// NewDatabaseService creates a new DatabaseService instance and ensures its
// tables exist.
func NewDatabaseService(ctx context.Context, tableURL string, tables TableNames) (*DatabaseService, error) {
	if tableURL == "" {
		return nil, fmt.Errorf("table service URL is required")
	}

	client, err := newTableServiceClient(tableURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create table service client: %w", err)
	}

	svc := &DatabaseService{serviceClient: client, tables: tables}
	if err := svc.CreateTables(ctx); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	slog.Info("database service initialized successfully",
		"table_url", tableURL,
		"credit_cards_table", tables.Cards,
		"transactions_table", tables.Transactions,
		"statements_table", tables.Statements,
	)
	return svc, nil
}

// CreateTables ensures all required tables exist in Azure Table Storage.
func (s *DatabaseService) CreateTables(ctx context.Context) error {
	for _, tableName := range []string{s.tables.Cards, s.tables.Transactions, s.tables.Statements} {
		if _, err := s.serviceClient.CreateTable(ctx, tableName, nil); err != nil {
			if hasErrorCode(err, "TableAlreadyExists") {
				continue
			}
			return fmt.Errorf("failed to create table %s: %w", tableName, err)
		}
	}
	return nil
}

func (s *DatabaseService) getClient(tableName string) *aztables.Client {
	return s.serviceClient.NewClient(tableName)
}

// listEntities runs a filtered query and decodes every entity.
func listEntities(ctx context.Context, client *aztables.Client, filter string, selectFields string) ([]entity, error) {
	opts := &aztables.ListEntitiesOptions{Filter: &filter}
	if selectFields != "" {
		opts.Select = &selectFields
	}
	pager := client.NewListEntitiesPager(opts)

	var out []entity
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var parsed entity
			if err := json.Unmarshal(raw, &parsed); err != nil {
				slog.Warn("skipping undecodable entity", "error", err)
				continue
			}
			out = append(out, parsed)
		}
	}
	return out, nil
}

// submitBatches upserts or deletes entities in chunks the Table service accepts.
func submitBatches(ctx context.Context, client *aztables.Client, batch []aztables.TransactionAction) error {
	for i := 0; i < len(batch); i += batchSize {
		end := min(i+batchSize, len(batch))
		if _, err := client.SubmitTransaction(ctx, batch[i:end], nil); err != nil {
			return fmt.Errorf("failed to submit transaction batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// GetCreditCards retrieves all credit cards.
func (s *DatabaseService) GetCreditCards(ctx context.Context) ([]models.CreditCard, error) {
	entities, err := listEntities(ctx, s.getClient(s.tables.Cards), "PartitionKey eq '"+cardsPartition+"'", "")
	if err != nil {
		return nil, fmt.Errorf("failed to list credit cards: %w", err)
	}
	cards := make([]models.CreditCard, 0, len(entities))
	for _, e := range entities {
		cards = append(cards, cardFromEntity(e))
	}
	return cards, nil
}

// GetCreditCard retrieves one card by ID.
func (s *DatabaseService) GetCreditCard(ctx context.Context, id string) (*models.CreditCard, error) {
	resp, err := s.getClient(s.tables.Cards).GetEntity(ctx, cardsPartition, id, nil)
	if err != nil {
		if hasErrorCode(err, "ResourceNotFound") {
			return nil, fmt.Errorf("credit card %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get credit card %s: %w", id, err)
	}
	var parsed entity
	if err := json.Unmarshal(resp.Value, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode credit card %s: %w", id, err)
	}
	card := cardFromEntity(parsed)
	return &card, nil
}

// SaveCreditCard upserts a credit card config. LastClosedCycle is owned by
// cycle closing and is never overwritten here.
func (s *DatabaseService) SaveCreditCard(ctx context.Context, card models.CreditCard) error {
	e := cardToEntity(card)
	delete(e, "LastClosedCycle")
	entityJSON, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = s.getClient(s.tables.Cards).UpsertEntity(ctx, entityJSON, &aztables.UpsertEntityOptions{
		UpdateMode: aztables.UpdateModeMerge,
	})
	return err
}

// DeleteCreditCard deletes a credit card by its ID (RowKey).
func (s *DatabaseService) DeleteCreditCard(ctx context.Context, id string) error {
	_, err := s.getClient(s.tables.Cards).DeleteEntity(ctx, cardsPartition, id, nil)
	return err
}

// UpdateCardBalance adds delta to the current balance of the card with the
// given account number.
func (s *DatabaseService) UpdateCardBalance(ctx context.Context, accountNumber int, delta decimal.Decimal) error {
	filter := fmt.Sprintf("PartitionKey eq '%s' and AccountNumber eq %d", cardsPartition, accountNumber)
	entities, err := listEntities(ctx, s.getClient(s.tables.Cards), filter, "RowKey")
	if err != nil {
		return fmt.Errorf("failed to look up card %d: %w", accountNumber, err)
	}
	if len(entities) == 0 {
		return fmt.Errorf("credit card with account number %d: %w", accountNumber, ErrNotFound)
	}

	return s.mutateCard(ctx, entities[0].getString("RowKey"), func(e entity) bool {
		e["CurrentBalance"] = e.getDecimal("CurrentBalance").Add(delta).String()
		return true
	})
}

// UpdateCardStatement records closed cycle cycleNumber on the card: the
// statement balance is replaced and the cycle's interest and fees are added
// to the current balance. Repeating it for a cycle the card already holds is
// a no-op.
func (s *DatabaseService) UpdateCardStatement(ctx context.Context, cardID string, cycleNumber int, statementBalance, charges decimal.Decimal) error {
	return s.mutateCard(ctx, cardID, func(e entity) bool {
		return applyStatement(e, cycleNumber, statementBalance, charges)
	})
}

// mutateCard applies a read-modify-write to one card guarded by its ETag,
// re-reading the entity when another writer got there first. mutate returns
// false to leave the card unchanged.
func (s *DatabaseService) mutateCard(ctx context.Context, rowKey string, mutate func(entity) bool) error {
	client := s.getClient(s.tables.Cards)

	for attempt := 1; ; attempt++ {
		resp, err := client.GetEntity(ctx, cardsPartition, rowKey, nil)
		if err != nil {
			if hasErrorCode(err, "ResourceNotFound") {
				return fmt.Errorf("credit card %s: %w", rowKey, ErrNotFound)
			}
			return fmt.Errorf("failed to get credit card %s: %w", rowKey, err)
		}

		var parsed entity
		if err := json.Unmarshal(resp.Value, &parsed); err != nil {
			return fmt.Errorf("failed to decode credit card %s: %w", rowKey, err)
		}
		parsed.stripMetadata()
		if !mutate(parsed) {
			return nil
		}

		updatedJSON, err := json.Marshal(parsed)
		if err != nil {
			return err
		}
		etag := resp.ETag
		_, err = client.UpdateEntity(ctx, updatedJSON, &aztables.UpdateEntityOptions{
			IfMatch:    &etag,
			UpdateMode: aztables.UpdateModeReplace,
		})
		if err == nil {
			return nil
		}
		if !hasErrorCode(err, "UpdateConditionNotSatisfied", "ConditionNotMet") {
			return fmt.Errorf("failed to update credit card %s: %w", rowKey, err)
		}
		if attempt == maxUpdateAttempts {
			return fmt.Errorf("credit card %s: %w", rowKey, ErrConflict)
		}
		slog.Warn("credit card changed during update, retrying", "id", rowKey, "attempt", attempt)
	}
}

// transactionRowKey generates a deterministic unique key for a transaction.
// index separates identical rows within one import.
func transactionRowKey(t models.Transaction, index int) string {
	return hashKey(transactionSignature(t), fmt.Sprint(index))
}

func transactionSignature(t models.Transaction) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s", t.Date, t.Name, t.Amount.String(), t.AccountNumber, t.Type)
}

func transactionPartition(t models.Transaction) string {
	if len(t.Date) >= 7 {
		return "default_" + t.Date[:7]
	}
	return "default_unknown"
}

// SaveTransactions saves a list of transactions to Azure Table Storage using batched upserts.
// It performs deduplication by checking existing RowKeys.
// Returns the transactions that still need posting: new rows plus earlier rows
// whose posting never completed. Each returned transaction carries its ID.
func (s *DatabaseService) SaveTransactions(ctx context.Context, transactions []models.Transaction) ([]models.Transaction, error) {
	if len(transactions) == 0 {
		return []models.Transaction{}, nil
	}

	client := s.getClient(s.tables.Transactions)

	partitions := make(map[string][]models.Transaction)
	var order []string
	for _, t := range transactions {
		pk := transactionPartition(t)
		if _, seen := partitions[pk]; !seen {
			order = append(order, pk)
		}
		partitions[pk] = append(partitions[pk], t)
	}

	var newTransactions []models.Transaction
	importedAt := time.Now().UTC().Format(time.RFC3339)

	for _, pk := range order {
		existing, err := listEntities(ctx, client, fmt.Sprintf("PartitionKey eq '%s'", odataEscape(pk)), "RowKey,Posted")
		if err != nil {
			return nil, fmt.Errorf("failed to list existing transactions: %w", err)
		}
		// RowKey -> posted
		existingKeys := make(map[string]bool, len(existing))
		for _, e := range existing {
			existingKeys[e.getString("RowKey")] = isPosted(e)
		}

		occurrences := make(map[string]int)
		var batch []aztables.TransactionAction
		for _, t := range partitions[pk] {
			sig := transactionSignature(t)
			rk := transactionRowKey(t, occurrences[sig])
			occurrences[sig]++
			t.ID = rk
			if posted, seen := existingKeys[rk]; seen {
				if !posted {
					newTransactions = append(newTransactions, t)
				}
				continue
			}
			if !t.Posted {
				newTransactions = append(newTransactions, t)
			}

			entityJSON, err := json.Marshal(transactionToEntity(pk, rk, t, importedAt))
			if err != nil {
				return nil, err
			}
			batch = append(batch, aztables.TransactionAction{
				ActionType: aztables.TransactionTypeInsertReplace,
				Entity:     entityJSON,
			})
		}

		if err := submitBatches(ctx, client, batch); err != nil {
			return nil, err
		}
	}

	return newTransactions, nil
}

// MarkTransactionsPosted flags rows returned by SaveTransactions as charged
// to their card.
func (s *DatabaseService) MarkTransactionsPosted(ctx context.Context, transactions []models.Transaction) error {
	client := s.getClient(s.tables.Transactions)

	partitions := make(map[string][]aztables.TransactionAction)
	var order []string
	for _, t := range transactions {
		if t.ID == "" {
			continue
		}
		pk := transactionPartition(t)
		if _, seen := partitions[pk]; !seen {
			order = append(order, pk)
		}
		patch, err := json.Marshal(map[string]any{
			"PartitionKey": pk,
			"RowKey":       t.ID,
			"Posted":       true,
		})
		if err != nil {
			return err
		}
		partitions[pk] = append(partitions[pk], aztables.TransactionAction{
			ActionType: aztables.TransactionTypeUpdateMerge,
			Entity:     patch,
		})
	}

	for _, pk := range order {
		if err := submitBatches(ctx, client, partitions[pk]); err != nil {
			return fmt.Errorf("failed to mark transactions posted: %w", err)
		}
	}
	return nil
}

// GetTransactions returns the card's transactions dated in [from, to),
// oldest first.
func (s *DatabaseService) GetTransactions(ctx context.Context, accountNumber int, from, to time.Time) ([]models.Transaction, error) {
	filter := fmt.Sprintf("AccountNumber eq %d and Date ge '%s' and Date lt '%s'",
		accountNumber, from.Format(models.DateLayout), to.Format(models.DateLayout))
	entities, err := listEntities(ctx, s.getClient(s.tables.Transactions), filter, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for %d: %w", accountNumber, err)
	}

	out := make([]models.Transaction, 0, len(entities))
	for _, e := range entities {
		out = append(out, transactionFromEntity(e))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// GetLatestStatement returns the card's most recent statement, or nil when
// no cycle has been closed yet.
func (s *DatabaseService) GetLatestStatement(ctx context.Context, cardID string) (*models.Statement, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s'", odataEscape(cardID))
	entities, err := listEntities(ctx, s.getClient(s.tables.Statements), filter, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list statements for %s: %w", cardID, err)
	}

	var latest *models.Statement
	for _, e := range entities {
		st := statementFromEntity(e)
		if latest == nil || st.CycleNumber > latest.CycleNumber {
			latest = &st
		}
	}
	return latest, nil
}

// SaveStatement upserts a statement.
func (s *DatabaseService) SaveStatement(ctx context.Context, st models.Statement) error {
	entityJSON, err := json.Marshal(statementToEntity(st))
	if err != nil {
		return err
	}
	if _, err := s.getClient(s.tables.Statements).UpsertEntity(ctx, entityJSON, nil); err != nil {
		return fmt.Errorf("failed to save statement %s/%d: %w", st.CardID, st.CycleNumber, err)
	}
	return nil
}

// MarkStatementPaid flags a statement as paid so the next cycle charges no
// late fee for it.
func (s *DatabaseService) MarkStatementPaid(ctx context.Context, cardID string, cycleNumber int) error {
	patch, err := json.Marshal(map[string]any{
		"PartitionKey": cardID,
		"RowKey":       statementRowKey(cycleNumber),
		"Paid":         true,
	})
	if err != nil {
		return err
	}
	_, err = s.getClient(s.tables.Statements).UpdateEntity(ctx, patch, &aztables.UpdateEntityOptions{
		UpdateMode: aztables.UpdateModeMerge,
	})
	if err != nil {
		if hasErrorCode(err, "ResourceNotFound") {
			return fmt.Errorf("statement %s/%d: %w", cardID, cycleNumber, ErrNotFound)
		}
		return fmt.Errorf("failed to mark statement %s/%d paid: %w", cardID, cycleNumber, err)
	}
	return nil
}

func odataEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
