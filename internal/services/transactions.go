package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fincoach/internal/amqp"
	"fincoach/internal/core"
	"fincoach/internal/insights"
	applog "fincoach/internal/log"
	"fincoach/internal/storage"
)

// Publisher hands insight regeneration to the background worker.
type Publisher interface {
	PublishInsightRefresh(ctx context.Context, userID int64, reason string, txIDs ...int64) error
}

type Categorizer interface {
	Categorize(ctx context.Context, description string, amount core.Money, typ core.TxType) core.Category
}

// Invalidator drops cached analysis for a user after writes.
type Invalidator interface {
	Invalidate(userID int64)
}

type transactionRepository interface {
	storage.TransactionStore
	storage.InsightStore
}

// TransactionService stores transactions and keeps insights current, either
// through the AMQP worker or inline when no publisher is configured.
type TransactionService struct {
	store       transactionRepository
	categorizer Categorizer
	insights    *InsightService
	publisher   Publisher
	cache       Invalidator
	logger      *applog.Logger
	events      *applog.StructuredLogger
	now         func() time.Time
}

func NewTransactionService(store transactionRepository, categorizer Categorizer, insights *InsightService, publisher Publisher, cache Invalidator, logger *applog.Logger) *TransactionService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &TransactionService{
		store:       store,
		categorizer: categorizer,
		insights:    insights,
		publisher:   publisher,
		cache:       cache,
		logger:      logger.WithComponent(applog.ComponentTransaction),
		events:      applog.NewStructuredLogger(logger),
		now:         time.Now,
	}
}

// Created is a stored transaction with the real-time insights it triggered.
type Created struct {
	Transaction core.Transaction `json:"transaction"`
	Insights    []core.Insight   `json:"insights"`
}

// Create validates, categorizes when no category was given, stores the
// transaction, then derives real-time insights from the recent history.
func (s *TransactionService) Create(ctx context.Context, userID int64, tx core.Transaction) (Created, error) {
	tx.ID = 0
	tx.UserID = userID
	tx.Description = strings.TrimSpace(tx.Description)
	if tx.Date.IsZero() {
		y, m, d := s.now().UTC().Date()
		tx.Date = core.NewDate(y, int(m), d)
	}
	if err := tx.Validate(); err != nil {
		return Created{}, err
	}
	if tx.Category == "" {
		tx.Category = s.categorizer.Categorize(ctx, tx.Description, tx.Amount, tx.Type)
	}

	saved, err := s.store.CreateTransactions(ctx, []core.Transaction{tx})
	if err != nil {
		return Created{}, fmt.Errorf("save transaction: %w", err)
	}
	tx = saved[0]
	s.events.LogTransactionCreated(ctx, userID, applog.TransactionRecord{
		ID:          tx.ID,
		Description: tx.Description,
		AmountCents: tx.Amount.Cents,
		Category:    string(tx.Category),
		Type:        string(tx.Type),
	})

	out := Created{Transaction: tx, Insights: []core.Insight{}}
	recent, err := s.store.RecentTransactions(ctx, userID, insights.RecentWindow)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load recent transactions", applog.FieldUserID, userID, applog.FieldError, err)
	} else if found := insights.RealTime(tx, recent); len(found) > 0 {
		if err := s.store.AddInsights(ctx, userID, found); err != nil {
			// the transaction is stored; insights are regenerated later anyway
			s.logger.ErrorContext(ctx, "Failed to store real-time insights", applog.FieldUserID, userID, applog.FieldError, err)
		}
		out.Insights = found
	}

	s.afterWrite(ctx, userID, amqp.ReasonTransactionCreated, tx.ID)
	return out, nil
}

// CreateBatch stores already validated transactions in one write.
func (s *TransactionService) CreateBatch(ctx context.Context, userID int64, txs []core.Transaction) ([]core.Transaction, error) {
	saved, err := s.store.CreateTransactions(ctx, txs)
	if err != nil {
		return nil, fmt.Errorf("save transactions: %w", err)
	}
	ids := make([]int64, len(saved))
	for i, tx := range saved {
		ids[i] = tx.ID
	}
	s.logger.InfoContext(ctx, "Transactions imported", applog.FieldUserID, userID, applog.FieldCount, len(saved))
	s.afterWrite(ctx, userID, amqp.ReasonImport, ids...)
	return saved, nil
}

func (s *TransactionService) List(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) afterWrite(ctx context.Context, userID int64, reason string, ids ...int64) {
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not available, refreshing insights inline", applog.FieldUserID, userID)
		if s.insights != nil {
			if _, err := s.insights.Refresh(ctx, userID); err != nil {
				s.logger.ErrorContext(ctx, "Failed to refresh insights", applog.FieldUserID, userID, applog.FieldError, err)
			}
		}
		return
	}

	if err := s.publisher.PublishInsightRefresh(ctx, userID, reason, ids...); err != nil {
		// Don't fail the request, the data is stored
		s.logger.ErrorContext(ctx, "Failed to publish insight refresh",
			applog.FieldUserID, userID,
			"reason", reason,
			applog.FieldError, err)
	}
}
