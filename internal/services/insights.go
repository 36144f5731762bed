package services

import (
	"context"
	"fmt"

	"fincoach/internal/core"
	"fincoach/internal/insights"
	applog "fincoach/internal/log"
)

type InsightService struct {
	store     transactionRepository
	generator *insights.Generator
	logger    *applog.Logger
}

func NewInsightService(store transactionRepository, generator *insights.Generator, logger *applog.Logger) *InsightService {
	if generator == nil {
		generator = insights.NewGenerator()
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &InsightService{store: store, generator: generator, logger: logger.WithComponent(applog.ComponentInsights)}
}

// Refresh regenerates a user's insights from the full history and replaces
// the stored set.
func (s *InsightService) Refresh(ctx context.Context, userID int64) ([]core.Insight, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	generated := s.generator.Generate(txs)
	if err := s.store.ReplaceInsights(ctx, userID, generated); err != nil {
		return nil, fmt.Errorf("replace insights: %w", err)
	}
	s.logger.InfoContext(ctx, "Insights regenerated",
		applog.FieldUserID, userID,
		applog.FieldCount, len(generated),
		"transactions", len(txs))
	return generated, nil
}

// List returns stored insights, newest first; limit <= 0 means all.
func (s *InsightService) List(ctx context.Context, userID int64, limit int) ([]core.Insight, error) {
	out, err := s.store.ListInsights(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	if out == nil {
		out = []core.Insight{}
	}
	return out, nil
}
