package services

import (
	"context"
	"errors"
	"fmt"

	"fincoach/internal/advice"
	"fincoach/internal/cache"
	"fincoach/internal/core"
	"fincoach/internal/insights"
	applog "fincoach/internal/log"
	"fincoach/internal/metrics"
	"fincoach/internal/storage"
)

var ErrUnknownGoal = errors.New("unknown goal type")

// Goal types accepted by Goals.
const (
	GoalEmergencyFund = "emergency_fund"
	GoalSavings       = "savings"
	GoalDebtReduction = "debt_reduction"
	GoalInvestment    = "investment"
)

type analysisRepository interface {
	storage.UserStore
	storage.ProfileStore
	storage.TransactionStore
}

type AnalysisConfig struct {
	EmergencyFundMonths int
	SavingsRateTarget   float64
}

// AnalysisService answers the read-side analysis endpoints. Results are
// cached per user until the next write invalidates them.
type AnalysisService struct {
	store    analysisRepository
	composer *advice.Composer
	cache    cache.Cache[any]
	cfg      AnalysisConfig
	logger   *applog.Logger
}

func NewAnalysisService(store analysisRepository, composer *advice.Composer, c cache.Cache[any], cfg AnalysisConfig, logger *applog.Logger) *AnalysisService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &AnalysisService{
		store:    store,
		composer: composer,
		cache:    c,
		cfg:      cfg,
		logger:   logger.WithComponent(applog.ComponentAdvice),
	}
}

func cacheKey(userID int64, kind string) string {
	return fmt.Sprintf("user:%d:%s", userID, kind)
}

func (s *AnalysisService) Invalidate(userID int64) {
	if s.cache == nil {
		return
	}
	if n := s.cache.DeletePrefix(cacheKey(userID, "")); n > 0 {
		s.logger.Debug("Analysis cache invalidated", applog.FieldUserID, userID, applog.FieldCount, n)
	}
}

// cached runs compute on a miss and stores its result.
func cached[T any](s *AnalysisService, userID int64, kind string, compute func() (T, error)) (T, error) {
	key := cacheKey(userID, kind)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			if out, ok := v.(T); ok {
				return out, nil
			}
		}
	}
	out, err := compute()
	if err != nil {
		return out, err
	}
	if s.cache != nil {
		s.cache.Set(key, out)
	}
	return out, nil
}

func (s *AnalysisService) transactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Profile returns the stored profile or the default one.
func (s *AnalysisService) Profile(ctx context.Context, userID int64) (core.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.DefaultProfile(userID), nil
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *AnalysisService) SpendingPatterns(ctx context.Context, userID int64) (metrics.SpendingPatterns, error) {
	return cached(s, userID, "spending", func() (metrics.SpendingPatterns, error) {
		txs, err := s.transactions(ctx, userID)
		if err != nil {
			return metrics.SpendingPatterns{}, err
		}
		return metrics.AnalyzeSpendingPatterns(txs), nil
	})
}

func (s *AnalysisService) IncomeVariability(ctx context.Context, userID int64) (metrics.IncomeVariability, error) {
	return cached(s, userID, "income", func() (metrics.IncomeVariability, error) {
		txs, err := s.transactions(ctx, userID)
		if err != nil {
			return metrics.IncomeVariability{}, err
		}
		return metrics.AnalyzeIncomeVariability(txs), nil
	})
}

func (s *AnalysisService) Comprehensive(ctx context.Context, userID int64) (metrics.Comprehensive, error) {
	return cached(s, userID, "comprehensive", func() (metrics.Comprehensive, error) {
		txs, err := s.transactions(ctx, userID)
		if err != nil {
			return metrics.Comprehensive{}, err
		}
		p, err := s.Profile(ctx, userID)
		if err != nil {
			return metrics.Comprehensive{}, err
		}
		return metrics.ComprehensiveAnalysis(txs, p.EmploymentType), nil
	})
}

// Goals returns progress for one goal type, or all of them when goalType is empty.
func (s *AnalysisService) Goals(ctx context.Context, userID int64, goalType string) (any, error) {
	switch goalType {
	case "", GoalEmergencyFund, GoalSavings, GoalDebtReduction, GoalInvestment:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGoal, goalType)
	}
	all, err := cached(s, userID, "goals", func() (metrics.GoalsAnalysis, error) {
		txs, err := s.transactions(ctx, userID)
		if err != nil {
			return metrics.GoalsAnalysis{}, err
		}
		return metrics.AnalyzeGoals(txs, s.cfg.EmergencyFundMonths, s.cfg.SavingsRateTarget), nil
	})
	if err != nil {
		return nil, err
	}
	switch goalType {
	case GoalEmergencyFund:
		return all.EmergencyFund, nil
	case GoalSavings:
		return all.SavingsGoals, nil
	case GoalDebtReduction:
		return all.DebtReduction, nil
	case GoalInvestment:
		return all.InvestmentGoals, nil
	}
	return all, nil
}

// Recommendations is not cached: the model answer may differ between calls.
func (s *AnalysisService) Recommendations(ctx context.Context, userID int64) (advice.Result, error) {
	txs, err := s.transactions(ctx, userID)
	if err != nil {
		return advice.Result{}, err
	}
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return advice.Result{}, err
	}
	return s.composer.Recommend(ctx, txs, &p), nil
}

// CoachAdvice is the answer to a free-text coaching question.
type CoachAdvice struct {
	Advice          string                  `json:"advice,omitempty"`
	Recommendations []advice.Recommendation `json:"recommendations,omitempty"`
	Source          advice.Source           `json:"source"`
}

// Coach asks the model for advice; when it fails the rule-based
// recommendations are returned instead.
func (s *AnalysisService) Coach(ctx context.Context, userID int64, question string) (CoachAdvice, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return CoachAdvice{}, fmt.Errorf("get user: %w", err)
	}
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return CoachAdvice{}, err
	}
	recent, err := s.store.RecentTransactions(ctx, userID, insights.RecentWindow)
	if err != nil {
		return CoachAdvice{}, fmt.Errorf("recent transactions: %w", err)
	}
	newestFirst := make([]core.Transaction, len(recent))
	for i, tx := range recent {
		newestFirst[len(recent)-1-i] = tx
	}

	text, err := s.composer.Coach(ctx, advice.CoachRequest{User: u, Profile: p, Recent: newestFirst, Question: question})
	if err != nil {
		applog.NewStructuredLogger(s.logger).LogFallback(ctx, applog.ComponentAdvice, "coach", err)
		return CoachAdvice{Recommendations: advice.Fallback(recent, &p), Source: advice.SourceFallback}, nil
	}
	return CoachAdvice{Advice: text, Source: advice.SourceAI}, nil
}
