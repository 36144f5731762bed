// Package worker regenerates stored insights outside the request path.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fincoach/internal/amqp"
	"fincoach/internal/core"
	applog "fincoach/internal/log"
)

// Refresher regenerates one user's insights.
type Refresher interface {
	Refresh(ctx context.Context, userID int64) ([]core.Insight, error)
}

// UserLister names the users that have transactions.
type UserLister interface {
	ActiveUserIDs(ctx context.Context) ([]int64, error)
}

// InsightWorker handles refresh messages from the AMQP queue.
type InsightWorker struct {
	refresher Refresher
	logger    *applog.Logger
}

func NewInsightWorker(refresher Refresher, logger *applog.Logger) *InsightWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &InsightWorker{refresher: refresher, logger: logger.WithComponent(applog.ComponentWorker)}
}

// HandleRefreshMessage is the consumer callback; an error makes the broker
// redeliver the message.
func (w *InsightWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.InsightRefreshMessage) error {
	w.logger.InfoContext(ctx, "Processing insight refresh message",
		applog.FieldUserID, msg.UserID,
		"reason", msg.Reason,
		applog.FieldCount, len(msg.TransactionIDs),
		"published_at", msg.Timestamp)

	insights, err := w.refresher.Refresh(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("refresh insights for user %d: %w", msg.UserID, err)
	}
	w.logger.DebugContext(ctx, "Insight refresh done", applog.FieldUserID, msg.UserID, applog.FieldCount, len(insights))
	return nil
}

type SweeperConfig struct {
	Interval time.Duration
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{Interval: 15 * time.Minute}
}

// Sweeper periodically refreshes every active user's insights, covering
// messages lost while the broker was unreachable.
type Sweeper struct {
	users     UserLister
	refresher Refresher
	config    SweeperConfig
	logger    *applog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSweeper(users UserLister, refresher Refresher, config SweeperConfig, logger *applog.Logger) *Sweeper {
	if config.Interval <= 0 {
		config.Interval = DefaultSweeperConfig().Interval
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Sweeper{
		users:     users,
		refresher: refresher,
		config:    config,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// Start launches the loop; the first sweep runs immediately.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper is already running")
	}
	s.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	s.stopCh, s.doneCh = stopCh, doneCh
	s.mu.Unlock()

	go s.runLoop(ctx, stopCh, doneCh)

	s.logger.InfoContext(ctx, "Insight sweeper started", "interval", s.config.Interval)
	return nil
}

// Stop signals the loop and waits for the current sweep to finish or ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		s.logger.InfoContext(ctx, "Insight sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Insight sweeper stop timed out")
		return ctx.Err()
	}
}

func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// runLoop owns the channels of one Start; a later Start gets its own pair.
func (s *Sweeper) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.SweepOnce(ctx, stop)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx, stop)
		}
	}
}

// SweepOnce refreshes each active user and returns how many succeeded.
// A closed stop channel ends the sweep between users.
func (s *Sweeper) SweepOnce(ctx context.Context, stop <-chan struct{}) int {
	ids, err := s.users.ActiveUserIDs(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list active users", applog.FieldError, err)
		return 0
	}

	refreshed := 0
	for _, id := range ids {
		select {
		case <-stop:
			return refreshed
		case <-ctx.Done():
			return refreshed
		default:
		}
		if _, err := s.refresher.Refresh(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "Sweep refresh failed", applog.FieldUserID, id, applog.FieldError, err)
			continue
		}
		refreshed++
	}
	if len(ids) > 0 {
		s.logger.DebugContext(ctx, "Insight sweep finished", applog.FieldCount, refreshed, "users", len(ids))
	}
	return refreshed
}
