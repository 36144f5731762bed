package storage

import (
	"context"
	"errors"

	"fincoach/internal/core"
)

var (
	ErrNotFound       = core.ErrNotFound
	ErrDuplicateEmail = errors.New("email already registered")
)

// Ports implemented by every backend.
type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		UserByEmail(ctx context.Context, email string) (core.User, error)
		UserByID(ctx context.Context, id int64) (core.User, error)
	}

	ProfileStore interface {
		// GetProfile returns ErrNotFound until the user saves a profile.
		GetProfile(ctx context.Context, userID int64) (core.Profile, error)
		SaveProfile(ctx context.Context, p core.Profile) (core.Profile, error)
	}

	TransactionStore interface {
		CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error)
		// ListTransactions returns the user's history oldest first.
		ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
		// RecentTransactions returns up to limit of the newest rows, oldest first.
		RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error)
		// ActiveUserIDs lists users with at least one transaction, ascending.
		ActiveUserIDs(ctx context.Context) ([]int64, error)
	}

	InsightStore interface {
		// ReplaceInsights swaps the user's stored set atomically.
		ReplaceInsights(ctx context.Context, userID int64, insights []core.Insight) error
		AddInsights(ctx context.Context, userID int64, insights []core.Insight) error
		// ListInsights returns newest first; limit <= 0 means all.
		ListInsights(ctx context.Context, userID int64, limit int) ([]core.Insight, error)
	}

	TaskStore interface {
		CreateTask(ctx context.Context, t core.Task) (core.Task, error)
		UpdateTask(ctx context.Context, t core.Task) error
		GetTask(ctx context.Context, userID, id int64) (core.Task, error)
		// ListTasks returns newest first.
		ListTasks(ctx context.Context, userID int64) ([]core.Task, error)
		DeleteTask(ctx context.Context, userID, id int64) error
	}

	WorkflowStore interface {
		CreateWorkflow(ctx context.Context, w core.Workflow) (core.Workflow, error)
		UpdateWorkflow(ctx context.Context, w core.Workflow) error
		GetWorkflow(ctx context.Context, userID, id int64) (core.Workflow, error)
		ListWorkflows(ctx context.Context, userID int64) ([]core.Workflow, error)
	}

	Repository interface {
		UserStore
		ProfileStore
		TransactionStore
		InsightStore
		TaskStore
		WorkflowStore
		Ping(ctx context.Context) error
		Close() error
	}
)
