package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fincoach/internal/core"
	applog "fincoach/internal/log"

	_ "modernc.org/sqlite"
)

// Fixed-width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *applog.Logger
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(applog.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	row, err := r.queries.CreateUser(ctx, CreateUserParams{
		Email:        strings.ToLower(strings.TrimSpace(u.Email)),
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    formatTime(u.CreatedAt),
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return core.User{}, ErrDuplicateEmail
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	r.logger.InfoContext(ctx, "User created", applog.FieldUserID, row.ID)
	return userFromRow(row), nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	row, err := r.queries.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return core.User{}, notFound("get user by email", err)
	}
	return userFromRow(row), nil
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (core.User, error) {
	row, err := r.queries.GetUserByID(ctx, id)
	if err != nil {
		return core.User{}, notFound("get user by id", err)
	}
	return userFromRow(row), nil
}

func (r *SQLiteRepository) GetProfile(ctx context.Context, userID int64) (core.Profile, error) {
	row, err := r.queries.GetProfile(ctx, userID)
	if err != nil {
		return core.Profile{}, notFound("get profile", err)
	}
	p := core.Profile{
		UserID:          row.UserID,
		EmploymentType:  core.EmploymentType(row.EmploymentType),
		MonthlyIncome:   core.Money{Cents: row.MonthlyIncomeCents},
		MonthlyExpenses: core.Money{Cents: row.MonthlyExpensesCents},
		RiskTolerance:   row.RiskTolerance,
		UpdatedAt:       parseTime(row.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(row.FinancialGoals), &p.FinancialGoals); err != nil {
		return core.Profile{}, fmt.Errorf("decode financial goals: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) SaveProfile(ctx context.Context, p core.Profile) (core.Profile, error) {
	if p.FinancialGoals == nil {
		p.FinancialGoals = []string{}
	}
	goals, err := json.Marshal(p.FinancialGoals)
	if err != nil {
		return core.Profile{}, fmt.Errorf("encode financial goals: %w", err)
	}
	p.UpdatedAt = time.Now().UTC()
	err = r.queries.UpsertProfile(ctx, Profile{
		UserID:               p.UserID,
		EmploymentType:       string(p.EmploymentType),
		MonthlyIncomeCents:   p.MonthlyIncome.Cents,
		MonthlyExpensesCents: p.MonthlyExpenses.Cents,
		RiskTolerance:        p.RiskTolerance,
		FinancialGoals:       string(goals),
		UpdatedAt:            formatTime(p.UpdatedAt),
	})
	if err != nil {
		return core.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// CreateTransactions inserts every row in one database transaction.
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, txs []core.Transaction) ([]core.Transaction, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	q := r.queries.WithTx(dbTx)
	now := formatTime(time.Now().UTC())
	out := make([]core.Transaction, len(txs))
	for i, t := range txs {
		id, err := q.CreateTransaction(ctx, CreateTransactionParams{
			UserID:      t.UserID,
			Date:        t.Date.Format(dateLayout),
			Description: t.Description,
			AmountCents: t.Amount.Cents,
			Category:    string(t.Category),
			Type:        string(t.Type),
			CreatedAt:   now,
		})
		if err != nil {
			return nil, fmt.Errorf("create transaction %d: %w", i, err)
		}
		t.ID = id
		out[i] = t
	}
	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transactions: %w", err)
	}

	if len(out) > 0 {
		r.logger.InfoContext(ctx, "Transactions saved to SQLite",
			applog.FieldUserID, out[0].UserID,
			applog.FieldCount, len(out))
	}
	return out, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactionsFromRows(rows), nil
}

func (r *SQLiteRepository) RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	rows, err := r.queries.RecentTransactions(ctx, userID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	out := transactionsFromRows(rows)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *SQLiteRepository) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	ids, err := r.queries.ActiveUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("active user ids: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) ReplaceInsights(ctx context.Context, userID int64, insights []core.Insight) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	q := r.queries.WithTx(dbTx)
	if err := q.DeleteInsights(ctx, userID); err != nil {
		return fmt.Errorf("delete insights: %w", err)
	}
	if err := insertInsights(ctx, q, userID, insights); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit insights: %w", err)
	}

	r.logger.DebugContext(ctx, "Insights replaced",
		applog.FieldUserID, userID,
		applog.FieldCount, len(insights))
	return nil
}

func (r *SQLiteRepository) AddInsights(ctx context.Context, userID int64, insights []core.Insight) error {
	return insertInsights(ctx, r.queries, userID, insights)
}

func insertInsights(ctx context.Context, q *Queries, userID int64, insights []core.Insight) error {
	now := time.Now().UTC()
	for _, in := range insights {
		created := in.CreatedAt
		if created.IsZero() {
			created = now
		}
		err := q.CreateInsight(ctx, Insight{
			UserID:         userID,
			Type:           in.Type,
			Message:        in.Message,
			Recommendation: in.Recommendation,
			Priority:       string(in.Priority),
			CreatedAt:      formatTime(created),
		})
		if err != nil {
			return fmt.Errorf("create insight: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) ListInsights(ctx context.Context, userID int64, limit int) ([]core.Insight, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.queries.ListInsights(ctx, userID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	out := make([]core.Insight, len(rows))
	for i, row := range rows {
		out[i] = core.Insight{
			ID:             row.ID,
			UserID:         row.UserID,
			Type:           row.Type,
			Message:        row.Message,
			Recommendation: row.Recommendation,
			Priority:       core.Priority(row.Priority),
			CreatedAt:      parseTime(row.CreatedAt),
		}
	}
	return out, nil
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, t core.Task) (core.Task, error) {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	row, err := taskToRow(t)
	if err != nil {
		return core.Task{}, err
	}
	id, err := r.queries.CreateTask(ctx, row)
	if err != nil {
		return core.Task{}, fmt.Errorf("create task: %w", err)
	}
	t.ID = id
	return t, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, t core.Task) error {
	t.UpdatedAt = time.Now().UTC()
	row, err := taskToRow(t)
	if err != nil {
		return err
	}
	n, err := r.queries.UpdateTask(ctx, row)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetTask(ctx context.Context, userID, id int64) (core.Task, error) {
	row, err := r.queries.GetTask(ctx, id, userID)
	if err != nil {
		return core.Task{}, notFound("get task", err)
	}
	return taskFromRow(row)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, userID int64) ([]core.Task, error) {
	rows, err := r.queries.ListTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	out := make([]core.Task, 0, len(rows))
	for _, row := range rows {
		t, err := taskFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, userID, id int64) error {
	n, err := r.queries.DeleteTask(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	r.logger.InfoContext(ctx, "Task deleted", applog.FieldUserID, userID, applog.FieldTaskID, id)
	return nil
}

func (r *SQLiteRepository) CreateWorkflow(ctx context.Context, w core.Workflow) (core.Workflow, error) {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	row, err := workflowToRow(w)
	if err != nil {
		return core.Workflow{}, err
	}
	id, err := r.queries.CreateWorkflow(ctx, row)
	if err != nil {
		return core.Workflow{}, fmt.Errorf("create workflow: %w", err)
	}
	w.ID = id
	return w, nil
}

func (r *SQLiteRepository) UpdateWorkflow(ctx context.Context, w core.Workflow) error {
	row, err := workflowToRow(w)
	if err != nil {
		return err
	}
	n, err := r.queries.UpdateWorkflow(ctx, row)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetWorkflow(ctx context.Context, userID, id int64) (core.Workflow, error) {
	row, err := r.queries.GetWorkflow(ctx, id, userID)
	if err != nil {
		return core.Workflow{}, notFound("get workflow", err)
	}
	return workflowFromRow(row)
}

func (r *SQLiteRepository) ListWorkflows(ctx context.Context, userID int64) ([]core.Workflow, error) {
	rows, err := r.queries.ListWorkflows(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	out := make([]core.Workflow, 0, len(rows))
	for _, row := range rows {
		w, err := workflowFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func userFromRow(row User) core.User {
	return core.User{
		ID:           row.ID,
		Email:        row.Email,
		Name:         row.Name,
		PasswordHash: row.PasswordHash,
		CreatedAt:    parseTime(row.CreatedAt),
	}
}

func transactionsFromRows(rows []Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		d, _ := time.Parse(dateLayout, row.Date)
		out = append(out, core.Transaction{
			ID:          row.ID,
			UserID:      row.UserID,
			Date:        core.Date{Time: d},
			Description: row.Description,
			Amount:      core.Money{Cents: row.AmountCents},
			Category:    core.Category(row.Category),
			Type:        core.TxType(row.Type),
		})
	}
	return out
}

func taskToRow(t core.Task) (Task, error) {
	input := t.Input
	if input == nil {
		input = map[string]any{}
	}
	in, err := json.Marshal(input)
	if err != nil {
		return Task{}, fmt.Errorf("encode task input: %w", err)
	}
	row := Task{
		ID:          t.ID,
		ExternalID:  t.ExternalID,
		UserID:      t.UserID,
		WorkflowID:  sql.NullInt64{Int64: t.WorkflowID, Valid: t.WorkflowID != 0},
		Title:       t.Title,
		Description: t.Description,
		AgentType:   t.AgentType,
		TaskType:    t.TaskType,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		Input:       string(in),
		Error:       t.Error,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
	if t.Result != nil {
		res, err := json.Marshal(t.Result)
		if err != nil {
			return Task{}, fmt.Errorf("encode task result: %w", err)
		}
		row.Result = sql.NullString{String: string(res), Valid: true}
	}
	if t.CompletedAt != nil {
		row.CompletedAt = sql.NullString{String: formatTime(*t.CompletedAt), Valid: true}
	}
	return row, nil
}

func taskFromRow(row Task) (core.Task, error) {
	t := core.Task{
		ID:          row.ID,
		ExternalID:  row.ExternalID,
		UserID:      row.UserID,
		WorkflowID:  row.WorkflowID.Int64,
		Title:       row.Title,
		Description: row.Description,
		AgentType:   row.AgentType,
		TaskType:    row.TaskType,
		Priority:    core.Priority(row.Priority),
		Status:      core.TaskStatus(row.Status),
		Error:       row.Error,
		CreatedAt:   parseTime(row.CreatedAt),
		UpdatedAt:   parseTime(row.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(row.Input), &t.Input); err != nil {
		return core.Task{}, fmt.Errorf("decode task input: %w", err)
	}
	if row.Result.Valid {
		if err := json.Unmarshal([]byte(row.Result.String), &t.Result); err != nil {
			return core.Task{}, fmt.Errorf("decode task result: %w", err)
		}
	}
	if row.CompletedAt.Valid {
		done := parseTime(row.CompletedAt.String)
		t.CompletedAt = &done
	}
	return t, nil
}

func workflowToRow(w core.Workflow) (Workflow, error) {
	seq := w.AgentSequence
	if seq == nil {
		seq = []string{}
	}
	ids := w.TaskIDs
	if ids == nil {
		ids = []int64{}
	}
	seqJSON, err := json.Marshal(seq)
	if err != nil {
		return Workflow{}, fmt.Errorf("encode agent sequence: %w", err)
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return Workflow{}, fmt.Errorf("encode task ids: %w", err)
	}
	return Workflow{
		ID:            w.ID,
		ExternalID:    w.ExternalID,
		UserID:        w.UserID,
		Name:          w.Name,
		AgentSequence: string(seqJSON),
		CurrentStep:   int64(w.CurrentStep),
		TaskIDs:       string(idsJSON),
		Status:        string(w.Status),
		CreatedAt:     formatTime(w.CreatedAt),
	}, nil
}

func workflowFromRow(row Workflow) (core.Workflow, error) {
	w := core.Workflow{
		ID:          row.ID,
		ExternalID:  row.ExternalID,
		UserID:      row.UserID,
		Name:        row.Name,
		CurrentStep: int(row.CurrentStep),
		Status:      core.TaskStatus(row.Status),
		CreatedAt:   parseTime(row.CreatedAt),
	}
	if err := json.Unmarshal([]byte(row.AgentSequence), &w.AgentSequence); err != nil {
		return core.Workflow{}, fmt.Errorf("decode agent sequence: %w", err)
	}
	if err := json.Unmarshal([]byte(row.TaskIDs), &w.TaskIDs); err != nil {
		return core.Workflow{}, fmt.Errorf("decode task ids: %w", err)
	}
	return w, nil
}
