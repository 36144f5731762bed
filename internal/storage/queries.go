package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// Users

const createUser = `-- name: CreateUser :one
INSERT INTO users (email, name, password_hash, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, email, name, password_hash, created_at
`

type CreateUserParams struct {
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Email, arg.Name, arg.PasswordHash, arg.CreatedAt)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.Name, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, email, name, password_hash, created_at FROM users WHERE email = ? COLLATE NOCASE
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.Name, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT id, email, name, password_hash, created_at FROM users WHERE id = ?
`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.Name, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

// Profiles

const getProfile = `-- name: GetProfile :one
SELECT user_id, employment_type, monthly_income_cents, monthly_expenses_cents,
       risk_tolerance, financial_goals, updated_at
FROM profiles WHERE user_id = ?
`

func (q *Queries) GetProfile(ctx context.Context, userID int64) (Profile, error) {
	row := q.db.QueryRowContext(ctx, getProfile, userID)
	var i Profile
	err := row.Scan(&i.UserID, &i.EmploymentType, &i.MonthlyIncomeCents, &i.MonthlyExpensesCents,
		&i.RiskTolerance, &i.FinancialGoals, &i.UpdatedAt)
	return i, err
}

const upsertProfile = `-- name: UpsertProfile :exec
INSERT INTO profiles (user_id, employment_type, monthly_income_cents, monthly_expenses_cents,
                      risk_tolerance, financial_goals, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    employment_type        = excluded.employment_type,
    monthly_income_cents   = excluded.monthly_income_cents,
    monthly_expenses_cents = excluded.monthly_expenses_cents,
    risk_tolerance         = excluded.risk_tolerance,
    financial_goals        = excluded.financial_goals,
    updated_at             = excluded.updated_at
`

func (q *Queries) UpsertProfile(ctx context.Context, arg Profile) error {
	_, err := q.db.ExecContext(ctx, upsertProfile, arg.UserID, arg.EmploymentType, arg.MonthlyIncomeCents,
		arg.MonthlyExpensesCents, arg.RiskTolerance, arg.FinancialGoals, arg.UpdatedAt)
	return err
}

// Transactions

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (user_id, date, description, amount_cents, category, type, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type CreateTransactionParams struct {
	UserID      int64
	Date        string
	Description string
	AmountCents int64
	Category    string
	Type        string
	CreatedAt   string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createTransaction, arg.UserID, arg.Date, arg.Description,
		arg.AmountCents, arg.Category, arg.Type, arg.CreatedAt)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listTransactions = `-- name: ListTransactions :many
SELECT id, user_id, date, description, amount_cents, category, type, created_at
FROM transactions WHERE user_id = ?
ORDER BY date, id
`

func (q *Queries) ListTransactions(ctx context.Context, userID int64) ([]Transaction, error) {
	return q.transactions(ctx, listTransactions, userID)
}

const recentTransactions = `-- name: RecentTransactions :many
SELECT id, user_id, date, description, amount_cents, category, type, created_at
FROM transactions WHERE user_id = ?
ORDER BY date DESC, id DESC
LIMIT ?
`

func (q *Queries) RecentTransactions(ctx context.Context, userID, limit int64) ([]Transaction, error) {
	return q.transactions(ctx, recentTransactions, userID, limit)
}

func (q *Queries) transactions(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.UserID, &i.Date, &i.Description, &i.AmountCents,
			&i.Category, &i.Type, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const activeUserIDs = `-- name: ActiveUserIDs :many
SELECT DISTINCT user_id FROM transactions ORDER BY user_id
`

func (q *Queries) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, activeUserIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

// Insights

const deleteInsights = `-- name: DeleteInsights :exec
DELETE FROM insights WHERE user_id = ?
`

func (q *Queries) DeleteInsights(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, deleteInsights, userID)
	return err
}

const createInsight = `-- name: CreateInsight :exec
INSERT INTO insights (user_id, type, message, recommendation, priority, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateInsight(ctx context.Context, arg Insight) error {
	_, err := q.db.ExecContext(ctx, createInsight, arg.UserID, arg.Type, arg.Message,
		arg.Recommendation, arg.Priority, arg.CreatedAt)
	return err
}

// LIMIT -1 returns every row.
const listInsights = `-- name: ListInsights :many
SELECT id, user_id, type, message, recommendation, priority, created_at
FROM insights WHERE user_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`

func (q *Queries) ListInsights(ctx context.Context, userID, limit int64) ([]Insight, error) {
	rows, err := q.db.QueryContext(ctx, listInsights, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Insight
	for rows.Next() {
		var i Insight
		if err := rows.Scan(&i.ID, &i.UserID, &i.Type, &i.Message, &i.Recommendation,
			&i.Priority, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

// Tasks

const taskColumns = `id, external_id, user_id, workflow_id, title, description, agent_type, task_type,
       priority, status, input, result, error, created_at, updated_at, completed_at`

func scanTask(s scanner) (Task, error) {
	var i Task
	err := s.Scan(&i.ID, &i.ExternalID, &i.UserID, &i.WorkflowID, &i.Title, &i.Description,
		&i.AgentType, &i.TaskType, &i.Priority, &i.Status, &i.Input, &i.Result, &i.Error,
		&i.CreatedAt, &i.UpdatedAt, &i.CompletedAt)
	return i, err
}

const createTask = `-- name: CreateTask :one
INSERT INTO tasks (external_id, user_id, workflow_id, title, description, agent_type, task_type,
                   priority, status, input, result, error, created_at, updated_at, completed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

func (q *Queries) CreateTask(ctx context.Context, arg Task) (int64, error) {
	row := q.db.QueryRowContext(ctx, createTask, arg.ExternalID, arg.UserID, arg.WorkflowID, arg.Title,
		arg.Description, arg.AgentType, arg.TaskType, arg.Priority, arg.Status, arg.Input, arg.Result,
		arg.Error, arg.CreatedAt, arg.UpdatedAt, arg.CompletedAt)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateTask = `-- name: UpdateTask :execrows
UPDATE tasks SET
    workflow_id = ?, title = ?, description = ?, agent_type = ?, task_type = ?, priority = ?,
    status = ?, input = ?, result = ?, error = ?, updated_at = ?, completed_at = ?
WHERE id = ? AND user_id = ?
`

func (q *Queries) UpdateTask(ctx context.Context, arg Task) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateTask, arg.WorkflowID, arg.Title, arg.Description,
		arg.AgentType, arg.TaskType, arg.Priority, arg.Status, arg.Input, arg.Result, arg.Error,
		arg.UpdatedAt, arg.CompletedAt, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getTask = `-- name: GetTask :one
SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ?
`

func (q *Queries) GetTask(ctx context.Context, id, userID int64) (Task, error) {
	return scanTask(q.db.QueryRowContext(ctx, getTask, id, userID))
}

const listTasks = `-- name: ListTasks :many
SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListTasks(ctx context.Context, userID int64) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx, listTasks, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Task
	for rows.Next() {
		i, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const deleteTask = `-- name: DeleteTask :execrows
DELETE FROM tasks WHERE id = ? AND user_id = ?
`

func (q *Queries) DeleteTask(ctx context.Context, id, userID int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTask, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Workflows

const workflowColumns = `id, external_id, user_id, name, agent_sequence, current_step, task_ids, status, created_at`

func scanWorkflow(s scanner) (Workflow, error) {
	var i Workflow
	err := s.Scan(&i.ID, &i.ExternalID, &i.UserID, &i.Name, &i.AgentSequence, &i.CurrentStep,
		&i.TaskIDs, &i.Status, &i.CreatedAt)
	return i, err
}

const createWorkflow = `-- name: CreateWorkflow :one
INSERT INTO workflows (external_id, user_id, name, agent_sequence, current_step, task_ids, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

func (q *Queries) CreateWorkflow(ctx context.Context, arg Workflow) (int64, error) {
	row := q.db.QueryRowContext(ctx, createWorkflow, arg.ExternalID, arg.UserID, arg.Name,
		arg.AgentSequence, arg.CurrentStep, arg.TaskIDs, arg.Status, arg.CreatedAt)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateWorkflow = `-- name: UpdateWorkflow :execrows
UPDATE workflows SET name = ?, agent_sequence = ?, current_step = ?, task_ids = ?, status = ?
WHERE id = ? AND user_id = ?
`

func (q *Queries) UpdateWorkflow(ctx context.Context, arg Workflow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateWorkflow, arg.Name, arg.AgentSequence, arg.CurrentStep,
		arg.TaskIDs, arg.Status, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getWorkflow = `-- name: GetWorkflow :one
SELECT ` + workflowColumns + ` FROM workflows WHERE id = ? AND user_id = ?
`

func (q *Queries) GetWorkflow(ctx context.Context, id, userID int64) (Workflow, error) {
	return scanWorkflow(q.db.QueryRowContext(ctx, getWorkflow, id, userID))
}

const listWorkflows = `-- name: ListWorkflows :many
SELECT ` + workflowColumns + ` FROM workflows WHERE user_id = ? ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListWorkflows(ctx context.Context, userID int64) ([]Workflow, error) {
	rows, err := q.db.QueryContext(ctx, listWorkflows, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Workflow
	for rows.Next() {
		i, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}
