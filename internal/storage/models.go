package storage

import "database/sql"

// Row models mirror the table layout in migrations/. Timestamps are stored
// as RFC 3339 text and JSON columns as text.

type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    string
}

type Profile struct {
	UserID               int64
	EmploymentType       string
	MonthlyIncomeCents   int64
	MonthlyExpensesCents int64
	RiskTolerance        string
	FinancialGoals       string
	UpdatedAt            string
}

type Transaction struct {
	ID          int64
	UserID      int64
	Date        string
	Description string
	AmountCents int64
	Category    string
	Type        string
	CreatedAt   string
}

type Insight struct {
	ID             int64
	UserID         int64
	Type           string
	Message        string
	Recommendation string
	Priority       string
	CreatedAt      string
}

type Task struct {
	ID          int64
	ExternalID  string
	UserID      int64
	WorkflowID  sql.NullInt64
	Title       string
	Description string
	AgentType   string
	TaskType    string
	Priority    string
	Status      string
	Input       string
	Result      sql.NullString
	Error       string
	CreatedAt   string
	UpdatedAt   string
	CompletedAt sql.NullString
}

type Workflow struct {
	ID            int64
	ExternalID    string
	UserID        int64
	Name          string
	AgentSequence string
	CurrentStep   int64
	TaskIDs       string
	Status        string
	CreatedAt     string
}
