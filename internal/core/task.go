package core

import "time"

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is one request routed to an agent, with its latest result.
type Task struct {
	ID          int64          `json:"id"`
	ExternalID  string         `json:"external_id"`
	UserID      int64          `json:"user_id"`
	WorkflowID  int64          `json:"workflow_id,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	AgentType   string         `json:"agent_type"`
	TaskType    string         `json:"task_type"`
	Priority    Priority       `json:"priority"`
	Status      TaskStatus     `json:"status"`
	Input       map[string]any `json:"input"`
	Result      map[string]any `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

type Workflow struct {
	ID            int64      `json:"id"`
	ExternalID    string     `json:"external_id"`
	UserID        int64      `json:"user_id"`
	Name          string     `json:"name"`
	AgentSequence []string   `json:"agent_sequence"`
	CurrentStep   int        `json:"current_step"`
	TaskIDs       []int64    `json:"task_ids"`
	Status        TaskStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}
