package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fincoach/internal/agents"
	"fincoach/internal/core"
	applog "fincoach/internal/log"
	"fincoach/internal/storage"
)

var (
	ErrInvalidTask       = errors.New("invalid task")
	ErrInvalidWorkflow   = errors.New("invalid workflow")
	ErrWorkflowCompleted = errors.New("workflow already completed")
)

type taskRepository interface {
	storage.TaskStore
	storage.WorkflowStore
	storage.TransactionStore
	storage.ProfileStore
}

// TaskService persists agent tasks and workflows around agents.Manager.
type TaskService struct {
	store   taskRepository
	manager *agents.Manager
	logger  *applog.Logger
	now     func() time.Time

	mu     sync.RWMutex
	custom map[specKey]map[string]any
}

type specKey struct {
	userID int64
	agent  agents.Type
}

func NewTaskService(store taskRepository, manager *agents.Manager, logger *applog.Logger) *TaskService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &TaskService{
		store:   store,
		manager: manager,
		logger:  logger.WithComponent(applog.ComponentAgents),
		now:     time.Now,
		custom:  make(map[specKey]map[string]any),
	}
}

type NewTask struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	AgentType   string         `json:"agent_type"`
	TaskType    string         `json:"task_type"`
	Priority    core.Priority  `json:"priority"`
	Input       map[string]any `json:"input_data"`
}

func (n NewTask) validate() (agents.Type, core.Priority, error) {
	if strings.TrimSpace(n.Title) == "" {
		return "", "", fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	t, err := agents.ParseType(n.AgentType)
	if err != nil {
		return "", "", err
	}
	switch p := n.Priority; p {
	case "":
		return t, core.PriorityMedium, nil
	case core.PriorityLow, core.PriorityMedium, core.PriorityHigh:
		return t, p, nil
	default:
		return "", "", fmt.Errorf("%w: priority %q", ErrInvalidTask, p)
	}
}

// CreateTask stores the task and runs it immediately. A failed agent run
// still returns the stored task, with status failed.
func (s *TaskService) CreateTask(ctx context.Context, userID int64, in NewTask) (core.Task, error) {
	agentType, priority, err := in.validate()
	if err != nil {
		return core.Task{}, err
	}
	if _, ok := s.manager.Agent(agentType); !ok {
		return core.Task{}, fmt.Errorf("agent type %s not available: %w", agentType, agents.ErrUnknownAgent)
	}
	input := in.Input
	if input == nil {
		input = map[string]any{}
	}
	task, err := s.store.CreateTask(ctx, core.Task{
		ExternalID:  uuid.NewString(),
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		AgentType:   string(agentType),
		TaskType:    in.TaskType,
		Priority:    priority,
		Status:      core.TaskPending,
		Input:       input,
	})
	if err != nil {
		return core.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.logger.InfoContext(ctx, "Task created",
		applog.FieldUserID, userID,
		applog.FieldTaskID, task.ID,
		applog.FieldAgentType, task.AgentType)
	return s.run(ctx, task, nil)
}

// Rerun executes an existing task again, replacing its result.
func (s *TaskService) Rerun(ctx context.Context, userID, id int64) (core.Task, error) {
	task, err := s.store.GetTask(ctx, userID, id)
	if err != nil {
		return core.Task{}, err
	}
	task.Result, task.Error, task.CompletedAt = nil, "", nil
	return s.run(ctx, task, nil)
}

func (s *TaskService) run(ctx context.Context, task core.Task, prev agents.Result) (core.Task, error) {
	task.Status = core.TaskInProgress
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return core.Task{}, fmt.Errorf("mark task in progress: %w", err)
	}

	req, err := s.request(ctx, task.UserID, task.AgentType, task.TaskType, task.Input)
	if err != nil {
		s.failTask(ctx, task, err)
		return core.Task{}, err
	}
	if prev != nil {
		req = req.WithPrevious(prev)
	}

	res, err := s.manager.Route(ctx, task.AgentType, req)
	switch {
	case err != nil:
		task.Status, task.Error = core.TaskFailed, err.Error()
	case res.Success():
		task.Status, task.Result = core.TaskCompleted, res
	default:
		task.Status, task.Result, task.Error = core.TaskFailed, res, res.Err()
	}
	done := s.now().UTC()
	task.CompletedAt = &done

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return core.Task{}, fmt.Errorf("save task result: %w", err)
	}
	s.logger.InfoContext(ctx, "Task finished",
		applog.FieldTaskID, task.ID,
		applog.FieldAgentType, task.AgentType,
		"status", string(task.Status))
	return task, nil
}

// failTask records err on a task whose run could not start. ctx may
// already be canceled, so the update gets its own deadline.
func (s *TaskService) failTask(ctx context.Context, task core.Task, err error) {
	done := s.now().UTC()
	task.Status, task.Error, task.CompletedAt = core.TaskFailed, err.Error(), &done
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if uerr := s.store.UpdateTask(uctx, task); uerr != nil {
		s.logger.ErrorContext(ctx, "Failed to mark task failed",
			applog.FieldTaskID, task.ID, applog.FieldError, uerr)
	}
}

// request builds the agent payload. Only the financial agent reads the
// user's transactions and profile.
func (s *TaskService) request(ctx context.Context, userID int64, agentType, taskType string, data map[string]any) (agents.Request, error) {
	req := agents.Request{TaskType: taskType, Data: data}
	t, err := agents.ParseType(agentType)
	if err != nil {
		return req, nil
	}
	req = req.WithCustomizations(s.customizations(userID, t))
	if t != agents.Financial {
		return req, nil
	}
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return agents.Request{}, fmt.Errorf("list transactions: %w", err)
	}
	p, err := s.store.GetProfile(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		p = core.DefaultProfile(userID)
	case err != nil:
		return agents.Request{}, fmt.Errorf("get profile: %w", err)
	}
	req.Transactions = txs
	req.Profile = &p
	return req, nil
}

func (s *TaskService) GetTask(ctx context.Context, userID, id int64) (core.Task, error) {
	return s.store.GetTask(ctx, userID, id)
}

func (s *TaskService) ListTasks(ctx context.Context, userID int64) ([]core.Task, error) {
	tasks, err := s.store.ListTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []core.Task{}
	}
	return tasks, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, userID, id int64) error {
	return s.store.DeleteTask(ctx, userID, id)
}

// CreateWorkflow stores an ordered agent sequence; every agent must exist.
func (s *TaskService) CreateWorkflow(ctx context.Context, userID int64, name string, sequence []string) (core.Workflow, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Workflow{}, fmt.Errorf("%w: name is required", ErrInvalidWorkflow)
	}
	if len(sequence) == 0 {
		return core.Workflow{}, fmt.Errorf("%w: agent_sequence is empty", ErrInvalidWorkflow)
	}
	normalized := make([]string, len(sequence))
	for i, a := range sequence {
		t, err := agents.ParseType(a)
		if err != nil {
			return core.Workflow{}, err
		}
		if _, ok := s.manager.Agent(t); !ok {
			return core.Workflow{}, fmt.Errorf("agent type %s not available: %w", t, agents.ErrUnknownAgent)
		}
		normalized[i] = string(t)
	}
	w, err := s.store.CreateWorkflow(ctx, core.Workflow{
		ExternalID:    uuid.NewString(),
		UserID:        userID,
		Name:          name,
		AgentSequence: normalized,
		TaskIDs:       []int64{},
		Status:        core.TaskPending,
	})
	if err != nil {
		return core.Workflow{}, fmt.Errorf("create workflow: %w", err)
	}
	return w, nil
}

func (s *TaskService) ListWorkflows(ctx context.Context, userID int64) ([]core.Workflow, error) {
	ws, err := s.store.ListWorkflows(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	if ws == nil {
		ws = []core.Workflow{}
	}
	return ws, nil
}

// WorkflowRun is a workflow after execution with the tasks run this time.
type WorkflowRun struct {
	Workflow core.Workflow `json:"workflow"`
	Tasks    []core.Task   `json:"tasks"`
}

// ExecuteWorkflow runs the remaining steps from CurrentStep, handing each
// agent the previous step's result. A failed step stops the run and leaves
// CurrentStep on it, so executing again retries that step. Completed steps
// are never undone.
func (s *TaskService) ExecuteWorkflow(ctx context.Context, userID, id int64, taskType string, data map[string]any) (WorkflowRun, error) {
	w, err := s.store.GetWorkflow(ctx, userID, id)
	if err != nil {
		return WorkflowRun{}, err
	}
	if w.Status == core.TaskCompleted {
		return WorkflowRun{}, ErrWorkflowCompleted
	}
	if data == nil {
		data = map[string]any{}
	}

	prev, err := s.lastCompletedResult(ctx, w)
	if err != nil {
		return WorkflowRun{}, err
	}

	w.Status = core.TaskInProgress
	if err := s.store.UpdateWorkflow(ctx, w); err != nil {
		return WorkflowRun{}, fmt.Errorf("start workflow: %w", err)
	}
	logger := s.logger.With(applog.FieldWorkflowID, w.ID, applog.FieldUserID, userID)
	logger.InfoContext(ctx, "Executing workflow", "from_step", w.CurrentStep, "steps", len(w.AgentSequence))

	run, err := s.runSteps(ctx, &w, taskType, data, prev, logger)
	if err != nil {
		s.failWorkflow(ctx, w, logger)
		return WorkflowRun{}, err
	}
	run.Workflow = w
	return run, nil
}

// lastCompletedResult returns the result a resumed run hands to its first
// step: the newest completed task of the workflow. Failed retries in
// between are skipped.
func (s *TaskService) lastCompletedResult(ctx context.Context, w core.Workflow) (agents.Result, error) {
	if w.CurrentStep == 0 {
		return nil, nil
	}
	for i := len(w.TaskIDs) - 1; i >= 0; i-- {
		task, err := s.store.GetTask(ctx, w.UserID, w.TaskIDs[i])
		switch {
		case errors.Is(err, storage.ErrNotFound):
			continue
		case err != nil:
			return nil, fmt.Errorf("load workflow task: %w", err)
		}
		if task.Status == core.TaskCompleted {
			return task.Result, nil
		}
	}
	return nil, nil
}

func (s *TaskService) runSteps(ctx context.Context, w *core.Workflow, taskType string, data map[string]any, prev agents.Result, logger *applog.Logger) (WorkflowRun, error) {
	run := WorkflowRun{Tasks: []core.Task{}}
	for step := w.CurrentStep; step < len(w.AgentSequence); step++ {
		agentType := w.AgentSequence[step]
		task, err := s.store.CreateTask(ctx, core.Task{
			ExternalID: uuid.NewString(),
			UserID:     w.UserID,
			WorkflowID: w.ID,
			Title:      fmt.Sprintf("%s - step %d (%s)", w.Name, step+1, agentType),
			AgentType:  agentType,
			TaskType:   taskType,
			Priority:   core.PriorityMedium,
			Status:     core.TaskPending,
			Input:      data,
		})
		if err != nil {
			return WorkflowRun{}, fmt.Errorf("create step task: %w", err)
		}
		w.TaskIDs = append(w.TaskIDs, task.ID)
		task, err = s.run(ctx, task, prev)
		if err != nil {
			return WorkflowRun{}, err
		}
		run.Tasks = append(run.Tasks, task)

		if task.Status == core.TaskFailed {
			w.Status = core.TaskFailed
			if err := s.store.UpdateWorkflow(ctx, *w); err != nil {
				return WorkflowRun{}, fmt.Errorf("save workflow: %w", err)
			}
			logger.WarnContext(ctx, "Workflow step failed", "step", step+1, applog.FieldTaskID, task.ID)
			return run, nil
		}

		w.CurrentStep = step + 1
		if err := s.store.UpdateWorkflow(ctx, *w); err != nil {
			return WorkflowRun{}, fmt.Errorf("save workflow progress: %w", err)
		}
		prev = task.Result
	}

	w.Status = core.TaskCompleted
	if err := s.store.UpdateWorkflow(ctx, *w); err != nil {
		return WorkflowRun{}, fmt.Errorf("complete workflow: %w", err)
	}
	logger.InfoContext(ctx, "Workflow completed")
	return run, nil
}

// failWorkflow marks a workflow whose run aborted with an error as failed,
// keeping CurrentStep so the next execution retries from there.
func (s *TaskService) failWorkflow(ctx context.Context, w core.Workflow, logger *applog.Logger) {
	w.Status = core.TaskFailed
	uctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.UpdateWorkflow(uctx, w); err != nil {
		logger.ErrorContext(ctx, "Failed to mark workflow failed", applog.FieldError, err)
	}
}

// Collaborate runs one request across several agents without storing tasks.
func (s *TaskService) Collaborate(ctx context.Context, userID int64, mode agents.Mode, agentTypes []string, taskType string, data map[string]any) (agents.Collaboration, error) {
	req := agents.Request{TaskType: taskType, Data: data}
	for _, a := range agentTypes {
		if t, err := agents.ParseType(a); err == nil && t == agents.Financial {
			full, err := s.request(ctx, userID, a, taskType, data)
			if err != nil {
				return agents.Collaboration{}, err
			}
			req.Transactions, req.Profile = full.Transactions, full.Profile
			break
		}
	}
	return s.manager.Collaborate(ctx, mode, agentTypes, req)
}

// Specialization is a user's saved preferences for one agent type.
type Specialization struct {
	AgentType      agents.Type    `json:"agent_type"`
	UserID         int64          `json:"user_id"`
	Customizations map[string]any `json:"customizations"`
	Status         string         `json:"status"`
}

// Specialize saves customizations for the user's runs of agentType,
// replacing any earlier set. They reach the agent as Data["customizations"]
// on later tasks and workflow steps, not on collaborations, which share one
// request. Preferences live in process memory only.
func (s *TaskService) Specialize(ctx context.Context, userID int64, agentType string, customizations map[string]any) (Specialization, error) {
	t, err := agents.ParseType(agentType)
	if err != nil {
		return Specialization{}, err
	}
	if _, ok := s.manager.Agent(t); !ok {
		return Specialization{}, fmt.Errorf("agent type %s not available: %w", t, agents.ErrUnknownAgent)
	}
	if len(customizations) == 0 {
		return Specialization{}, fmt.Errorf("%w: customizations are empty", ErrInvalidTask)
	}
	saved := maps.Clone(customizations)

	s.mu.Lock()
	s.custom[specKey{userID, t}] = saved
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Agent specialized",
		applog.FieldUserID, userID,
		applog.FieldAgentType, string(t),
		applog.FieldCount, len(saved))
	return Specialization{AgentType: t, UserID: userID, Customizations: saved, Status: "customized"}, nil
}

func (s *TaskService) customizations(userID int64, t agents.Type) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.custom[specKey{userID, t}]
}

// AgentInfo describes one registered agent for listing.
type AgentInfo struct {
	Type         agents.Type `json:"type"`
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Capabilities []string    `json:"capabilities"`
}

func (s *TaskService) Agents() []AgentInfo {
	types := s.manager.Types()
	out := make([]AgentInfo, 0, len(types))
	for _, t := range types {
		a, _ := s.manager.Agent(t)
		out = append(out, AgentInfo{Type: t, ID: a.ID(), Name: a.Name(), Capabilities: a.Capabilities()})
	}
	return out
}

func (s *TaskService) Performance() map[agents.Type]agents.Performance {
	return s.manager.Performance()
}
