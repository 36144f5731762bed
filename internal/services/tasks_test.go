package services

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fincoach/internal/agents"
	"fincoach/internal/auth"
	"fincoach/internal/core"
	"fincoach/internal/llm"
	"fincoach/internal/storage"
	"fincoach/internal/storage/memory"
)

// switchable fails until ok is set.
type switchable struct {
	ok atomic.Bool
}

func (s *switchable) Complete(context.Context, llm.Request) (string, error) {
	if !s.ok.Load() {
		return "", errors.New("upstream unavailable")
	}
	return "model answer", nil
}

func newTaskService(c llm.Completer) (*TaskService, *memory.Store) {
	store := memory.New()
	return NewTaskService(store, agents.NewManager(c, nil), nil), store
}

func TestTaskService_CreateTask(t *testing.T) {
	ctx := context.Background()
	c := &switchable{}
	c.ok.Store(true)
	svc, store := newTaskService(c)

	task, err := svc.CreateTask(ctx, 1, NewTask{
		Title:     "Market scan",
		AgentType: "Research",
		TaskType:  "market_research",
		Input:     map[string]any{"topic": "budget apps"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != core.TaskCompleted || task.CompletedAt == nil {
		t.Errorf("task = %+v, want completed", task)
	}
	if task.AgentType != "research" || task.Priority != core.PriorityMedium || task.ExternalID == "" {
		t.Errorf("task defaults = %q %q %q", task.AgentType, task.Priority, task.ExternalID)
	}
	if task.Result["research"] != "model answer" {
		t.Errorf("result = %v", task.Result)
	}

	stored, err := store.GetTask(ctx, 1, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != core.TaskCompleted {
		t.Errorf("stored status = %q", stored.Status)
	}
	perf := svc.Performance()[agents.Research]
	if perf.TaskCount != 1 || perf.SuccessRate != 1 {
		t.Errorf("performance = %+v", perf)
	}
}

func TestTaskService_CreateTaskFailureIsStored(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(&switchable{})

	task, err := svc.CreateTask(ctx, 1, NewTask{Title: "Plan", AgentType: "learning"})
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != core.TaskFailed {
		t.Fatalf("status = %q, want failed", task.Status)
	}
	if !strings.HasPrefix(task.Error, "error getting AI response:") {
		t.Errorf("error = %q", task.Error)
	}

	c := &switchable{}
	c.ok.Store(true)
	svc.manager = agents.NewManager(c, nil)
	rerun, err := svc.Rerun(ctx, 1, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rerun.Status != core.TaskCompleted || rerun.Error != "" {
		t.Errorf("rerun = %+v, want completed without error", rerun)
	}
}

func TestTaskService_CreateTaskValidation(t *testing.T) {
	svc, _ := newTaskService(nil)
	tests := []struct {
		name string
		in   NewTask
		want error
	}{
		{"missing title", NewTask{AgentType: "research"}, ErrInvalidTask},
		{"unknown agent", NewTask{Title: "x", AgentType: "astrology"}, agents.ErrUnknownAgent},
		{"bad priority", NewTask{Title: "x", Priority: "urgent"}, ErrInvalidTask},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateTask(context.Background(), 1, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("CreateTask() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTaskService_FinancialTaskReadsTransactions(t *testing.T) {
	ctx := context.Background()
	svc, store := newTaskService(nil)
	if _, err := store.CreateTransactions(ctx, []core.Transaction{
		expense("Dining", 80, 2025, 1, 3),
		expense("Housing", 900, 2025, 1, 1),
	}); err != nil {
		t.Fatal(err)
	}

	task, err := svc.CreateTask(ctx, 1, NewTask{Title: "Spending", TaskType: "spending_analysis"})
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != core.TaskCompleted {
		t.Fatalf("status = %q, error = %q", task.Status, task.Error)
	}
	if task.AgentType != string(agents.Financial) {
		t.Errorf("agent type = %q, want financial default", task.AgentType)
	}
}

func TestTaskService_TaskOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTaskService(nil)
	task, err := svc.CreateTask(ctx, 1, NewTask{Title: "Mine", AgentType: "financial"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetTask(ctx, 2, task.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetTask(other user) error = %v", err)
	}
	if err := svc.DeleteTask(ctx, 2, task.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteTask(other user) error = %v", err)
	}
	if err := svc.DeleteTask(ctx, 1, task.ID); err != nil {
		t.Fatal(err)
	}
	tasks, err := svc.ListTasks(ctx, 1)
	if err != nil || len(tasks) != 0 {
		t.Errorf("ListTasks() = %v, %v", tasks, err)
	}
}

func TestTaskService_WorkflowResumesAfterFailure(t *testing.T) {
	ctx := context.Background()
	c := &switchable{}
	svc, _ := newTaskService(c)

	if _, err := svc.CreateWorkflow(ctx, 1, "", []string{"research"}); !errors.Is(err, ErrInvalidWorkflow) {
		t.Errorf("CreateWorkflow(no name) error = %v", err)
	}
	if _, err := svc.CreateWorkflow(ctx, 1, "x", []string{"research", "astrology"}); !errors.Is(err, agents.ErrUnknownAgent) {
		t.Errorf("CreateWorkflow(unknown agent) error = %v", err)
	}

	w, err := svc.CreateWorkflow(ctx, 1, "Side hustle", []string{"Research", "productivity", "learning"})
	if err != nil {
		t.Fatal(err)
	}
	if w.Status != core.TaskPending || w.AgentSequence[0] != "research" {
		t.Errorf("workflow = %+v", w)
	}

	run, err := svc.ExecuteWorkflow(ctx, 1, w.ID, "", map[string]any{"topic": "delivery apps"})
	if err != nil {
		t.Fatal(err)
	}
	if run.Workflow.Status != core.TaskFailed || run.Workflow.CurrentStep != 0 || len(run.Tasks) != 1 {
		t.Fatalf("failed run = status %q step %d tasks %d", run.Workflow.Status, run.Workflow.CurrentStep, len(run.Tasks))
	}
	if run.Tasks[0].WorkflowID != w.ID {
		t.Errorf("step task workflow id = %d, want %d", run.Tasks[0].WorkflowID, w.ID)
	}

	c.ok.Store(true)
	run, err = svc.ExecuteWorkflow(ctx, 1, w.ID, "", map[string]any{"topic": "delivery apps"})
	if err != nil {
		t.Fatal(err)
	}
	if run.Workflow.Status != core.TaskCompleted || run.Workflow.CurrentStep != 3 {
		t.Fatalf("run = status %q step %d", run.Workflow.Status, run.Workflow.CurrentStep)
	}
	if len(run.Tasks) != 3 || len(run.Workflow.TaskIDs) != 4 {
		t.Errorf("tasks this run = %d, task ids = %v", len(run.Tasks), run.Workflow.TaskIDs)
	}
	if _, ok := run.Tasks[2].Input["topic"]; !ok {
		t.Errorf("step input = %v", run.Tasks[2].Input)
	}

	if _, err := svc.ExecuteWorkflow(ctx, 1, w.ID, "", nil); !errors.Is(err, ErrWorkflowCompleted) {
		t.Errorf("ExecuteWorkflow(completed) error = %v", err)
	}
	if _, err := svc.ExecuteWorkflow(ctx, 2, w.ID, "", nil); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ExecuteWorkflow(other user) error = %v", err)
	}

	ws, err := svc.ListWorkflows(ctx, 1)
	if err != nil || len(ws) != 1 {
		t.Errorf("ListWorkflows() = %v, %v", ws, err)
	}
}

// stepAgent fails its first call when failOnce is set and records the
// previous answer each call received.
type stepAgent struct {
	typ      agents.Type
	failOnce atomic.Bool
	prev     []string
}

func (a *stepAgent) ID() string             { return string(a.typ) + "_agent" }
func (a *stepAgent) Name() string           { return string(a.typ) }
func (a *stepAgent) Type() agents.Type      { return a.typ }
func (a *stepAgent) Capabilities() []string { return []string{"testing"} }

func (a *stepAgent) Process(_ context.Context, req agents.Request) agents.Result {
	prev, _ := req.Data["previous_result"].(map[string]any)
	answer, _ := prev["answer"].(string)
	a.prev = append(a.prev, answer)
	if a.failOnce.CompareAndSwap(true, false) {
		return agents.Result{"success": false, "error": "temporary failure"}
	}
	return agents.Result{"success": true, "agent_type": string(a.typ), "answer": "done by " + string(a.typ)}
}

func TestTaskService_WorkflowRetryKeepsPreviousResult(t *testing.T) {
	ctx := context.Background()
	research := &stepAgent{typ: agents.Research}
	learning := &stepAgent{typ: agents.Learning}
	learning.failOnce.Store(true)
	store := memory.New()
	svc := NewTaskService(store, agents.NewManagerWith(nil, research, learning), nil)

	w, err := svc.CreateWorkflow(ctx, 1, "Learn budgeting", []string{"research", "learning"})
	if err != nil {
		t.Fatal(err)
	}
	run, err := svc.ExecuteWorkflow(ctx, 1, w.ID, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if run.Workflow.Status != core.TaskFailed || run.Workflow.CurrentStep != 1 {
		t.Fatalf("first run = status %q step %d", run.Workflow.Status, run.Workflow.CurrentStep)
	}

	run, err = svc.ExecuteWorkflow(ctx, 1, w.ID, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if run.Workflow.Status != core.TaskCompleted || len(run.Tasks) != 1 {
		t.Fatalf("retry = status %q tasks %d", run.Workflow.Status, len(run.Tasks))
	}
	want := []string{"done by research", "done by research"}
	if len(learning.prev) != 2 || learning.prev[0] != want[0] || learning.prev[1] != want[1] {
		t.Errorf("learning step previous answers = %q, want %q", learning.prev, want)
	}
	if len(research.prev) != 1 || research.prev[0] != "" {
		t.Errorf("research calls = %q, want one without a previous result", research.prev)
	}
}

// brokenTransactions fails every transaction read.
type brokenTransactions struct {
	*memory.Store
}

func (brokenTransactions) ListTransactions(context.Context, int64) ([]core.Transaction, error) {
	return nil, errors.New("disk I/O error")
}

func TestTaskService_RequestErrorMarksFailed(t *testing.T) {
	ctx := context.Background()
	store := brokenTransactions{memory.New()}
	svc := NewTaskService(store, agents.NewManager(nil, nil), nil)

	if _, err := svc.CreateTask(ctx, 1, NewTask{Title: "Spending", AgentType: "financial"}); err == nil {
		t.Fatal("CreateTask should surface the store error")
	}
	tasks, err := store.ListTasks(ctx, 1)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("ListTasks() = %v, %v", tasks, err)
	}
	if tasks[0].Status != core.TaskFailed || !strings.Contains(tasks[0].Error, "disk I/O error") || tasks[0].CompletedAt == nil {
		t.Errorf("task = %+v, want failed with the error recorded", tasks[0])
	}

	w, err := svc.CreateWorkflow(ctx, 1, "Review", []string{"financial"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ExecuteWorkflow(ctx, 1, w.ID, "", nil); err == nil {
		t.Fatal("ExecuteWorkflow should surface the store error")
	}
	stored, err := store.GetWorkflow(ctx, 1, w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != core.TaskFailed || stored.CurrentStep != 0 || len(stored.TaskIDs) != 1 {
		t.Errorf("workflow = status %q step %d task ids %v", stored.Status, stored.CurrentStep, stored.TaskIDs)
	}
}

func TestTaskService_Collaborate(t *testing.T) {
	c := &switchable{}
	c.ok.Store(true)
	svc, _ := newTaskService(c)

	got, err := svc.Collaborate(context.Background(), 1, agents.Parallel, []string{"research", "learning"}, "", map[string]any{"topic": "saving"})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Success || len(got.Results) != 2 || got.Results[0].Agent != agents.Research {
		t.Errorf("Collaborate() = %+v", got)
	}
	if _, err := svc.Collaborate(context.Background(), 1, "chaotic", []string{"research"}, "", nil); !errors.Is(err, agents.ErrUnknownMode) {
		t.Errorf("Collaborate(bad mode) error = %v", err)
	}
}

func TestTaskService_Agents(t *testing.T) {
	svc, _ := newTaskService(nil)
	list := svc.Agents()
	if len(list) != 4 || list[0].Type != agents.Financial || len(list[0].Capabilities) == 0 {
		t.Errorf("Agents() = %+v", list)
	}
}

func TestAccountService(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	inv := &countingInvalidator{}
	svc := NewAccountService(store, auth.NewTokenService(strings.Repeat("k", 32), time.Hour), inv, nil)

	if _, err := svc.Register(ctx, "not-an-email", "password123", "A"); err == nil {
		t.Error("Register(bad email) should fail")
	}
	if _, err := svc.Register(ctx, "a@example.com", "short", "A"); !errors.Is(err, auth.ErrWeakPassword) {
		t.Errorf("Register(short password) error = %v", err)
	}

	s, err := svc.Register(ctx, "Ana <Ana@Example.com>", "password123", " Ana ")
	if err != nil {
		t.Fatal(err)
	}
	if s.Token == "" || s.User.Email != "ana@example.com" || s.User.Name != "Ana" {
		t.Errorf("Register() = %+v", s)
	}
	if _, err := svc.Register(ctx, "ana@example.com", "password123", "Ana"); !errors.Is(err, storage.ErrDuplicateEmail) {
		t.Errorf("Register(duplicate) error = %v", err)
	}

	logged, err := svc.Login(ctx, "ANA@example.com", "password123")
	if err != nil {
		t.Fatal(err)
	}
	id, err := svc.Authenticate(logged.Token)
	if err != nil || id != s.User.ID {
		t.Errorf("Authenticate() = %d, %v; want %d", id, err, s.User.ID)
	}
	for _, tc := range [][2]string{{"ana@example.com", "wrong-password"}, {"nobody@example.com", "password123"}} {
		if _, err := svc.Login(ctx, tc[0], tc[1]); !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Errorf("Login(%s) error = %v, want ErrInvalidCredentials", tc[0], err)
		}
	}

	p, err := svc.Profile(ctx, id)
	if err != nil || p.EmploymentType != core.Unknown {
		t.Errorf("default profile = %+v, %v", p, err)
	}
	p.EmploymentType = core.Gig
	p.RiskTolerance = "Aggressive"
	p.MonthlyIncome = core.MoneyFromFloat(2500)
	saved, err := svc.SaveProfile(ctx, id, p)
	if err != nil {
		t.Fatal(err)
	}
	if saved.RiskTolerance != "aggressive" || saved.UserID != id {
		t.Errorf("saved = %+v", saved)
	}
	if len(inv.users) != 1 {
		t.Errorf("profile save should invalidate analysis, got %v", inv.users)
	}
	if _, err := svc.SaveProfile(ctx, id, core.Profile{EmploymentType: "astronaut"}); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("SaveProfile(bad employment) error = %v", err)
	}
}

// dataAgent records the Data of every request it receives.
type dataAgent struct {
	typ  agents.Type
	seen []map[string]any
}

func (a *dataAgent) ID() string             { return string(a.typ) + "_agent" }
func (a *dataAgent) Name() string           { return string(a.typ) }
func (a *dataAgent) Type() agents.Type      { return a.typ }
func (a *dataAgent) Capabilities() []string { return nil }

func (a *dataAgent) Process(_ context.Context, req agents.Request) agents.Result {
	a.seen = append(a.seen, req.Data)
	return agents.Result{"success": true}
}

func TestTaskService_Specialize(t *testing.T) {
	ctx := context.Background()
	research := &dataAgent{typ: agents.Research}
	learning := &dataAgent{typ: agents.Learning}
	svc := NewTaskService(memory.New(), agents.NewManagerWith(nil, research, learning), nil)

	prefs := map[string]any{"tone": "concise", "region": "EU"}
	spec, err := svc.Specialize(ctx, 1, "Research", prefs)
	if err != nil {
		t.Fatal(err)
	}
	if spec.AgentType != agents.Research || spec.UserID != 1 || spec.Status != "customized" {
		t.Errorf("specialization = %+v", spec)
	}
	prefs["tone"] = "verbose"

	for _, in := range []NewTask{
		{Title: "Scan", AgentType: "research", Input: map[string]any{"topic": "savings"}},
		{Title: "Plan", AgentType: "learning"},
	} {
		if _, err := svc.CreateTask(ctx, 1, in); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.CreateTask(ctx, 2, NewTask{Title: "Other user", AgentType: "research"}); err != nil {
		t.Fatal(err)
	}

	if len(research.seen) != 2 || len(learning.seen) != 1 {
		t.Fatalf("calls = research %d, learning %d", len(research.seen), len(learning.seen))
	}
	got, _ := research.seen[0]["customizations"].(map[string]any)
	if got["tone"] != "concise" || got["region"] != "EU" {
		t.Errorf("research customizations = %v, want the saved copy", research.seen[0]["customizations"])
	}
	if research.seen[0]["topic"] != "savings" {
		t.Errorf("task input lost: %v", research.seen[0])
	}
	if _, ok := learning.seen[0]["customizations"]; ok {
		t.Errorf("learning agent got customizations: %v", learning.seen[0])
	}
	if _, ok := research.seen[1]["customizations"]; ok {
		t.Errorf("user 2 got user 1's customizations: %v", research.seen[1])
	}

	if _, err := svc.Specialize(ctx, 1, "research", nil); !errors.Is(err, ErrInvalidTask) {
		t.Errorf("empty customizations error = %v, want ErrInvalidTask", err)
	}
	if _, err := svc.Specialize(ctx, 1, "financial", prefs); !errors.Is(err, agents.ErrUnknownAgent) {
		t.Errorf("unregistered agent error = %v, want ErrUnknownAgent", err)
	}
	if _, err := svc.Specialize(ctx, 1, "astrology", prefs); !errors.Is(err, agents.ErrUnknownAgent) {
		t.Errorf("unknown agent error = %v, want ErrUnknownAgent", err)
	}
}
