package agents

import (
	"context"
	"fmt"
	"sync"

	"fincoach/internal/llm"
	applog "fincoach/internal/log"
)

// Performance is the running record of one agent.
type Performance struct {
	Name         string   `json:"name"`
	TaskCount    int      `json:"task_count"`
	SuccessRate  float64  `json:"success_rate"`
	Capabilities []string `json:"capabilities"`
}

// Manager owns the agent registry and tracks per-agent success rates.
type Manager struct {
	agents map[Type]Agent
	order  []Type
	logger *applog.Logger

	mu    sync.Mutex
	stats map[Type]*Performance
}

// NewManager registers the four built-in agents over the same completer.
func NewManager(c llm.Completer, logger *applog.Logger) *Manager {
	if c == nil {
		c = llm.Disabled{}
	}
	return NewManagerWith(logger,
		NewFinancialAgent(c),
		NewResearchAgent(c),
		NewProductivityAgent(c),
		NewLearningAgent(c),
	)
}

func NewManagerWith(logger *applog.Logger, agents ...Agent) *Manager {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	m := &Manager{
		agents: make(map[Type]Agent, len(agents)),
		logger: logger.WithComponent(applog.ComponentAgents),
		stats:  make(map[Type]*Performance, len(agents)),
	}
	for _, a := range agents {
		if _, dup := m.agents[a.Type()]; !dup {
			m.order = append(m.order, a.Type())
		}
		m.agents[a.Type()] = a
		m.stats[a.Type()] = &Performance{Name: a.Name(), Capabilities: a.Capabilities()}
	}
	return m
}

func (m *Manager) Agent(t Type) (Agent, bool) {
	a, ok := m.agents[t]
	return a, ok
}

// Types lists registered agents in registration order.
func (m *Manager) Types() []Type {
	return append([]Type(nil), m.order...)
}

func (m *Manager) Capabilities() map[Type][]string {
	out := make(map[Type][]string, len(m.agents))
	for t, a := range m.agents {
		out[t] = a.Capabilities()
	}
	return out
}

// Route runs req on the agent named by agentType ("" selects the financial
// agent) and records the outcome.
func (m *Manager) Route(ctx context.Context, agentType string, req Request) (Result, error) {
	t, err := ParseType(agentType)
	if err != nil {
		return nil, err
	}
	a, ok := m.agents[t]
	if !ok {
		return nil, fmt.Errorf("agent type %s not available: %w", t, ErrUnknownAgent)
	}
	res := a.Process(ctx, req)
	m.record(t, res.Success())
	if !res.Success() {
		m.logger.WarnContext(ctx, "Agent task failed",
			applog.FieldAgentType, string(t),
			"task_type", req.TaskType,
			applog.FieldError, res.Err(),
		)
	} else {
		m.logger.DebugContext(ctx, "Agent task completed",
			applog.FieldAgentType, string(t),
			"task_type", req.TaskType,
		)
	}
	return res, nil
}

func (m *Manager) record(t Type, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.stats[t]
	p.TaskCount++
	outcome := 0.0
	if success {
		outcome = 1
	}
	p.SuccessRate = (p.SuccessRate*float64(p.TaskCount-1) + outcome) / float64(p.TaskCount)
}

// Performance returns a snapshot of every agent's record.
func (m *Manager) Performance() map[Type]Performance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Type]Performance, len(m.stats))
	for t, p := range m.stats {
		snap := *p
		snap.Capabilities = append([]string(nil), p.Capabilities...)
		out[t] = snap
	}
	return out
}
