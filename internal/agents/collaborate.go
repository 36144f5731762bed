package agents

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	Sequential Mode = "sequential"
	Parallel   Mode = "parallel"
)

var (
	ErrUnknownMode = errors.New("unsupported collaboration type")
	ErrNoAgents    = errors.New("no agents given")
)

// StepResult is one agent's contribution to a collaboration.
type StepResult struct {
	Agent   Type   `json:"agent"`
	Result  Result `json:"result"`
	Success bool   `json:"success"`
}

type Collaboration struct {
	Mode    Mode         `json:"collaboration_type"`
	Agents  []Type       `json:"agents"`
	Results []StepResult `json:"results"`
	Success bool         `json:"success"`
}

// Collaborate runs req across agentTypes. Sequential hands each agent the
// previous result and succeeds only when every step does; Parallel fans out
// and succeeds when any agent does. Unknown agent types fail the whole call
// before anything runs.
func (m *Manager) Collaborate(ctx context.Context, mode Mode, agentTypes []string, req Request) (Collaboration, error) {
	if mode == "" {
		mode = Sequential
	}
	if mode != Sequential && mode != Parallel {
		return Collaboration{}, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	if len(agentTypes) == 0 {
		return Collaboration{}, ErrNoAgents
	}
	types := make([]Type, len(agentTypes))
	for i, s := range agentTypes {
		t, err := ParseType(s)
		if err != nil {
			return Collaboration{}, err
		}
		if _, ok := m.agents[t]; !ok {
			return Collaboration{}, fmt.Errorf("agent type %s not available: %w", t, ErrUnknownAgent)
		}
		types[i] = t
	}

	c := Collaboration{Mode: mode, Agents: types, Results: make([]StepResult, len(types))}
	switch mode {
	case Sequential:
		c.Success = true
		var prev Result
		for i, t := range types {
			res, err := m.Route(ctx, string(t), req.WithPrevious(prev))
			if err != nil {
				return Collaboration{}, err
			}
			c.Results[i] = StepResult{Agent: t, Result: res, Success: res.Success()}
			c.Success = c.Success && res.Success()
			prev = res
		}
	case Parallel:
		g, gctx := errgroup.WithContext(ctx)
		for i, t := range types {
			g.Go(func() error {
				res, err := m.Route(gctx, string(t), req.WithPrevious(nil))
				if err != nil {
					return err
				}
				c.Results[i] = StepResult{Agent: t, Result: res, Success: res.Success()}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Collaboration{}, err
		}
		for _, r := range c.Results {
			c.Success = c.Success || r.Success
		}
	}
	return c, nil
}
