// Package agents routes free-form tasks to specialised LLM-backed agents and
// coordinates multi-agent runs.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fincoach/internal/core"
	"fincoach/internal/llm"
)

type Type string

const (
	Financial    Type = "financial"
	Research     Type = "research"
	Productivity Type = "productivity"
	Learning     Type = "learning"
)

const (
	genericSystem  = "You are a helpful AI assistant."
	agentMaxTokens = 2000
	agentTemp      = 0.7
)

var ErrUnknownAgent = errors.New("unknown agent type")

// ParseType maps an empty string to Financial.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case "":
		return Financial, nil
	case Financial, Research, Productivity, Learning:
		return t, nil
	}
	return "", fmt.Errorf("agent type %s not available: %w", s, ErrUnknownAgent)
}

// Request is the task payload handed to an agent. Transactions and Profile
// are only read by the financial agent.
type Request struct {
	TaskType     string
	Data         map[string]any
	Transactions []core.Transaction
	Profile      *core.Profile
}

// WithPrevious returns a copy of r whose Data carries prev under
// "previous_result".
func (r Request) WithPrevious(prev Result) Request {
	data := make(map[string]any, len(r.Data)+1)
	for k, v := range r.Data {
		data[k] = v
	}
	if prev != nil {
		data["previous_result"] = map[string]any(prev)
	}
	r.Data = data
	return r
}

// WithCustomizations returns a copy of r whose Data carries the user's
// saved agent preferences under "customizations".
func (r Request) WithCustomizations(c map[string]any) Request {
	if len(c) == 0 {
		return r
	}
	data := make(map[string]any, len(r.Data)+1)
	for k, v := range r.Data {
		data[k] = v
	}
	data["customizations"] = c
	r.Data = data
	return r
}

// Result is the JSON envelope an agent returns:
// {success, agent_id, agent_type, task_type, ...payload}.
type Result map[string]any

func (r Result) Success() bool {
	ok, _ := r["success"].(bool)
	return ok
}

func (r Result) Err() string {
	s, _ := r["error"].(string)
	return s
}

type Agent interface {
	ID() string
	Name() string
	Type() Type
	Capabilities() []string
	Process(ctx context.Context, req Request) Result
}

func envelope(a Agent, taskType string, success bool) Result {
	return Result{
		"success":    success,
		"agent_id":   a.ID(),
		"agent_type": string(a.Type()),
		"task_type":  taskType,
	}
}

func failure(a Agent, taskType string, err error) Result {
	r := envelope(a, taskType, false)
	r["error"] = err.Error()
	return r
}

func ask(ctx context.Context, c llm.Completer, system, prompt string) (string, error) {
	return c.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      prompt,
		MaxTokens:   agentMaxTokens,
		Temperature: agentTemp,
	})
}

// field renders a payload value for a prompt; lists are comma-joined and
// objects are JSON encoded.
func field(data map[string]any, key, def string) string {
	v, ok := data[key]
	if !ok || v == nil {
		return def
	}
	switch x := v.(type) {
	case string:
		if x == "" {
			return def
		}
		return x
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(x, ", ")
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return def
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

func number(data map[string]any, key string) (float64, bool) {
	switch x := data[key].(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// decode re-marshals a payload value into out.
func decode(data map[string]any, key string, out any) error {
	v, ok := data[key]
	if !ok || v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	return nil
}
