package agents

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"fincoach/internal/core"
	"fincoach/internal/llm"
)

func reply(text string, err error) llm.Completer {
	return llm.CompleterFunc(func(context.Context, llm.Request) (string, error) { return text, err })
}

func tx(typ core.TxType, cat core.Category, amount float64, m int) core.Transaction {
	return core.Transaction{Date: core.NewDate(2025, m, 1), Amount: core.MoneyFromFloat(amount), Category: cat, Type: typ}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{"", Financial, false},
		{"Research", Research, false},
		{" learning ", Learning, false},
		{"astrology", "", true},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseType(%q) err = %v", tt.in, err)
		}
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownAgent) || !strings.Contains(err.Error(), "astrology not available") {
				t.Errorf("unexpected error %v", err)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ParseType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseAdvice(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"json array", `["Save 10%", "Cook at home"]`, []string{"Save 10%", "Cook at home"}},
		{"json inside prose", "Sure:\n[\"Cancel unused subscriptions\"]\nGood luck", []string{"Cancel unused subscriptions"}},
		{"bullets", "Advice:\n- one\n• two\n* three\nnot a bullet", []string{"one", "two", "three"}},
		{"bullets capped", "- a\n- b\n- c\n- d\n- e\n- f\n- g", []string{"a", "b", "c", "d", "e"}},
		{"plain prose", "Spend less, save more.", defaultAdvice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAdvice(tt.text)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("ParseAdvice() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFinancialSpendingAnalysis(t *testing.T) {
	a := NewFinancialAgent(reply(`["Cut dining"]`, nil))
	txs := []core.Transaction{
		tx(core.Expense, core.Dining, 600, 1),
		tx(core.Expense, core.Housing, 400, 1),
		tx(core.Income, core.Salary, 3000, 1),
	}
	res := a.Process(context.Background(), Request{TaskType: "spending_analysis", Transactions: txs})
	if !res.Success() {
		t.Fatalf("expected success: %v", res)
	}
	if res["agent_id"] != "financial_agent" || res["agent_type"] != "financial" || res["task_type"] != "spending_analysis" {
		t.Fatalf("bad envelope: %v", res)
	}
	if got := res["total_spending"].(float64); got != 1000 {
		t.Errorf("total_spending = %v", got)
	}
	insights := res["insights"].([]string)
	if len(insights) != 1 || insights[0] != "60.0% of spending is in Dining" {
		t.Errorf("insights = %q", insights)
	}
	if recs := res["recommendations"].([]string); len(recs) != 1 || recs[0] != "Cut dining" {
		t.Errorf("recommendations = %q", recs)
	}
}

func TestFinancialEmptyData(t *testing.T) {
	a := NewFinancialAgent(nil)
	ctx := context.Background()

	res := a.Process(ctx, Request{TaskType: "spending_analysis"})
	if !res.Success() || res["message"] != "No transaction data available" {
		t.Errorf("spending = %v", res)
	}
	res = a.Process(ctx, Request{TaskType: "income_analysis", Transactions: []core.Transaction{tx(core.Expense, core.Dining, 1, 1)}})
	if res["message"] != "No income data available" {
		t.Errorf("income = %v", res)
	}
	res = a.Process(ctx, Request{TaskType: "debt_management", Data: map[string]any{}})
	if recs := res["recommendations"].([]string); recs[0] != "Continue debt-free status" {
		t.Errorf("debt = %v", res)
	}
}

func TestFinancialAdviceFallsBackWhenModelFails(t *testing.T) {
	a := NewFinancialAgent(reply("", errors.New("boom")))
	res := a.Process(context.Background(), Request{TaskType: "general", Data: map[string]any{"question": "help"}})
	if !res.Success() || res["task_type"] != "general_advice" {
		t.Fatalf("unexpected %v", res)
	}
	recs := res["recommendations"].([]string)
	if len(recs) != 3 || recs[1] != "Aim to save at least 20% of your income" {
		t.Errorf("recommendations = %q", recs)
	}
}

func TestFinancialIncomeAndDebt(t *testing.T) {
	a := NewFinancialAgent(reply("[]", nil))
	ctx := context.Background()
	txs := []core.Transaction{
		tx(core.Income, core.Salary, 1000, 1),
		tx(core.Income, core.Salary, 3000, 2),
	}
	res := a.Process(ctx, Request{TaskType: "income_analysis", Transactions: txs})
	// mean 2000, population std 1000
	if v := res["volatility"].(float64); v != 0.5 {
		t.Errorf("volatility = %v", v)
	}
	if s := res["stability_score"].(float64); s != 0.5 {
		t.Errorf("stability_score = %v", s)
	}

	res = a.Process(ctx, Request{TaskType: "debt_management", Data: map[string]any{
		"monthly_income": 2000.0,
		"debts": []any{
			map[string]any{"name": "card", "amount": 1000.0, "monthly_payment": 100.0, "interest_rate": 0.2},
			map[string]any{"name": "car", "amount": 5000.0, "monthly_payment": 300.0, "interest_rate": 0.05},
		},
	}})
	if res["total_debt"].(float64) != 6000 || res["debt_to_income_ratio"].(float64) != 0.2 {
		t.Errorf("debt analysis = %v", res)
	}

	res = a.Process(ctx, Request{TaskType: "debt_management", Data: map[string]any{"debts": "lots"}})
	if res.Success() || res.Err() == "" {
		t.Errorf("expected failure for malformed debts: %v", res)
	}
}

func TestPromptAgentDispatch(t *testing.T) {
	var prompt, system string
	c := llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
		prompt, system = req.Prompt, req.System
		return "report", nil
	})
	a := NewResearchAgent(c)
	res := a.Process(context.Background(), Request{TaskType: "market_research", Data: map[string]any{
		"topic":       "coffee",
		"focus_areas": []any{"pricing", "growth"},
	}})
	if !res.Success() || res["research"] != "report" || res["task_type"] != "market_research" {
		t.Fatalf("unexpected %v", res)
	}
	if !strings.Contains(prompt, "market research on: coffee") || !strings.Contains(prompt, "pricing, growth") {
		t.Errorf("prompt = %q", prompt)
	}
	if system != genericSystem {
		t.Errorf("system = %q", system)
	}

	res = a.Process(context.Background(), Request{TaskType: "nope"})
	if res["task_type"] != "general_research" {
		t.Errorf("unknown task should use general handler: %v", res)
	}

	failing := NewLearningAgent(reply("", errors.New("down")))
	res = failing.Process(context.Background(), Request{TaskType: "learning_path"})
	if res.Success() || !strings.Contains(res.Err(), "down") || res["agent_id"] != "learning_agent" {
		t.Errorf("expected failure envelope: %v", res)
	}
}

func TestManagerRouteTracksPerformance(t *testing.T) {
	calls := 0
	c := llm.CompleterFunc(func(context.Context, llm.Request) (string, error) {
		calls++
		if calls == 2 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	})
	m := NewManager(c, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := m.Route(ctx, "productivity", Request{}); err != nil {
			t.Fatal(err)
		}
	}
	p := m.Performance()[Productivity]
	if p.TaskCount != 3 || p.Name != "Productivity Coach" {
		t.Fatalf("performance = %+v", p)
	}
	if p.SuccessRate < 0.66 || p.SuccessRate > 0.67 {
		t.Errorf("success rate = %v", p.SuccessRate)
	}
	if _, err := m.Route(ctx, "astrology", Request{}); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("err = %v", err)
	}
	if got := m.Types(); len(got) != 4 || got[0] != Financial {
		t.Errorf("types = %v", got)
	}
	if caps := m.Capabilities()[Learning]; len(caps) != 7 {
		t.Errorf("learning capabilities = %v", caps)
	}
}

func TestCollaborateSequentialPassesPreviousResult(t *testing.T) {
	var sawPrevious atomic.Bool
	c := llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "first answer") {
			sawPrevious.Store(true)
		}
		return "first answer", nil
	})
	m := NewManager(c, nil)
	got, err := m.Collaborate(context.Background(), Sequential, []string{"research", "financial"}, Request{Data: map[string]any{}})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Success || len(got.Results) != 2 || got.Results[0].Agent != Research {
		t.Fatalf("collaboration = %+v", got)
	}
	if !sawPrevious.Load() {
		t.Error("second agent did not receive the previous result")
	}
}

func TestCollaborateParallelSucceedsWhenAnyAgentDoes(t *testing.T) {
	c := llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "learning advice") {
			return "", errors.New("down")
		}
		return "fine", nil
	})
	m := NewManager(c, nil)
	got, err := m.Collaborate(context.Background(), Parallel, []string{"learning", "research"}, Request{})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Success {
		t.Error("parallel collaboration should succeed when one agent does")
	}
	if got.Results[0].Agent != Learning || got.Results[0].Success || !got.Results[1].Success {
		t.Errorf("results out of order or wrong: %+v", got.Results)
	}

	seq, err := m.Collaborate(context.Background(), Sequential, []string{"learning", "research"}, Request{})
	if err != nil {
		t.Fatal(err)
	}
	if seq.Success {
		t.Error("sequential collaboration needs every step to succeed")
	}
}

func TestCollaborateRejectsBadInput(t *testing.T) {
	m := NewManager(nil, nil)
	ctx := context.Background()
	if _, err := m.Collaborate(ctx, "round-robin", []string{"financial"}, Request{}); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("mode err = %v", err)
	}
	if _, err := m.Collaborate(ctx, Parallel, nil, Request{}); !errors.Is(err, ErrNoAgents) {
		t.Errorf("empty err = %v", err)
	}
	if _, err := m.Collaborate(ctx, Parallel, []string{"financial", "ghost"}, Request{}); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("agent err = %v", err)
	}
	if p := m.Performance()[Financial]; p.TaskCount != 0 {
		t.Errorf("rejected collaboration ran agents: %+v", p)
	}
}
