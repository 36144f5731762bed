package advice

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"fincoach/internal/core"
	"fincoach/internal/llm"
)

func tx(typ core.TxType, cat core.Category, amount float64, m int) core.Transaction {
	return core.Transaction{Date: core.NewDate(2025, m, 1), Amount: core.MoneyFromFloat(amount), Category: cat, Type: typ}
}

func reply(text string, err error) llm.Completer {
	return llm.CompleterFunc(func(context.Context, llm.Request) (string, error) { return text, err })
}

func TestBuildContext(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Income, core.Salary, 2000, 1),
		tx(core.Expense, core.Dining, 100, 1),
		tx(core.Expense, core.Housing, 900, 1),
		tx(core.Expense, core.Dining, 100, 2),
	}
	c := BuildContext(txs, nil)
	if c.FinancialSummary.TotalIncome != 2000 || c.FinancialSummary.TotalExpenses != 1100 || c.FinancialSummary.TransactionCount != 4 {
		t.Fatalf("unexpected summary: %+v", c.FinancialSummary)
	}
	want := []core.Category{core.Salary, core.Dining, core.Housing}
	if len(c.FinancialSummary.Categories) != len(want) {
		t.Fatalf("categories = %v", c.FinancialSummary.Categories)
	}
	for i, cat := range want {
		if c.FinancialSummary.Categories[i] != cat {
			t.Fatalf("categories = %v, want %v", c.FinancialSummary.Categories, want)
		}
	}
	if c.UserProfile.EmploymentType != core.Unknown {
		t.Fatalf("employment = %q", c.UserProfile.EmploymentType)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(c.JSON()), &decoded); err != nil {
		t.Fatalf("context is not JSON: %v", err)
	}
	for _, key := range []string{"financial_summary", "user_profile", "income_volatility", "savings_rate"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
}

func TestStages(t *testing.T) {
	tests := []struct {
		name   string
		stage  Stage
		text   string
		ok     bool
		action string
	}{
		{"json objects", JSONStage{}, `[{"category":"savings","priority":"high","action":"Save more","impact":"x","timeline":"now"}]`, true, "Save more"},
		{"fenced json", JSONStage{}, "Here you go:\n```json\n[{\"action\":\"Cut dining\"}]\n```", true, "Cut dining"},
		{"json strings", JSONStage{}, `["Track spending", ""]`, true, "Track spending"},
		{"json without actions", JSONStage{}, `[{"category":"savings"}]`, false, ""},
		{"not json", JSONStage{}, "no brackets here", false, ""},
		{"broken json", JSONStage{}, "[{oops]", false, ""},
		{"extract", ExtractStage{}, "My recommendation: cook at home more. Also some noise", true, "cook at home more."},
		{"extract none", ExtractStage{}, "Just spend less", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, ok := tt.stage.Parse(tt.text)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (%+v)", ok, tt.ok, recs)
			}
			if ok && recs[0].Action != tt.action {
				t.Fatalf("action = %q, want %q", recs[0].Action, tt.action)
			}
		})
	}
}

func TestExtractStageWrapsAsGeneral(t *testing.T) {
	recs, ok := ExtractStage{}.Parse("Advice: pay off the card! Suggestion - open a savings account.")
	if !ok || len(recs) != 2 {
		t.Fatalf("expected two items, got %+v", recs)
	}
	want := Recommendation{Category: "general", Priority: "medium", Action: "pay off the card!", Impact: "positive", Timeline: "immediate"}
	if recs[0] != want {
		t.Fatalf("got %+v, want %+v", recs[0], want)
	}
}

func TestRecommendSources(t *testing.T) {
	gig := &core.Profile{EmploymentType: core.Gig}
	txs := []core.Transaction{tx(core.Income, core.Freelance, 1000, 1), tx(core.Expense, core.Housing, 950, 1)}
	tests := []struct {
		name string
		llm  llm.Completer
		want Source
		n    int
	}{
		{"ai", reply(`[{"action":"a"},{"action":"b"}]`, nil), SourceAI, 2},
		{"extracted", reply("My advice is to budget weekly.", nil), SourceExtracted, 1},
		{"unparseable", reply("Sure!", nil), SourceFallback, 2},
		{"error", reply("", errors.New("timeout")), SourceFallback, 2},
		{"disabled", nil, SourceFallback, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewComposer(tt.llm, nil).Recommend(context.Background(), txs, gig)
			if got.Source != tt.want || len(got.Recommendations) != tt.n {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestFallback(t *testing.T) {
	healthy := []core.Transaction{tx(core.Income, core.Salary, 1000, 1), tx(core.Expense, core.Housing, 500, 1)}
	if got := Fallback(healthy, &core.Profile{EmploymentType: core.Formal}); len(got) != 0 {
		t.Fatalf("expected no fallback items, got %+v", got)
	}
	got := Fallback(nil, &core.Profile{EmploymentType: core.Informal})
	if len(got) != 2 || got[0].Category != "savings" || got[1].Category != "emergency_fund" {
		t.Fatalf("unexpected fallback: %+v", got)
	}
}

func TestCoach(t *testing.T) {
	var seen llm.Request
	c := NewComposer(llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
		seen = req
		return "- save more", nil
	}), nil)
	req := CoachRequest{
		User:     core.User{Name: "Ada"},
		Profile:  core.Profile{EmploymentType: core.Gig, RiskTolerance: "aggressive"},
		Question: "Should I buy a car?",
	}
	out, err := c.Coach(context.Background(), req)
	if err != nil || out != "- save more" {
		t.Fatalf("got %q, %v", out, err)
	}
	if seen.System != coachSystem || !strings.Contains(seen.Prompt, "Should I buy a car?") || !strings.Contains(seen.Prompt, "risk tolerance level: aggressive") {
		t.Fatalf("unexpected request: %+v", seen)
	}

	failing := NewComposer(reply("", errors.New("down")), nil)
	if _, err := failing.Coach(context.Background(), req); err == nil {
		t.Fatal("expected error")
	}
}
