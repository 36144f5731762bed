package categorize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"fincoach/internal/core"
	"fincoach/internal/llm"
)

type fakeCompleter struct {
	answer string
	err    error
	calls  atomic.Int32
	last   llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.calls.Add(1)
	f.last = req
	return f.answer, f.err
}

func TestCategorizeRules(t *testing.T) {
	c := New()
	tests := []struct {
		desc string
		typ  core.TxType
		want core.Category
	}{
		{"Monthly Salary ACME", core.Income, core.Salary},
		{"Upwork freelance project", core.Income, core.Freelance},
		{"Quarterly dividend", core.Income, core.Investment},
		{"Sales commission", core.Income, core.Bonus},
		{"Tax refund", core.Income, core.Refund},
		{"zzqx transfer", core.Income, core.OtherIncome},
		{"Rent payment", core.Expense, core.Housing},
		{"PG&E electricity", core.Expense, core.Utilities},
		{"Shell station 765", core.Expense, core.Transportation},
		{"Auto insurance payment", core.Expense, core.Transportation},
		{"GEICO monthly", core.Expense, core.Transportation},
		{"Life insurance premium", core.Expense, core.Insurance},
		{"Health insurance", core.Expense, core.Healthcare},
		{"Whole Foods Market", core.Expense, core.Groceries},
		{"Starbucks coffee", core.Expense, core.Dining},
		{"Netflix", core.Expense, core.Entertainment},
		{"IKEA furniture", core.Expense, core.Shopping},
		{"Vet visit", core.Expense, core.PetCare},
		{"Haircut", core.Expense, core.PersonalCare},
		{"Coursera", core.Expense, core.Education},
		{"Charity donation", core.Expense, core.Gifts},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got := c.Categorize(context.Background(), tt.desc, core.Money{Cents: 1000}, tt.typ)
			if got != tt.want {
				t.Fatalf("Categorize(%q) = %q, want %q", tt.desc, got, tt.want)
			}
			if again := c.Categorize(context.Background(), tt.desc, core.Money{Cents: 1000}, tt.typ); again != got {
				t.Fatalf("not deterministic: %q then %q", got, again)
			}
		})
	}
}

func TestIncomeNeverUsesFallback(t *testing.T) {
	f := &fakeCompleter{answer: "Shopping"}
	c := New(WithCompleter(f))
	if got := c.Categorize(context.Background(), "zzqx", core.Money{}, core.Income); got != core.OtherIncome {
		t.Fatalf("got %q", got)
	}
	if f.calls.Load() != 0 {
		t.Fatal("fallback called for income")
	}
}

func TestFallback(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		err    error
		want   core.Category
	}{
		{"valid label", "Shopping", nil, core.Shopping},
		{"case and punctuation", " pet care.\n", nil, core.PetCare},
		{"income label rejected", "Salary", nil, core.Other},
		{"other", "Other", nil, core.Other},
		{"garbage", "I think this is groceries", nil, core.Other},
		{"error", "", errors.New("boom"), core.Other},
		{"not configured", "", llm.ErrNotConfigured, core.Other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeCompleter{answer: tt.answer, err: tt.err}
			c := New(WithCompleter(f))
			got := c.Categorize(context.Background(), "zzqx 42", core.Money{Cents: 4200}, core.Expense)
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFallbackRequestAndMemo(t *testing.T) {
	f := &fakeCompleter{answer: "Shopping"}
	c := New(WithCompleter(f))
	ctx := context.Background()

	c.Categorize(ctx, "zzqx 42", core.Money{Cents: 4200}, core.Expense)
	c.Categorize(ctx, "ZZQX 42", core.Money{Cents: 100}, core.Expense)
	if n := f.calls.Load(); n != 1 {
		t.Fatalf("expected one fallback call, got %d", n)
	}
	if f.last.System != fallbackSystem || f.last.MaxTokens != 20 || f.last.Temperature != 0.1 {
		t.Fatalf("unexpected request: %+v", f.last)
	}

	failing := &fakeCompleter{err: errors.New("timeout")}
	c = New(WithCompleter(failing))
	c.Categorize(ctx, "zzqx 43", core.Money{}, core.Expense)
	c.Categorize(ctx, "zzqx 43", core.Money{}, core.Expense)
	if n := failing.calls.Load(); n != 2 {
		t.Fatalf("failures must not be memoized, got %d calls", n)
	}
}

func TestCategorizeAll(t *testing.T) {
	var calls atomic.Int32
	c := New(WithCompleter(llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
		calls.Add(1)
		switch {
		case strings.Contains(req.Prompt, "Transaction: zzqx lamp"):
			return "Shopping", nil
		case strings.Contains(req.Prompt, "Transaction: zzqx kibble"):
			return "Pet Care", nil
		}
		return "", errors.New("rate limited")
	})))
	ctx := context.Background()

	items := []Item{
		{Description: "zzqx lamp", Amount: core.Money{Cents: 3000}, Type: core.Expense},
		{Description: "Netflix", Amount: core.Money{Cents: 1599}, Type: core.Expense},
		{Description: "Payroll ACME", Amount: core.Money{Cents: 500000}, Type: core.Income},
		{Description: "zzqx kibble", Amount: core.Money{Cents: 8000}, Type: core.Expense},
		{Description: "ZZQX Lamp", Amount: core.Money{Cents: 100}, Type: core.Expense},
		{Description: "zzqx unknown", Amount: core.Money{Cents: 100}, Type: core.Expense},
	}
	got := c.CategorizeAll(ctx, items)
	want := []core.Category{core.Shopping, core.Entertainment, core.Salary, core.PetCare, core.Shopping, core.Other}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d (%s) = %q, want %q", i, items[i].Description, got[i], want[i])
		}
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("fallback calls = %d, want one per distinct unmatched description", n)
	}

	c.CategorizeAll(ctx, items[:1])
	if n := calls.Load(); n != 3 {
		t.Errorf("memoized description was requested again, calls = %d", n)
	}
	if got := c.CategorizeAll(ctx, nil); len(got) != 0 {
		t.Errorf("CategorizeAll(nil) = %v", got)
	}
}

func TestParseRulesValidation(t *testing.T) {
	bad := []string{
		"expense:\n  - category: Vacation\n    keywords: [trip]\n",
		"expense:\n  - category: Other\n    keywords: [misc]\n",
		"expense:\n  - category: Dining\n",
		"income_default: Lottery\n",
		"expense: [",
	}
	for i, doc := range bad {
		if _, err := ParseRules([]byte(doc)); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}

	rs, err := ParseRules([]byte("expense:\n  - category: dining\n    keywords: [Bistro]\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.Expense[0].Category != core.Dining || rs.Expense[0].Keywords[0] != "bistro" || rs.IncomeDefault != core.OtherIncome {
		t.Fatalf("rules not normalized: %+v", rs)
	}
}

func TestLoadRulesOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := "expense:\n  - category: Gifts\n    keywords: [bistro]\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	rs, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	c := New(WithRules(rs))
	if got := c.Categorize(context.Background(), "Le Bistro", core.Money{}, core.Expense); got != core.Gifts {
		t.Fatalf("got %q", got)
	}
	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaultRulesOrder(t *testing.T) {
	rs := DefaultRules()
	if rs.Income[0].Category != core.Salary || rs.Expense[0].Category != core.Housing {
		t.Fatalf("unexpected head of rules: %+v %+v", rs.Income[0], rs.Expense[0])
	}
	insurance := rs.Expense[len(rs.Expense)-1]
	if insurance.Category != core.Insurance || len(insurance.Exclude) != 2 {
		t.Fatalf("insurance must be last with exclusions, got %+v", insurance)
	}
}
