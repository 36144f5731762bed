package importer

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"fincoach/internal/categorize"
	"fincoach/internal/core"
	"fincoach/internal/llm"
)

type stubCategorizer struct{ calls int }

func (s *stubCategorizer) Categorize(_ context.Context, desc string, _ core.Money, typ core.TxType) core.Category {
	s.calls++
	if typ == core.Income {
		return core.Salary
	}
	if strings.Contains(strings.ToLower(desc), "coffee") {
		return core.Dining
	}
	return core.Other
}

func reply(text string, err error) llm.Completer {
	return llm.CompleterFunc(func(context.Context, llm.Request) (string, error) { return text, err })
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"12.50", "12.5", false},
		{"$1,234.56", "1234.56", false},
		{"€1.234,56", "1234.56", false},
		{"12,5", "12.5", false},
		{"1,234", "1234", false},
		{"(45.00)", "-45", false},
		{"-3.10", "-3.1", false},
		{"3.10-", "-3.1", false},
		{"USD 99", "99", false},
		{"+7", "7", false},
		{"", "", true},
		{"abc", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseAmount(%q) err = %v", tt.in, err)
		}
		if !tt.wantErr && got.String() != tt.want {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want core.Date
	}{
		{"2025-03-04", core.NewDate(2025, 3, 4)},
		{"03/04/2025", core.NewDate(2025, 3, 4)},
		{"3/4/2025", core.NewDate(2025, 3, 4)},
		{"Mar 4, 2025", core.NewDate(2025, 3, 4)},
		{"2025-03-04T10:30:00Z", core.NewDate(2025, 3, 4)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want.Time) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseDate("yesterday"); err == nil {
		t.Error("expected an error for free text")
	}
}

func TestReadCSV(t *testing.T) {
	in := "\ufeffDate, Description ,Amount\n2025-01-02,Coffee,-3.50\n\n,,\n2025-01-03,Salary\n"
	tbl, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(tbl.Headers, "|") != "Date|Description|Amount" {
		t.Fatalf("headers = %q", tbl.Headers)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("blank rows should be dropped, got %d rows", len(tbl.Rows))
	}
	if cell(tbl.Rows[1], 2) != "" {
		t.Error("missing cells should read as empty")
	}
	if _, err := ReadCSV(strings.NewReader("")); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("empty file err = %v", err)
	}
}

func TestHeuristicMapping(t *testing.T) {
	tbl := Table{Headers: []string{"Posted Date", "Value Date", "Payee", "Amount", "Transaction Type"}}
	m, err := HeuristicMapping(tbl)
	if err != nil {
		t.Fatal(err)
	}
	want := Mapping{Date: "Posted Date", Amount: "Amount", Description: "Payee", Type: "Transaction Type"}
	if m != want {
		t.Errorf("mapping = %+v, want %+v", m, want)
	}
	if _, err := HeuristicMapping(Table{Headers: []string{"foo", "bar"}}); !errors.Is(err, ErrNoMapping) {
		t.Errorf("err = %v", err)
	}
}

func TestMapperUsesModelAndValidatesHeaders(t *testing.T) {
	tbl := Table{Headers: []string{"When", "What", "How Much", "Kind"}}
	ctx := context.Background()

	m, fromModel, err := NewMapper(reply(`Here: {"date_column":"when","amount_column":"How Much","description_column":"What","type_column":null,"category_column":"Missing"}`, nil)).Map(ctx, tbl)
	if err != nil || !fromModel {
		t.Fatalf("Map() = %+v, %v, %v", m, fromModel, err)
	}
	want := Mapping{Date: "When", Amount: "How Much", Description: "What"}
	if m != want {
		t.Errorf("mapping = %+v, want %+v", m, want)
	}

	// a mapping naming absent columns falls back to header heuristics, which fail here
	_, fromModel, err = NewMapper(reply(`{"date_column":"Date","amount_column":"Amount"}`, nil)).Map(ctx, tbl)
	if fromModel || !errors.Is(err, ErrNoMapping) {
		t.Errorf("fromModel = %v, err = %v", fromModel, err)
	}
}

func TestPreview(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Description,Amount,Category",
		"2025-01-05,Coffee shop,-4.25,",
		"2025-01-01,ACME payroll,2000.00,Salary",
		"not a date,Broken,1.00,",
		"2025-01-09,Groceries run,(60.25),groceries",
		"2025-01-10,Mystery,abc,",
		"2025-01-11,Tax refund,0,",
	}, "\n")
	tbl, err := ReadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	cat := &stubCategorizer{}
	im := New(NewMapper(reply("", errors.New("offline"))), cat, nil)
	p, err := im.Preview(context.Background(), tbl)
	if err != nil {
		t.Fatal(err)
	}
	if p.AIMapping {
		t.Error("mapping should come from heuristics")
	}
	if len(p.Transactions) != 4 || p.ErrorCount != 2 {
		t.Fatalf("got %d transactions, %d errors: %v", len(p.Transactions), p.ErrorCount, p.Errors)
	}
	if !strings.HasPrefix(p.Errors[0], "Row 4: ") || !strings.HasPrefix(p.Errors[1], "Row 6: ") {
		t.Errorf("errors = %q", p.Errors)
	}

	coffee := p.Transactions[0]
	if coffee.Type != core.Expense || coffee.Amount.Cents != 425 || coffee.Category != core.Dining {
		t.Errorf("coffee = %+v", coffee)
	}
	payroll := p.Transactions[1]
	if payroll.Type != core.Income || payroll.Category != core.Salary {
		t.Errorf("payroll = %+v", payroll)
	}
	groceries := p.Transactions[2]
	if groceries.Type != core.Expense || groceries.Amount.Cents != 6025 || groceries.Category != core.Groceries {
		t.Errorf("groceries = %+v", groceries)
	}
	if refund := p.Transactions[3]; refund.Type != core.Income {
		t.Errorf("zero-amount refund should be income: %+v", refund)
	}
	if cat.calls != 2 {
		t.Errorf("categorizer calls = %d, want 2", cat.calls)
	}

	s := p.Summary
	if s.TotalTransactions != 4 || s.IncomeCount != 2 || s.ExpenseCount != 2 {
		t.Errorf("summary = %+v", s)
	}
	if s.TotalIncome != 2000 || s.TotalExpenses != 64.5 {
		t.Errorf("totals = %v / %v", s.TotalIncome, s.TotalExpenses)
	}
	if !s.StartDate.Equal(core.NewDate(2025, 1, 1).Time) || !s.EndDate.Equal(core.NewDate(2025, 1, 11).Time) {
		t.Errorf("range = %v..%v", s.StartDate, s.EndDate)
	}
}

func TestPreviewBatchesFallbackCategories(t *testing.T) {
	csv := strings.Join([]string{
		"Date,Description,Amount",
		"2025-02-01,zzqx lamp,-30.00",
		"2025-02-02,Netflix,-15.99",
		"2025-02-03,ZZQX LAMP,-12.00",
		"2025-02-04,zzqx kibble,-8.00",
		"2025-02-05,Huge,-184467440737095516.17",
	}, "\n")
	tbl, err := ReadCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	var calls atomic.Int32
	cz := categorize.New(categorize.WithCompleter(llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
		calls.Add(1)
		if strings.Contains(req.Prompt, "kibble") {
			return "Pet Care", nil
		}
		return "Shopping", nil
	})))

	p, err := New(nil, cz, nil).Preview(context.Background(), tbl)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Transactions) != 4 || p.ErrorCount != 1 {
		t.Fatalf("got %d transactions, %d errors: %v", len(p.Transactions), p.ErrorCount, p.Errors)
	}
	if !strings.HasPrefix(p.Errors[0], "Row 6: ") || !strings.Contains(p.Errors[0], "invalid amount") {
		t.Errorf("overflowing amount error = %q", p.Errors[0])
	}
	want := []core.Category{core.Shopping, core.Entertainment, core.Shopping, core.PetCare}
	for i, tx := range p.Transactions {
		if tx.Category != want[i] {
			t.Errorf("row %d category = %q, want %q", i+2, tx.Category, want[i])
		}
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("fallback calls = %d, want one per distinct description", n)
	}
}

func TestPreviewCapsErrors(t *testing.T) {
	var b strings.Builder
	b.WriteString("Date,Amount\n")
	for i := 0; i < 15; i++ {
		b.WriteString("bad,1\n")
	}
	tbl, _ := ReadCSV(strings.NewReader(b.String()))
	p, err := New(nil, nil, nil).Preview(context.Background(), tbl)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Errors) != MaxPreviewErrors || p.ErrorCount != 15 {
		t.Errorf("errors = %d shown, %d total", len(p.Errors), p.ErrorCount)
	}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		cell   string
		hasCol bool
		sign   int
		desc   string
		want   core.TxType
	}{
		{"Credit", true, -1, "", core.Income},
		{"DEBIT", true, 1, "", core.Expense},
		{"", true, 1, "", core.Income},
		{"", false, -1, "salary", core.Expense},
		{"", false, 0, "Cashback reward", core.Income},
		{"", false, 0, "Lunch", core.Expense},
	}
	for _, tt := range tests {
		if got := inferType(tt.cell, tt.hasCol, tt.sign, tt.desc); got != tt.want {
			t.Errorf("inferType(%q, %v, %d, %q) = %s, want %s", tt.cell, tt.hasCol, tt.sign, tt.desc, got, tt.want)
		}
	}
}

func TestConfirm(t *testing.T) {
	txs := []core.Transaction{{ID: 9, Date: core.NewDate(2025, 1, 1), Description: "x", Amount: core.Money{Cents: 100}, Type: core.Expense, Category: core.Other}}
	out, err := Confirm(7, txs)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].UserID != 7 || out[0].ID != 0 {
		t.Errorf("confirm did not stamp owner: %+v", out[0])
	}
	if _, err := Confirm(7, nil); !errors.Is(err, ErrNothingToImport) {
		t.Errorf("err = %v", err)
	}
	txs[0].Type = "transfer"
	if _, err := Confirm(7, txs); !errors.Is(err, core.ErrInvalidType) {
		t.Errorf("err = %v", err)
	}
}
