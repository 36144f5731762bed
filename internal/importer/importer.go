package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fincoach/internal/categorize"
	"fincoach/internal/core"
	applog "fincoach/internal/log"
)

var ErrNothingToImport = errors.New("no transactions to import")

// MaxPreviewErrors bounds the row errors returned with a preview.
const MaxPreviewErrors = 10

// incomeKeywords decide the type of zero-amount rows without a type column.
var incomeKeywords = []string{
	"salary", "payroll", "deposit", "wage", "freelance", "consulting",
	"dividend", "interest", "bonus", "refund", "reimbursement",
	"tax refund", "payment from", "cashback", "reward", "rebate",
}

// Categorizer assigns a label to rows without a usable category column.
type Categorizer interface {
	Categorize(ctx context.Context, description string, amount core.Money, typ core.TxType) core.Category
}

// BatchCategorizer labels all pending rows of a file in one call.
type BatchCategorizer interface {
	CategorizeAll(ctx context.Context, items []categorize.Item) []core.Category
}

type Summary struct {
	TotalTransactions int       `json:"total_transactions"`
	TotalIncome       float64   `json:"total_income"`
	TotalExpenses     float64   `json:"total_expenses"`
	IncomeCount       int       `json:"income_count"`
	ExpenseCount      int       `json:"expense_count"`
	StartDate         core.Date `json:"start_date"`
	EndDate           core.Date `json:"end_date"`
}

// Preview is the parsed file awaiting confirmation. Nothing is stored yet.
type Preview struct {
	Transactions []core.Transaction `json:"transactions"`
	Summary      Summary            `json:"summary"`
	Mapping      Mapping            `json:"mapping"`
	AIMapping    bool               `json:"ai_mapping"`
	Errors       []string           `json:"errors"`
	ErrorCount   int                `json:"error_count"`
}

type Importer struct {
	mapper      *Mapper
	categorizer Categorizer
	logger      *applog.Logger
}

func New(mapper *Mapper, categorizer Categorizer, logger *applog.Logger) *Importer {
	if mapper == nil {
		mapper = NewMapper(nil)
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Importer{
		mapper:      mapper,
		categorizer: categorizer,
		logger:      logger.WithComponent(applog.ComponentImport),
	}
}

// Preview maps the columns and converts every row. A bad row is reported
// as "Row N: ..." with N counted like a spreadsheet (header is row 1) and
// does not stop the import.
func (im *Importer) Preview(ctx context.Context, t Table) (Preview, error) {
	if len(t.Headers) == 0 {
		return Preview{}, ErrEmptyFile
	}
	mapping, fromModel, err := im.mapper.Map(ctx, t)
	if err != nil {
		return Preview{}, err
	}
	p := Preview{Mapping: mapping, AIMapping: fromModel, Transactions: []core.Transaction{}, Errors: []string{}}
	cols := columns{
		date:        t.Column(mapping.Date),
		amount:      t.Column(mapping.Amount),
		description: t.Column(mapping.Description),
		typ:         t.Column(mapping.Type),
		category:    t.Column(mapping.Category),
	}
	drafts := make([]draft, len(t.Rows))
	for i, row := range t.Rows {
		drafts[i] = convert(row, cols)
	}
	im.categorizeDrafts(ctx, drafts)

	for i, d := range drafts {
		err := d.err
		if err == nil {
			err = d.tx.Validate()
		}
		if err != nil {
			p.ErrorCount++
			if len(p.Errors) < MaxPreviewErrors {
				p.Errors = append(p.Errors, fmt.Sprintf("Row %d: %v", i+2, err))
			}
			continue
		}
		p.Transactions = append(p.Transactions, d.tx)
		p.Summary.add(d.tx)
	}
	im.logger.InfoContext(ctx, "Import preview ready",
		applog.FieldCount, len(p.Transactions),
		"row_errors", p.ErrorCount,
		"ai_mapping", fromModel,
	)
	return p, nil
}

type columns struct {
	date, amount, description, typ, category int
}

// draft is a parsed row. A row without a known category label is
// categorized after the whole file has been read.
type draft struct {
	tx            core.Transaction
	needsCategory bool
	err           error
}

func convert(row []string, cols columns) draft {
	date, err := ParseDate(cell(row, cols.date))
	if err != nil {
		return draft{err: err}
	}
	amount, err := ParseAmount(cell(row, cols.amount))
	if err != nil {
		return draft{err: err}
	}
	money, err := core.MoneyFromDecimal(amount.Abs())
	if err != nil {
		return draft{err: err}
	}
	description := cell(row, cols.description)
	if description == "" {
		description = "Imported transaction"
	}

	typ := inferType(cell(row, cols.typ), cols.typ >= 0, amount.Sign(), description)
	category, ok := core.LookupCategory(cell(row, cols.category))
	return draft{
		tx: core.Transaction{
			Date:        date,
			Description: description,
			Amount:      money,
			Category:    category,
			Type:        typ,
		},
		needsCategory: !ok,
	}
}

func (im *Importer) categorizeDrafts(ctx context.Context, drafts []draft) {
	var pending []int
	for i, d := range drafts {
		if d.err == nil && d.needsCategory {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return
	}

	switch c := im.categorizer.(type) {
	case nil:
		for _, i := range pending {
			drafts[i].tx.Category = fallbackCategory(drafts[i].tx.Type)
		}
	case BatchCategorizer:
		items := make([]categorize.Item, len(pending))
		for j, i := range pending {
			tx := drafts[i].tx
			items[j] = categorize.Item{Description: tx.Description, Amount: tx.Amount, Type: tx.Type}
		}
		for j, cat := range c.CategorizeAll(ctx, items) {
			drafts[pending[j]].tx.Category = cat
		}
	default:
		for _, i := range pending {
			tx := &drafts[i].tx
			tx.Category = c.Categorize(ctx, tx.Description, tx.Amount, tx.Type)
		}
	}
}

// inferType prefers an explicit type column, then the amount sign, then
// income keywords in the description.
func inferType(typeCell string, hasTypeColumn bool, sign int, description string) core.TxType {
	if hasTypeColumn && typeCell != "" {
		v := strings.ToLower(typeCell)
		switch {
		case strings.Contains(v, "income"), strings.Contains(v, "credit"), v == "cr":
			return core.Income
		case strings.Contains(v, "expense"), strings.Contains(v, "debit"), v == "dr":
			return core.Expense
		}
	}
	switch {
	case sign > 0:
		return core.Income
	case sign < 0:
		return core.Expense
	}
	desc := strings.ToLower(description)
	for _, kw := range incomeKeywords {
		if strings.Contains(desc, kw) {
			return core.Income
		}
	}
	return core.Expense
}

func fallbackCategory(typ core.TxType) core.Category {
	if typ == core.Income {
		return core.OtherIncome
	}
	return core.Other
}

func (s *Summary) add(tx core.Transaction) {
	s.TotalTransactions++
	switch tx.Type {
	case core.Income:
		s.IncomeCount++
		s.TotalIncome += tx.Amount.Dollars()
	case core.Expense:
		s.ExpenseCount++
		s.TotalExpenses += tx.Amount.Dollars()
	}
	if s.StartDate.IsZero() || tx.Date.Before(s.StartDate.Time) {
		s.StartDate = tx.Date
	}
	if s.EndDate.IsZero() || tx.Date.After(s.EndDate.Time) {
		s.EndDate = tx.Date
	}
}

// Confirm validates reviewed rows before they are stored and stamps the owner.
// The first invalid row aborts the whole batch.
func Confirm(userID int64, txs []core.Transaction) ([]core.Transaction, error) {
	if len(txs) == 0 {
		return nil, ErrNothingToImport
	}
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		tx.ID = 0
		tx.UserID = userID
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i+1, err)
		}
		out[i] = tx
	}
	return out, nil
}
