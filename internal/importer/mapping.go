package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"fincoach/internal/llm"
)

var ErrNoMapping = errors.New("could not identify date and amount columns")

const (
	mapperSystem    = "You are a financial data analyst. Return only valid JSON."
	mapperMaxTokens = 500
	mapperTemp      = 0.3
)

const mappingPrompt = `Analyze this financial data and identify the columns for:
- Date (transaction date)
- Amount (transaction amount)
- Description (transaction description)
- Type (income or expense)
- Category (spending/income category)

Available columns: %s
First few rows: %s

Return a JSON object with the mapping:
{
    "date_column": "column_name",
    "amount_column": "column_name",
    "description_column": "column_name",
    "type_column": "column_name_or_null",
    "category_column": "column_name_or_null"
}

If type or category columns don't exist, return null and I'll infer them from the data.`

// Mapping names the header used for each transaction field. Type and
// Category are optional.
type Mapping struct {
	Date        string `json:"date_column"`
	Amount      string `json:"amount_column"`
	Description string `json:"description_column"`
	Type        string `json:"type_column,omitempty"`
	Category    string `json:"category_column,omitempty"`
}

// resolve rewrites every column to the table's own spelling and drops
// optional columns that do not exist.
func (m Mapping) resolve(t Table) (Mapping, error) {
	get := func(name string) string {
		if i := t.Column(name); i >= 0 {
			return t.Headers[i]
		}
		return ""
	}
	out := Mapping{
		Date:        get(m.Date),
		Amount:      get(m.Amount),
		Description: get(m.Description),
		Type:        get(m.Type),
		Category:    get(m.Category),
	}
	if out.Date == "" || out.Amount == "" {
		return Mapping{}, ErrNoMapping
	}
	return out, nil
}

// Mapper asks the model for a column mapping and falls back to header names.
type Mapper struct {
	llm llm.Completer
}

func NewMapper(c llm.Completer) *Mapper {
	if c == nil {
		c = llm.Disabled{}
	}
	return &Mapper{llm: c}
}

// Map returns the mapping and whether it came from the model.
func (m *Mapper) Map(ctx context.Context, t Table) (Mapping, bool, error) {
	if mapping, err := m.ask(ctx, t); err == nil {
		return mapping, true, nil
	}
	mapping, err := HeuristicMapping(t)
	return mapping, false, err
}

func (m *Mapper) ask(ctx context.Context, t Table) (Mapping, error) {
	headers, _ := json.Marshal(t.Headers)
	sample, _ := json.Marshal(t.Sample(3))
	text, err := m.llm.Complete(ctx, llm.Request{
		System:      mapperSystem,
		Prompt:      fmt.Sprintf(mappingPrompt, headers, sample),
		MaxTokens:   mapperMaxTokens,
		Temperature: mapperTemp,
	})
	if err != nil {
		return Mapping{}, err
	}
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end <= start || !gjson.Valid(text[start:end+1]) {
		return Mapping{}, fmt.Errorf("mapping is not a JSON object")
	}
	obj := text[start : end+1]
	// null and missing keys both read as ""
	parsed := Mapping{
		Date:        gjson.Get(obj, "date_column").String(),
		Amount:      gjson.Get(obj, "amount_column").String(),
		Description: gjson.Get(obj, "description_column").String(),
		Type:        gjson.Get(obj, "type_column").String(),
		Category:    gjson.Get(obj, "category_column").String(),
	}
	return parsed.resolve(t)
}

var headerHints = struct {
	date, amount, description, typ, category []string
}{
	date:        []string{"date", "transaction date", "posted date", "posting date", "booking date", "value date", "time"},
	amount:      []string{"amount", "value", "sum", "total", "debit/credit", "transaction amount"},
	description: []string{"description", "memo", "details", "narrative", "payee", "merchant", "name", "reference"},
	typ:         []string{"type", "transaction type", "kind", "direction", "credit/debit", "dr/cr"},
	category:    []string{"category", "categories", "group"},
}

// HeuristicMapping matches headers by exact name first, then by substring.
func HeuristicMapping(t Table) (Mapping, error) {
	used := map[string]bool{}
	pick := func(hints []string) string {
		for _, h := range hints {
			if i := t.Column(h); i >= 0 && !used[t.Headers[i]] {
				used[t.Headers[i]] = true
				return t.Headers[i]
			}
		}
		for _, h := range hints {
			for _, header := range t.Headers {
				if !used[header] && strings.Contains(strings.ToLower(header), h) {
					used[header] = true
					return header
				}
			}
		}
		return ""
	}
	m := Mapping{
		Date:        pick(headerHints.date),
		Amount:      pick(headerHints.amount),
		Type:        pick(headerHints.typ),
		Category:    pick(headerHints.category),
		Description: pick(headerHints.description),
	}
	if m.Date == "" || m.Amount == "" {
		return Mapping{}, fmt.Errorf("%w in headers %v", ErrNoMapping, t.Headers)
	}
	return m, nil
}
