// Package categorize assigns category labels to transactions from their
// description, with an LLM fallback for descriptions no rule recognizes.
package categorize

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"fincoach/internal/core"
	"fincoach/internal/llm"
	applog "fincoach/internal/log"
)

const (
	fallbackSystem      = "Return only the category name from the provided list."
	fallbackMaxTokens   = 20
	fallbackTemperature = 0.1
)

// Categorizer is safe for concurrent use.
type Categorizer struct {
	rules   RuleSet
	llm     llm.Completer
	memo    *cache.Cache
	allowed []core.Category
	logger  *applog.Logger
}

type Option func(*Categorizer)

// WithCompleter enables the LLM fallback.
func WithCompleter(c llm.Completer) Option {
	return func(cz *Categorizer) { cz.llm = c }
}

func WithRules(rs RuleSet) Option {
	return func(cz *Categorizer) { cz.rules = rs }
}

// WithMemoTTL sets how long fallback answers are remembered.
func WithMemoTTL(ttl time.Duration) Option {
	return func(cz *Categorizer) { cz.memo = cache.New(ttl, 2*ttl) }
}

func WithLogger(l *applog.Logger) Option {
	return func(cz *Categorizer) { cz.logger = l.WithComponent(applog.ComponentCategorizer) }
}

func New(opts ...Option) *Categorizer {
	c := &Categorizer{
		rules:  DefaultRules(),
		llm:    llm.Disabled{},
		memo:   cache.New(time.Hour, 2*time.Hour),
		logger: applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentCategorizer),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, cat := range core.ExpenseCategories() {
		if cat != core.Other {
			c.allowed = append(c.allowed, cat)
		}
	}
	return c
}

// Rules returns the effective rule table.
func (c *Categorizer) Rules() RuleSet {
	return c.rules
}

// Categorize returns a label for the description. Income never reaches the
// fallback. The call never fails: any fallback problem yields Other.
func (c *Categorizer) Categorize(ctx context.Context, description string, amount core.Money, typ core.TxType) core.Category {
	if cat, ok := c.byRule(description, typ); ok {
		return cat
	}
	key := memoKey(description)
	if v, ok := c.memo.Get(key); ok {
		return v.(core.Category)
	}
	answer, err := c.llm.Complete(ctx, c.fallbackRequest(description, amount))
	return c.remember(ctx, key, answer, err)
}

// Item is one transaction of a CategorizeAll batch.
type Item struct {
	Description string
	Amount      core.Money
	Type        core.TxType
}

// CategorizeAll labels items in order. Descriptions no rule matches are sent
// to the fallback concurrently, one request per distinct description.
func (c *Categorizer) CategorizeAll(ctx context.Context, items []Item) []core.Category {
	out := make([]core.Category, len(items))
	pending := make(map[string][]int)
	var (
		keys []string
		reqs []llm.Request
	)
	for i, it := range items {
		if cat, ok := c.byRule(it.Description, it.Type); ok {
			out[i] = cat
			continue
		}
		key := memoKey(it.Description)
		if v, ok := c.memo.Get(key); ok {
			out[i] = v.(core.Category)
			continue
		}
		if _, seen := pending[key]; !seen {
			keys = append(keys, key)
			reqs = append(reqs, c.fallbackRequest(it.Description, it.Amount))
		}
		pending[key] = append(pending[key], i)
	}
	if len(reqs) == 0 {
		return out
	}

	for j, res := range llm.CompleteAll(ctx, c.llm, reqs) {
		cat := c.remember(ctx, keys[j], res.Text, res.Err)
		for _, i := range pending[keys[j]] {
			out[i] = cat
		}
	}
	c.logger.DebugContext(ctx, "Batch categorized", applog.FieldCount, len(items), "fallback_requests", len(reqs))
	return out
}

func (c *Categorizer) byRule(description string, typ core.TxType) (core.Category, bool) {
	desc := strings.ToLower(description)
	if typ == core.Income {
		for _, r := range c.rules.Income {
			if r.Match(desc) {
				return r.Category, true
			}
		}
		return c.rules.IncomeDefault, true
	}
	for _, r := range c.rules.Expense {
		if r.Match(desc) {
			return r.Category, true
		}
	}
	return "", false
}

func memoKey(description string) string {
	return strings.ToLower(strings.TrimSpace(description))
}

func (c *Categorizer) fallbackRequest(description string, amount core.Money) llm.Request {
	names := make([]string, 0, len(c.allowed)+1)
	for _, cat := range c.allowed {
		names = append(names, string(cat))
	}
	names = append(names, string(core.Other))
	prompt := fmt.Sprintf(`Categorize this transaction into ONE of these categories:
%s

Transaction: %s
Amount: $%s

Return ONLY the category name, nothing else.`, strings.Join(names, ", "), description, amount)

	return llm.Request{
		System:      fallbackSystem,
		Prompt:      prompt,
		MaxTokens:   fallbackMaxTokens,
		Temperature: fallbackTemperature,
	}
}

// remember validates a fallback answer and memoizes it. Failed calls are
// not memoized.
func (c *Categorizer) remember(ctx context.Context, key, answer string, err error) core.Category {
	if err != nil {
		c.logger.DebugContext(ctx, "Category fallback unavailable", applog.FieldError, err)
		return core.Other
	}
	cat := c.validate(answer)
	c.memo.Set(key, cat, cache.DefaultExpiration)
	return cat
}

func (c *Categorizer) validate(answer string) core.Category {
	answer = strings.Trim(strings.TrimSpace(answer), `"'.`)
	cat, ok := core.LookupCategory(answer)
	if !ok {
		return core.Other
	}
	for _, a := range c.allowed {
		if a == cat {
			return cat
		}
	}
	return core.Other
}
