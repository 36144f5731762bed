package categorize

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"fincoach/internal/core"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule maps any of its keywords to Category unless an Exclude term is also present.
type Rule struct {
	Category core.Category `yaml:"category" json:"category"`
	Keywords []string      `yaml:"keywords" json:"keywords"`
	Exclude  []string      `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// RuleSet holds the ordered income and expense rule lists.
type RuleSet struct {
	IncomeDefault core.Category `yaml:"income_default" json:"income_default"`
	Income        []Rule        `yaml:"income" json:"income"`
	Expense       []Rule        `yaml:"expense" json:"expense"`
}

// DefaultRules returns the embedded rule table.
func DefaultRules() RuleSet {
	rs, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("embedded category rules: %v", err))
	}
	return rs
}

// LoadRules reads a YAML rule file.
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("could not read rules file: %w", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("could not parse rules: %w", err)
	}
	if rs.IncomeDefault == "" {
		rs.IncomeDefault = core.OtherIncome
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	rs.normalize()
	return rs, nil
}

// Validate checks labels against the fixed category set.
func (rs RuleSet) Validate() error {
	var errs []error
	check := func(section string, i int, r Rule) {
		c, ok := core.LookupCategory(string(r.Category))
		if !ok {
			errs = append(errs, fmt.Errorf("%s rule %d: unknown category %q", section, i, r.Category))
			return
		}
		if c == core.Other {
			errs = append(errs, fmt.Errorf("%s rule %d: Other is the fallback and cannot be a rule", section, i))
		}
		if len(r.Keywords) == 0 {
			errs = append(errs, fmt.Errorf("%s rule %d: no keywords", section, i))
		}
	}
	for i, r := range rs.Income {
		check("income", i, r)
	}
	for i, r := range rs.Expense {
		check("expense", i, r)
	}
	if _, ok := core.LookupCategory(string(rs.IncomeDefault)); !ok {
		errs = append(errs, fmt.Errorf("unknown income default %q", rs.IncomeDefault))
	}
	return errors.Join(errs...)
}

func (rs *RuleSet) normalize() {
	rs.IncomeDefault, _ = core.LookupCategory(string(rs.IncomeDefault))
	for _, list := range [][]Rule{rs.Income, rs.Expense} {
		for i := range list {
			list[i].Category, _ = core.LookupCategory(string(list[i].Category))
			list[i].Keywords = lowerAll(list[i].Keywords)
			list[i].Exclude = lowerAll(list[i].Exclude)
		}
	}
}

// Match reports whether the lower-cased description satisfies the rule.
func (r Rule) Match(desc string) bool {
	for _, ex := range r.Exclude {
		if strings.Contains(desc, ex) {
			return false
		}
	}
	for _, kw := range r.Keywords {
		if strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
