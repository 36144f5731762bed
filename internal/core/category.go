package core

import "strings"

type Category string

// Expense labels.
const (
	Housing        Category = "Housing"
	Utilities      Category = "Utilities"
	Transportation Category = "Transportation"
	Groceries      Category = "Groceries"
	Dining         Category = "Dining"
	Entertainment  Category = "Entertainment"
	Shopping       Category = "Shopping"
	Healthcare     Category = "Healthcare"
	PetCare        Category = "Pet Care"
	PersonalCare   Category = "Personal Care"
	Education      Category = "Education"
	Gifts          Category = "Gifts"
	Insurance      Category = "Insurance"
	Other          Category = "Other"
)

// Income labels.
const (
	Salary      Category = "Salary"
	Freelance   Category = "Freelance"
	Investment  Category = "Investment"
	Bonus       Category = "Bonus"
	Refund      Category = "Refund"
	OtherIncome Category = "Other Income"
)

var (
	expenseCategories = []Category{
		Housing, Utilities, Transportation, Groceries, Dining, Entertainment, Shopping,
		Healthcare, PetCare, PersonalCare, Education, Gifts, Insurance, Other,
	}
	incomeCategories = []Category{Salary, Freelance, Investment, Bonus, Refund, OtherIncome}
)

// ExpenseCategories returns the expense labels in display order, Other last.
func ExpenseCategories() []Category {
	return append([]Category(nil), expenseCategories...)
}

func IncomeCategories() []Category {
	return append([]Category(nil), incomeCategories...)
}

// Known reports whether c is one of the fixed labels.
func (c Category) Known() bool {
	_, ok := LookupCategory(string(c))
	return ok
}

// LookupCategory resolves a label case-insensitively.
func LookupCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range expenseCategories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	for _, c := range incomeCategories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}
