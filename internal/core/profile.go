package core

import "time"

type EmploymentType string

const (
	Formal       EmploymentType = "formal"
	Gig          EmploymentType = "gig"
	Informal     EmploymentType = "informal"
	SelfEmployed EmploymentType = "self_employed"
	Unknown      EmploymentType = "unknown"
)

// Irregular reports whether income for this employment type is expected to be volatile.
func (e EmploymentType) Irregular() bool {
	return e == Gig || e == Informal
}

type Profile struct {
	UserID          int64          `json:"user_id"`
	EmploymentType  EmploymentType `json:"employment_type"`
	MonthlyIncome   Money          `json:"monthly_income"`
	MonthlyExpenses Money          `json:"monthly_expenses"`
	RiskTolerance   string         `json:"risk_tolerance"`
	FinancialGoals  []string       `json:"financial_goals"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// DefaultProfile is used when a user has not filled in a profile yet.
func DefaultProfile(userID int64) Profile {
	return Profile{
		UserID:         userID,
		EmploymentType: Unknown,
		RiskTolerance:  "moderate",
		FinancialGoals: []string{},
	}
}
