package models

import "findash/internal/api"

// HouseholdComposition describes the dependents in a household.
type HouseholdComposition struct {
	DependentAdults   int `json:"dependent_adults"`
	DependentChildren int `json:"dependent_children"`
}

// PersonalDetails is the normalized personal section of the view model.
type PersonalDetails struct {
	Age                  *int                 `json:"age"`
	MaritalStatus        string               `json:"marital_status"`
	EmploymentStatus     string               `json:"employment_status"`
	HouseholdComposition HouseholdComposition `json:"household_composition"`
	NetMonthlyIncome     float64              `json:"net_monthly_income"`
}

// SpendingHabit nests the derived expense summaries.
type SpendingHabit struct {
	TopCategory                  string             `json:"top_category"`
	ExpenseSummary               map[string]float64 `json:"expense_summary"`
	ExpenseSummaryForLatestMonth map[string]float64 `json:"expense_summary_for_latest_month"`
	LatestMonth                  string             `json:"latest_month,omitempty"`
}

// FinancialProfile aggregates debt and spending figures.
type FinancialProfile struct {
	TotalDebt            float64       `json:"total_debt"`
	NumberOfDebtAccounts int           `json:"number_of_debt_accounts"`
	DetailedDebts        []DebtEntry   `json:"detailed_debts"`
	SpendingHabit        SpendingHabit `json:"spending_habit"`
}

// UserViewModel is the single normalized representation of a user's
// finances. Every derived field is recomputable from the raw records;
// nothing here is mutated in place — the aggregator replaces the whole
// snapshot on each successful fetch.
type UserViewModel struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`

	PersonalDetails    PersonalDetails           `json:"personal_details"`
	FinancialGoals     []Goal                    `json:"financial_goals"`
	FinancialKnowledge map[string]KnowledgeEntry `json:"financial_knowledge"`
	FinancialProfile   FinancialProfile          `json:"financial_profile"`

	// Last-fetched raw records: the source for re-derivation and for
	// building edit payloads.
	RawProfile   *api.Profile    `json:"-"`
	RawIncome    []api.Income    `json:"-"`
	RawDebts     []api.Debt      `json:"-"`
	RawExpenses  []api.Expense   `json:"-"`
	RawKnowledge []api.Knowledge `json:"-"`
}

// DefaultUserViewModel returns the neutral view model used before the
// first fetch and after logout.
func DefaultUserViewModel() *UserViewModel {
	return &UserViewModel{
		FinancialGoals:     []Goal{},
		FinancialKnowledge: map[string]KnowledgeEntry{},
		FinancialProfile: FinancialProfile{
			DetailedDebts: []DebtEntry{},
			SpendingHabit: SpendingHabit{
				TopCategory:                  "N/A",
				ExpenseSummary:               map[string]float64{},
				ExpenseSummaryForLatestMonth: map[string]float64{},
			},
		},
	}
}
