package api

import "encoding/json"

// Profile is the raw profile record returned by the backend.
// Goals are kept as raw JSON because legacy rows may hold bare strings
// instead of {title, description} objects; decoding is the goal codec's job.
type Profile struct {
	UserID           int                        `json:"user_id"`
	Name             string                     `json:"name"`
	Email            string                     `json:"email"`
	Age              *int                       `json:"age"`
	NumChildren      *int                       `json:"num_children"`
	MaritalStatus    string                     `json:"marital_status"`
	RetirementStatus string                     `json:"retirement_status"`
	Goals            map[string]json.RawMessage `json:"goals"`
}

// Income is a raw income record. MonthlyIncome arrives as a string,
// a number, or null depending on backend revision.
type Income struct {
	IncomeID      int             `json:"income_id"`
	IncomeSource  string          `json:"income_source"`
	MonthlyIncome json.RawMessage `json:"monthly_income"`
	Description   string          `json:"description"`
}

// Debt is a raw debt record.
type Debt struct {
	DebtID            int             `json:"debt_id"`
	AccountName       string          `json:"account_name"`
	CurrentBalance    json.RawMessage `json:"current_balance"`
	InterestRate      float64         `json:"interest_rate"`
	MinMonthlyPayment json.RawMessage `json:"min_monthly_payment"`
}

// Expense is a raw expense record.
type Expense struct {
	ExpenseID       int             `json:"expense_id"`
	ExpenseCategory string          `json:"expense_category"`
	MonthlyAmount   json.RawMessage `json:"monthly_amount"`
	Timestamp       string          `json:"timestamp"`
}

// Knowledge is a raw financial-knowledge rating.
type Knowledge struct {
	Category    string `json:"category"`
	Level       int    `json:"level"`
	Description string `json:"description"`
}

// KnowledgeDefinition describes an available knowledge category.
type KnowledgeDefinition struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

// ComprehensiveDetails is the full aggregate returned by
// GET /users/{id}/comprehensive_details.
type ComprehensiveDetails struct {
	Profile   *Profile    `json:"profile"`
	Income    []Income    `json:"income"`
	Debts     []Debt      `json:"debts"`
	Expenses  []Expense   `json:"expenses"`
	Knowledge []Knowledge `json:"financial_knowledge"`
}

// GoalPayload is the canonical goal shape sent on profile updates.
type GoalPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ProfileUpdate is the PUT /users/{id}/profile body.
type ProfileUpdate struct {
	Age              *int                   `json:"age"`
	NumChildren      *int                   `json:"num_children"`
	MaritalStatus    *string                `json:"marital_status"`
	RetirementStatus *string                `json:"retirement_status"`
	Goals            map[string]GoalPayload `json:"goals"`
}

// IncomePayload is the income create/update body.
type IncomePayload struct {
	IncomeSource  string  `json:"income_source"`
	MonthlyIncome float64 `json:"monthly_income"`
	Description   *string `json:"description"`
}

// DebtPayload is the debt create/update body.
type DebtPayload struct {
	AccountName       string   `json:"account_name"`
	CurrentBalance    float64  `json:"current_balance"`
	InterestRate      float64  `json:"interest_rate"`
	MinMonthlyPayment *float64 `json:"min_monthly_payment"`
}

// ExpensePayload is the expense create/update body.
type ExpensePayload struct {
	ExpenseCategory string  `json:"expense_category"`
	MonthlyAmount   float64 `json:"monthly_amount"`
	Timestamp       string  `json:"timestamp"`
}

// KnowledgePayload is the knowledge create/update body. Category is
// immutable on update; the backend keys the row by it.
type KnowledgePayload struct {
	Category    string `json:"category"`
	Level       int    `json:"level"`
	Description string `json:"description"`
}

// InsightReport is one generated insight.
type InsightReport struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Explanation string   `json:"explanation"`
	Impact      string   `json:"impact"`
	NextSteps   []string `json:"next_steps"`
}

// Credentials is the POST /auth/login body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Identity is the auth response: the only state persisted across sessions.
type Identity struct {
	UserID int    `json:"user_id"`
	Email  string `json:"email"`
	Token  string `json:"token,omitempty"`
}
