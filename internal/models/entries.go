package models

// IncomeEntry is a staged income row in the edit surface. RemoteID 0
// means the row has never been persisted, which implies IsNew. A row
// marked ToBeDeleted stays in the working set until the batch commits
// but is excluded from rendering and from the active count.
type IncomeEntry struct {
	LocalID       string  `json:"local_id"`
	RemoteID      int     `json:"remote_id,omitempty"`
	Source        string  `json:"source"`
	MonthlyAmount float64 `json:"monthly_amount"`
	Description   string  `json:"description"`
	IsNew         bool    `json:"is_new"`
	ToBeDeleted   bool    `json:"to_be_deleted"`
}

// DebtEntry is a normalized debt account.
type DebtEntry struct {
	RemoteID          int     `json:"remote_id"`
	AccountName       string  `json:"account_name"`
	CurrentBalance    float64 `json:"current_balance"`
	InterestRate      float64 `json:"interest_rate"`
	MinMonthlyPayment float64 `json:"min_monthly_payment"`
}

// KnowledgeEntry is a normalized knowledge rating. Category is
// immutable once created; changing it means delete and recreate.
type KnowledgeEntry struct {
	Category    string `json:"category"`
	Level       int    `json:"level"`
	LevelLabel  string `json:"level_label"`
	Description string `json:"description"`
}
