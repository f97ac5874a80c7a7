package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"findash/internal/api"
)

// FakeBackend is an in-memory stand-in for the remote finance service.
// Tests mutate its fixture state directly and can script per-route
// failures; every handled request is recorded in call order.
type FakeBackend struct {
	Server *httptest.Server

	mu        sync.Mutex
	profile   api.Profile
	income    []api.Income
	debts     []api.Debt
	expenses  []api.Expense
	knowledge []api.Knowledge
	insights  []api.InsightReport
	defs      []api.KnowledgeDefinition

	nextID   int
	calls    []string
	failures map[string]failure
}

type failure struct {
	status int
	detail string
}

// NewFakeBackend starts a fake backend with empty fixtures.
func NewFakeBackend() *FakeBackend {
	b := &FakeBackend{
		profile:  api.Profile{UserID: 1, Name: "Alex Johnson", Email: "alex.j@example.com"},
		nextID:   100,
		failures: map[string]failure{},
	}

	r := chi.NewRouter()
	r.Get("/users/{id}/comprehensive_details", b.handleComprehensive)
	r.Put("/users/{id}/profile", b.handleUpdateProfile)

	r.Get("/users/{id}/income", b.handleListIncome)
	r.Post("/users/{id}/income", b.handleCreateIncome)
	r.Put("/users/{id}/income/{incomeID}", b.handleUpdateIncome)
	r.Delete("/users/{id}/income/{incomeID}", b.handleDeleteIncome)

	r.Post("/users/{id}/debts", b.handleCreateDebt)
	r.Put("/users/{id}/debts/{debtID}", b.handleUpdateDebt)
	r.Delete("/users/{id}/debts/{debtID}", b.handleDeleteDebt)

	r.Post("/users/{id}/expenses", b.handleCreateExpense)
	r.Put("/users/{id}/expenses/{expenseID}", b.handleUpdateExpense)
	r.Delete("/users/{id}/expenses/{expenseID}", b.handleDeleteExpense)

	r.Post("/users/{id}/financial_knowledge", b.handleCreateKnowledge)
	r.Put("/users/{id}/financial_knowledge/{category}", b.handleUpdateKnowledge)
	r.Delete("/users/{id}/financial_knowledge/{category}", b.handleDeleteKnowledge)
	r.Get("/financial_knowledge_definitions", b.handleDefinitions)

	r.Get("/users/{id}/insights/latest", b.handleLatestInsights)
	r.Post("/users/{id}/insights/financial_report", b.handleGenerate)

	r.Post("/auth/login", b.handleLogin)
	r.Post("/auth/register_login", b.handleLogin)

	b.Server = httptest.NewServer(r)
	return b
}

// Close shuts the backend down.
func (b *FakeBackend) Close() { b.Server.Close() }

// URL returns the backend base URL.
func (b *FakeBackend) URL() string { return b.Server.URL }

// FailWith makes the given "METHOD /path" return the given status with
// a detail message until cleared.
func (b *FakeBackend) FailWith(route string, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, detail: detail}
}

// ClearFailures removes all scripted failures.
func (b *FakeBackend) ClearFailures() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = map[string]failure{}
}

// Calls returns the handled requests as "METHOD /path", in order.
func (b *FakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.calls))
	copy(out, b.calls)
	return out
}

// SetProfile replaces the profile fixture.
func (b *FakeBackend) SetProfile(p api.Profile) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profile = p
}

// SetIncome replaces the income fixtures.
func (b *FakeBackend) SetIncome(rows []api.Income) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.income = rows
}

// SetDebts replaces the debt fixtures.
func (b *FakeBackend) SetDebts(rows []api.Debt) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.debts = rows
}

// SetExpenses replaces the expense fixtures.
func (b *FakeBackend) SetExpenses(rows []api.Expense) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expenses = rows
}

// SetKnowledge replaces the knowledge fixtures.
func (b *FakeBackend) SetKnowledge(rows []api.Knowledge) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.knowledge = rows
}

// SetInsights replaces the stored insight reports.
func (b *FakeBackend) SetInsights(reports []api.InsightReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.insights = reports
}

// SetDefinitions replaces the knowledge category catalog.
func (b *FakeBackend) SetDefinitions(defs []api.KnowledgeDefinition) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.defs = defs
}

// Income returns a copy of the current income fixtures.
func (b *FakeBackend) Income() []api.Income {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]api.Income, len(b.income))
	copy(out, b.income)
	return out
}

// Profile returns the current profile fixture.
func (b *FakeBackend) Profile() api.Profile {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.profile
}

// begin records the call and applies any scripted failure. It returns
// false when the request was already answered.
func (b *FakeBackend) begin(w http.ResponseWriter, r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	route := r.Method + " " + r.URL.Path
	b.calls = append(b.calls, route)

	if f, ok := b.failures[route]; ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		json.NewEncoder(w).Encode(map[string]string{"detail": f.detail})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (b *FakeBackend) handleComprehensive(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	profile := b.profile
	writeJSON(w, http.StatusOK, api.ComprehensiveDetails{
		Profile:   &profile,
		Income:    b.income,
		Debts:     b.debts,
		Expenses:  b.expenses,
		Knowledge: b.knowledge,
	})
}

func (b *FakeBackend) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	var update api.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.profile.Age = update.Age
	b.profile.NumChildren = update.NumChildren
	if update.MaritalStatus != nil {
		b.profile.MaritalStatus = *update.MaritalStatus
	}
	if update.RetirementStatus != nil {
		b.profile.RetirementStatus = *update.RetirementStatus
	}
	goals := make(map[string]json.RawMessage, len(update.Goals))
	for k, v := range update.Goals {
		raw, _ := json.Marshal(v)
		goals[k] = raw
	}
	b.profile.Goals = goals
	writeJSON(w, http.StatusOK, b.profile)
}

func (b *FakeBackend) handleListIncome(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.income)
}

func (b *FakeBackend) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	var p api.IncomePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	row := api.Income{
		IncomeID:      b.nextID,
		IncomeSource:  p.IncomeSource,
		MonthlyIncome: json.RawMessage(strconv.FormatFloat(p.MonthlyIncome, 'f', -1, 64)),
	}
	if p.Description != nil {
		row.Description = *p.Description
	}
	b.income = append(b.income, row)
	writeJSON(w, http.StatusCreated, row)
}

func (b *FakeBackend) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	id, _ := strconv.Atoi(chi.URLParam(r, "incomeID"))
	var p api.IncomePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.income {
		if b.income[i].IncomeID == id {
			b.income[i].IncomeSource = p.IncomeSource
			b.income[i].MonthlyIncome = json.RawMessage(strconv.FormatFloat(p.MonthlyIncome, 'f', -1, 64))
			if p.Description != nil {
				b.income[i].Description = *p.Description
			}
			writeJSON(w, http.StatusOK, b.income[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": fmt.Sprintf("income %d not found", id)})
}

func (b *FakeBackend) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	id, _ := strconv.Atoi(chi.URLParam(r, "incomeID"))

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.income {
		if b.income[i].IncomeID == id {
			b.income = append(b.income[:i], b.income[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": fmt.Sprintf("income %d not found", id)})
}

func (b *FakeBackend) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	var p api.DebtPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	row := api.Debt{
		DebtID:         b.nextID,
		AccountName:    p.AccountName,
		CurrentBalance: json.RawMessage(strconv.FormatFloat(p.CurrentBalance, 'f', -1, 64)),
		InterestRate:   p.InterestRate,
	}
	if p.MinMonthlyPayment != nil {
		row.MinMonthlyPayment = json.RawMessage(strconv.FormatFloat(*p.MinMonthlyPayment, 'f', -1, 64))
	}
	b.debts = append(b.debts, row)
	writeJSON(w, http.StatusCreated, row)
}

func (b *FakeBackend) handleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	id, _ := strconv.Atoi(chi.URLParam(r, "debtID"))
	var p api.DebtPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.debts {
		if b.debts[i].DebtID == id {
			b.debts[i].AccountName = p.AccountName
			b.debts[i].CurrentBalance = json.RawMessage(strconv.FormatFloat(p.CurrentBalance, 'f', -1, 64))
			b.debts[i].InterestRate = p.InterestRate
			writeJSON(w, http.StatusOK, b.debts[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": fmt.Sprintf("debt %d not found", id)})
}

func (b *FakeBackend) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	id, _ := strconv.Atoi(chi.URLParam(r, "debtID"))

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.debts {
		if b.debts[i].DebtID == id {
			b.debts = append(b.debts[:i], b.debts[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": fmt.Sprintf("debt %d not found", id)})
}

func (b *FakeBackend) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	var p api.ExpensePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	row := api.Expense{
		ExpenseID:       b.nextID,
		ExpenseCategory: p.ExpenseCategory,
		MonthlyAmount:   json.RawMessage(strconv.FormatFloat(p.MonthlyAmount, 'f', -1, 64)),
		Timestamp:       p.Timestamp,
	}
	b.expenses = append(b.expenses, row)
	writeJSON(w, http.StatusCreated, row)
}

func (b *FakeBackend) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	id, _ := strconv.Atoi(chi.URLParam(r, "expenseID"))
	var p api.ExpensePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.expenses {
		if b.expenses[i].ExpenseID == id {
			b.expenses[i].ExpenseCategory = p.ExpenseCategory
			b.expenses[i].MonthlyAmount = json.RawMessage(strconv.FormatFloat(p.MonthlyAmount, 'f', -1, 64))
			if p.Timestamp != "" {
				b.expenses[i].Timestamp = p.Timestamp
			}
			writeJSON(w, http.StatusOK, b.expenses[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": fmt.Sprintf("expense %d not found", id)})
}

func (b *FakeBackend) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	id, _ := strconv.Atoi(chi.URLParam(r, "expenseID"))

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.expenses {
		if b.expenses[i].ExpenseID == id {
			b.expenses = append(b.expenses[:i], b.expenses[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": fmt.Sprintf("expense %d not found", id)})
}

func (b *FakeBackend) handleCreateKnowledge(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	var p api.KnowledgePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.knowledge = append(b.knowledge, api.Knowledge{
		Category:    p.Category,
		Level:       p.Level,
		Description: p.Description,
	})
	writeJSON(w, http.StatusCreated, p)
}

func (b *FakeBackend) handleUpdateKnowledge(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	category := chi.URLParam(r, "category")
	var p api.KnowledgePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.knowledge {
		if b.knowledge[i].Category == category {
			b.knowledge[i].Level = p.Level
			b.knowledge[i].Description = p.Description
			writeJSON(w, http.StatusOK, b.knowledge[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "knowledge entry not found: " + category})
}

func (b *FakeBackend) handleDeleteKnowledge(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	category := chi.URLParam(r, "category")

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.knowledge {
		if b.knowledge[i].Category == category {
			b.knowledge = append(b.knowledge[:i], b.knowledge[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "knowledge entry not found: " + category})
}

func (b *FakeBackend) handleDefinitions(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.defs)
}

func (b *FakeBackend) handleLatestInsights(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.insights) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "no insights generated yet"})
		return
	}
	writeJSON(w, http.StatusOK, b.insights)
}

func (b *FakeBackend) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.insights = []api.InsightReport{{
		ID:          b.nextID,
		Title:       "Generated insight",
		Explanation: "Synthetic report for tests",
		Impact:      "None",
		NextSteps:   []string{"review"},
	}}
	w.WriteHeader(http.StatusAccepted)
}

func (b *FakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !b.begin(w, r) {
		return
	}
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, api.Identity{UserID: b.profile.UserID, Email: creds.Email})
}
