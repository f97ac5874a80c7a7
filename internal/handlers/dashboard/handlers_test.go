package dashboard

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"findash/internal/api"
	"findash/internal/services/aggregator"
	"findash/internal/services/reconciler"
	"findash/internal/services/session"
	"findash/internal/testutil"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// setup wires the full stack against a fake backend and returns a test
// server speaking the dashboard surface.
func setup(t *testing.T) (*testutil.TestServer, *testutil.FakeBackend) {
	t.Helper()

	backend := testutil.NewFakeBackend()
	t.Cleanup(backend.Close)
	seedBackend(backend)

	log := testLogger()
	client := api.NewClient(backend.URL(), 5*time.Second, log)
	store := aggregator.New(client, log)
	sessions := session.New(t.TempDir(), log)
	recon := reconciler.New(client, store, log)

	Initialize(log, client, store, sessions, recon)

	r := chi.NewRouter()
	RegisterRoutes(r)

	ts := testutil.NewTestServer(t, r)
	t.Cleanup(ts.Close)
	return ts, backend
}

func seedBackend(b *testutil.FakeBackend) {
	age := 34
	children := 2
	b.SetProfile(api.Profile{
		UserID:           1,
		Name:             "Alex Johnson",
		Email:            "alex.j@example.com",
		Age:              &age,
		NumChildren:      &children,
		MaritalStatus:    "Married",
		RetirementStatus: "Employed",
		Goals: map[string]json.RawMessage{
			"1": json.RawMessage(`{"title":"Emergency Fund","description":"3 months"}`),
			"2": json.RawMessage(`{"title":"House","description":"deposit"}`),
		},
	})
	b.SetIncome([]api.Income{
		{IncomeID: 10, IncomeSource: "Salary", MonthlyIncome: json.RawMessage(`4000`)},
	})
	b.SetDebts([]api.Debt{
		{DebtID: 20, AccountName: "Card", CurrentBalance: json.RawMessage(`1500`), InterestRate: 19.9},
	})
	b.SetExpenses([]api.Expense{
		{ExpenseID: 30, ExpenseCategory: "Rent", MonthlyAmount: json.RawMessage(`1200`), Timestamp: "2024-03-01T00:00:00Z"},
	})
	b.SetDefinitions([]api.KnowledgeDefinition{
		{Category: "Budgeting", Description: "Planning monthly spending"},
	})
}

func login(t *testing.T, ts *testutil.TestServer) {
	t.Helper()
	resp := ts.POST("/auth/login", map[string]interface{}{
		"email":    "alex.j@example.com",
		"password": "hunter2",
	})
	testutil.AssertResponse(t, resp).StatusOK()
}

func TestProfileRequiresLogin(t *testing.T) {
	ts, _ := setup(t)

	resp := ts.GET("/profile")
	testutil.AssertResponse(t, resp).
		Status(http.StatusUnauthorized).
		Contains("not logged in")
}

func TestLoginWarmsViewModel(t *testing.T) {
	ts, _ := setup(t)
	login(t, ts)

	resp := ts.GET("/profile")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		ContainsAll(`"status":"ready"`, "Alex Johnson", "Emergency Fund")
}

func TestLogoutResetsEverything(t *testing.T) {
	ts, _ := setup(t)
	login(t, ts)

	resp := ts.POST("/auth/logout", nil)
	testutil.AssertResponse(t, resp).Status(http.StatusNoContent)

	resp = ts.GET("/profile")
	testutil.AssertResponse(t, resp).Status(http.StatusUnauthorized)
}

func TestRefreshSurfacesBackendFailure(t *testing.T) {
	ts, backend := setup(t)
	login(t, ts)

	backend.FailWith("GET /users/1/comprehensive_details", http.StatusInternalServerError, "database offline")

	resp := ts.POST("/profile/refresh", nil)
	testutil.AssertResponse(t, resp).
		Status(http.StatusBadGateway).
		Contains("database offline")

	// The earlier successful fetch is still served.
	backend.ClearFailures()
	resp = ts.GET("/profile")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContainsAll("Alex Johnson", "database offline")
}

func TestEditSessionLifecycle(t *testing.T) {
	ts, backend := setup(t)
	login(t, ts)

	resp := ts.POST("/profile/edit", nil)
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContainsAll(`"open":true`, "Emergency Fund", "Salary")

	// Stage a new income row and soft-delete the existing one.
	resp = ts.POST("/profile/edit/income", map[string]interface{}{
		"source":         "Freelance",
		"monthly_amount": 250,
	})
	var added struct {
		LocalID string `json:"local_id"`
	}
	testutil.AssertResponse(t, resp).Status(http.StatusCreated)
	testutil.DecodeJSON(t, resp, &added)

	var state struct {
		Incomes []struct {
			LocalID     string `json:"local_id"`
			Source      string `json:"source"`
			ToBeDeleted bool   `json:"to_be_deleted"`
		} `json:"incomes"`
		ActiveIncomeCount int `json:"active_income_count"`
	}
	resp = ts.GET("/profile/edit")
	testutil.AssertResponse(t, resp).StatusOK()
	testutil.DecodeJSON(t, resp, &state)

	var salaryID string
	for _, inc := range state.Incomes {
		if inc.Source == "Salary" {
			salaryID = inc.LocalID
		}
	}
	if salaryID == "" {
		t.Fatal("seeded Salary row missing from edit state")
	}

	resp = ts.DELETE("/profile/edit/income/" + salaryID)
	testutil.AssertResponse(t, resp).
		StatusOK().
		Contains(`"active_income_count":1`)

	// After submit the refreshed view model reflects the batch: the
	// Salary row is gone and only the new Freelance row counts.
	resp = ts.POST("/profile/edit/submit", nil)
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContainsAll(`"status":"ready"`, `"net_monthly_income":250`)

	rows := backend.Income()
	if len(rows) != 1 || rows[0].IncomeSource != "Freelance" {
		t.Errorf("backend income after submit = %+v", rows)
	}

	resp = ts.GET("/profile/edit")
	testutil.AssertResponse(t, resp).
		StatusOK().
		Contains(`"open":false`)
}

func TestEditSubmitPartialFailureKeepsSessionOpen(t *testing.T) {
	ts, backend := setup(t)
	login(t, ts)

	testutil.AssertResponse(t, ts.POST("/profile/edit", nil)).StatusOK()
	testutil.AssertResponse(t, ts.POST("/profile/edit/income", map[string]interface{}{
		"source":         "Freelance",
		"monthly_amount": 250,
	})).Status(http.StatusCreated)

	backend.FailWith("PUT /users/1/profile", http.StatusInternalServerError, "row locked")

	resp := ts.POST("/profile/edit/submit", nil)
	testutil.AssertResponse(t, resp).
		Status(http.StatusBadGateway).
		Contains("row locked")

	// The create still went through and the session is still open for
	// a retry.
	rows := backend.Income()
	if len(rows) != 2 {
		t.Errorf("backend income rows = %d, want 2", len(rows))
	}
	testutil.AssertResponse(t, ts.GET("/profile/edit")).
		StatusOK().
		Contains(`"open":true`)
}

func TestEditGoalStaging(t *testing.T) {
	ts, _ := setup(t)
	login(t, ts)

	testutil.AssertResponse(t, ts.POST("/profile/edit", nil)).StatusOK()

	resp := ts.POST("/profile/edit/goals", nil)
	var goal struct {
		ID string `json:"id"`
	}
	testutil.AssertResponse(t, resp).Status(http.StatusCreated)
	testutil.DecodeJSON(t, resp, &goal)

	testutil.AssertResponse(t, ts.PUT("/profile/edit/goals/"+goal.ID, map[string]string{
		"title": "Car fund",
	})).StatusOK().Contains("Car fund")

	// Promote the new goal to the top.
	testutil.AssertResponse(t, ts.POST("/profile/edit/goals/move", map[string]int{
		"from": 2, "to": 0,
	})).StatusOK()

	var state struct {
		Goals []struct {
			Title string `json:"title"`
		} `json:"goals"`
	}
	resp = ts.GET("/profile/edit")
	testutil.AssertResponse(t, resp).StatusOK()
	testutil.DecodeJSON(t, resp, &state)

	if len(state.Goals) != 3 || state.Goals[0].Title != "Car fund" {
		t.Errorf("goals after move = %+v", state.Goals)
	}
}

func TestEditOperationsWithoutOpenSession(t *testing.T) {
	ts, _ := setup(t)
	login(t, ts)

	resp := ts.POST("/profile/edit/goals", nil)
	testutil.AssertResponse(t, resp).
		Status(http.StatusConflict).
		Contains("no edit session is open")
}

func TestDebtCreateRefreshesViewModel(t *testing.T) {
	ts, _ := setup(t)
	login(t, ts)

	resp := ts.POST("/debts", map[string]interface{}{
		"account_name":        "Car Loan",
		"current_balance":     9000,
		"interest_rate":       6.5,
		"min_monthly_payment": 320,
	})
	testutil.AssertResponse(t, resp).
		Status(http.StatusCreated).
		Contains("Car Loan")

	testutil.AssertResponse(t, ts.GET("/profile")).
		StatusOK().
		Contains(`"number_of_debt_accounts":2`)
}

func TestKnowledgeLevelValidation(t *testing.T) {
	ts, _ := setup(t)
	login(t, ts)

	resp := ts.POST("/knowledge", map[string]interface{}{
		"category": "Investing",
		"level":    9,
	})
	testutil.AssertResponse(t, resp).
		Status(http.StatusUnprocessableEntity).
		Contains("level must be between 1 and 5")
}

func TestKnowledgeDefinitions(t *testing.T) {
	ts, _ := setup(t)
	login(t, ts)

	testutil.AssertResponse(t, ts.GET("/knowledge/definitions")).
		StatusOK().
		ContainsAll("Budgeting", "Planning monthly spending")
}

func TestExpenseDeleteRefreshesViewModel(t *testing.T) {
	ts, _ := setup(t)
	login(t, ts)

	resp := ts.DELETE("/expenses/30")
	testutil.AssertResponse(t, resp).Status(http.StatusNoContent)

	testutil.AssertResponse(t, ts.GET("/profile")).
		StatusOK().
		NotContains("Rent")
}
