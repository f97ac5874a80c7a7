// Package dashboard exposes the client stack to the local UI: auth,
// the aggregated profile view, the staged edit session, and the
// single-entity modals for debts, expenses, and knowledge ratings.
package dashboard

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"findash/internal/api"
	apphttp "findash/internal/http"
	"findash/internal/services/aggregator"
	"findash/internal/services/reconciler"
	"findash/internal/services/session"
)

var (
	log      *logrus.Logger
	client   *api.Client
	store    *aggregator.Store
	sessions *session.Store
	recon    *reconciler.Reconciler
)

// Initialize sets up the dashboard package with required dependencies
func Initialize(l *logrus.Logger, c *api.Client, s *aggregator.Store, ss *session.Store, r *reconciler.Reconciler) {
	log = l
	client = c
	store = s
	sessions = ss
	recon = r
}

// RegisterRoutes registers all dashboard routes
func RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", handleLogin)
	r.Post("/auth/logout", handleLogout)
	r.Get("/auth/session", handleSession)

	r.Get("/profile", handleProfile)
	r.Post("/profile/refresh", handleRefresh)

	r.Post("/profile/edit", handleEditOpen)
	r.Get("/profile/edit", handleEditState)
	r.Delete("/profile/edit", handleEditCancel)
	r.Post("/profile/edit/details", handleEditDetails)
	r.Post("/profile/edit/goals", handleEditAddGoal)
	r.Put("/profile/edit/goals/{goalID}", handleEditUpdateGoal)
	r.Delete("/profile/edit/goals/{goalID}", handleEditRemoveGoal)
	r.Post("/profile/edit/goals/{goalID}/close", handleEditCloseGoal)
	r.Post("/profile/edit/goals/move", handleEditMoveGoal)
	r.Post("/profile/edit/income", handleEditAddIncome)
	r.Put("/profile/edit/income/{localID}", handleEditUpdateIncome)
	r.Delete("/profile/edit/income/{localID}", handleEditDeleteIncome)
	r.Post("/profile/edit/income/{localID}/restore", handleEditRestoreIncome)
	r.Post("/profile/edit/submit", handleEditSubmit)

	r.Post("/debts", handleCreateDebt)
	r.Put("/debts/{debtID}", handleUpdateDebt)
	r.Delete("/debts/{debtID}", handleDeleteDebt)

	r.Post("/expenses", handleCreateExpense)
	r.Put("/expenses/{expenseID}", handleUpdateExpense)
	r.Delete("/expenses/{expenseID}", handleDeleteExpense)

	r.Post("/knowledge", handleCreateKnowledge)
	r.Put("/knowledge/{category}", handleUpdateKnowledge)
	r.Delete("/knowledge/{category}", handleDeleteKnowledge)
	r.Get("/knowledge/definitions", handleKnowledgeDefinitions)
}

// currentUser resolves the logged-in user id from the session slot.
// Every operation below requires it.
func currentUser(w http.ResponseWriter) (int, bool) {
	id, err := sessions.Load()
	if err != nil {
		apphttp.Error(w, log, "failed to read session: "+err.Error(), http.StatusInternalServerError)
		return 0, false
	}
	if id == nil || id.UserID <= 0 {
		apphttp.Error(w, log, "not logged in", http.StatusUnauthorized)
		return 0, false
	}
	return id.UserID, true
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Register bool   `json:"register"`
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.Error(w, log, "invalid request body", http.StatusBadRequest)
		return
	}

	creds := api.Credentials{Email: req.Email, Password: req.Password}
	var (
		id  *api.Identity
		err error
	)
	if req.Register {
		id, err = client.RegisterLogin(r.Context(), creds)
	} else {
		id, err = client.Login(r.Context(), creds)
	}
	if err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusUnauthorized)
		return
	}

	if err := sessions.Save(*id); err != nil {
		apphttp.Error(w, log, "failed to persist session: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Warm the view model. A failure here shows up on the profile
	// page, not as a login failure.
	if err := store.Fetch(r.Context(), id.UserID); err != nil {
		log.Warnf("post-login fetch failed: %v", err)
	}

	apphttp.WriteJSON(w, http.StatusOK, id)
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := sessions.Clear(); err != nil {
		apphttp.Error(w, log, "failed to clear session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	store.Reset()
	recon.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func handleSession(w http.ResponseWriter, r *http.Request) {
	id, err := sessions.Load()
	if err != nil {
		apphttp.Error(w, log, "failed to read session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if id == nil {
		apphttp.Error(w, log, "not logged in", http.StatusUnauthorized)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, id)
}

// profileResponse flattens the store snapshot for the UI.
type profileResponse struct {
	Status    string      `json:"status"`
	ViewModel interface{} `json:"view_model"`
	Error     string      `json:"error,omitempty"`
}

func handleProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}

	snap := store.Snapshot()
	resp := profileResponse{
		Status:    string(snap.Status),
		ViewModel: snap.ViewModel,
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	apphttp.WriteJSON(w, http.StatusOK, resp)
}

func handleRefresh(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w)
	if !ok {
		return
	}
	if err := store.Fetch(r.Context(), userID); err != nil {
		// The snapshot already carries the error; still report it
		// to the caller that asked for the refresh.
		apphttp.Error(w, log, err.Error(), http.StatusBadGateway)
		return
	}
	handleProfile(w, r)
}

// editStateResponse is the staged edit session as the UI sees it.
type editStateResponse struct {
	Open              bool               `json:"open"`
	Details           reconciler.Details `json:"details"`
	Goals             interface{}        `json:"goals"`
	Incomes           interface{}        `json:"incomes"`
	ActiveIncomeCount int                `json:"active_income_count"`
}

func writeEditState(w http.ResponseWriter) {
	state := editStateResponse{Open: recon.IsOpen()}
	if state.Open {
		state.Details = recon.StagedDetails()
		state.Goals = recon.Goals()
		state.Incomes = recon.Incomes()
		state.ActiveIncomeCount = recon.ActiveIncomeCount()
	}
	apphttp.WriteJSON(w, http.StatusOK, state)
}

func handleEditOpen(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	if err := recon.Open(store.Snapshot().ViewModel); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusConflict)
		return
	}
	writeEditState(w)
}

func handleEditState(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	writeEditState(w)
}

func handleEditCancel(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	recon.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func handleEditDetails(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	var d reconciler.Details
	if err := apphttp.DecodeJSON(r, &d); err != nil {
		apphttp.Error(w, log, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := recon.SetDetails(d); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusConflict)
		return
	}
	writeEditState(w)
}

func handleEditAddGoal(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	g, err := recon.AddGoal()
	if err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusConflict)
		return
	}
	apphttp.WriteJSON(w, http.StatusCreated, g)
}

type goalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func handleEditUpdateGoal(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	var req goalRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.Error(w, log, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := recon.UpdateGoal(chi.URLParam(r, "goalID"), req.Title, req.Description); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusNotFound)
		return
	}
	writeEditState(w)
}

func handleEditRemoveGoal(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	if err := recon.RemoveGoal(chi.URLParam(r, "goalID")); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusNotFound)
		return
	}
	writeEditState(w)
}

func handleEditCloseGoal(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	if err := recon.FinishGoalEdit(chi.URLParam(r, "goalID")); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusNotFound)
		return
	}
	writeEditState(w)
}

type moveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func handleEditMoveGoal(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	var req moveRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.Error(w, log, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := recon.MoveGoal(req.From, req.To); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusConflict)
		return
	}
	writeEditState(w)
}

type incomeRequest struct {
	Source        string  `json:"source"`
	MonthlyAmount float64 `json:"monthly_amount"`
	Description   string  `json:"description"`
}

func handleEditAddIncome(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	var req incomeRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.Error(w, log, "invalid request body", http.StatusBadRequest)
		return
	}
	e, err := recon.AddIncome(req.Source, req.MonthlyAmount, req.Description)
	if err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusConflict)
		return
	}
	apphttp.WriteJSON(w, http.StatusCreated, e)
}

func handleEditUpdateIncome(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	var req incomeRequest
	if err := apphttp.DecodeJSON(r, &req); err != nil {
		apphttp.Error(w, log, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := recon.UpdateIncome(chi.URLParam(r, "localID"), req.Source, req.MonthlyAmount, req.Description); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusNotFound)
		return
	}
	writeEditState(w)
}

func handleEditDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	if err := recon.MarkIncomeDeleted(chi.URLParam(r, "localID")); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusNotFound)
		return
	}
	writeEditState(w)
}

func handleEditRestoreIncome(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	if err := recon.UnmarkIncomeDeleted(chi.URLParam(r, "localID")); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusNotFound)
		return
	}
	writeEditState(w)
}

func handleEditSubmit(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	if err := recon.Submit(r.Context()); err != nil {
		// Partial failure: the edit session stays open and the
		// combined message goes back inline.
		apphttp.Error(w, log, err.Error(), http.StatusBadGateway)
		return
	}
	handleProfile(w, r)
}

// Single-entity modals below go straight to the backend and then
// resynchronize the view model.

func refreshAfterMutation(r *http.Request, userID int) {
	if err := store.Fetch(r.Context(), userID); err != nil {
		log.Warnf("refresh after mutation failed: %v", err)
	}
}

func handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w)
	if !ok {
		return
	}
	var p api.DebtPayload
	if err := apphttp.DecodeJSON(r, &p); err != nil {
		apphttp.Error(w, log, "invalid request body", http.StatusBadRequest)
		return
	}
	created, err := client.CreateDebt(r.Context(), userID, p)
	if err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusBadGateway)
		return
	}
	refreshAfterMutation(r, userID)
	apphttp.WriteJSON(w, http.StatusCreated, created)
}

func handleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w)
	if !ok {
		return
	}
	debtID, err := strconv.Atoi(chi.URLParam(r, "debtID"))
	if err != nil {
		apphttp.Error(w, log, "invalid debt id", http.StatusBadRequest)
		return
	}
	var p api.DebtPayload
	if err := apphttp.DecodeJSON(r, &p); err != nil {
		apphttp.Error(w, log, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := client.UpdateDebt(r.Context(), userID, debtID, p); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusBadGateway)
		return
	}
	refreshAfterMutation(r, userID)
	w.WriteHeader(http.StatusNoContent)
}

func handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w)
	if !ok {
		return
	}
	debtID, err := strconv.Atoi(chi.URLParam(r, "debtID"))
	if err != nil {
		apphttp.Error(w, log, "invalid debt id", http.StatusBadRequest)
		return
	}
	if err := client.DeleteDebt(r.Context(), userID, debtID); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusBadGateway)
		return
	}
	refreshAfterMutation(r, userID)
	w.WriteHeader(http.StatusNoContent)
}

func handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w)
	if !ok {
		return
	}
	var p api.ExpensePayload
	if err := apphttp.DecodeJSON(r, &p); err != nil {
		apphttp.Error(w, log, "invalid request body", http.StatusBadRequest)
		return
	}
	created, err := client.CreateExpense(r.Context(), userID, p)
	if err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusBadGateway)
		return
	}
	refreshAfterMutation(r, userID)
	apphttp.WriteJSON(w, http.StatusCreated, created)
}

func handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w)
	if !ok {
		return
	}
	expenseID, err := strconv.Atoi(chi.URLParam(r, "expenseID"))
	if err != nil {
		apphttp.Error(w, log, "invalid expense id", http.StatusBadRequest)
		return
	}
	var p api.ExpensePayload
	if err := apphttp.DecodeJSON(r, &p); err != nil {
		apphttp.Error(w, log, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := client.UpdateExpense(r.Context(), userID, expenseID, p); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusBadGateway)
		return
	}
	refreshAfterMutation(r, userID)
	w.WriteHeader(http.StatusNoContent)
}

func handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w)
	if !ok {
		return
	}
	expenseID, err := strconv.Atoi(chi.URLParam(r, "expenseID"))
	if err != nil {
		apphttp.Error(w, log, "invalid expense id", http.StatusBadRequest)
		return
	}
	if err := client.DeleteExpense(r.Context(), userID, expenseID); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusBadGateway)
		return
	}
	refreshAfterMutation(r, userID)
	w.WriteHeader(http.StatusNoContent)
}

func validKnowledgeLevel(level int) bool {
	return level >= 1 && level <= 5
}

func handleCreateKnowledge(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w)
	if !ok {
		return
	}
	var p api.KnowledgePayload
	if err := apphttp.DecodeJSON(r, &p); err != nil {
		apphttp.Error(w, log, "invalid request body", http.StatusBadRequest)
		return
	}
	if !validKnowledgeLevel(p.Level) {
		apphttp.Error(w, log, "level must be between 1 and 5", http.StatusUnprocessableEntity)
		return
	}
	if err := client.CreateKnowledge(r.Context(), userID, p); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusBadGateway)
		return
	}
	refreshAfterMutation(r, userID)
	apphttp.WriteJSON(w, http.StatusCreated, p)
}

func handleUpdateKnowledge(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w)
	if !ok {
		return
	}
	category := chi.URLParam(r, "category")
	var p api.KnowledgePayload
	if err := apphttp.DecodeJSON(r, &p); err != nil {
		apphttp.Error(w, log, "invalid request body", http.StatusBadRequest)
		return
	}
	if !validKnowledgeLevel(p.Level) {
		apphttp.Error(w, log, "level must be between 1 and 5", http.StatusUnprocessableEntity)
		return
	}
	// Category is immutable; the path segment wins over the body.
	p.Category = category
	if err := client.UpdateKnowledge(r.Context(), userID, category, p); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusBadGateway)
		return
	}
	refreshAfterMutation(r, userID)
	w.WriteHeader(http.StatusNoContent)
}

func handleDeleteKnowledge(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w)
	if !ok {
		return
	}
	if err := client.DeleteKnowledge(r.Context(), userID, chi.URLParam(r, "category")); err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusBadGateway)
		return
	}
	refreshAfterMutation(r, userID)
	w.WriteHeader(http.StatusNoContent)
}

func handleKnowledgeDefinitions(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	defs, err := client.KnowledgeDefinitions(r.Context())
	if err != nil {
		apphttp.Error(w, log, err.Error(), http.StatusBadGateway)
		return
	}
	apphttp.WriteJSON(w, http.StatusOK, defs)
}
