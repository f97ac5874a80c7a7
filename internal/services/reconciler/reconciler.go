// Package reconciler backs the consolidated edit form: it stages
// personal-detail changes, goal reordering/edits/deletions, and income
// additions/edits/deletions locally, then submits them as a
// best-effort batch of remote operations with partial-failure
// aggregation.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"findash/internal/api"
	"findash/internal/models"
	"findash/internal/services/aggregator"
	"findash/internal/services/goals"
	"findash/internal/services/numparse"
)

// ErrNotOpen is returned when a staging operation is attempted with no
// edit session open.
var ErrNotOpen = errors.New("no edit session is open")

// Details are the flat personal-detail fields of the edit form. Empty
// strings are submitted as null, matching the backend's optional
// fields.
type Details struct {
	Age              *int   `json:"age"`
	NumChildren      *int   `json:"num_children"`
	MaritalStatus    string `json:"marital_status"`
	RetirementStatus string `json:"retirement_status"`
}

// Reconciler holds the three staged collections opened from one view
// model snapshot. All mutation happens locally until Submit.
type Reconciler struct {
	client *api.Client
	store  *aggregator.Store
	log    *logrus.Logger

	mu      sync.Mutex
	open    bool
	userID  int
	details Details
	goals   []models.Goal
	incomes []models.IncomeEntry
}

// New creates a reconciler bound to the API client and the view-model
// store it resynchronizes after every submit.
func New(client *api.Client, store *aggregator.Store, log *logrus.Logger) *Reconciler {
	return &Reconciler{client: client, store: store, log: log}
}

// Open starts an edit session by deep-copying the raw records of the
// given snapshot. Staged state from any previous session is discarded.
func (r *Reconciler) Open(vm *models.UserViewModel) error {
	if vm == nil || vm.UserID <= 0 {
		return api.ErrNoIdentity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.open = true
	r.userID = vm.UserID

	r.details = Details{}
	if p := vm.RawProfile; p != nil {
		if p.Age != nil {
			age := *p.Age
			r.details.Age = &age
		}
		if p.NumChildren != nil {
			n := *p.NumChildren
			r.details.NumChildren = &n
		}
		r.details.MaritalStatus = p.MaritalStatus
		r.details.RetirementStatus = p.RetirementStatus
	}

	r.goals = make([]models.Goal, len(vm.FinancialGoals))
	copy(r.goals, vm.FinancialGoals)

	r.incomes = make([]models.IncomeEntry, 0, len(vm.RawIncome))
	for _, inc := range vm.RawIncome {
		r.incomes = append(r.incomes, models.IncomeEntry{
			LocalID:       uuid.NewString(),
			RemoteID:      inc.IncomeID,
			Source:        inc.IncomeSource,
			MonthlyAmount: numparse.AmountJSON(inc.MonthlyIncome),
			Description:   inc.Description,
		})
	}
	return nil
}

// IsOpen reports whether an edit session is active.
func (r *Reconciler) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

// Cancel discards all staged edits and closes the session.
func (r *Reconciler) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = false
	r.goals = nil
	r.incomes = nil
	r.details = Details{}
}

// SetDetails replaces the staged personal-detail fields.
func (r *Reconciler) SetDetails(d Details) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return ErrNotOpen
	}
	r.details = d
	return nil
}

// StagedDetails returns the staged personal-detail fields.
func (r *Reconciler) StagedDetails() Details {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.details
	if r.details.Age != nil {
		age := *r.details.Age
		d.Age = &age
	}
	if r.details.NumChildren != nil {
		n := *r.details.NumChildren
		d.NumChildren = &n
	}
	return d
}

// Goals returns a copy of the staged goal list.
func (r *Reconciler) Goals() []models.Goal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Goal, len(r.goals))
	copy(out, r.goals)
	return out
}

// AddGoal appends a new empty goal and returns it.
func (r *Reconciler) AddGoal() (models.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return models.Goal{}, ErrNotOpen
	}
	g := models.Goal{ID: uuid.NewString()}
	r.goals = append(r.goals, g)
	return g, nil
}

// UpdateGoal replaces the title and description of the goal with the
// given local id.
func (r *Reconciler) UpdateGoal(id, title, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return ErrNotOpen
	}
	for i := range r.goals {
		if r.goals[i].ID == id {
			r.goals[i].Title = title
			r.goals[i].Description = description
			return nil
		}
	}
	return fmt.Errorf("goal %s not found", id)
}

// RemoveGoal deletes the goal with the given local id from the staged
// list.
func (r *Reconciler) RemoveGoal(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return ErrNotOpen
	}
	for i := range r.goals {
		if r.goals[i].ID == id {
			r.goals = append(r.goals[:i], r.goals[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("goal %s not found", id)
}

// MoveGoal reorders the staged goal list; position determines the
// priority submitted at commit time.
func (r *Reconciler) MoveGoal(from, to int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return ErrNotOpen
	}
	r.goals = goals.Reorder(r.goals, from, to)
	return nil
}

// FinishGoalEdit closes the inline editor for a goal. A never-saved
// goal left with both fields empty is discarded rather than kept as a
// blank entry.
func (r *Reconciler) FinishGoalEdit(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return ErrNotOpen
	}
	for i := range r.goals {
		if r.goals[i].ID == id {
			if r.goals[i].IsBlank() && r.goals[i].OriginalID == "" {
				r.goals = append(r.goals[:i], r.goals[i+1:]...)
			}
			return nil
		}
	}
	return fmt.Errorf("goal %s not found", id)
}

// Incomes returns a copy of the staged income list.
func (r *Reconciler) Incomes() []models.IncomeEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.IncomeEntry, len(r.incomes))
	copy(out, r.incomes)
	return out
}

// ActiveIncomeCount counts staged incomes not marked for deletion.
func (r *Reconciler) ActiveIncomeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.incomes {
		if !e.ToBeDeleted {
			n++
		}
	}
	return n
}

// AddIncome stages a new income row.
func (r *Reconciler) AddIncome(source string, monthlyAmount float64, description string) (models.IncomeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return models.IncomeEntry{}, ErrNotOpen
	}
	e := models.IncomeEntry{
		LocalID:       uuid.NewString(),
		Source:        source,
		MonthlyAmount: monthlyAmount,
		Description:   description,
		IsNew:         true,
	}
	r.incomes = append(r.incomes, e)
	return e, nil
}

// UpdateIncome replaces the editable fields of a staged income row.
func (r *Reconciler) UpdateIncome(localID, source string, monthlyAmount float64, description string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return ErrNotOpen
	}
	for i := range r.incomes {
		if r.incomes[i].LocalID == localID {
			r.incomes[i].Source = source
			r.incomes[i].MonthlyAmount = monthlyAmount
			r.incomes[i].Description = description
			return nil
		}
	}
	return fmt.Errorf("income %s not found", localID)
}

// MarkIncomeDeleted soft-deletes a staged income row. A never-saved
// row is removed outright since there is nothing remote to delete.
func (r *Reconciler) MarkIncomeDeleted(localID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return ErrNotOpen
	}
	for i := range r.incomes {
		if r.incomes[i].LocalID == localID {
			if r.incomes[i].IsNew {
				r.incomes = append(r.incomes[:i], r.incomes[i+1:]...)
			} else {
				r.incomes[i].ToBeDeleted = true
			}
			return nil
		}
	}
	return fmt.Errorf("income %s not found", localID)
}

// UnmarkIncomeDeleted clears the soft-delete flag.
func (r *Reconciler) UnmarkIncomeDeleted(localID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return ErrNotOpen
	}
	for i := range r.incomes {
		if r.incomes[i].LocalID == localID {
			r.incomes[i].ToBeDeleted = false
			return nil
		}
	}
	return fmt.Errorf("income %s not found", localID)
}

// Submit commits the staged edits as a best-effort batch: profile
// update first, then income deletes, updates, and creates, in that
// order. Every call is attempted regardless of earlier failures; the
// view model is resynchronized afterward either way. Only a fully
// successful submit closes the session.
func (r *Reconciler) Submit(ctx context.Context) error {
	r.mu.Lock()
	if !r.open {
		r.mu.Unlock()
		return ErrNotOpen
	}
	userID := r.userID
	details := r.details
	goalList := make([]models.Goal, len(r.goals))
	copy(goalList, r.goals)
	incomes := make([]models.IncomeEntry, len(r.incomes))
	copy(incomes, r.incomes)
	r.mu.Unlock()

	var failures []string
	record := func(msg string, err error) {
		failures = append(failures, fmt.Sprintf("%s: %v", msg, err))
		r.log.Warnf("submit: %s: %v", msg, err)
	}

	// Phase 1: profile (flat fields + encoded goals).
	update := api.ProfileUpdate{
		Age:         details.Age,
		NumChildren: details.NumChildren,
		Goals:       goals.Encode(goalList),
	}
	if details.MaritalStatus != "" {
		update.MaritalStatus = &details.MaritalStatus
	}
	if details.RetirementStatus != "" {
		update.RetirementStatus = &details.RetirementStatus
	}
	if err := r.client.UpdateProfile(ctx, userID, update); err != nil {
		record("update profile", err)
	}

	// Partition the staged incomes.
	var toDelete, toUpdate, toCreate []models.IncomeEntry
	for _, e := range incomes {
		switch {
		case e.ToBeDeleted && e.RemoteID > 0:
			toDelete = append(toDelete, e)
		case e.ToBeDeleted:
			// Nothing persisted to delete.
		case e.IsNew:
			toCreate = append(toCreate, e)
		case e.RemoteID > 0:
			toUpdate = append(toUpdate, e)
		}
	}

	// Phase 2: deletes.
	for _, e := range toDelete {
		if err := r.client.DeleteIncome(ctx, userID, e.RemoteID); err != nil {
			record(fmt.Sprintf("delete income %q", e.Source), err)
		}
	}

	// Phase 3: updates.
	for _, e := range toUpdate {
		if err := r.client.UpdateIncome(ctx, userID, e.RemoteID, incomePayload(e)); err != nil {
			record(fmt.Sprintf("update income %q", e.Source), err)
		}
	}

	// Phase 4: creates.
	for _, e := range toCreate {
		if _, err := r.client.CreateIncome(ctx, userID, incomePayload(e)); err != nil {
			record(fmt.Sprintf("create income %q", e.Source), err)
		}
	}

	// Resynchronize from the server even on partial failure, so the
	// view reflects exactly what persisted.
	if err := r.store.Fetch(ctx, userID); err != nil {
		r.log.Warnf("submit: refresh after batch failed: %v", err)
	}

	if len(failures) > 0 {
		return errors.New(strings.Join(failures, "; "))
	}

	r.mu.Lock()
	r.open = false
	r.mu.Unlock()
	return nil
}

func incomePayload(e models.IncomeEntry) api.IncomePayload {
	p := api.IncomePayload{
		IncomeSource:  e.Source,
		MonthlyIncome: e.MonthlyAmount,
	}
	if e.Description != "" {
		desc := e.Description
		p.Description = &desc
	}
	return p
}
