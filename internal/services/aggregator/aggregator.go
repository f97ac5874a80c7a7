// Package aggregator owns the user view model: it fetches the
// comprehensive record, normalizes it through the numeric, goal, and
// spending services, and exposes one logical snapshot at a time to
// consumers.
package aggregator

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"findash/internal/api"
	"findash/internal/models"
	"findash/internal/services/goals"
	"findash/internal/services/numparse"
	"findash/internal/services/spending"
)

// Status is the fetch lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Snapshot is one observable state of the store. When a refresh fails
// after a previous success, ViewModel still holds the stale-but-valid
// data and Err carries the failure alongside it.
type Snapshot struct {
	Status    Status
	ViewModel *models.UserViewModel
	Err       error
}

// Store is the observable owner of {viewModel, status}. It is mutated
// only through Fetch and Reset; rendering code reads snapshots.
type Store struct {
	client *api.Client
	log    *logrus.Logger

	mu      sync.Mutex
	status  Status
	vm      *models.UserViewModel
	err     error
	hasData bool
	gen     uint64

	subs    map[int]chan struct{}
	nextSub int
}

// New creates an idle store holding the neutral default view model.
func New(client *api.Client, log *logrus.Logger) *Store {
	return &Store{
		client: client,
		log:    log,
		status: StatusIdle,
		vm:     models.DefaultUserViewModel(),
		subs:   map[int]chan struct{}{},
	}
}

// Snapshot returns the current state. The view model inside is treated
// as immutable: every successful fetch replaces it wholesale.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Status: s.status, ViewModel: s.vm, Err: s.err}
}

// Subscribe returns a channel that receives a signal on every state
// change, and a function to unsubscribe.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// notify must be called with the lock held.
func (s *Store) notify() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Fetch loads the comprehensive record for userID and replaces the
// view model atomically. The last fetch to complete wins; a fetch that
// resolves after Reset is discarded. A failed refresh keeps the
// previous ready snapshot and surfaces the error alongside it; a
// failed first fetch leaves the store in the error state.
func (s *Store) Fetch(ctx context.Context, userID int) error {
	if userID <= 0 {
		s.mu.Lock()
		s.err = api.ErrNoIdentity
		if !s.hasData {
			s.status = StatusError
		}
		s.notify()
		s.mu.Unlock()
		return api.ErrNoIdentity
	}

	s.mu.Lock()
	s.gen++
	myGen := s.gen
	s.status = StatusLoading
	s.notify()
	s.mu.Unlock()

	details, err := s.client.ComprehensiveDetails(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != myGen {
		// A newer fetch or a logout superseded this one.
		s.log.Debugf("discarding stale fetch result for user %d", userID)
		return nil
	}

	if err != nil {
		s.err = err
		if s.hasData {
			s.status = StatusReady
		} else {
			s.status = StatusError
		}
		s.notify()
		return err
	}

	s.vm = buildViewModel(userID, details)
	s.status = StatusReady
	s.err = nil
	s.hasData = true
	s.notify()
	s.log.Debugf("view model refreshed for user %d", userID)
	return nil
}

// Reset synchronously clears the store back to the neutral default.
// Used on logout; performs no network call.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.status = StatusIdle
	s.vm = models.DefaultUserViewModel()
	s.err = nil
	s.hasData = false
	s.notify()
}

// buildViewModel derives the full view model from the raw records.
// Every derived field is computed here and only here.
func buildViewModel(userID int, details *api.ComprehensiveDetails) *models.UserViewModel {
	vm := models.DefaultUserViewModel()
	vm.UserID = userID

	if details == nil {
		return vm
	}

	if p := details.Profile; p != nil {
		vm.Name = p.Name
		vm.Email = p.Email
		vm.PersonalDetails.Age = p.Age
		vm.PersonalDetails.MaritalStatus = p.MaritalStatus
		vm.PersonalDetails.EmploymentStatus = p.RetirementStatus
		if p.NumChildren != nil {
			vm.PersonalDetails.HouseholdComposition.DependentChildren = *p.NumChildren
		}
		vm.FinancialGoals = goals.Decode(p.Goals)
		vm.RawProfile = p
	}

	for _, inc := range details.Income {
		vm.PersonalDetails.NetMonthlyIncome += numparse.AmountJSON(inc.MonthlyIncome)
	}

	for _, k := range details.Knowledge {
		vm.FinancialKnowledge[k.Category] = models.KnowledgeEntry{
			Category:    k.Category,
			Level:       k.Level,
			LevelLabel:  levelLabel(k.Level),
			Description: k.Description,
		}
	}

	debts := make([]models.DebtEntry, 0, len(details.Debts))
	totalDebt := 0.0
	for _, d := range details.Debts {
		balance := numparse.AmountJSON(d.CurrentBalance)
		totalDebt += balance
		debts = append(debts, models.DebtEntry{
			RemoteID:          d.DebtID,
			AccountName:       d.AccountName,
			CurrentBalance:    balance,
			InterestRate:      d.InterestRate,
			MinMonthlyPayment: numparse.AmountJSON(d.MinMonthlyPayment),
		})
	}
	vm.FinancialProfile.TotalDebt = totalDebt
	vm.FinancialProfile.NumberOfDebtAccounts = len(debts)
	vm.FinancialProfile.DetailedDebts = debts

	summary := spending.Summarize(details.Expenses)
	vm.FinancialProfile.SpendingHabit = models.SpendingHabit{
		TopCategory:                  summary.TopCategory(),
		ExpenseSummary:               summary.AllTimeByCategory,
		ExpenseSummaryForLatestMonth: summary.LatestMonthByCategory,
		LatestMonth:                  summary.LatestMonthKey,
	}

	vm.RawIncome = details.Income
	vm.RawDebts = details.Debts
	vm.RawExpenses = details.Expenses
	vm.RawKnowledge = details.Knowledge
	return vm
}

func levelLabel(level int) string {
	return fmt.Sprintf("Level %d", level)
}
