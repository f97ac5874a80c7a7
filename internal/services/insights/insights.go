// Package insights manages the fetch/regenerate lifecycle for
// generated insight reports. Its one hard rule: a failed regeneration
// must never leave the panel blank when older reports exist —
// staleness is preferred over emptiness.
package insights

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"findash/internal/api"
)

// Status is the report lifecycle state.
type Status string

const (
	StatusEmpty   Status = "empty"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Snapshot is the observable orchestrator state. ErrMsg accumulates:
// when both the regeneration and its fallback fetch fail, the two
// messages are joined rather than one overwriting the other.
type Snapshot struct {
	Status       Status
	Reports      []api.InsightReport
	ErrMsg       string
	Regenerating bool
}

// Orchestrator coordinates fetching and regenerating insight reports.
type Orchestrator struct {
	client *api.Client
	log    *logrus.Logger

	mu           sync.Mutex
	status       Status
	reports      []api.InsightReport
	errMsg       string
	regenerating bool
}

// New creates an orchestrator in the empty state.
func New(client *api.Client, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		client: client,
		log:    log,
		status: StatusEmpty,
	}
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	reports := make([]api.InsightReport, len(o.reports))
	copy(reports, o.reports)
	return Snapshot{
		Status:       o.status,
		Reports:      reports,
		ErrMsg:       o.errMsg,
		Regenerating: o.regenerating,
	}
}

// Reset clears the orchestrator back to empty. Used on logout.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = StatusEmpty
	o.reports = nil
	o.errMsg = ""
	o.regenerating = false
}

// FetchLatest loads the most recently generated report set. On this
// normal path a 404 or empty body means "no report yet", not an error.
func (o *Orchestrator) FetchLatest(ctx context.Context, userID int) error {
	if userID <= 0 {
		o.setError(api.ErrNoIdentity.Error())
		return api.ErrNoIdentity
	}

	o.mu.Lock()
	o.status = StatusLoading
	o.errMsg = ""
	o.mu.Unlock()

	return o.fetchLatest(ctx, userID, false)
}

// fetchLatest performs the GET. On the regeneration-fallback path a
// 404 counts as a genuine failure and errors are appended to the
// existing message instead of replacing it.
func (o *Orchestrator) fetchLatest(ctx context.Context, userID int, isFallback bool) error {
	reports, err := o.client.LatestInsights(ctx, userID)

	o.mu.Lock()
	defer o.mu.Unlock()

	if err != nil {
		if !isFallback && api.IsNotFound(err) {
			// First-load miss: a brand-new user simply has no report.
			o.reports = nil
			o.status = StatusReady
			return nil
		}
		o.appendError(err.Error())
		if len(o.reports) == 0 {
			o.status = StatusError
		} else {
			o.status = StatusReady
		}
		return err
	}

	o.reports = reports
	o.status = StatusReady
	return nil
}

// Regenerate triggers a new generation and then unconditionally
// re-fetches the latest report set. A generation failure survives a
// successful fallback fetch: older insights reappear and the error is
// still shown.
func (o *Orchestrator) Regenerate(ctx context.Context, userID int) error {
	if userID <= 0 {
		o.setError(api.ErrNoIdentity.Error())
		return api.ErrNoIdentity
	}

	o.mu.Lock()
	o.regenerating = true
	o.errMsg = ""
	o.mu.Unlock()

	genErr := o.client.GenerateInsights(ctx, userID)
	if genErr != nil {
		o.log.Warnf("insight regeneration failed for user %d: %v", userID, genErr)
		o.mu.Lock()
		o.appendError(fmt.Sprintf("insight regeneration failed: %v", genErr))
		o.mu.Unlock()
	}

	// Always attempt the fallback fetch, so a previous report set is
	// shown even when generation failed.
	fetchErr := o.fetchLatest(ctx, userID, true)

	o.mu.Lock()
	o.regenerating = false
	o.mu.Unlock()

	if genErr != nil {
		return fmt.Errorf("insight regeneration failed: %w", genErr)
	}
	return fetchErr
}

func (o *Orchestrator) setError(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errMsg = msg
	o.status = StatusError
}

// appendError must be called with the lock held.
func (o *Orchestrator) appendError(msg string) {
	if o.errMsg == "" {
		o.errMsg = msg
		return
	}
	o.errMsg = o.errMsg + "; " + msg
}
