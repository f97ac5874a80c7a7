package insights

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"findash/internal/api"
	"findash/internal/testutil"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newOrchestrator(t *testing.T) (*Orchestrator, *testutil.FakeBackend) {
	t.Helper()
	backend := testutil.NewFakeBackend()
	t.Cleanup(backend.Close)

	client := api.NewClient(backend.URL(), 5*time.Second, testLogger())
	return New(client, testLogger()), backend
}

func seededReport() api.InsightReport {
	return api.InsightReport{
		ID:          1,
		Title:       "Cut subscription spend",
		Explanation: "Recurring payments grew 20% quarter over quarter",
		Impact:      "$420/year",
		NextSteps:   []string{"audit subscriptions", "cancel unused"},
	}
}

func TestFetchLatestReturnsReports(t *testing.T) {
	o, backend := newOrchestrator(t)
	backend.SetInsights([]api.InsightReport{seededReport()})

	if err := o.FetchLatest(context.Background(), 1); err != nil {
		t.Fatalf("FetchLatest failed: %v", err)
	}

	snap := o.Snapshot()
	if snap.Status != StatusReady {
		t.Errorf("status = %s, want ready", snap.Status)
	}
	if len(snap.Reports) != 1 || snap.Reports[0].Title != "Cut subscription spend" {
		t.Errorf("reports = %+v", snap.Reports)
	}
	if snap.ErrMsg != "" {
		t.Errorf("unexpected error: %q", snap.ErrMsg)
	}
}

func TestFetchLatestNoReportYet(t *testing.T) {
	o, _ := newOrchestrator(t)

	// The fake backend 404s when no insights are stored; on a normal
	// fetch that means "no report yet", not an error.
	if err := o.FetchLatest(context.Background(), 1); err != nil {
		t.Fatalf("FetchLatest failed: %v", err)
	}

	snap := o.Snapshot()
	if snap.Status != StatusReady {
		t.Errorf("status = %s, want ready", snap.Status)
	}
	if len(snap.Reports) != 0 {
		t.Errorf("reports = %+v, want none", snap.Reports)
	}
	if snap.ErrMsg != "" {
		t.Errorf("unexpected error: %q", snap.ErrMsg)
	}
}

func TestFetchLatestServerError(t *testing.T) {
	o, backend := newOrchestrator(t)
	backend.FailWith("GET /users/1/insights/latest", 500, "generator offline")

	if err := o.FetchLatest(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}

	snap := o.Snapshot()
	if snap.Status != StatusError {
		t.Errorf("status = %s, want error", snap.Status)
	}
	if !strings.Contains(snap.ErrMsg, "generator offline") {
		t.Errorf("error %q does not carry the server detail", snap.ErrMsg)
	}
}

func TestFetchLatestWithoutIdentity(t *testing.T) {
	o, backend := newOrchestrator(t)

	if err := o.FetchLatest(context.Background(), 0); err == nil {
		t.Fatal("expected identity error")
	}
	if calls := backend.Calls(); len(calls) != 0 {
		t.Errorf("identity error must not hit the network, got %v", calls)
	}
}

func TestRegenerateSuccess(t *testing.T) {
	o, _ := newOrchestrator(t)

	if err := o.Regenerate(context.Background(), 1); err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}

	snap := o.Snapshot()
	if snap.Status != StatusReady {
		t.Errorf("status = %s, want ready", snap.Status)
	}
	if len(snap.Reports) == 0 {
		t.Error("expected freshly generated reports")
	}
	if snap.Regenerating {
		t.Error("regenerating flag still set")
	}
}

func TestFailedRegenerationKeepsStaleReports(t *testing.T) {
	o, backend := newOrchestrator(t)
	backend.SetInsights([]api.InsightReport{seededReport()})
	backend.FailWith("POST /users/1/insights/financial_report", 500, "model unavailable")

	if err := o.FetchLatest(context.Background(), 1); err != nil {
		t.Fatalf("seed fetch failed: %v", err)
	}
	if err := o.Regenerate(context.Background(), 1); err == nil {
		t.Fatal("expected regeneration error")
	}

	snap := o.Snapshot()
	// The seeded report is still visible...
	if len(snap.Reports) != 1 || snap.Reports[0].Title != "Cut subscription spend" {
		t.Errorf("stale reports lost: %+v", snap.Reports)
	}
	// ...and the regeneration failure is surfaced despite the fallback
	// fetch having succeeded.
	if !strings.Contains(snap.ErrMsg, "regeneration failed") {
		t.Errorf("error %q does not mention the regeneration failure", snap.ErrMsg)
	}
	if !strings.Contains(snap.ErrMsg, "model unavailable") {
		t.Errorf("error %q does not carry the server detail", snap.ErrMsg)
	}
	if snap.Regenerating {
		t.Error("regenerating flag still set")
	}
}

func TestRegenerateAndFallbackBothFail(t *testing.T) {
	o, backend := newOrchestrator(t)
	backend.FailWith("POST /users/1/insights/financial_report", 500, "model unavailable")
	backend.FailWith("GET /users/1/insights/latest", 503, "store offline")

	if err := o.Regenerate(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}

	snap := o.Snapshot()
	// Both messages must be present; neither overwrites the other.
	if !strings.Contains(snap.ErrMsg, "model unavailable") || !strings.Contains(snap.ErrMsg, "store offline") {
		t.Errorf("combined error missing a part: %q", snap.ErrMsg)
	}
}

func TestRegenerateFallback404IsAnError(t *testing.T) {
	o, backend := newOrchestrator(t)
	backend.FailWith("POST /users/1/insights/financial_report", 500, "model unavailable")
	// No stored insights: the fallback GET 404s, which on this path is
	// a genuine failure rather than "no report yet".

	if err := o.Regenerate(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}

	snap := o.Snapshot()
	if snap.Status != StatusError {
		t.Errorf("status = %s, want error", snap.Status)
	}
	if !strings.Contains(snap.ErrMsg, "regeneration failed") {
		t.Errorf("error %q does not mention regeneration", snap.ErrMsg)
	}
}
