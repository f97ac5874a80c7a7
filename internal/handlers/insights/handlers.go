// Package insights exposes the AI-report orchestrator to the local UI.
package insights

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	apphttp "findash/internal/http"
	"findash/internal/services/insights"
	"findash/internal/services/session"
)

var (
	log      *logrus.Logger
	orch     *insights.Orchestrator
	sessions *session.Store
)

// Initialize sets up the insights package with required dependencies
func Initialize(l *logrus.Logger, o *insights.Orchestrator, ss *session.Store) {
	log = l
	orch = o
	sessions = ss
}

// RegisterRoutes registers all insights routes
func RegisterRoutes(r chi.Router) {
	r.Get("/insights", handleInsights)
	r.Post("/insights/fetch", handleFetch)
	r.Post("/insights/regenerate", handleRegenerate)
}

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

// insightsResponse flattens the orchestrator snapshot for the UI.
type insightsResponse struct {
	Status       string      `json:"status"`
	Reports      interface{} `json:"reports"`
	Error        string      `json:"error,omitempty"`
	Regenerating bool        `json:"regenerating"`
}

func writeSnapshot(w http.ResponseWriter) {
	snap := orch.Snapshot()
	apphttp.WriteJSON(w, http.StatusOK, insightsResponse{
		Status:       string(snap.Status),
		Reports:      snap.Reports,
		Error:        snap.ErrMsg,
		Regenerating: snap.Regenerating,
	})
}

func handleInsights(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w); !ok {
		return
	}
	writeSnapshot(w)
}

func handleFetch(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w)
	if !ok {
		return
	}
	// A fetch error is already folded into the snapshot; the caller
	// gets the state either way.
	if err := orch.FetchLatest(r.Context(), userID); err != nil {
		log.Warnf("insights fetch failed: %v", err)
	}
	writeSnapshot(w)
}

func handleRegenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w)
	if !ok {
		return
	}
	if err := orch.Regenerate(r.Context(), userID); err != nil {
		log.Warnf("insight regeneration failed: %v", err)
	}
	writeSnapshot(w)
}
