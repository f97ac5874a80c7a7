// Package main runs the local dashboard server: a thin JSON surface
// over the remote finance service, with the aggregated view model,
// insight reports, and the staged edit session held in process.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"findash/internal/api"
	"findash/internal/config"
	dashboardhandlers "findash/internal/handlers/dashboard"
	insighthandlers "findash/internal/handlers/insights"
	apphttp "findash/internal/http"
	"findash/internal/services/aggregator"
	"findash/internal/services/insights"
	"findash/internal/services/reconciler"
	"findash/internal/services/session"
	"findash/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Get().String())
		return
	}

	cfg := config.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	log.Infof("starting dashboard on %s (backend %s)", cfg.ListenAddr, cfg.APIBaseURL)
	log.Debugf("data directory: %s", cfg.DataDirectory)

	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, log)

	sessions := session.New(cfg.DataDirectory, log)
	if passphrase := os.Getenv("FINDASH_PASSPHRASE"); passphrase != "" {
		if err := sessions.EnableEncryption(passphrase); err != nil {
			log.Fatalf("failed to enable session encryption: %v", err)
		}
	}

	store := aggregator.New(client, log)
	orch := insights.New(client, log)
	recon := reconciler.New(client, store, log)

	dashboardhandlers.Initialize(log, client, store, sessions, recon)
	insighthandlers.Initialize(log, orch, sessions)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	dashboardhandlers.RegisterRoutes(r)
	insighthandlers.RegisterRoutes(r)

	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		apphttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"version": version.Get(),
		})
	})

	restoreSession(log, sessions, store, orch)

	if cfg.RefreshSpec != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.RefreshSpec, func() {
			backgroundRefresh(log, sessions, store)
		})
		if err != nil {
			log.Fatalf("invalid refresh spec %q: %v", cfg.RefreshSpec, err)
		}
		c.Start()
		defer c.Stop()
		log.Infof("background refresh scheduled: %s", cfg.RefreshSpec)
	}

	log.Fatal(http.ListenAndServe(cfg.ListenAddr, r))
}

// restoreSession warms the in-process state from a persisted identity,
// so a restart does not look like a logout.
func restoreSession(log *logrus.Logger, sessions *session.Store, store *aggregator.Store, orch *insights.Orchestrator) {
	id, err := sessions.Load()
	if err != nil {
		log.Warnf("could not restore session: %v", err)
		return
	}
	if id == nil {
		return
	}
	if session.IsStale(*id, time.Now()) {
		log.Info("persisted session token has expired, clearing slot")
		if err := sessions.Clear(); err != nil {
			log.Warnf("failed to clear stale session: %v", err)
		}
		return
	}

	log.Infof("restored session for user %d", id.UserID)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Fetch(ctx, id.UserID); err != nil {
		log.Warnf("initial fetch failed: %v", err)
	}
	if err := orch.FetchLatest(ctx, id.UserID); err != nil {
		log.Warnf("initial insights fetch failed: %v", err)
	}
}

// backgroundRefresh re-fetches the view model on the cron schedule.
// Skipped entirely when nobody is logged in.
func backgroundRefresh(log *logrus.Logger, sessions *session.Store, store *aggregator.Store) {
	id, err := sessions.Load()
	if err != nil || id == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Fetch(ctx, id.UserID); err != nil {
		log.Warnf("scheduled refresh failed: %v", err)
	}
}
