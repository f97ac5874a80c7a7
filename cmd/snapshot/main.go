// Package main provides a CLI that logs in, aggregates one user's
// records, and prints the normalized view model as JSON. Useful for
// checking what the dashboard would render without running the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"findash/internal/api"
	"findash/internal/services/aggregator"
	"findash/internal/services/insights"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "Base URL of the finance service")
	email := flag.String("email", "", "Account email")
	timeout := flag.Int("timeout", 15, "Request timeout in seconds")
	withInsights := flag.Bool("insights", false, "Also fetch the latest insight reports")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: snapshot -email you@example.com [-url ...] [-insights]")
		os.Exit(2)
	}

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not read password: %v\n", err)
		os.Exit(1)
	}

	client := api.NewClient(*baseURL, time.Duration(*timeout)*time.Second, log)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	id, err := client.Login(ctx, api.Credentials{Email: *email, Password: string(password)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}

	store := aggregator.New(client, log)
	if err := store.Fetch(ctx, id.UserID); err != nil {
		fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
		os.Exit(1)
	}

	out := map[string]interface{}{
		"view_model": store.Snapshot().ViewModel,
	}

	if *withInsights {
		orch := insights.New(client, log)
		if err := orch.FetchLatest(ctx, id.UserID); err != nil {
			fmt.Fprintf(os.Stderr, "insights fetch failed: %v\n", err)
		}
		out["insights"] = orch.Snapshot().Reports
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode failed: %v\n", err)
		os.Exit(1)
	}
}
