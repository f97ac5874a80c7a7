package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, 5*time.Second, testLogger()), srv
}

func TestComprehensiveDetails(t *testing.T) {
	client, srv := newClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/7/comprehensive_details" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"profile": {"user_id": 7, "name": "Alex Johnson", "email": "alex.j@example.com"},
			"income": [{"income_id": 1, "income_source": "Salary", "monthly_income": "4,000"}],
			"debts": [],
			"expenses": [],
			"financial_knowledge": []
		}`)
	})
	defer srv.Close()

	got, err := client.ComprehensiveDetails(context.Background(), 7)
	if err != nil {
		t.Fatalf("ComprehensiveDetails failed: %v", err)
	}
	if got.Profile.Name != "Alex Johnson" {
		t.Errorf("name = %q", got.Profile.Name)
	}
	if len(got.Income) != 1 || got.Income[0].IncomeSource != "Salary" {
		t.Errorf("income = %+v", got.Income)
	}
}

func TestMissingUserIDShortCircuits(t *testing.T) {
	called := false
	client, srv := newClient(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	defer srv.Close()

	if _, err := client.ComprehensiveDetails(context.Background(), 0); err != ErrNoIdentity {
		t.Errorf("err = %v, want ErrNoIdentity", err)
	}
	if err := client.DeleteIncome(context.Background(), -1, 5); err != ErrNoIdentity {
		t.Errorf("err = %v, want ErrNoIdentity", err)
	}
	if called {
		t.Error("request reached the server despite missing user id")
	}
}

func TestStringDetailError(t *testing.T) {
	client, srv := newClient(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"detail": "database offline"}`)
	})
	defer srv.Close()

	_, err := client.ComprehensiveDetails(context.Background(), 7)
	if err == nil {
		t.Fatal("expected error")
	}
	want := "failed to fetch comprehensive user details: 500 - database offline"
	if err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
}

func TestValidationDetailError(t *testing.T) {
	client, srv := newClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"detail": [
			{"loc": ["body", "monthly_income"], "msg": "value is not a valid float"},
			{"loc": ["body", "income_source"], "msg": "field required"}
		]}`)
	})
	defer srv.Close()

	_, err := client.CreateIncome(context.Background(), 7, IncomePayload{})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{
		"monthly_income: value is not a valid float",
		"income_source: field required",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("err = %q, missing %q", err.Error(), want)
		}
	}
}

func TestErrorWithoutDetail(t *testing.T) {
	client, srv := newClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream exploded")
	})
	defer srv.Close()

	err := client.GenerateInsights(context.Background(), 7)
	if err == nil {
		t.Fatal("expected error")
	}
	want := "failed to generate financial report: HTTP error 502"
	if err.Error() != want {
		t.Errorf("err = %q, want %q", err.Error(), want)
	}
}

func TestIsNotFound(t *testing.T) {
	client, srv := newClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"detail": "no insights generated yet"}`)
	})
	defer srv.Close()

	_, err := client.LatestInsights(context.Background(), 7)
	if !IsNotFound(err) {
		t.Errorf("IsNotFound = false for %v", err)
	}
	if IsNotFound(nil) {
		t.Error("IsNotFound(nil) = true")
	}
	if IsNotFound(ErrNoIdentity) {
		t.Error("IsNotFound(ErrNoIdentity) = true")
	}
}

func TestNoContentSuccess(t *testing.T) {
	client, srv := newClient(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	defer srv.Close()

	if err := client.DeleteDebt(context.Background(), 7, 3); err != nil {
		t.Errorf("DeleteDebt failed: %v", err)
	}
}

func TestEmptyBodySuccess(t *testing.T) {
	// Some mutation endpoints reply 200 with no body at all.
	client, srv := newClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	got, err := client.CreateIncome(context.Background(), 7, IncomePayload{IncomeSource: "Salary"})
	if err != nil {
		t.Fatalf("CreateIncome failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a zero-valued row, got nil")
	}
}

func TestUpdateProfileSendsGoalsMap(t *testing.T) {
	var received map[string]json.RawMessage
	client, srv := newClient(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Goals map[string]json.RawMessage `json:"goals"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		received = body.Goals
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	err := client.UpdateProfile(context.Background(), 7, ProfileUpdate{
		Goals: map[string]GoalPayload{
			"1": {Title: "Emergency Fund", Description: "3 months"},
		},
	})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if len(received) != 1 || !strings.Contains(string(received["1"]), "Emergency Fund") {
		t.Errorf("goals payload = %v", received)
	}
}

func TestLogin(t *testing.T) {
	client, srv := newClient(func(w http.ResponseWriter, r *http.Request) {
		var creds Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decode credentials: %v", err)
		}
		if creds.Email != "alex.j@example.com" {
			t.Errorf("email = %q", creds.Email)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"user_id": 7, "email": "alex.j@example.com"}`)
	})
	defer srv.Close()

	id, err := client.Login(context.Background(), Credentials{Email: "alex.j@example.com", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if id.UserID != 7 {
		t.Errorf("UserID = %d", id.UserID)
	}
}
