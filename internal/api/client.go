// Package api implements the REST client for the remote finance service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNoIdentity is returned when an operation requires a user id that
// is absent. It is raised before any network round-trip.
var ErrNoIdentity = errors.New("user id is required")

// APIError is a non-2xx response from the backend, carrying the
// server's detail message when one was provided.
type APIError struct {
	Op     string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("failed to %s: %d - %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("failed to %s: HTTP error %d", e.Op, e.Status)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client talks to the finance backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Logger
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, log *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// do issues a request and decodes the JSON response into out (when out
// is non-nil). A 204 or empty body is success with no payload.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, op string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warnf("API %s %s failed: %v", method, path, err)
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Op: op, Status: resp.StatusCode, Detail: extractDetail(data)}
		c.log.Warnf("API %s %s: %v", method, path, apiErr)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// extractDetail pulls the "detail" field out of an error body. The
// backend sends either a plain string or a validation-error array of
// {loc, msg} objects; the latter is flattened to "field: msg" pairs.
func extractDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Loc []json.RawMessage `json:"loc"`
		Msg string            `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil {
		parts := make([]string, 0, len(items))
		for _, it := range items {
			field := ""
			if n := len(it.Loc); n > 0 {
				var f string
				if json.Unmarshal(it.Loc[n-1], &f) != nil {
					f = string(it.Loc[n-1])
				}
				field = f
			}
			if field != "" {
				parts = append(parts, field+": "+it.Msg)
			} else {
				parts = append(parts, it.Msg)
			}
		}
		return strings.Join(parts, "; ")
	}

	return string(body.Detail)
}

func requireUser(userID int) error {
	if userID <= 0 {
		return ErrNoIdentity
	}
	return nil
}

// ComprehensiveDetails fetches the full aggregate for a user.
func (c *Client) ComprehensiveDetails(ctx context.Context, userID int) (*ComprehensiveDetails, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var out ComprehensiveDetails
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/comprehensive_details", userID), nil, &out, "fetch comprehensive user details")
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile replaces the personal details and the goals map.
func (c *Client) UpdateProfile(ctx context.Context, userID int, update ProfileUpdate) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d/profile", userID), update, nil, "update user profile")
}

// Income CRUD.

func (c *Client) ListIncome(ctx context.Context, userID int) ([]Income, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var out []Income
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/income", userID), nil, &out, "fetch user income"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateIncome(ctx context.Context, userID int, p IncomePayload) (*Income, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var out Income
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/income", userID), p, &out, "create income detail"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateIncome(ctx context.Context, userID, incomeID int, p IncomePayload) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d/income/%d", userID, incomeID), p, nil, "update income detail")
}

func (c *Client) DeleteIncome(ctx context.Context, userID, incomeID int) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/income/%d", userID, incomeID), nil, nil, "delete income detail")
}

// Debt CRUD.

func (c *Client) ListDebts(ctx context.Context, userID int) ([]Debt, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var out []Debt
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/debts", userID), nil, &out, "fetch user debts"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateDebt(ctx context.Context, userID int, p DebtPayload) (*Debt, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var out Debt
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/debts", userID), p, &out, "create debt detail"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateDebt(ctx context.Context, userID, debtID int, p DebtPayload) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d/debts/%d", userID, debtID), p, nil, "update debt detail")
}

func (c *Client) DeleteDebt(ctx context.Context, userID, debtID int) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/debts/%d", userID, debtID), nil, nil, "delete debt detail")
}

// Expense CRUD.

func (c *Client) ListExpenses(ctx context.Context, userID int) ([]Expense, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var out []Expense
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/expenses", userID), nil, &out, "fetch user expenses"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateExpense(ctx context.Context, userID int, p ExpensePayload) (*Expense, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var out Expense
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/expenses", userID), p, &out, "create expense detail"); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateExpense(ctx context.Context, userID, expenseID int, p ExpensePayload) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d/expenses/%d", userID, expenseID), p, nil, "update expense detail")
}

func (c *Client) DeleteExpense(ctx context.Context, userID, expenseID int) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/expenses/%d", userID, expenseID), nil, nil, "delete expense detail")
}

// Knowledge CRUD. Rows are keyed by category.

func (c *Client) CreateKnowledge(ctx context.Context, userID int, p KnowledgePayload) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/financial_knowledge", userID), p, nil, "create knowledge entry")
}

func (c *Client) UpdateKnowledge(ctx context.Context, userID int, category string, p KnowledgePayload) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/users/%d/financial_knowledge/%s", userID, category), p, nil, "update knowledge entry")
}

func (c *Client) DeleteKnowledge(ctx context.Context, userID int, category string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/financial_knowledge/%s", userID, category), nil, nil, "delete knowledge entry")
}

// KnowledgeDefinitions fetches the category catalog.
func (c *Client) KnowledgeDefinitions(ctx context.Context) ([]KnowledgeDefinition, error) {
	var out []KnowledgeDefinition
	if err := c.do(ctx, http.MethodGet, "/financial_knowledge_definitions", nil, &out, "fetch knowledge definitions"); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestInsights fetches the most recently generated report set. A 404
// is returned as an APIError; callers decide whether that means "no
// report yet" or a genuine failure.
func (c *Client) LatestInsights(ctx context.Context, userID int) ([]InsightReport, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var out []InsightReport
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/insights/latest", userID), nil, &out, "fetch latest insights"); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateInsights triggers a new report generation.
func (c *Client) GenerateInsights(ctx context.Context, userID int) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/insights/financial_report", userID), nil, nil, "generate financial report")
}

// Login exchanges credentials for an identity.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Identity, error) {
	var out Identity
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &out, "log in"); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterLogin registers a new user and logs them in in one call.
func (c *Client) RegisterLogin(ctx context.Context, creds Credentials) (*Identity, error) {
	var out Identity
	if err := c.do(ctx, http.MethodPost, "/auth/register_login", creds, &out, "register"); err != nil {
		return nil, err
	}
	return &out, nil
}
