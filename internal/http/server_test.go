package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"xubudget/internal/catalog"
	"xubudget/internal/ledger"
	"xubudget/internal/log"
	"xubudget/internal/report"
	"xubudget/internal/services"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cat := catalog.Default()
	logger := log.New(log.Config{Component: "test"})
	reports := report.New(cat)
	store, err := ledger.NewStore(t.TempDir(), cat, reports, "CAD", logger)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	svc := services.NewBudgetService(store, cat, reports, nil, logger)
	s := NewServer("127.0.0.1:0", svc, 16, time.Minute, logger)
	t.Cleanup(func() {
		if err := s.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})
	return s
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := do(t, s, http.MethodGet, path, nil); rec.Code != http.StatusOK {
			t.Fatalf("%s = %d", path, rec.Code)
		}
	}
}

func TestAddExpenseEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/add_expense", map[string]any{
		"user_id":     "alice",
		"amount":      "12,50",
		"description": "latte",
		"category":    "coffee",
		"merchant":    "Starbucks",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	out := decode(t, rec)
	entry, ok := out["entry"].(map[string]any)
	if !ok {
		t.Fatalf("missing entry: %v", out)
	}
	if entry["category"] != "coffee" || entry["amount"] != 12.5 {
		t.Fatalf("entry = %v", entry)
	}
	if out["monthly_spent"] != 12.5 {
		t.Fatalf("monthly_spent = %v", out["monthly_spent"])
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing request id header")
	}
}

func TestAddExpenseRejectsBadAmounts(t *testing.T) {
	s := newTestServer(t)
	for i, amount := range []any{"abc", -5, 0, ""} {
		rec := do(t, s, http.MethodPost, "/api/add_expense", map[string]any{
			"user_id": "alice",
			"amount":  amount,
		})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("case %d status = %d body = %s", i, rec.Code, rec.Body)
		}
	}
}

func TestInvalidPeriodQuery(t *testing.T) {
	s := newTestServer(t)
	for _, target := range []string{
		"/api/dashboard_summary?period=2025-13",
		"/api/state?period=garbage",
		"/api/period/2025_13",
	} {
		rec := do(t, s, http.MethodGet, target, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s status = %d", target, rec.Code)
		}
	}
}

func TestDashboardSummary(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/api/add_expense", map[string]any{
		"user_id": "alice", "amount": 20, "category": "groceries",
	})

	rec := do(t, s, http.MethodGet, "/api/dashboard_summary?user_id=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	out := decode(t, rec)
	if out["total_spent"] != 20.0 {
		t.Fatalf("total_spent = %v", out["total_spent"])
	}
	if out["user_id"] != "alice" {
		t.Fatalf("user_id = %v", out["user_id"])
	}
}

func TestDeleteMissingExpense(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/api/add_expense", map[string]any{
		"user_id": "alice", "amount": 5,
	})
	rec := do(t, s, http.MethodDelete, "/api/expenses/no-such-id?user_id=alice", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
}

func TestStateReflectsMutations(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/state?user_id=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if spent := decode(t, rec)["monthly_spent"]; spent != 0.0 {
		t.Fatalf("initial monthly_spent = %v", spent)
	}

	// A second read comes from the view cache; a mutation must evict it.
	do(t, s, http.MethodGet, "/api/state?user_id=alice", nil)
	do(t, s, http.MethodPost, "/api/add_expense", map[string]any{
		"user_id": "alice", "amount": 7.5,
	})

	rec = do(t, s, http.MethodGet, "/api/state?user_id=alice", nil)
	if spent := decode(t, rec)["monthly_spent"]; spent != 7.5 {
		t.Fatalf("monthly_spent after mutation = %v", spent)
	}
}

func TestUserResolutionPrecedence(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/state?user_id=query", nil)
	req.Header.Set("X-User-ID", "header")
	req.AddCookie(&http.Cookie{Name: "user_id", Value: "cookie"})
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode(t, rec)["user_id"]; got != "cookie" {
		t.Fatalf("user_id = %v, cookie must win", got)
	}
}

func TestGoalEndpoints(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/goals", map[string]any{
		"user_id": "alice", "name": "Trip", "target_amount": 1000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rec.Code, rec.Body)
	}
	goal := decode(t, rec)["goal"].(map[string]any)
	id, _ := goal["id"].(string)
	if id == "" {
		t.Fatalf("goal = %v", goal)
	}

	rec = do(t, s, http.MethodPost, "/api/goals", map[string]any{
		"user_id": "alice", "name": "  ", "target_amount": 1,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty name status = %d", rec.Code)
	}

	rec = do(t, s, http.MethodDelete, "/api/goals/"+id+"?user_id=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d body = %s", rec.Code, rec.Body)
	}
}

func TestLearnMerchantEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/api/add_expense", map[string]any{
		"user_id": "alice", "amount": 6, "merchant": "Tims", "category": "other",
	})

	rec := do(t, s, http.MethodPost, "/api/ai/learn_merchant_category", map[string]any{
		"user_id": "alice", "merchant": "Tims", "category": "coffee",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	out := decode(t, rec)
	if out["reclassified"] != 1.0 {
		t.Fatalf("reclassified = %v", out["reclassified"])
	}
	rules := out["merchant_rules"].(map[string]any)
	if rules["tims"] != "coffee" {
		t.Fatalf("rules = %v", rules)
	}
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatal("missing frame options header")
	}
}
