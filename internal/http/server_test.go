package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/genai"

	"autocare/internal/advisor"
	"autocare/internal/chat"
	"autocare/internal/core"
	applog "autocare/internal/log"
	"autocare/internal/services"
	"autocare/internal/storage"
)

type fakeBackend struct {
	structuredReply string
	chatReply       string
	err             error
}

func (f *fakeBackend) GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	return f.structuredReply, f.err
}

func (f *fakeBackend) GenerateChat(ctx context.Context, systemInstruction string, turns []advisor.Turn) (string, error) {
	return f.chatReply, f.err
}

func newTestServer(t *testing.T, backend advisor.Backend) *Server {
	t.Helper()

	repo, err := storage.NewFileRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileRepository() error = %v", err)
	}
	svc := services.NewExpenseService(repo, nil)
	t.Cleanup(func() { svc.Close() })

	var analyzer *advisor.Analyzer
	var chatCtl *chat.Controller
	if backend != nil {
		analyzer = advisor.NewAnalyzer(backend)
		chatCtl = chat.NewController(backend, svc)
	}

	logger := applog.New(applog.DefaultConfig())
	srv := NewServer(":0", svc, analyzer, chatCtl, 5*time.Second, logger)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

func createExpense(t *testing.T, srv *Server, req expenseRequest) core.ExpenseRecord {
	t.Helper()
	rr := doJSON(t, srv, http.MethodPost, "/api/expenses", req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create expense status = %d, body %s", rr.Code, rr.Body.String())
	}
	return decodeBody[core.ExpenseRecord](t, rr)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := doJSON(t, srv, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rr.Code)
	}
}

func TestExpenses_CRUD(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := doJSON(t, srv, http.MethodGet, "/api/expenses", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("empty list body = %q, want []", body)
	}

	created := createExpense(t, srv, expenseRequest{
		Date: "2024-06-10", Amount: 55.5, Category: "Fuel", Description: "Top up",
	})
	if created.ID == "" {
		t.Error("created expense has no ID")
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/expenses/"+created.ID, expenseRequest{
		Date: "2024-06-11", Amount: 60, Category: "Fuel", Description: "Corrected",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rr.Code, rr.Body.String())
	}
	updated := decodeBody[core.ExpenseRecord](t, rr)
	if updated.Description != "Corrected" || updated.Amount != 60 {
		t.Errorf("update returned %+v", updated)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/expenses", nil)
	listed := decodeBody[[]core.ExpenseRecord](t, rr)
	if len(listed) != 1 || listed[0].Description != "Corrected" {
		t.Errorf("list after update = %+v", listed)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/expenses/"+created.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/expenses/"+created.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rr.Code)
	}
}

func TestExpenses_Validation(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		req  expenseRequest
	}{
		{"bad date", expenseRequest{Date: "10/06/2024", Amount: 10, Category: "Fuel"}},
		{"negative amount", expenseRequest{Date: "2024-06-10", Amount: -10, Category: "Fuel"}},
		{"unknown category", expenseRequest{Date: "2024-06-10", Amount: 10, Category: "Groceries"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, "/api/expenses", tt.req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rr.Code, rr.Body.String())
			}
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/expenses", bytes.NewBufferString("{not json"))
		rr := httptest.NewRecorder()
		srv.Server.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("update unknown id", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodPut, "/api/expenses/missing", expenseRequest{
			Date: "2024-06-10", Amount: 10, Category: "Fuel",
		})
		if rr.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rr.Code)
		}
	})
}

func TestVehicle(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := doJSON(t, srv, http.MethodGet, "/api/vehicle", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get vehicle status = %d", rr.Code)
	}
	if got := decodeBody[core.VehicleProfile](t, rr); got != storage.DefaultVehicle() {
		t.Errorf("default vehicle = %+v", got)
	}

	want := core.VehicleProfile{Brand: "Fiat", Model: "Panda", Year: "2019", Plate: "AB123CD", VIN: "ZFA"}
	rr = doJSON(t, srv, http.MethodPut, "/api/vehicle", want)
	if rr.Code != http.StatusOK {
		t.Fatalf("put vehicle status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/vehicle", nil)
	if got := decodeBody[core.VehicleProfile](t, rr); got != want {
		t.Errorf("vehicle after save = %+v, want %+v", got, want)
	}
}

func TestDocuments(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := doJSON(t, srv, http.MethodPost, "/api/documents", documentRequest{Title: "Insurance", ExpiryDate: "2025-01-31"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create document status = %d, body %s", rr.Code, rr.Body.String())
	}
	doc := decodeBody[core.DocumentRecord](t, rr)
	if doc.ID == "" || doc.Title != "Insurance" {
		t.Errorf("created document = %+v", doc)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/documents", documentRequest{Title: "  "})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("blank title status = %d, want 400", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/documents", documentRequest{Title: "MOT", ExpiryDate: "31-01-2025"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad expiry status = %d, want 400", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/documents/"+doc.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete document status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/documents", nil)
	if docs := decodeBody[[]core.DocumentRecord](t, rr); len(docs) != 0 {
		t.Errorf("documents after delete = %+v", docs)
	}
}

func TestStats(t *testing.T) {
	srv := newTestServer(t, nil)

	createExpense(t, srv, expenseRequest{Date: "2024-01-10", Amount: 100, Category: "Fuel", Description: "a"})
	createExpense(t, srv, expenseRequest{Date: "2024-02-10", Amount: 50, Category: "Maintenance", Description: "b"})

	rr := doJSON(t, srv, http.MethodGet, "/api/stats?period=all", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rr.Code)
	}
	summary := decodeBody[map[string]json.RawMessage](t, rr)
	var total float64
	if err := json.Unmarshal(summary["totalSpent"], &total); err != nil {
		t.Fatalf("totalSpent missing: %s", rr.Body.String())
	}
	if total != 150 {
		t.Errorf("totalSpent = %v, want 150", total)
	}

	t.Run("invalid period", func(t *testing.T) {
		rr := doJSON(t, srv, http.MethodGet, "/api/stats?period=decade", nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("cache invalidated on mutation", func(t *testing.T) {
		createExpense(t, srv, expenseRequest{Date: "2024-03-10", Amount: 25, Category: "Other", Description: "c"})

		rr := doJSON(t, srv, http.MethodGet, "/api/stats?period=all", nil)
		summary := decodeBody[map[string]json.RawMessage](t, rr)
		var total float64
		_ = json.Unmarshal(summary["totalSpent"], &total)
		if total != 175 {
			t.Errorf("totalSpent after new expense = %v, want 175", total)
		}
	})
}

func TestInsights(t *testing.T) {
	seed := func(t *testing.T, srv *Server, n int) {
		t.Helper()
		for i := 0; i < n; i++ {
			createExpense(t, srv, expenseRequest{Date: "2024-06-10", Amount: 10, Category: "Fuel", Description: "x"})
		}
	}

	t.Run("insufficient data", func(t *testing.T) {
		srv := newTestServer(t, &fakeBackend{})
		seed(t, srv, 2)

		rr := doJSON(t, srv, http.MethodGet, "/api/insights", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		resp := decodeBody[insightsResponse](t, rr)
		if len(resp.Insights) != 0 || resp.Reason != "insufficient_data" {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("success", func(t *testing.T) {
		srv := newTestServer(t, &fakeBackend{
			structuredReply: `{"insights":[{"title":"Fuel heavy","description":"Most spend is fuel.","kind":"tip"}]}`,
		})
		seed(t, srv, 3)

		rr := doJSON(t, srv, http.MethodGet, "/api/insights", nil)
		resp := decodeBody[insightsResponse](t, rr)
		if len(resp.Insights) != 1 || resp.Insights[0].Kind != core.InsightTip {
			t.Errorf("response = %+v", resp)
		}
		if resp.Reason != "" {
			t.Errorf("reason = %q, want empty", resp.Reason)
		}
	})

	t.Run("backend failure falls back", func(t *testing.T) {
		srv := newTestServer(t, &fakeBackend{err: errors.New("boom")})
		seed(t, srv, 3)

		rr := doJSON(t, srv, http.MethodGet, "/api/insights", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		resp := decodeBody[insightsResponse](t, rr)
		if len(resp.Insights) != 1 || resp.Insights[0].Kind != core.InsightWarning {
			t.Errorf("fallback response = %+v", resp)
		}
	})

	t.Run("no backend configured", func(t *testing.T) {
		srv := newTestServer(t, nil)
		seed(t, srv, 3)

		rr := doJSON(t, srv, http.MethodGet, "/api/insights", nil)
		resp := decodeBody[insightsResponse](t, rr)
		if len(resp.Insights) != 1 || resp.Insights[0].Kind != core.InsightWarning {
			t.Errorf("response = %+v", resp)
		}
	})
}

func TestChat(t *testing.T) {
	t.Run("transcript starts with greeting", func(t *testing.T) {
		srv := newTestServer(t, &fakeBackend{chatReply: "hello"})

		rr := doJSON(t, srv, http.MethodGet, "/api/chat", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		resp := decodeBody[chatResponse](t, rr)
		if len(resp.Messages) != 1 || resp.Messages[0].Speaker != core.SpeakerAssistant {
			t.Fatalf("transcript = %+v", resp.Messages)
		}
	})

	t.Run("send appends user and assistant turns", func(t *testing.T) {
		srv := newTestServer(t, &fakeBackend{chatReply: "check your tyre pressure"})

		rr := doJSON(t, srv, http.MethodPost, "/api/chat", chatRequest{Message: "any advice?"})
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
		}
		resp := decodeBody[chatResponse](t, rr)
		if len(resp.Messages) != 3 {
			t.Fatalf("transcript length = %d, want 3", len(resp.Messages))
		}
		if resp.Messages[1].Text != "any advice?" || resp.Messages[2].Text != "check your tyre pressure" {
			t.Errorf("transcript = %+v", resp.Messages)
		}
		if resp.Awaiting {
			t.Error("awaiting = true after completed exchange")
		}
	})

	t.Run("empty message rejected", func(t *testing.T) {
		srv := newTestServer(t, &fakeBackend{chatReply: "hi"})

		rr := doJSON(t, srv, http.MethodPost, "/api/chat", chatRequest{Message: "   "})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("no backend configured", func(t *testing.T) {
		srv := newTestServer(t, nil)

		rr := doJSON(t, srv, http.MethodPost, "/api/chat", chatRequest{Message: "hi"})
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rr.Code)
		}
	})

	t.Run("reset starts a fresh session", func(t *testing.T) {
		srv := newTestServer(t, &fakeBackend{chatReply: "ok"})

		doJSON(t, srv, http.MethodPost, "/api/chat", chatRequest{Message: "first"})

		rr := doJSON(t, srv, http.MethodPost, "/api/chat/reset", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("reset status = %d", rr.Code)
		}
		resp := decodeBody[chatResponse](t, rr)
		if len(resp.Messages) != 1 || resp.Messages[0].Speaker != core.SpeakerAssistant {
			t.Errorf("transcript after reset = %+v", resp.Messages)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < requestsPerMinute; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d denied below the limit", i+1)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Error("request above the limit was allowed")
	}
	if !rl.allow("5.6.7.8") {
		t.Error("separate client was throttled")
	}
}
