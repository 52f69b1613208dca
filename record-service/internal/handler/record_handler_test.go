package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/models"
)

// ---- mock implementations ----

type mockRecordCommander struct {
	createFn func(cqrs.CreateRecordCommand) (*models.RecordView, error)
	updateFn func(cqrs.UpdateRecordCommand) (*models.RecordView, error)
	deleteFn func(cqrs.DeleteRecordCommand) error
}

func (m *mockRecordCommander) CreateRecord(_ context.Context, cmd cqrs.CreateRecordCommand) (*models.RecordView, error) {
	if m.createFn != nil {
		return m.createFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockRecordCommander) UpdateRecord(_ context.Context, cmd cqrs.UpdateRecordCommand) (*models.RecordView, error) {
	if m.updateFn != nil {
		return m.updateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockRecordCommander) DeleteRecord(_ context.Context, cmd cqrs.DeleteRecordCommand) error {
	if m.deleteFn != nil {
		return m.deleteFn(cmd)
	}
	return fmt.Errorf("not configured")
}

type mockRecordQuerier struct {
	getFn     func(cqrs.GetRecordQuery) (*models.RecordView, error)
	listFn    func(cqrs.ListRecordsQuery) ([]models.RecordView, error)
	searchFn  func(cqrs.SearchRecordsQuery) ([]models.RecordDocument, error)
	summaryFn func(cqrs.SummarizeRecordsQuery) ([]models.CategorySummary, error)
}

func (m *mockRecordQuerier) GetRecord(_ context.Context, q cqrs.GetRecordQuery) (*models.RecordView, error) {
	if m.getFn != nil {
		return m.getFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockRecordQuerier) ListRecords(_ context.Context, q cqrs.ListRecordsQuery) ([]models.RecordView, error) {
	if m.listFn != nil {
		return m.listFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockRecordQuerier) SearchRecords(_ context.Context, q cqrs.SearchRecordsQuery) ([]models.RecordDocument, error) {
	if m.searchFn != nil {
		return m.searchFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockRecordQuerier) Summarize(_ context.Context, q cqrs.SummarizeRecordsQuery) ([]models.CategorySummary, error) {
	if m.summaryFn != nil {
		return m.summaryFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newRecordTestRouter(cmds RecordCommander, qrys RecordQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "usr-001")
		c.Next()
	})
	NewRecordHandler(cmds, qrys).RegisterRoutes(r.Group("/v1/records"))
	return r
}

func doRequest(router *gin.Engine, method, url, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, url, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

var testRecordView = &models.RecordView{
	ID: "rec-AbCdEf1234", AccountID: "acc-AbCdEf1234", UserID: "usr-001",
	Amount: decimal.RequireFromString("12.50"), Type: models.RecordTypeExpense, Category: "food",
	OccurredAt: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now(),
}

// ---- tests ----

func TestCreateRecord(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		createFn       func(cqrs.CreateRecordCommand) (*models.RecordView, error)
		expectedStatus int
	}{
		{
			name: "success",
			body: `{"accountId":"acc-AbCdEf1234","amount":12.5,"type":"expense","category":"food","occurredAt":"2026-04-01T08:00:00Z"}`,
			createFn: func(cmd cqrs.CreateRecordCommand) (*models.RecordView, error) {
				if !cmd.Amount.Equal(decimal.RequireFromString("12.5")) || cmd.OccurredAt.IsZero() || cmd.UserID != "usr-001" {
					return nil, fmt.Errorf("unexpected command %+v", cmd)
				}
				return testRecordView, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "string amount",
			body: `{"accountId":"acc-AbCdEf1234","amount":"0.10","type":"income","category":"interest"}`,
			createFn: func(cmd cqrs.CreateRecordCommand) (*models.RecordView, error) {
				if !cmd.Amount.Equal(decimal.RequireFromString("0.1")) {
					return nil, fmt.Errorf("amount %s", cmd.Amount)
				}
				return testRecordView, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad type",
			body:           `{"accountId":"acc-1","amount":1,"type":"transfer","category":"x"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing category",
			body:           `{"accountId":"acc-1","amount":1,"type":"income"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "non-positive amount",
			body:           `{"accountId":"acc-1","amount":0,"type":"income","category":"x"}`,
			createFn:       func(cqrs.CreateRecordCommand) (*models.RecordView, error) { return nil, errs.ErrInvalidAmount },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "account of another user",
			body:           `{"accountId":"acc-1","amount":1,"type":"income","category":"x"}`,
			createFn:       func(cqrs.CreateRecordCommand) (*models.RecordView, error) { return nil, errs.ErrForbidden },
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "unknown account",
			body:           `{"accountId":"acc-1","amount":1,"type":"income","category":"x"}`,
			createFn:       func(cqrs.CreateRecordCommand) (*models.RecordView, error) { return nil, errs.ErrAccountNotFound },
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "malformed json",
			body:           `{"amount":`,
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRecordTestRouter(&mockRecordCommander{createFn: tt.createFn}, &mockRecordQuerier{})
			w := doRequest(router, http.MethodPost, "/v1/records", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}
}

func TestListRecordsFilters(t *testing.T) {
	var got cqrs.ListRecordsQuery
	q := &mockRecordQuerier{listFn: func(q cqrs.ListRecordsQuery) ([]models.RecordView, error) {
		got = q
		return []models.RecordView{*testRecordView}, nil
	}}
	router := newRecordTestRouter(&mockRecordCommander{}, q)

	w := doRequest(router, http.MethodGet, "/v1/records?accountId=acc-1&category=food&type=expense&from=2026-01-01&to=2026-02-01T00:00:00Z&limit=5&offset=10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	if got.UserID != "usr-001" || got.AccountID != "acc-1" || got.Category != "food" || got.Type != "expense" {
		t.Errorf("query = %+v", got)
	}
	if !got.From.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) || got.To.Month() != time.February {
		t.Errorf("window = %v - %v", got.From, got.To)
	}
	if got.Limit != 5 || got.Offset != 10 {
		t.Errorf("limit/offset = %d/%d", got.Limit, got.Offset)
	}

	w = doRequest(router, http.MethodGet, "/v1/records?from=yesterday", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad from status = %d", w.Code)
	}
}

func TestSearchRecords(t *testing.T) {
	var got cqrs.SearchRecordsQuery
	q := &mockRecordQuerier{searchFn: func(q cqrs.SearchRecordsQuery) ([]models.RecordDocument, error) {
		got = q
		return []models.RecordDocument{{ID: "rec-1", Description: "coffee"}}, nil
	}}
	router := newRecordTestRouter(&mockRecordCommander{}, q)

	w := doRequest(router, http.MethodGet, "/v1/records/search?q=coffee&limit=3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	if got.Text != "coffee" || got.Limit != 3 || got.UserID != "usr-001" {
		t.Errorf("query = %+v", got)
	}
	var resp SearchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || len(resp.Results) != 1 {
		t.Errorf("resp = %+v, err %v", resp, err)
	}
}

func TestSummary(t *testing.T) {
	q := &mockRecordQuerier{summaryFn: func(cqrs.SummarizeRecordsQuery) ([]models.CategorySummary, error) {
		return []models.CategorySummary{
			{Type: models.RecordTypeIncome, Category: "salary", Total: decimal.NewFromInt(3000), Count: 1},
			{Type: models.RecordTypeExpense, Category: "rent", Total: decimal.NewFromInt(1200), Count: 1},
			{Type: models.RecordTypeExpense, Category: "food", Total: decimal.RequireFromString("310.40"), Count: 12},
		}, nil
	}}
	router := newRecordTestRouter(&mockRecordCommander{}, q)

	w := doRequest(router, http.MethodGet, "/v1/records/summary?from=2026-01-01&to=2026-02-01", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var resp SummaryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Income.Equal(decimal.NewFromInt(3000)) || !resp.Expense.Equal(decimal.RequireFromString("1510.4")) {
		t.Errorf("totals = %s / %s", resp.Income, resp.Expense)
	}
	if !resp.Net.Equal(decimal.RequireFromString("1489.6")) {
		t.Errorf("net = %s", resp.Net)
	}

	q.summaryFn = func(cqrs.SummarizeRecordsQuery) ([]models.CategorySummary, error) { return nil, errs.ErrInvalidPeriod }
	if w := doRequest(router, http.MethodGet, "/v1/records/summary?from=2026-02-01&to=2026-01-01", ""); w.Code != http.StatusBadRequest {
		t.Errorf("invalid period status = %d", w.Code)
	}
}

func TestGetUpdateDeleteRecord(t *testing.T) {
	cmds := &mockRecordCommander{
		updateFn: func(cmd cqrs.UpdateRecordCommand) (*models.RecordView, error) {
			if cmd.Category == nil || *cmd.Category != "dining" || cmd.Amount != nil {
				return nil, fmt.Errorf("unexpected update %+v", cmd)
			}
			return testRecordView, nil
		},
		deleteFn: func(cmd cqrs.DeleteRecordCommand) error {
			if cmd.RecordID == "rec-missing" {
				return errs.ErrRecordNotFound
			}
			return nil
		},
	}
	qrys := &mockRecordQuerier{getFn: func(q cqrs.GetRecordQuery) (*models.RecordView, error) {
		if q.RecordID == "rec-theirs" {
			return nil, errs.ErrForbidden
		}
		return testRecordView, nil
	}}
	router := newRecordTestRouter(cmds, qrys)

	tests := []struct {
		name, method, url, body string
		want                    int
	}{
		{"get", http.MethodGet, "/v1/records/rec-AbCdEf1234", "", http.StatusOK},
		{"get forbidden", http.MethodGet, "/v1/records/rec-theirs", "", http.StatusForbidden},
		{"patch", http.MethodPatch, "/v1/records/rec-AbCdEf1234", `{"category":"dining"}`, http.StatusOK},
		{"patch bad type", http.MethodPatch, "/v1/records/rec-AbCdEf1234", `{"type":"gift"}`, http.StatusBadRequest},
		{"delete", http.MethodDelete, "/v1/records/rec-AbCdEf1234", "", http.StatusNoContent},
		{"delete missing", http.MethodDelete, "/v1/records/rec-missing", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, tt.method, tt.url, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d; body: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}
