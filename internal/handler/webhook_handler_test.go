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

	"github.com/ujjwalsingh108/payment-processing-app/internal/command"
	"github.com/ujjwalsingh108/payment-processing-app/internal/models"
	"github.com/ujjwalsingh108/payment-processing-app/internal/repository"
)

// ---- mock implementations ----

type mockAdmitter struct {
	admitFn func(context.Context, command.AdmitRequest) (command.AdmitOutcome, error)
}

func (m *mockAdmitter) Admit(ctx context.Context, req command.AdmitRequest) (command.AdmitOutcome, error) {
	if m.admitFn != nil {
		return m.admitFn(ctx, req)
	}
	return 0, fmt.Errorf("not configured")
}

type mockQuerier struct {
	getFn func(context.Context, string) (*models.TransactionView, error)
}

func (m *mockQuerier) GetTransaction(ctx context.Context, id string) (*models.TransactionView, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newTestRouter(admitter TransactionAdmitter, queries TransactionQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewWebhookHandler(admitter, queries)
	r.GET("/", h.HealthCheck)
	v1 := r.Group("/v1")
	v1.POST("/webhooks/transactions", h.ReceiveWebhook)
	v1.GET("/transactions/:transactionId", h.GetTransaction)
	return r
}

func doRequest(router *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ---- test data ----

func webhookBody() map[string]interface{} {
	return map[string]interface{}{
		"transaction_id":      "txn_1",
		"source_account":      "a",
		"destination_account": "b",
		"amount":              1500.0,
		"currency":            "INR",
	}
}

var testView = &models.TransactionView{
	TransactionID:      "txn_1",
	SourceAccount:      "a",
	DestinationAccount: "b",
	Amount:             1500.0,
	Currency:           "INR",
	Status:             models.StatusProcessing,
	CreatedAt:          time.Now().UTC(),
}

// ---- tests ----

func TestReceiveWebhook(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		admitFn        func(context.Context, command.AdmitRequest) (command.AdmitOutcome, error)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "accepted - fresh transaction",
			body: webhookBody(),
			admitFn: func(context.Context, command.AdmitRequest) (command.AdmitOutcome, error) {
				return command.OutcomeAccepted, nil
			},
			expectedStatus: http.StatusAccepted,
			expectedMsg:    "Transaction accepted for processing",
		},
		{
			name: "accepted - duplicate transaction is a success",
			body: webhookBody(),
			admitFn: func(context.Context, command.AdmitRequest) (command.AdmitOutcome, error) {
				return command.OutcomeDuplicate, nil
			},
			expectedStatus: http.StatusAccepted,
			expectedMsg:    "Transaction already received",
		},
		{
			name:           "bad request - empty body",
			body:           map[string]interface{}{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - amount is zero",
			body: map[string]interface{}{
				"transaction_id": "txn_1", "source_account": "a",
				"destination_account": "b", "amount": 0, "currency": "INR",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - amount is negative",
			body: map[string]interface{}{
				"transaction_id": "txn_1", "source_account": "a",
				"destination_account": "b", "amount": -5, "currency": "INR",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - missing transaction_id",
			body: map[string]interface{}{
				"source_account": "a", "destination_account": "b",
				"amount": 10, "currency": "INR",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - service-level validation failure",
			body: webhookBody(),
			admitFn: func(context.Context, command.AdmitRequest) (command.AdmitOutcome, error) {
				return 0, &command.ValidationError{Reason: "currency is required"}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "internal error - store unavailable",
			body: webhookBody(),
			admitFn: func(context.Context, command.AdmitRequest) (command.AdmitOutcome, error) {
				return 0, fmt.Errorf("connection refused")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockAdmitter{admitFn: tt.admitFn}, &mockQuerier{})
			w := doRequest(router, http.MethodPost, "/v1/webhooks/transactions", tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedMsg == "" {
				return
			}
			var resp WebhookResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid response body: %v", err)
			}
			if resp.Message != tt.expectedMsg {
				t.Errorf("expected message %q got %q", tt.expectedMsg, resp.Message)
			}
			if resp.TransactionID != "txn_1" {
				t.Errorf("expected transaction_id txn_1 got %q", resp.TransactionID)
			}
		})
	}
}

func TestGetTransaction(t *testing.T) {
	tests := []struct {
		name           string
		transactionID  string
		getFn          func(context.Context, string) (*models.TransactionView, error)
		expectedStatus int
	}{
		{
			name:          "success - transaction exists",
			transactionID: "txn_1",
			getFn: func(context.Context, string) (*models.TransactionView, error) {
				return testView, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:          "not found - never submitted",
			transactionID: "txn_missing",
			getFn: func(context.Context, string) (*models.TransactionView, error) {
				return nil, repository.ErrTransactionNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:          "internal error - store unavailable",
			transactionID: "txn_1",
			getFn: func(context.Context, string) (*models.TransactionView, error) {
				return nil, fmt.Errorf("connection refused")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockAdmitter{}, &mockQuerier{getFn: tt.getFn})
			w := doRequest(router, http.MethodGet, "/v1/transactions/"+tt.transactionID, nil)
			if w.Code != tt.expectedStatus {
				t.Fatalf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetTransactionSerialisesNullProcessedAt(t *testing.T) {
	router := newTestRouter(&mockAdmitter{}, &mockQuerier{
		getFn: func(context.Context, string) (*models.TransactionView, error) {
			return testView, nil
		},
	})
	w := doRequest(router, http.MethodGet, "/v1/transactions/txn_1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if v, ok := body["processed_at"]; !ok || v != nil {
		t.Errorf("expected processed_at to be serialised as null, got %v", v)
	}
	if body["amount"] != 1500.0 {
		t.Errorf("expected amount 1500.0 got %v", body["amount"])
	}
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(&mockAdmitter{}, &mockQuerier{})
	w := doRequest(router, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}

	var resp HealthCheckResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Status != "HEALTHY" {
		t.Errorf("expected status HEALTHY got %q", resp.Status)
	}
	if _, err := time.Parse(time.RFC3339, resp.CurrentTime); err != nil {
		t.Errorf("current_time is not RFC3339: %v", err)
	}
}
