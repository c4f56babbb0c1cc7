package zra

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/zedpos/zedpos-backend/pkg/config"
	pkgerrors "github.com/zedpos/zedpos-backend/pkg/errors"
	"github.com/zedpos/zedpos-backend/pkg/logger"
)

func TestSubmitInvoice(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody InvoiceSubmission
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/invoices/submit" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"zra_invoice_id":"ZRA-2024-000321","qr_code_data":"qr://zra/000321","status":"SUBMITTED"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	ack, err := client.SubmitInvoice(context.Background(), InvoiceSubmission{
		TransactionID: "POS-abc",
		TotalAmount:   decimal.RequireFromString("40.60"),
		TaxAmount:     decimal.RequireFromString("5.60"),
		Items: []InvoiceItem{
			{ItemName: "Mealie Meal 25kg", Quantity: 2, Price: decimal.RequireFromString("10.00")},
		},
	})
	if err != nil {
		t.Fatalf("submit invoice: %v", err)
	}

	if gotAuth != "test-key" {
		t.Fatalf("unexpected api key header: %q", gotAuth)
	}
	if gotBody.TransactionID != "POS-abc" || len(gotBody.Items) != 1 {
		t.Fatalf("unexpected submission payload: %+v", gotBody)
	}
	if ack.InvoiceID != "ZRA-2024-000321" {
		t.Fatalf("unexpected invoice id: %s", ack.InvoiceID)
	}
	if ack.Status != "SUBMITTED" {
		t.Fatalf("unexpected status: %s", ack.Status)
	}
	if ack.RawResponse == "" {
		t.Fatal("expected raw response retained")
	}
}

func TestSubmitInvoiceBadCredentials(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.SubmitInvoice(context.Background(), InvoiceSubmission{TransactionID: "POS-x"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubmitInvoiceOutage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"service unavailable"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.SubmitInvoice(context.Background(), InvoiceSubmission{TransactionID: "POS-x"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pkgerrors.IsRetryable(err) {
		t.Fatal("outage should be retryable")
	}
}

func TestSubmitInvoiceConnectionRefused(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(t, url)
	_, err := client.SubmitInvoice(context.Background(), InvoiceSubmission{TransactionID: "POS-x"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubmitInvoiceMalformedResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.SubmitInvoice(context.Background(), InvoiceSubmission{TransactionID: "POS-x"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInternal {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSubmitInvoiceMissingInvoiceID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"SUBMITTED"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.SubmitInvoice(context.Background(), InvoiceSubmission{TransactionID: "POS-x"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInternal {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	logg := testLogger()
	if _, err := NewClient(context.Background(), config.ZRAConfig{APIKey: "k"}, logg); err == nil {
		t.Fatal("expected base url error")
	}
	if _, err := NewClient(context.Background(), config.ZRAConfig{BaseURL: "http://zra.test"}, logg); err == nil {
		t.Fatal("expected api key error")
	}
	if _, err := NewClient(context.Background(), config.ZRAConfig{BaseURL: "http://zra.test", APIKey: "k"}, nil); err == nil {
		t.Fatal("expected logger error")
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), config.ZRAConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
	}, testLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}
