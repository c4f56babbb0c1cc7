package sales

import (
	"errors"
	"testing"

	"github.com/zedpos/zedpos-backend/pkg/enums"
	pkgerrors "github.com/zedpos/zedpos-backend/pkg/errors"
	"github.com/zedpos/zedpos-backend/pkg/zra"
)

func TestOutcomeFromGatewayAck(t *testing.T) {
	t.Parallel()

	ack := &zra.InvoiceAck{
		InvoiceID:   "ZRA-2024-000123",
		Status:      "SUBMITTED",
		RawResponse: `{"zra_invoice_id":"ZRA-2024-000123"}`,
	}

	outcome := OutcomeFromGateway(ack, nil)

	if outcome.Status != enums.SyncStatusSynced {
		t.Fatalf("expected SYNCED, got %s", outcome.Status)
	}
	if outcome.ZRAInvoiceID == nil || *outcome.ZRAInvoiceID != "ZRA-2024-000123" {
		t.Fatalf("unexpected invoice id: %v", outcome.ZRAInvoiceID)
	}
	if outcome.ResponseLog == nil || *outcome.ResponseLog != ack.RawResponse {
		t.Fatalf("unexpected response log: %v", outcome.ResponseLog)
	}
}

func TestOutcomeFromGatewayOutage(t *testing.T) {
	t.Parallel()

	err := pkgerrors.New(pkgerrors.CodeDependency, "zra unavailable (503)")
	outcome := OutcomeFromGateway(nil, err)

	if outcome.Status != enums.SyncStatusPending {
		t.Fatalf("expected PENDING, got %s", outcome.Status)
	}
	if outcome.ZRAInvoiceID != nil {
		t.Fatalf("expected no invoice id, got %v", *outcome.ZRAInvoiceID)
	}
	if outcome.ResponseLog == nil || *outcome.ResponseLog == "" {
		t.Fatal("expected failure recorded in response log")
	}
}

func TestOutcomeFromGatewayTerminalFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
	}{
		{name: "bad credentials", err: pkgerrors.New(pkgerrors.CodeUnauthorized, "zra rejected credentials")},
		{name: "malformed response", err: pkgerrors.New(pkgerrors.CodeInternal, "zra response missing invoice id")},
		{name: "untyped error", err: errors.New("boom")},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			outcome := OutcomeFromGateway(nil, tc.err)
			if outcome.Status != enums.SyncStatusFailed {
				t.Fatalf("expected FAILED, got %s", outcome.Status)
			}
		})
	}
}
