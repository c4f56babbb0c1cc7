package sales

import (
	"github.com/zedpos/zedpos-backend/pkg/enums"
	pkgerrors "github.com/zedpos/zedpos-backend/pkg/errors"
	"github.com/zedpos/zedpos-backend/pkg/zra"
)

// SyncOutcome captures how a gateway attempt is recorded on the sale row.
type SyncOutcome struct {
	Status       enums.SyncStatus
	ZRAInvoiceID *string
	ResponseLog  *string
}

// OutcomeFromGateway maps a submission result to the persisted sync fields.
// An acknowledgment becomes SYNCED. A retryable gateway failure (outage,
// timeout) leaves the sale PENDING for the reconciler; credential and
// malformed-response failures are terminal and become FAILED.
func OutcomeFromGateway(ack *zra.InvoiceAck, err error) SyncOutcome {
	if ack != nil {
		invoiceID := ack.InvoiceID
		log := ack.RawResponse
		return SyncOutcome{
			Status:       enums.SyncStatusSynced,
			ZRAInvoiceID: &invoiceID,
			ResponseLog:  &log,
		}
	}

	status := enums.SyncStatusFailed
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeDependency {
		status = enums.SyncStatusPending
	}

	var log *string
	if err != nil {
		msg := err.Error()
		log = &msg
	}
	return SyncOutcome{Status: status, ResponseLog: log}
}
