package zra

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

	"github.com/shopspring/decimal"

	"github.com/zedpos/zedpos-backend/pkg/config"
	pkgerrors "github.com/zedpos/zedpos-backend/pkg/errors"
	"github.com/zedpos/zedpos-backend/pkg/logger"
)

const (
	submitPath   = "/v1/invoices/submit"
	apiKeyHeader = "api-key"

	defaultTimeout = 10 * time.Second

	// maxResponseBytes caps how much of a response body is retained for the
	// diagnostic log column.
	maxResponseBytes = 64 << 10
)

var (
	errBaseURLRequired = errors.New("zra base url is required")
	errAPIKeyRequired  = errors.New("zra api key is required")
	errLoggerRequired  = errors.New("zra logger is required")
)

// InvoiceItem is one line of an invoice submission.
type InvoiceItem struct {
	ItemName string          `json:"item_name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// InvoiceSubmission is the payload accepted by the e-invoicing endpoint.
type InvoiceSubmission struct {
	TransactionID string          `json:"transaction_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Items         []InvoiceItem   `json:"items"`
}

// InvoiceAck is a successful submission acknowledgment. RawResponse keeps the
// body verbatim for the sale's diagnostic log.
type InvoiceAck struct {
	InvoiceID   string `json:"zra_invoice_id"`
	QRCodeData  string `json:"qr_code_data"`
	Status      string `json:"status"`
	RawResponse string `json:"-"`
}

// Submitter is the outbound contract the sale workflow depends on.
type Submitter interface {
	SubmitInvoice(ctx context.Context, submission InvoiceSubmission) (*InvoiceAck, error)
}

// Client talks to the ZRA e-invoicing service with centralized auth, timeout,
// logging, and error classification.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logger.Logger
}

// NewClient initializes the ZRA wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.ZRAConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     logg,
	}

	logg.Info(ctx, "zra client initialized")
	return c, nil
}

// SubmitInvoice posts the invoice to the tax authority. Failures are
// classified by code: UNAUTHORIZED is fatal, DEPENDENCY_ERROR is retryable,
// INTERNAL_ERROR marks an unusable response shape.
func (c *Client) SubmitInvoice(ctx context.Context, submission InvoiceSubmission) (*InvoiceAck, error) {
	body, err := json.Marshal(submission)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode invoice submission")
	}

	c.log(ctx, "request", "submit_invoice", map[string]any{
		"transaction_id": submission.TransactionID,
		"total_amount":   submission.TotalAmount.String(),
		"item_count":     len(submission.Items),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build invoice request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", "submit_invoice", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "zra submission failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.log(ctx, "error", "submit_invoice", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read zra response")
	}

	if resp.StatusCode != http.StatusOK {
		err := statusError(resp.StatusCode, raw)
		c.log(ctx, "error", "submit_invoice", map[string]any{
			"status": resp.StatusCode,
			"error":  err.Error(),
		})
		return nil, err
	}

	var ack InvoiceAck
	if err := json.Unmarshal(raw, &ack); err != nil {
		c.log(ctx, "error", "submit_invoice", map[string]any{"error": err.Error()})
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode zra response").
			WithDetails(map[string]any{"body": string(raw)})
	}
	if ack.InvoiceID == "" {
		err := pkgerrors.New(pkgerrors.CodeInternal, "zra response missing invoice id").
			WithDetails(map[string]any{"body": string(raw)})
		c.log(ctx, "error", "submit_invoice", map[string]any{"error": err.Error()})
		return nil, err
	}
	ack.RawResponse = string(raw)

	c.log(ctx, "response", "submit_invoice", map[string]any{
		"zra_invoice_id": ack.InvoiceID,
		"status":         ack.Status,
	})
	return &ack, nil
}

func statusError(status int, body []byte) *pkgerrors.Error {
	detail := map[string]any{"status": status, "body": string(body)}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "zra rejected credentials").WithDetails(detail)
	case status >= 500 || status == http.StatusTooManyRequests:
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("zra unavailable (%d)", status)).WithDetails(detail)
	default:
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("unexpected zra response (%d)", status)).WithDetails(detail)
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("zra %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("zra %s", phase))
	}
}
