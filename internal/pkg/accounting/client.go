package accounting

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

	"github.com/google/uuid"

	"github.com/ManuelReschke/DonationDesk/internal/pkg/env"
)

// ErrDuplicateEntry is returned when the accounting service reports that the
// document already exists.
var ErrDuplicateEntry = errors.New("accounting: duplicate entry")

// Service is the external accounting collaborator. Every create call submits
// the document on creation.
type Service interface {
	CreateInvoice(ctx context.Context, in InvoiceRequest) (*Invoice, error)
	CreatePaymentSettlement(ctx context.Context, in SettlementRequest) (*Settlement, error)
	CreateCustomer(ctx context.Context, in CustomerRequest) (*Customer, error)
	CreateContact(ctx context.Context, in ContactRequest) (*Contact, error)
}

// APIError carries a non-success response of the accounting service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("accounting request failed: status=%d body=%s", e.StatusCode, e.Body)
}

type Client struct {
	BaseURL   string
	APIKey    string
	APISecret string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from ACCOUNTING_* variables.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL:   strings.TrimRight(strings.TrimSpace(env.GetEnv("ACCOUNTING_BASE_URL", "")), "/"),
		APIKey:    strings.TrimSpace(env.GetEnv("ACCOUNTING_API_KEY", "")),
		APISecret: strings.TrimSpace(env.GetEnv("ACCOUNTING_API_SECRET", "")),
		HTTPClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type requestFlags struct {
	IgnoreAccountPermission bool `json:"ignore_account_permission,omitempty"`
	IgnoreMandatory         bool `json:"ignore_mandatory,omitempty"`
}

type createRequest struct {
	Doc    interface{}  `json:"doc"`
	Submit bool         `json:"submit"`
	Flags  requestFlags `json:"flags"`
}

type createResponse struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) CreateInvoice(ctx context.Context, in InvoiceRequest) (*Invoice, error) {
	if len(in.Items) == 0 {
		return nil, errors.New("invoice requires at least one item")
	}
	var out Invoice
	err := c.create(ctx, "/invoices", in.IdempotencyKey, createRequest{
		Doc:    in,
		Submit: true,
		Flags:  requestFlags{IgnoreAccountPermission: IsElevated(ctx)},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePaymentSettlement(ctx context.Context, in SettlementRequest) (*Settlement, error) {
	if strings.TrimSpace(in.ReferenceName) == "" {
		return nil, errors.New("settlement requires an invoice reference")
	}
	if in.ReferenceDoctype == "" {
		in.ReferenceDoctype = DoctypeSalesInvoice
	}
	var out Settlement
	err := c.create(ctx, "/payment-settlements", in.IdempotencyKey, createRequest{
		Doc:    in,
		Submit: true,
		Flags: requestFlags{
			IgnoreAccountPermission: IsElevated(ctx),
			IgnoreMandatory:         in.IgnoreMandatory,
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCustomer(ctx context.Context, in CustomerRequest) (*Customer, error) {
	if strings.TrimSpace(in.CustomerName) == "" {
		return nil, errors.New("customer name is required")
	}
	var out Customer
	err := c.create(ctx, "/customers", "", createRequest{
		Doc: in,
		Flags: requestFlags{
			IgnoreAccountPermission: IsElevated(ctx),
			IgnoreMandatory:         in.IgnoreMandatory,
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateContact(ctx context.Context, in ContactRequest) (*Contact, error) {
	var out Contact
	err := c.create(ctx, "/contacts", "", createRequest{
		Doc:   in,
		Flags: requestFlags{IgnoreAccountPermission: IsElevated(ctx)},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) create(ctx context.Context, path, idempotencyKey string, payload createRequest, out interface{}) error {
	if c.BaseURL == "" {
		return errors.New("ACCOUNTING_BASE_URL is not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.APIKey, c.APISecret))
	}
	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, strings.TrimSpace(string(respBody)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var envelope createResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decode accounting response: %w", err)
	}
	if len(envelope.Data) == 0 {
		return errors.New("accounting response missing data")
	}
	return json.Unmarshal(envelope.Data, out)
}
