package accounting

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reference document types understood by the accounting service.
const (
	DoctypeSalesInvoice = "Sales Invoice"
	DoctypeCustomer     = "Customer"
	DoctypeDonor        = "Donor"

	CustomerTypeIndividual = "Individual"
)

// InvoiceItem is one line of an invoice.
type InvoiceItem struct {
	ItemCode string          `json:"item_code"`
	Qty      decimal.Decimal `json:"qty"`
	Rate     decimal.Decimal `json:"rate"`
}

// InvoiceRequest describes a sales invoice to create and submit.
type InvoiceRequest struct {
	Customer string        `json:"customer"`
	DebitTo  string        `json:"debit_to"`
	Currency string        `json:"currency"`
	Company  string        `json:"company"`
	IsPOS    bool          `json:"is_pos"`
	Items    []InvoiceItem `json:"items"`

	// IdempotencyKey is sent as a header, not as part of the document.
	IdempotencyKey string `json:"-"`
}

// Invoice is a submitted invoice as returned by the accounting service.
type Invoice struct {
	Name       string          `json:"name"`
	Customer   string          `json:"customer"`
	Currency   string          `json:"currency"`
	Company    string          `json:"company"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	DocStatus  int             `json:"docstatus"`
}

// SettlementRequest describes a payment entry against an invoice.
type SettlementRequest struct {
	ReferenceDoctype string          `json:"reference_doctype"`
	ReferenceName    string          `json:"reference_name"`
	Amount           decimal.Decimal `json:"paid_amount"`
	PaidTo           string          `json:"paid_to"`
	PostingDate      string          `json:"posting_date"`
	ReferenceNo      string          `json:"reference_no"`
	ReferenceDate    string          `json:"reference_date"`

	IgnoreMandatory bool   `json:"-"`
	IdempotencyKey  string `json:"-"`
}

// Settlement is a submitted payment entry.
type Settlement struct {
	Name          string          `json:"name"`
	ReferenceName string          `json:"reference_name"`
	Amount        decimal.Decimal `json:"paid_amount"`
	PaidTo        string          `json:"paid_to"`
}

// CustomerRequest describes a customer to create.
type CustomerRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerType  string `json:"customer_type"`
	CustomerGroup string `json:"customer_group,omitempty"`
	Territory     string `json:"territory,omitempty"`

	IgnoreMandatory bool `json:"-"`
}

// Customer is a created customer record.
type Customer struct {
	Name         string `json:"name"`
	CustomerName string `json:"customer_name"`
}

// ContactLink ties a contact to another document.
type ContactLink struct {
	LinkDoctype string `json:"link_doctype"`
	LinkName    string `json:"link_name"`
}

// ContactRequest describes a contact with one primary phone and email.
type ContactRequest struct {
	FirstName string        `json:"first_name"`
	Phone     string        `json:"phone,omitempty"`
	Email     string        `json:"email_id,omitempty"`
	Links     []ContactLink `json:"links"`
}

// Contact is a created contact record.
type Contact struct {
	Name string `json:"name"`
}

// FormatDate renders a date the way the accounting service expects it.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
