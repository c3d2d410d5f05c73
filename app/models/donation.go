package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	DocStatusDraft     = 0
	DocStatusSubmitted = 1
)

// DonationState is derived from the stored fields, never persisted.
type DonationState string

const (
	DonationStateDraft     DonationState = "draft"
	DonationStateSubmitted DonationState = "submitted"
	DonationStatePaid      DonationState = "paid"
	DonationStateInvoiced  DonationState = "invoiced"
	DonationStateSettled   DonationState = "settled"
)

// Donation is one giving event. PaymentID is nullable so that the unique
// index only applies to gateway sourced donations.
type Donation struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	DonorID       uint            `gorm:"index" json:"donor"`
	DonorName     string          `gorm:"type:varchar(200);default:''" json:"donor_name"`
	Email         string          `gorm:"type:varchar(200);default:''" json:"email" validate:"omitempty,email"`
	DonorType     string          `gorm:"type:varchar(140);default:''" json:"donor_type"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Currency      string          `gorm:"type:varchar(3);default:''" json:"currency" validate:"omitempty,len=3"`
	Date          time.Time       `gorm:"type:date" json:"date"`
	ModeOfPayment string          `gorm:"type:varchar(140);default:''" json:"mode_of_payment"`
	PaymentID     *string         `gorm:"type:varchar(100);uniqueIndex:ux_donations_payment_id" json:"payment_id,omitempty"`
	Paid          bool            `gorm:"default:false;index" json:"paid"`
	Invoice       string          `gorm:"type:varchar(140);default:''" json:"invoice"`
	PaymentEntry  string          `gorm:"type:varchar(140);default:''" json:"payment_entry"`
	Company       string          `gorm:"type:varchar(140);default:''" json:"company"`
	DocStatus     int             `gorm:"default:0" json:"docstatus"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Name is the human readable document identifier used as the external
// reference on settlements.
func (d *Donation) Name() string {
	return fmt.Sprintf("DON-%05d", d.ID)
}

// GatewayPaymentID returns the payment id or an empty string.
func (d *Donation) GatewayPaymentID() string {
	if d.PaymentID == nil {
		return ""
	}
	return *d.PaymentID
}

// Validate checks the struct tags and that the amount is positive.
func (d *Donation) Validate() error {
	if !d.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", d.Amount.String())
	}
	v := validator.New()
	return v.Struct(d)
}

// State derives the lifecycle state from the stored fields.
func (d *Donation) State() DonationState {
	switch {
	case d.PaymentEntry != "":
		return DonationStateSettled
	case d.Invoice != "":
		return DonationStateInvoiced
	case d.Paid:
		return DonationStatePaid
	case d.DocStatus == DocStatusSubmitted:
		return DonationStateSubmitted
	default:
		return DonationStateDraft
	}
}

// IsInvoiceable reports whether the payment details needed for an invoice
// are all present.
func (d *Donation) IsInvoiceable() bool {
	return d.Paid && strings.TrimSpace(d.Currency) != "" && d.Amount.IsPositive()
}

// Submit moves a draft into the submitted state.
func (d *Donation) Submit() {
	d.DocStatus = DocStatusSubmitted
}

// MarkPaid sets paid. It reports false when the donation was already paid;
// paid never reverts.
func (d *Donation) MarkPaid() bool {
	if d.Paid {
		return false
	}
	d.Paid = true
	return true
}

// AttachInvoice records the invoice reference. It reports false when an
// invoice is already attached.
func (d *Donation) AttachInvoice(ref string) bool {
	if d.Invoice != "" {
		return false
	}
	d.Invoice = ref
	return true
}

// AttachPaymentEntry records the settlement reference.
func (d *Donation) AttachPaymentEntry(ref string) bool {
	if d.PaymentEntry != "" || d.Invoice == "" {
		return false
	}
	d.PaymentEntry = ref
	return true
}
