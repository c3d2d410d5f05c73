package models

import "time"

// Payment gateway providers.
const (
	PaymentProviderRazorpay = "razorpay"
)

// DonationWebhookEvent records each captured payment delivered by a gateway.
// The (provider, payment_id) pair is unique so that redelivered webhooks are
// claimed only once.
type DonationWebhookEvent struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index:ux_donation_webhook_events_provider_payment,unique,priority:1" json:"provider"`
	PaymentID       string     `gorm:"type:varchar(100);not null;index:ux_donation_webhook_events_provider_payment,unique,priority:2" json:"payment_id"`
	EventType       string     `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string     `gorm:"type:longtext;not null" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false" json:"signature_valid"`
	DonationID      *uint      `gorm:"default:null" json:"donation_id,omitempty"`
	ProcessedAt     *time.Time `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Succeeded reports whether the event was processed without error.
func (e *DonationWebhookEvent) Succeeded() bool {
	return e.ProcessedAt != nil && e.ProcessingError == ""
}
