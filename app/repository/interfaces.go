package repository

import (
	"github.com/ManuelReschke/DonationDesk/app/models"
	"gorm.io/gorm"
)

// DonorRepository defines the interface for donor-related database operations
type DonorRepository interface {
	Create(donor *models.Donor) error
	GetByID(id uint) (*models.Donor, error)
	// FindLatestByEmail returns the most recently created donor with the
	// given email, or nil when there is none.
	FindLatestByEmail(email string) (*models.Donor, error)
	Update(donor *models.Donor) error
}

// DonationRepository defines the interface for donation-related database operations
type DonationRepository interface {
	Create(donation *models.Donation) error
	GetByID(id uint) (*models.Donation, error)
	GetByPaymentID(paymentID string) (*models.Donation, error)
	Update(donation *models.Donation) error
	// SetPaid flips paid to true without touching any other column.
	SetPaid(id uint) error
	// AttachInvoice sets the invoice reference only while it is still empty.
	// It reports false when another invoice was already attached.
	AttachInvoice(id uint, invoice string) (bool, error)
	AttachPaymentEntry(id uint, paymentEntry string) error
}

// DonorTypeRepository defines the interface for donor type lookups
type DonorTypeRepository interface {
	GetByName(name string) (*models.DonorType, error)
}

// ModeOfPaymentRepository defines the interface for mode of payment operations
type ModeOfPaymentRepository interface {
	Exists(name string) (bool, error)
	Create(mode *models.ModeOfPayment) error
}

// SettingRepository defines the interface for application settings
type SettingRepository interface {
	GetNonProfitSettings() (*models.NonProfitSettings, error)
	SaveNonProfitSettings(settings *models.NonProfitSettings) error
}

// CommentRepository defines the interface for audit comments
type CommentRepository interface {
	Create(comment *models.Comment) error
	ListByReference(referenceType string, referenceID uint) ([]models.Comment, error)
}

// ErrorLogRepository defines the interface for diagnostic records
type ErrorLogRepository interface {
	Create(entry *models.ErrorLog) error
	GetByID(id uint) (*models.ErrorLog, error)
}

// WebhookEventRepository defines the interface for webhook idempotency records
type WebhookEventRepository interface {
	// CreateIfNotExists inserts the event unless (provider, payment_id) is
	// already claimed. It returns whether this call created the row and the
	// stored row.
	CreateIfNotExists(event *models.DonationWebhookEvent) (bool, *models.DonationWebhookEvent, error)
	// Reclaim clears a recorded processing error so the event can be
	// processed again. It reports false when another delivery reclaimed it first.
	Reclaim(id uint) (bool, error)
	MarkProcessed(id uint, donationID *uint, processingError string) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Donor         DonorRepository
	Donation      DonationRepository
	DonorType     DonorTypeRepository
	ModeOfPayment ModeOfPaymentRepository
	Setting       SettingRepository
	Comment       CommentRepository
	ErrorLog      ErrorLogRepository
	WebhookEvent  WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Donor:         NewDonorRepository(db),
		Donation:      NewDonationRepository(db),
		DonorType:     NewCachedDonorTypeRepository(NewDonorTypeRepository(db)),
		ModeOfPayment: NewModeOfPaymentRepository(db),
		Setting:       NewSettingRepository(db),
		Comment:       NewCommentRepository(db),
		ErrorLog:      NewErrorLogRepository(db),
		WebhookEvent:  NewWebhookEventRepository(db),
	}
}
