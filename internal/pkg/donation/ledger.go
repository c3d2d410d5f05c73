package donation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"github.com/ManuelReschke/DonationDesk/app/repository"
)

// User types of a submitter.
const (
	UserTypeWebsite = "Website User"
	UserTypeSystem  = "System User"
)

// Payment statuses that mark a donation as paid.
const (
	PaymentStatusCompleted  = "Completed"
	PaymentStatusAuthorized = "Authorized"
)

// Submitter identifies who submits a donation.
type Submitter struct {
	Email    string
	FullName string
	UserType string
	IsAdmin  bool
}

// SystemSubmitter is used for donations created by integrations.
var SystemSubmitter = Submitter{UserType: UserTypeSystem, IsAdmin: true}

// CanAutoProvisionDonor reports whether a missing donor may be created from
// the submitter's own identity.
func (s Submitter) CanAutoProvisionDonor() bool {
	return s.UserType == UserTypeWebsite && !s.IsAdmin && strings.TrimSpace(s.Email) != ""
}

// Ledger drives the donation lifecycle: submission, payment authorization
// and the automated invoicing that follows it.
type Ledger struct {
	donations repository.DonationRepository
	donors    repository.DonorRepository
	directory *DonorDirectory
	issuer    *InvoiceIssuer
	now       func() time.Time
}

func NewLedger(
	donations repository.DonationRepository,
	donors repository.DonorRepository,
	directory *DonorDirectory,
	issuer *InvoiceIssuer,
) *Ledger {
	return &Ledger{
		donations: donations,
		donors:    donors,
		directory: directory,
		issuer:    issuer,
		now:       time.Now,
	}
}

// State reports where a donation is in its lifecycle.
func (l *Ledger) State(d *models.Donation) models.DonationState {
	return d.State()
}

// Submit validates a draft donation, resolves its donor and stores it as
// submitted.
func (l *Ledger) Submit(ctx context.Context, settings *models.NonProfitSettings, d *models.Donation, submitter Submitter) error {
	if d.ID != 0 || d.DocStatus != models.DocStatusDraft {
		return newError(KindInvalidDonation, "donation %s is already submitted", d.Name())
	}

	donor, err := l.resolveDonor(ctx, settings, d, submitter)
	if err != nil {
		return err
	}
	d.DonorID = donor.ID
	if d.DonorName == "" {
		d.DonorName = donor.DonorName
	}
	if d.Email == "" {
		d.Email = donor.Email
	}
	if d.DonorType == "" {
		d.DonorType = donor.DonorType
	}
	if settings != nil {
		if d.Company == "" {
			d.Company = settings.DonationCompanyOrDefault()
		}
		if d.Currency == "" {
			d.Currency = settings.DefaultCurrency
		}
	}
	if d.Date.IsZero() {
		d.Date = l.now()
	}
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))

	if err := d.Validate(); err != nil {
		return wrapError(KindInvalidDonation, "invalid donation", err)
	}

	d.Submit()
	if err := l.donations.Create(d); err != nil {
		d.DocStatus = models.DocStatusDraft
		return fmt.Errorf("store donation: %w", err)
	}
	log.Infof("[DonationLedger] submitted %s for donor %d (paid=%t)", d.Name(), d.DonorID, d.Paid)
	return nil
}

func (l *Ledger) resolveDonor(ctx context.Context, settings *models.NonProfitSettings, d *models.Donation, submitter Submitter) (*models.Donor, error) {
	if d.DonorID != 0 {
		donor, err := l.donors.GetByID(d.DonorID)
		if err == nil {
			return donor, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load donor %d: %w", d.DonorID, err)
		}
	}

	if !submitter.CanAutoProvisionDonor() {
		return nil, ErrMissingDonor
	}
	donorType := d.DonorType
	if donorType == "" && settings != nil {
		donorType = settings.DefaultDonorType
	}
	return l.directory.CreateForWebsiteUser(ctx, donorType, submitter.Email, submitter.FullName)
}

// OnPaymentAuthorized handles a payment status callback. Statuses other than
// Completed and Authorized are ignored and yield a nil donation. Paid never
// reverts; automated invoicing runs when the settings enable it and the
// donation has no invoice yet.
func (l *Ledger) OnPaymentAuthorized(ctx context.Context, settings *models.NonProfitSettings, donationID uint, status string) (*models.Donation, error) {
	switch strings.TrimSpace(status) {
	case PaymentStatusCompleted, PaymentStatusAuthorized:
	default:
		log.Debugf("[DonationLedger] ignoring payment status %q for donation %d", status, donationID)
		return nil, nil
	}

	d, err := l.donations.GetByID(donationID)
	if err != nil {
		return nil, fmt.Errorf("load donation %d: %w", donationID, err)
	}
	if d.MarkPaid() {
		if err := l.donations.SetPaid(d.ID); err != nil {
			return nil, fmt.Errorf("mark %s paid: %w", d.Name(), err)
		}
		log.Infof("[DonationLedger] %s marked paid", d.Name())
	}

	if settings != nil && settings.AutoInvoicing() && d.Invoice == "" {
		if _, err := l.issuer.GenerateInvoice(ctx, settings, d.ID, InvoiceOptions{
			Persist:        true,
			WithSettlement: settings.AutomateDonationPaymentEntries,
		}); err != nil {
			return d, err
		}
		return l.donations.GetByID(d.ID)
	}
	return d, nil
}

// CreatePaymentEntry runs after a paid donation was submitted. With
// automated invoicing enabled it issues the invoice and, if configured, the
// payment entry. Donors without a customer are left for an operator to link
// and invoice later.
func (l *Ledger) CreatePaymentEntry(ctx context.Context, settings *models.NonProfitSettings, d *models.Donation) error {
	if settings == nil || !settings.AutoInvoicing() || !d.Paid || d.Invoice != "" {
		return nil
	}
	donor, err := l.donors.GetByID(d.DonorID)
	if err != nil {
		return fmt.Errorf("load donor %d: %w", d.DonorID, err)
	}
	if !donor.HasCustomer() {
		log.Infof("[DonationLedger] %s not invoiced automatically: donor %d has no customer", d.Name(), donor.ID)
		return nil
	}

	invoice, err := l.issuer.GenerateInvoice(ctx, settings, d.ID, InvoiceOptions{
		Persist:        true,
		WithSettlement: settings.AutomateDonationPaymentEntries,
	})
	if invoice != nil {
		d.Invoice = invoice.Name
	}
	return err
}
