package donation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"github.com/ManuelReschke/DonationDesk/app/repository"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/accounting"
)

// InvoiceOptions controls what GenerateInvoice writes.
type InvoiceOptions struct {
	// Persist stores the invoice reference on the donation.
	Persist bool
	// WithSettlement also books a payment entry against the invoice.
	WithSettlement bool
}

// InvoiceIssuer creates accounting invoices for paid donations.
type InvoiceIssuer struct {
	donations  repository.DonationRepository
	donors     repository.DonorRepository
	donorTypes repository.DonorTypeRepository
	accounting accounting.Service
	now        func() time.Time
}

func NewInvoiceIssuer(
	donations repository.DonationRepository,
	donors repository.DonorRepository,
	donorTypes repository.DonorTypeRepository,
	acct accounting.Service,
) *InvoiceIssuer {
	return &InvoiceIssuer{
		donations:  donations,
		donors:     donors,
		donorTypes: donorTypes,
		accounting: acct,
		now:        time.Now,
	}
}

// GenerateInvoice invoices a donation exactly once. When the settlement
// fails after the invoice was created, the invoice is returned together with
// the error and, if persisted, stays attached to the donation.
func (i *InvoiceIssuer) GenerateInvoice(ctx context.Context, settings *models.NonProfitSettings, donationID uint, opts InvoiceOptions) (*accounting.Invoice, error) {
	d, err := i.loadDonation(donationID)
	if err != nil {
		return nil, err
	}

	if !d.IsInvoiceable() {
		return nil, newError(KindNotPaid, "The payment for donation %s is not paid. To generate invoice fill the payment details", d.Name())
	}
	if d.Invoice != "" {
		return nil, newError(KindAlreadyInvoiced, "An invoice is already linked to donation %s", d.Name())
	}

	donor, err := i.donors.GetByID(d.DonorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(KindMissingDonor, "Donor %d of donation %s does not exist", d.DonorID, d.Name())
		}
		return nil, fmt.Errorf("load donor %d: %w", d.DonorID, err)
	}
	if !donor.HasCustomer() {
		return nil, newError(KindNoCustomerLinked, "No customer linked to donor %s", donor.DonorName)
	}

	if settings == nil || strings.TrimSpace(settings.DonationDebitAccount) == "" {
		return nil, newError(KindMissingSettings, "You need to set Donor Debit Account in Non Profit Settings")
	}
	if strings.TrimSpace(settings.Company) == "" {
		return nil, newError(KindMissingSettings, "You need to set Default Company for invoicing in Non Profit Settings")
	}

	typeName := d.DonorType
	if typeName == "" {
		typeName = donor.DonorType
	}
	donorType, err := i.donorTypes.GetByName(typeName)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load donor type %q: %w", typeName, err)
	}
	if donorType == nil || strings.TrimSpace(donorType.LinkedItem) == "" {
		return nil, newError(KindMissingLinkedItem, "Please set a Linked Item for the Donor Type %q", typeName)
	}

	if opts.WithSettlement && strings.TrimSpace(settings.DonationPaymentAccount) == "" {
		return nil, newError(KindMissingPaymentAccount, "You need to set Payment Account for Donation in Non Profit Settings")
	}

	invoice, err := i.accounting.CreateInvoice(ctx, accounting.InvoiceRequest{
		Customer: donor.Customer,
		DebitTo:  settings.DonationDebitAccount,
		Currency: d.Currency,
		Company:  settings.Company,
		Items: []accounting.InvoiceItem{{
			ItemCode: donorType.LinkedItem,
			Qty:      decimal.NewFromInt(1),
			Rate:     d.Amount,
		}},
		IdempotencyKey: "donation-invoice-" + d.Name(),
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice for %s: %w", d.Name(), err)
	}
	log.Infof("[InvoiceIssuer] created invoice %s for %s", invoice.Name, d.Name())

	// Reload before attaching so concurrent updates are not overwritten.
	d, err = i.loadDonation(donationID)
	if err != nil {
		return invoice, err
	}
	if !d.AttachInvoice(invoice.Name) {
		log.Warnf("[InvoiceIssuer] %s was invoiced concurrently, invoice %s is orphaned", d.Name(), invoice.Name)
		return invoice, newError(KindAlreadyInvoiced, "An invoice is already linked to donation %s", d.Name())
	}
	if opts.Persist {
		attached, err := i.donations.AttachInvoice(d.ID, invoice.Name)
		if err != nil {
			return invoice, fmt.Errorf("attach invoice %s to %s: %w", invoice.Name, d.Name(), err)
		}
		if !attached {
			log.Warnf("[InvoiceIssuer] %s was invoiced concurrently, invoice %s is orphaned", d.Name(), invoice.Name)
			return invoice, newError(KindAlreadyInvoiced, "An invoice is already linked to donation %s", d.Name())
		}
	}

	if opts.WithSettlement {
		if err := i.settle(ctx, settings, d, invoice, opts.Persist); err != nil {
			return invoice, fmt.Errorf("%w: %w", ErrSettlementFailed, err)
		}
	}
	return invoice, nil
}

func (i *InvoiceIssuer) settle(ctx context.Context, settings *models.NonProfitSettings, d *models.Donation, invoice *accounting.Invoice, persist bool) error {
	amount := invoice.GrandTotal
	if !amount.IsPositive() {
		amount = d.Amount
	}
	today := accounting.FormatDate(i.now())

	settlement, err := i.accounting.CreatePaymentSettlement(accounting.WithElevatedPermissions(ctx), accounting.SettlementRequest{
		ReferenceDoctype: accounting.DoctypeSalesInvoice,
		ReferenceName:    invoice.Name,
		Amount:           amount,
		PaidTo:           settings.DonationPaymentAccount,
		PostingDate:      today,
		ReferenceNo:      d.Name(),
		ReferenceDate:    today,
		IgnoreMandatory:  true,
		IdempotencyKey:   "donation-settlement-" + d.Name(),
	})
	if err != nil {
		return fmt.Errorf("create payment entry for invoice %s: %w", invoice.Name, err)
	}
	log.Infof("[InvoiceIssuer] created payment entry %s for invoice %s", settlement.Name, invoice.Name)

	d.AttachPaymentEntry(settlement.Name)
	if persist {
		if err := i.donations.AttachPaymentEntry(d.ID, settlement.Name); err != nil {
			return fmt.Errorf("attach payment entry %s to %s: %w", settlement.Name, d.Name(), err)
		}
	}
	return nil
}

func (i *InvoiceIssuer) loadDonation(id uint) (*models.Donation, error) {
	d, err := i.donations.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("donation %d: %w", id, err)
		}
		return nil, fmt.Errorf("load donation %d: %w", id, err)
	}
	return d, nil
}
