package donation

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"github.com/ManuelReschke/DonationDesk/app/repository"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/accounting"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/jobqueue"
)

// Config holds the non-domain settings of the donation service.
type Config struct {
	// Endpoint selects the webhook secret, see EnvSecretResolver.
	Endpoint string
	// Provider is stored with every webhook event.
	Provider string
	// PublicBaseURL prefixes links in operator notifications.
	PublicBaseURL string
	Secrets       SecretResolver
	// Outcomes counts handled webhook deliveries when set.
	Outcomes OutcomeRecorder
}

// Service bundles the donation workflow components over one set of
// repositories.
type Service struct {
	Directory  *DonorDirectory
	Issuer     *InvoiceIssuer
	Ledger     *Ledger
	Linker     *CustomerLinker
	Reconciler *WebhookReconciler

	repos *repository.Repositories
}

func NewService(repos *repository.Repositories, acct accounting.Service, notifier Notifier, cfg Config) *Service {
	if cfg.Endpoint == "" {
		cfg.Endpoint = EndpointDonation
	}
	if cfg.Provider == "" {
		cfg.Provider = models.PaymentProviderRazorpay
	}

	directory := NewDonorDirectory(repos.Donor, repos.Comment)
	issuer := NewInvoiceIssuer(repos.Donation, repos.Donor, repos.DonorType, acct)
	ledger := NewLedger(repos.Donation, repos.Donor, directory, issuer)

	return &Service{
		Directory: directory,
		Issuer:    issuer,
		Ledger:    ledger,
		Linker:    NewCustomerLinker(repos.Donor, repos.ErrorLog, acct),
		Reconciler: &WebhookReconciler{
			verifier:      NewSignatureVerifier(cfg.Secrets),
			directory:     directory,
			ledger:        ledger,
			repos:         repos,
			notifier:      notifier,
			endpoint:      cfg.Endpoint,
			provider:      strings.ToLower(cfg.Provider),
			publicBaseURL: cfg.PublicBaseURL,
			outcomes:      cfg.Outcomes,
		},
		repos: repos,
	}
}

// Settings loads a fresh settings snapshot.
func (s *Service) Settings() (*models.NonProfitSettings, error) {
	settings, err := s.repos.Setting.GetNonProfitSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// HandleWebhook processes one gateway delivery.
func (s *Service) HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) Result {
	return s.Reconciler.Handle(ctx, rawBody, signatureHeader)
}

// SubmitDonation submits a donation from a form and runs the post submission
// hook for donations that arrive already paid.
func (s *Service) SubmitDonation(ctx context.Context, d *models.Donation, submitter Submitter) error {
	settings, err := s.Settings()
	if err != nil {
		return err
	}
	if err := s.Ledger.Submit(ctx, settings, d, submitter); err != nil {
		return err
	}
	return s.Ledger.CreatePaymentEntry(ctx, settings, d)
}

// AuthorizePayment applies a payment status callback.
func (s *Service) AuthorizePayment(ctx context.Context, donationID uint, status string) (*models.Donation, error) {
	settings, err := s.Settings()
	if err != nil {
		return nil, err
	}
	return s.Ledger.OnPaymentAuthorized(ctx, settings, donationID, status)
}

// GenerateInvoice invoices a donation on operator request.
func (s *Service) GenerateInvoice(ctx context.Context, donationID uint, opts InvoiceOptions) (*accounting.Invoice, error) {
	settings, err := s.Settings()
	if err != nil {
		return nil, err
	}
	return s.Issuer.GenerateInvoice(ctx, settings, donationID, opts)
}

// LinkCustomer links a donor to a new accounting customer.
func (s *Service) LinkCustomer(ctx context.Context, donorID uint) (LinkResult, error) {
	settings, err := s.Settings()
	if err != nil {
		return LinkResult{}, err
	}
	return s.Linker.LinkCustomer(ctx, settings, donorID)
}

// InvoiceJobHandler processes donation_invoice jobs. Undecodable payloads
// and validation failures are final and are not retried.
func (s *Service) InvoiceJobHandler() jobqueue.Handler {
	return func(ctx context.Context, job *jobqueue.Job) error {
		payload, err := jobqueue.DonationInvoiceJobPayloadFromMap(job.Payload)
		if err != nil {
			log.Errorf("[DonationInvoiceJob] Dropping job %s: %v", job.ID, err)
			return nil
		}
		inv, err := s.GenerateInvoice(ctx, payload.DonationID, InvoiceOptions{
			Persist:        true,
			WithSettlement: payload.WithSettlement,
		})
		if err != nil {
			if IsValidation(err) {
				log.Warnf("[DonationInvoiceJob] Donation %d not invoiced: %v", payload.DonationID, err)
				return nil
			}
			return err
		}
		log.Infof("[DonationInvoiceJob] Donation %d invoiced as %s", payload.DonationID, inv.Name)
		return nil
	}
}
