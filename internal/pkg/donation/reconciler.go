package donation

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"github.com/ManuelReschke/DonationDesk/app/repository"
)

// Webhook result statuses.
const (
	StatusSuccess = "Success"
	StatusFailed  = "Failed"
)

// EndpointDonation is the endpoint name whose secret signs donation webhooks.
const EndpointDonation = "Donation"

// Result is returned to the gateway for every delivery.
type Result struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Notifier delivers operator notifications.
type Notifier interface {
	NotifyOperators(ctx context.Context, subject, body string) error
}

// WebhookReconciler turns captured gateway payments into paid donations.
type WebhookReconciler struct {
	verifier      *SignatureVerifier
	directory     *DonorDirectory
	ledger        *Ledger
	repos         *repository.Repositories
	notifier      Notifier
	endpoint      string
	provider      string
	publicBaseURL string
	outcomes      OutcomeRecorder
}

// Outcome labels a handled delivery for the outcome counters.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// OutcomeRecorder counts handled deliveries.
type OutcomeRecorder interface {
	Add(ctx context.Context, outcome string) error
}

// Handle processes one webhook delivery. It never returns an error: all
// failures are recorded, reported to operators and turned into a Failed
// result.
func (r *WebhookReconciler) Handle(ctx context.Context, rawBody []byte, signatureHeader string) Result {
	result, outcome := r.handle(ctx, rawBody, signatureHeader)
	if r.outcomes != nil {
		if err := r.outcomes.Add(ctx, string(outcome)); err != nil {
			log.Warnf("[DonationWebhook] failed to count outcome %s: %v", outcome, err)
		}
	}
	return result
}

func (r *WebhookReconciler) handle(ctx context.Context, rawBody []byte, signatureHeader string) (Result, Outcome) {
	if err := r.verifier.Verify(rawBody, signatureHeader, r.endpoint); err != nil {
		log.Warnf("[DonationWebhook] signature verification failed: %v", err)
		r.reportFailure(ctx, "Donation Webhook Verification Error", err.Error(), "")
		return Result{Status: StatusFailed, Reason: err.Error()}, OutcomeRejected
	}

	payload, err := ParseWebhookPayload(rawBody)
	if err != nil {
		return r.fail(ctx, nil, PaymentEntity{}, err), OutcomeFailed
	}
	payment := payload.Payment()

	if payload.Event != EventPaymentCaptured {
		log.Debugf("[DonationWebhook] ignoring event %s", payload.Event)
		return Result{Status: StatusSuccess}, OutcomeIgnored
	}
	if payment.IsRecurring() {
		log.Infof("[DonationWebhook] ignoring subscription payment %s", payment.ID)
		return Result{Status: StatusSuccess}, OutcomeIgnored
	}
	if strings.TrimSpace(payment.ID) == "" {
		return r.fail(ctx, nil, payment, newError(KindInvalidPayload, "captured payment has no id")), OutcomeFailed
	}

	event, claimed, err := r.claim(payment.ID, payload.Event, rawBody)
	if err != nil {
		return r.fail(ctx, nil, payment, err), OutcomeFailed
	}
	if !claimed {
		log.Infof("[DonationWebhook] %v: payment %s", ErrDuplicateIgnored, payment.ID)
		return Result{Status: StatusSuccess}, OutcomeDuplicate
	}

	donor, d, err := r.process(ctx, payment)

	var donationID *uint
	if d != nil && d.ID != 0 {
		donationID = &d.ID
	}
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	if markErr := r.repos.WebhookEvent.MarkProcessed(event.ID, donationID, errMsg); markErr != nil {
		log.Errorf("[DonationWebhook] failed to mark event %d processed: %v", event.ID, markErr)
	}

	if err != nil {
		return r.fail(ctx, donor, payment, err), OutcomeFailed
	}
	return Result{Status: StatusSuccess}, OutcomeProcessed
}

// claim records the payment in the idempotency table. It reports false when
// the payment was already processed or is being processed by another
// delivery. Payments whose earlier processing failed are claimed again.
func (r *WebhookReconciler) claim(paymentID, eventType string, rawBody []byte) (*models.DonationWebhookEvent, bool, error) {
	created, event, err := r.repos.WebhookEvent.CreateIfNotExists(&models.DonationWebhookEvent{
		Provider:       r.provider,
		PaymentID:      paymentID,
		EventType:      eventType,
		PayloadJSON:    string(rawBody),
		SignatureValid: true,
	})
	if err != nil {
		return nil, false, fmt.Errorf("record webhook event: %w", err)
	}
	if created {
		return event, true, nil
	}
	if event.ProcessingError == "" {
		return event, false, nil
	}
	reclaimed, err := r.repos.WebhookEvent.Reclaim(event.ID)
	if err != nil {
		return nil, false, fmt.Errorf("reclaim webhook event %d: %w", event.ID, err)
	}
	return event, reclaimed, nil
}

func (r *WebhookReconciler) process(ctx context.Context, payment PaymentEntity) (*models.Donor, *models.Donation, error) {
	settings, err := r.repos.Setting.GetNonProfitSettings()
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}

	donor, err := r.directory.FindOrCreate(ctx, settings, payment)
	if err != nil {
		return nil, nil, err
	}

	method := strings.TrimSpace(payment.Method)
	if err := r.ensureModeOfPayment(method); err != nil {
		return donor, nil, err
	}

	// A failed earlier attempt may already have stored the donation.
	d, err := r.repos.Donation.GetByPaymentID(payment.ID)
	if err != nil {
		return donor, nil, fmt.Errorf("lookup donation by payment id: %w", err)
	}
	if d == nil {
		paymentID := payment.ID
		d = &models.Donation{
			DonorID:       donor.ID,
			DonorName:     donor.DonorName,
			Email:         donor.Email,
			DonorType:     donor.DonorType,
			Amount:        payment.MajorAmount(),
			Currency:      payment.Currency,
			ModeOfPayment: method,
			PaymentID:     &paymentID,
			Paid:          true,
		}
		if err := r.ledger.Submit(ctx, settings, d, SystemSubmitter); err != nil {
			return donor, nil, err
		}
	}

	if err := r.ledger.CreatePaymentEntry(ctx, settings, d); err != nil {
		return donor, d, err
	}
	return donor, d, nil
}

func (r *WebhookReconciler) ensureModeOfPayment(method string) error {
	if method == "" {
		return nil
	}
	exists, err := r.repos.ModeOfPayment.Exists(method)
	if err != nil {
		return fmt.Errorf("lookup mode of payment %q: %w", method, err)
	}
	if exists {
		return nil
	}
	if err := r.repos.ModeOfPayment.Create(&models.ModeOfPayment{
		Name: method,
		Type: models.ModeOfPaymentTypeGeneral,
	}); err != nil {
		return fmt.Errorf("create mode of payment %q: %w", method, err)
	}
	return nil
}

func (r *WebhookReconciler) fail(ctx context.Context, donor *models.Donor, payment PaymentEntity, err error) Result {
	if _, ok := KindOf(err); !ok {
		err = wrapError(KindUnclassifiedWebhookFailure, "webhook processing failed", err)
	}

	who := strings.TrimSpace(payment.Email)
	if donor != nil {
		who = donor.DonorName
	}
	title := "Error creating donation entry"
	if who != "" {
		title = fmt.Sprintf("Error creating donation entry for %s", who)
	}
	message := fmt.Sprintf("%v\n\nPayment ID: %s", err, payment.ID)
	log.Errorf("[DonationWebhook] %s: %v (payment %s)", title, err, payment.ID)

	r.reportFailure(ctx, title, message, payment.ID)

	return Result{Status: StatusFailed, Reason: err.Error()}
}

// reportFailure stores a diagnostic record and notifies operators. Errors
// here are logged only, they never replace the original failure.
func (r *WebhookReconciler) reportFailure(ctx context.Context, title, message, reference string) {
	entry := &models.ErrorLog{
		Title:     title,
		Message:   message,
		Reference: reference,
	}
	if err := r.repos.ErrorLog.Create(entry); err != nil {
		log.Errorf("[DonationWebhook] failed to write error log: %v", err)
		return
	}
	if r.notifier == nil {
		return
	}

	body := fmt.Sprintf("Dear System Manager,\n\n"+
		"The payment gateway webhook for creating donations failed.\n"+
		"Please check the error log linked below.\n\n"+
		"Error Log: %s\n\nRegards, Administrator\n", r.errorLogLink(entry.ID))
	if err := r.notifier.NotifyOperators(ctx, "[Important] Donation webhook failed, please check.", body); err != nil {
		log.Warnf("[DonationWebhook] failed to notify operators: %v", err)
	}
}

func (r *WebhookReconciler) errorLogLink(id uint) string {
	return fmt.Sprintf("%s/api/v1/admin/error-logs/%d", strings.TrimRight(r.publicBaseURL, "/"), id)
}
