package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/donation"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/jobqueue"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/usercontext"
)

type createDonationRequest struct {
	DonorID       uint            `json:"donor"`
	DonorType     string          `json:"donor_type" validate:"max=140"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency" validate:"omitempty,len=3"`
	ModeOfPayment string          `json:"mode_of_payment" validate:"max=140"`
	Paid          bool            `json:"paid"`
}

type paymentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type generateInvoiceRequest struct {
	Save             bool `json:"save"`
	WithPaymentEntry bool `json:"with_payment_entry"`
	Async            bool `json:"async"`
}

// DonationController exposes donation submission and its follow-up actions.
type DonationController struct {
	service DonationService
	queue   JobEnqueuer
}

func NewDonationController(service DonationService, queue JobEnqueuer) *DonationController {
	return &DonationController{service: service, queue: queue}
}

// HandleCreateDonation submits a donation from a web form.
func (dc *DonationController) HandleCreateDonation(c *fiber.Ctx) error {
	var req createDonationRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	userCtx := usercontext.GetUserContext(c)
	if req.Paid && !userCtx.IsOperator {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Only operators can record paid donations"})
	}

	d := &models.Donation{
		DonorID:       req.DonorID,
		DonorType:     strings.TrimSpace(req.DonorType),
		Amount:        req.Amount,
		Currency:      strings.TrimSpace(req.Currency),
		ModeOfPayment: strings.TrimSpace(req.ModeOfPayment),
		Paid:          req.Paid,
	}
	submitter := donation.Submitter{
		Email:    userCtx.Email,
		FullName: userCtx.FullName,
		UserType: userCtx.UserType,
		IsAdmin:  userCtx.IsAdmin,
	}
	if err := dc.service.SubmitDonation(c.UserContext(), d, submitter); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"name":     d.Name(),
		"state":    d.State(),
		"donation": d,
	})
}

// HandlePaymentStatus applies a payment status callback to a donation.
func (dc *DonationController) HandlePaymentStatus(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid donation id")
	}
	var req paymentStatusRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	d, err := dc.service.AuthorizePayment(c.UserContext(), id, req.Status)
	if d == nil && err == nil {
		return c.JSON(fiber.Map{"updated": false})
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"updated":  true,
		"state":    d.State(),
		"donation": d,
	})
}

// HandleGenerateInvoice invokes invoicing on operator request, either inline
// or through the job queue.
func (dc *DonationController) HandleGenerateInvoice(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid donation id")
	}
	var req generateInvoiceRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	if req.Async {
		job, err := dc.queue.EnqueueJob(jobqueue.JobTypeDonationInvoice, jobqueue.DonationInvoiceJobPayload{
			DonationID:     id,
			WithSettlement: req.WithPaymentEntry,
		}.ToMap())
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": job.ID})
	}

	inv, err := dc.service.GenerateInvoice(c.UserContext(), id, donation.InvoiceOptions{
		Persist:        req.Save,
		WithSettlement: req.WithPaymentEntry,
	})
	if err != nil {
		if inv != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":   partialInvoiceLabel(err),
				"message": err.Error(),
				"invoice": inv,
			})
		}
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"invoice": inv})
}

// partialInvoiceLabel names the failure of a GenerateInvoice call that still
// created an invoice.
func partialInvoiceLabel(err error) string {
	switch {
	case errors.Is(err, donation.ErrAlreadyInvoiced):
		return "invoice_orphaned"
	case errors.Is(err, donation.ErrSettlementFailed):
		return "settlement_failed"
	default:
		return "invoice_not_attached"
	}
}
