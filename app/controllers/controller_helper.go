package controllers

import (
	"context"
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/accounting"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/donation"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/jobqueue"
)

// DonationService is the donation workflow as seen by the HTTP layer.
type DonationService interface {
	HandleWebhook(ctx context.Context, rawBody []byte, signatureHeader string) donation.Result
	SubmitDonation(ctx context.Context, d *models.Donation, submitter donation.Submitter) error
	AuthorizePayment(ctx context.Context, donationID uint, status string) (*models.Donation, error)
	GenerateInvoice(ctx context.Context, donationID uint, opts donation.InvoiceOptions) (*accounting.Invoice, error)
	LinkCustomer(ctx context.Context, donorID uint) (donation.LinkResult, error)
}

// JobEnqueuer is the part of the job queue used for deferred work.
type JobEnqueuer interface {
	EnqueueJob(jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
}

var validate = validator.New()

// respondError maps workflow errors to status codes. Classified validation
// failures are shown to the caller, everything else is logged.
func respondError(c *fiber.Ctx, err error) error {
	var de *donation.Error
	if donation.IsValidation(err) && errors.As(err, &de) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   string(de.Kind),
			"message": de.Error(),
		})
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Record not found"})
	}
	log.Errorf("[API] %s %s failed: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": message})
}

func parseIDParam(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// parseBody decodes and validates an optional JSON body.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(out); err != nil {
			return err
		}
	}
	return validate.Struct(out)
}
