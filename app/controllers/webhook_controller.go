package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// SignatureHeader carries the gateway's HMAC of the raw request body.
const SignatureHeader = "X-Razorpay-Signature"

// WebhookController receives payment gateway deliveries.
type WebhookController struct {
	service DonationService
}

func NewWebhookController(service DonationService) *WebhookController {
	return &WebhookController{service: service}
}

// HandleDonationWebhook always answers 200 so the gateway does not retry;
// failures are reported to operators instead.
func (wc *WebhookController) HandleDonationWebhook(c *fiber.Ctx) error {
	// fasthttp reuses the request buffer after the handler returns
	rawBody := append([]byte(nil), c.BodyRaw()...)

	result := wc.service.HandleWebhook(c.UserContext(), rawBody, c.Get(SignatureHeader))
	return c.Status(fiber.StatusOK).JSON(result)
}
