package controllers

import (
	"github.com/gofiber/fiber/v2"
)

// DonorController exposes donor actions for operators.
type DonorController struct {
	service DonationService
}

func NewDonorController(service DonationService) *DonorController {
	return &DonorController{service: service}
}

// HandleLinkCustomer creates an accounting customer for the donor.
func (dc *DonorController) HandleLinkCustomer(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid donor id")
	}
	result, err := dc.service.LinkCustomer(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	status := fiber.StatusCreated
	if result.AlreadyLinked {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(result)
}
