package donation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"github.com/ManuelReschke/DonationDesk/app/repository"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/accounting"
)

// LinkResult is the outcome of linking a donor to a customer.
type LinkResult struct {
	CustomerID    string `json:"customer"`
	AlreadyLinked bool   `json:"already_linked"`
}

// CustomerLinker creates the accounting customer for a donor.
type CustomerLinker struct {
	donors     repository.DonorRepository
	errorLogs  repository.ErrorLogRepository
	accounting accounting.Service
}

func NewCustomerLinker(donors repository.DonorRepository, errorLogs repository.ErrorLogRepository, acct accounting.Service) *CustomerLinker {
	return &CustomerLinker{donors: donors, errorLogs: errorLogs, accounting: acct}
}

// LinkCustomer creates a customer and its contact, then stores the link on
// the donor. The customer is kept even when the contact cannot be created.
func (l *CustomerLinker) LinkCustomer(ctx context.Context, settings *models.NonProfitSettings, donorID uint) (LinkResult, error) {
	donor, err := l.donors.GetByID(donorID)
	if err != nil {
		return LinkResult{}, fmt.Errorf("load donor %d: %w", donorID, err)
	}
	if donor.HasCustomer() {
		return LinkResult{CustomerID: donor.Customer, AlreadyLinked: true}, nil
	}

	elevated := accounting.WithElevatedPermissions(ctx)
	in := accounting.CustomerRequest{
		CustomerName:    donor.DonorName,
		CustomerType:    accounting.CustomerTypeIndividual,
		IgnoreMandatory: true,
	}
	if settings != nil {
		in.CustomerGroup = settings.CustomerGroup
		in.Territory = settings.Territory
	}

	var customerID string
	customer, err := l.accounting.CreateCustomer(elevated, in)
	switch {
	case err == nil:
		customerID = customer.Name
	case errors.Is(err, accounting.ErrDuplicateEntry):
		// customers are named after the customer name
		customerID = donor.DonorName
		log.Infof("[CustomerLinker] customer %q already exists, linking donor %d", customerID, donor.ID)
	default:
		return LinkResult{}, fmt.Errorf("create customer for donor %d: %w", donor.ID, err)
	}

	if _, err := l.accounting.CreateContact(elevated, accounting.ContactRequest{
		FirstName: donor.DonorName,
		Phone:     strings.TrimSpace(donor.Mobile),
		Email:     strings.TrimSpace(donor.Email),
		Links: []accounting.ContactLink{
			{LinkDoctype: accounting.DoctypeCustomer, LinkName: customerID},
			{LinkDoctype: accounting.DoctypeDonor, LinkName: fmt.Sprintf("%d", donor.ID)},
		},
	}); err != nil && !errors.Is(err, accounting.ErrDuplicateEntry) {
		log.Errorf("[CustomerLinker] contact creation failed for donor %d: %v", donor.ID, err)
		if logErr := l.errorLogs.Create(&models.ErrorLog{
			Title:     "Contact Creation Failed",
			Message:   fmt.Sprintf("customer %s, donor %d: %v", customerID, donor.ID, err),
			Reference: customerID,
		}); logErr != nil {
			log.Errorf("[CustomerLinker] failed to write error log: %v", logErr)
		}
	}

	donor.Customer = customerID
	if err := l.donors.Update(donor); err != nil {
		return LinkResult{}, fmt.Errorf("link customer %s to donor %d: %w", customerID, donor.ID, err)
	}
	log.Infof("[CustomerLinker] donor %d linked to customer %s", donor.ID, customerID)
	return LinkResult{CustomerID: customerID}, nil
}
