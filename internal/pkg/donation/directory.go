package donation

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"github.com/ManuelReschke/DonationDesk/app/repository"
)

// ReferenceTypeDonor addresses donor records in comments.
const ReferenceTypeDonor = "Donor"

// DonorDirectory finds donors by email and creates them from payment data.
type DonorDirectory struct {
	donors   repository.DonorRepository
	comments repository.CommentRepository
}

func NewDonorDirectory(donors repository.DonorRepository, comments repository.CommentRepository) *DonorDirectory {
	return &DonorDirectory{donors: donors, comments: comments}
}

// FindByEmail returns the most recently created donor with email, or nil.
func (d *DonorDirectory) FindByEmail(ctx context.Context, email string) (*models.Donor, error) {
	_ = ctx
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	return d.donors.FindLatestByEmail(email)
}

// FindOrCreate returns the donor matching the payment email, creating one
// with the default donor type when none exists. Notes only apply to new
// donors.
func (d *DonorDirectory) FindOrCreate(ctx context.Context, settings *models.NonProfitSettings, payment PaymentEntity) (*models.Donor, error) {
	existing, err := d.FindByEmail(ctx, payment.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup donor by email: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	email := strings.TrimSpace(payment.Email)
	donor := &models.Donor{
		DonorName: fallbackDonorName(payment),
		Email:     email,
	}
	if settings != nil {
		donor.DonorType = settings.DefaultDonorType
	}
	if contact := strings.TrimSpace(payment.Contact); len(contact) <= maxMobileLen {
		donor.Mobile = contact
	}
	comment := applyNotes(donor, payment.Notes)

	if err := donor.Validate(); err != nil {
		return nil, wrapError(KindInvalidDonor, fmt.Sprintf("invalid donor data for %q", email), err)
	}
	if err := d.donors.Create(donor); err != nil {
		return nil, fmt.Errorf("create donor: %w", err)
	}
	log.Infof("[DonorDirectory] created donor %d for %s", donor.ID, donor.Email)

	if comment != "" {
		if err := d.comments.Create(&models.Comment{
			ReferenceType: ReferenceTypeDonor,
			ReferenceID:   donor.ID,
			CommentType:   models.CommentTypeComment,
			Content:       comment,
		}); err != nil {
			return nil, fmt.Errorf("attach notes to donor %d: %w", donor.ID, err)
		}
	}
	return donor, nil
}

// CreateForWebsiteUser returns the donor of a logged in website user,
// provisioning one on first use.
func (d *DonorDirectory) CreateForWebsiteUser(ctx context.Context, donorType, email, fullName string) (*models.Donor, error) {
	existing, err := d.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup donor by email: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	name := strings.TrimSpace(fullName)
	if name == "" {
		name = strings.TrimSpace(email)
	}
	donor := &models.Donor{
		DonorName: name,
		DonorType: donorType,
		Email:     email,
	}
	if err := donor.Validate(); err != nil {
		return nil, wrapError(KindInvalidDonor, fmt.Sprintf("invalid donor data for %q", email), err)
	}
	if err := d.donors.Create(donor); err != nil {
		return nil, fmt.Errorf("create donor: %w", err)
	}
	log.Infof("[DonorDirectory] provisioned donor %d for website user %s", donor.ID, donor.Email)
	return donor, nil
}

const (
	maxDonorNameLen = 200
	maxPanLen       = 20
	maxMobileLen    = 40
)

// fallbackDonorName names a donor created without a name note: the payment
// email, else the contact number, else the payment id.
func fallbackDonorName(payment PaymentEntity) string {
	for _, candidate := range []string{payment.Email, payment.Contact} {
		if name := strings.TrimSpace(candidate); name != "" && len(name) <= maxDonorNameLen {
			return name
		}
	}
	return "Donor " + strings.TrimSpace(payment.ID)
}

// applyNotes copies name and PAN fields onto the donor and returns the
// comment text to attach. A key may match both "name" and "pan". Values that
// do not fit their donor field stay in the comment. Keyed notes always yield
// a comment: the unmapped entries, or every entry when all of them mapped.
func applyNotes(donor *models.Donor, notes Notes) string {
	if notes.Fields == nil {
		return strings.TrimSpace(notes.Text)
	}

	var all, rest []string
	for _, key := range notes.SortedKeys() {
		value := strings.TrimSpace(notes.Fields[key])
		lower := strings.ToLower(key)
		line := fmt.Sprintf("%s: %s", key, value)
		all = append(all, line)

		mapped := false
		if strings.Contains(lower, "name") && value != "" && len(value) <= maxDonorNameLen {
			donor.DonorName = value
			mapped = true
		}
		if strings.Contains(lower, "pan") && len(value) <= maxPanLen {
			donor.PanNumber = value
			mapped = true
		}
		if !mapped {
			rest = append(rest, line)
		}
	}
	if len(rest) == 0 {
		rest = all
	}
	return strings.Join(rest, "\n")
}
