package repository

import (
	"errors"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"gorm.io/gorm"
)

// donationRepository implements the DonationRepository interface
type donationRepository struct {
	db *gorm.DB
}

// NewDonationRepository creates a new donation repository instance
func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &donationRepository{db: db}
}

func (r *donationRepository) Create(donation *models.Donation) error {
	return r.db.Create(donation).Error
}

func (r *donationRepository) GetByID(id uint) (*models.Donation, error) {
	var donation models.Donation
	if err := r.db.First(&donation, id).Error; err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *donationRepository) GetByPaymentID(paymentID string) (*models.Donation, error) {
	var donation models.Donation
	err := r.db.Where("payment_id = ?", paymentID).First(&donation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &donation, nil
}

func (r *donationRepository) Update(donation *models.Donation) error {
	return r.db.Save(donation).Error
}

func (r *donationRepository) SetPaid(id uint) error {
	return r.db.Model(&models.Donation{}).Where("id = ?", id).Update("paid", true).Error
}

func (r *donationRepository) AttachInvoice(id uint, invoice string) (bool, error) {
	tx := r.db.Model(&models.Donation{}).
		Where("id = ? AND invoice = ?", id, "").
		Update("invoice", invoice)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *donationRepository) AttachPaymentEntry(id uint, paymentEntry string) error {
	return r.db.Model(&models.Donation{}).
		Where("id = ? AND payment_entry = ?", id, "").
		Update("payment_entry", paymentEntry).Error
}
