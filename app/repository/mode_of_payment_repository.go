package repository

import (
	"github.com/ManuelReschke/DonationDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// modeOfPaymentRepository implements the ModeOfPaymentRepository interface
type modeOfPaymentRepository struct {
	db *gorm.DB
}

// NewModeOfPaymentRepository creates a new mode of payment repository instance
func NewModeOfPaymentRepository(db *gorm.DB) ModeOfPaymentRepository {
	return &modeOfPaymentRepository{db: db}
}

func (r *modeOfPaymentRepository) Exists(name string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.ModeOfPayment{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create ignores a concurrent insert of the same name.
func (r *modeOfPaymentRepository) Create(mode *models.ModeOfPayment) error {
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(mode).Error
}
