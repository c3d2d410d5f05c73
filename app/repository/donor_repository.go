package repository

import (
	"errors"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"gorm.io/gorm"
)

// donorRepository implements the DonorRepository interface
type donorRepository struct {
	db *gorm.DB
}

// NewDonorRepository creates a new donor repository instance
func NewDonorRepository(db *gorm.DB) DonorRepository {
	return &donorRepository{db: db}
}

func (r *donorRepository) Create(donor *models.Donor) error {
	return r.db.Create(donor).Error
}

func (r *donorRepository) GetByID(id uint) (*models.Donor, error) {
	var donor models.Donor
	if err := r.db.First(&donor, id).Error; err != nil {
		return nil, err
	}
	return &donor, nil
}

func (r *donorRepository) FindLatestByEmail(email string) (*models.Donor, error) {
	var donor models.Donor
	err := r.db.Where("email = ?", email).
		Order("created_at DESC").
		Order("id DESC").
		First(&donor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &donor, nil
}

func (r *donorRepository) Update(donor *models.Donor) error {
	return r.db.Save(donor).Error
}
