package repository

import (
	"github.com/ManuelReschke/DonationDesk/app/models"
	"gorm.io/gorm"
)

// errorLogRepository implements the ErrorLogRepository interface
type errorLogRepository struct {
	db *gorm.DB
}

// NewErrorLogRepository creates a new error log repository instance
func NewErrorLogRepository(db *gorm.DB) ErrorLogRepository {
	return &errorLogRepository{db: db}
}

func (r *errorLogRepository) Create(entry *models.ErrorLog) error {
	return r.db.Create(entry).Error
}

func (r *errorLogRepository) GetByID(id uint) (*models.ErrorLog, error) {
	var entry models.ErrorLog
	if err := r.db.First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}
