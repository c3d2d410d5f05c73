package repository

import (
	"time"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// webhookEventRepository implements the WebhookEventRepository interface
type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository instance
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) CreateIfNotExists(event *models.DonationWebhookEvent) (bool, *models.DonationWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "payment_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.DonationWebhookEvent
	if err := r.db.Where("provider = ? AND payment_id = ?", event.Provider, event.PaymentID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *webhookEventRepository) Reclaim(id uint) (bool, error) {
	tx := r.db.Model(&models.DonationWebhookEvent{}).
		Where("id = ? AND processing_error <> ?", id, "").
		Updates(map[string]interface{}{
			"processed_at":     nil,
			"processing_error": "",
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *webhookEventRepository) MarkProcessed(id uint, donationID *uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	if donationID != nil {
		updates["donation_id"] = *donationID
	}
	return r.db.Model(&models.DonationWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
