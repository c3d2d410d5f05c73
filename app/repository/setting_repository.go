package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/DonationDesk/app/models"
)

type settingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

// GetNonProfitSettings loads a fresh snapshot. Rows with unknown keys are
// ignored.
func (r *settingRepository) GetNonProfitSettings() (*models.NonProfitSettings, error) {
	var rows []models.Setting
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return models.NonProfitSettingsFromRows(rows), nil
}

// SaveNonProfitSettings validates the snapshot and upserts every key in a
// single statement on the unique setting_key index.
func (r *settingRepository) SaveNonProfitSettings(settings *models.NonProfitSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	rows := settings.Rows()
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "type", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
