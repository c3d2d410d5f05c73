package models

import "time"

// ErrorLog is a durable diagnostic record for failures that are reported to
// operators instead of the caller.
type ErrorLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Message   string    `gorm:"type:longtext" json:"message"`
	Reference string    `gorm:"type:varchar(140);default:'';index" json:"reference"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
