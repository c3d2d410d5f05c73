package models

import (
	"time"
)

const (
	CommentTypeComment = "Comment"
	CommentTypeInfo    = "Info"
)

// Comment is an audit note attached to any document, addressed by its
// reference type ("Donor", "Donation") and id.
type Comment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ReferenceType string    `gorm:"type:varchar(50);index:idx_comments_reference,priority:1" json:"reference_type"`
	ReferenceID   uint      `gorm:"index:idx_comments_reference,priority:2" json:"reference_id"`
	CommentType   string    `gorm:"type:varchar(30);default:'Comment'" json:"comment_type"`
	Content       string    `gorm:"type:text" json:"content" validate:"required,min=1"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}
