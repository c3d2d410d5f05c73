package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Donor is a giving entity. Email is the natural key used when matching
// gateway payments to an existing donor.
type Donor struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DonorName string    `gorm:"type:varchar(200);not null" json:"donor_name" validate:"required,max=200"`
	DonorType string    `gorm:"type:varchar(140);index" json:"donor_type" validate:"max=140"`
	Email     string    `gorm:"type:varchar(200);index" json:"email" validate:"omitempty,email,max=200"`
	Mobile    string    `gorm:"type:varchar(40);default:''" json:"mobile" validate:"max=40"`
	Customer  string    `gorm:"type:varchar(140);default:''" json:"customer"`
	PanNumber string    `gorm:"type:varchar(20);default:''" json:"pan_number" validate:"max=20"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Validate trims the email and checks the struct tags.
func (d *Donor) Validate() error {
	d.Email = strings.TrimSpace(d.Email)
	v := validator.New()
	return v.Struct(d)
}

// HasCustomer reports whether the donor is linked to an accounting customer.
func (d *Donor) HasCustomer() bool {
	return d != nil && strings.TrimSpace(d.Customer) != ""
}
