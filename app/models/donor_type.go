package models

// DonorType categorises donors. LinkedItem is the catalog item used as the
// single invoice line when a donation of this type is invoiced.
type DonorType struct {
	Name       string `gorm:"primaryKey;type:varchar(140)" json:"name"`
	LinkedItem string `gorm:"type:varchar(140);default:''" json:"linked_item"`
}
