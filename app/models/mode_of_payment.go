package models

const (
	ModeOfPaymentTypeCash    = "Cash"
	ModeOfPaymentTypeBank    = "Bank"
	ModeOfPaymentTypeGeneral = "General"
)

// ModeOfPayment is keyed by the method string reported by the gateway
// ("card", "upi", "netbanking") or entered by hand ("Cash").
type ModeOfPayment struct {
	Name string `gorm:"primaryKey;type:varchar(140)" json:"mode_of_payment"`
	Type string `gorm:"type:varchar(20);default:'General'" json:"type"`
}
