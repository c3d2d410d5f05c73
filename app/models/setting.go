package models

import (
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Setting represents a system setting
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type" validate:"required"` // string, boolean
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting keys of the non profit settings singleton.
const (
	SettingCompany                        = "company"
	SettingDonationDebitAccount           = "donation_debit_account"
	SettingDonationPaymentAccount         = "donation_payment_account"
	SettingDefaultDonorType               = "default_donor_type"
	SettingDonationCompany                = "donation_company"
	SettingDefaultCurrency                = "default_currency"
	SettingCustomerGroup                  = "customer_group"
	SettingTerritory                      = "territory"
	SettingAllowDonationInvoicing         = "allow_donation_invoicing"
	SettingAutomateDonationInvoicing      = "automate_donation_invoicing"
	SettingAutomateDonationPaymentEntries = "automate_donation_payment_entries"
)

// NonProfitSettings is a read-only snapshot of the donation settings. A fresh
// snapshot is loaded per unit of work and passed down explicitly.
type NonProfitSettings struct {
	Company                        string `json:"company" validate:"max=140"`
	DonationDebitAccount           string `json:"donation_debit_account" validate:"max=140"`
	DonationPaymentAccount         string `json:"donation_payment_account" validate:"max=140"`
	DefaultDonorType               string `json:"default_donor_type" validate:"max=140"`
	DonationCompany                string `json:"donation_company" validate:"max=140"`
	DefaultCurrency                string `json:"default_currency" validate:"omitempty,len=3"`
	CustomerGroup                  string `json:"customer_group" validate:"max=140"`
	Territory                      string `json:"territory" validate:"max=140"`
	AllowDonationInvoicing         bool   `json:"allow_donation_invoicing"`
	AutomateDonationInvoicing      bool   `json:"automate_donation_invoicing"`
	AutomateDonationPaymentEntries bool   `json:"automate_donation_payment_entries"`
}

// DonationCompanyOrDefault returns the company donations are booked against.
func (s *NonProfitSettings) DonationCompanyOrDefault() string {
	if s.DonationCompany != "" {
		return s.DonationCompany
	}
	return s.Company
}

// AutoInvoicing reports whether paid donations are invoiced without operator action.
func (s *NonProfitSettings) AutoInvoicing() bool {
	return s.AllowDonationInvoicing && s.AutomateDonationInvoicing
}

// Validate validates the settings
func (s *NonProfitSettings) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

// NonProfitSettingsFromRows applies key/value rows onto an empty snapshot.
func NonProfitSettingsFromRows(rows []Setting) *NonProfitSettings {
	s := &NonProfitSettings{}
	for _, setting := range rows {
		switch setting.Key {
		case SettingCompany:
			s.Company = setting.Value
		case SettingDonationDebitAccount:
			s.DonationDebitAccount = setting.Value
		case SettingDonationPaymentAccount:
			s.DonationPaymentAccount = setting.Value
		case SettingDefaultDonorType:
			s.DefaultDonorType = setting.Value
		case SettingDonationCompany:
			s.DonationCompany = setting.Value
		case SettingDefaultCurrency:
			s.DefaultCurrency = setting.Value
		case SettingCustomerGroup:
			s.CustomerGroup = setting.Value
		case SettingTerritory:
			s.Territory = setting.Value
		case SettingAllowDonationInvoicing:
			s.AllowDonationInvoicing = parseSettingBool(setting.Value)
		case SettingAutomateDonationInvoicing:
			s.AutomateDonationInvoicing = parseSettingBool(setting.Value)
		case SettingAutomateDonationPaymentEntries:
			s.AutomateDonationPaymentEntries = parseSettingBool(setting.Value)
		}
	}
	return s
}

// Rows flattens the snapshot into one typed row per setting key, ordered
// by key.
func (s *NonProfitSettings) Rows() []Setting {
	values := map[string]string{
		SettingCompany:                        s.Company,
		SettingDonationDebitAccount:           s.DonationDebitAccount,
		SettingDonationPaymentAccount:         s.DonationPaymentAccount,
		SettingDefaultDonorType:               s.DefaultDonorType,
		SettingDonationCompany:                s.DonationCompany,
		SettingDefaultCurrency:                s.DefaultCurrency,
		SettingCustomerGroup:                  s.CustomerGroup,
		SettingTerritory:                      s.Territory,
		SettingAllowDonationInvoicing:         strconv.FormatBool(s.AllowDonationInvoicing),
		SettingAutomateDonationInvoicing:      strconv.FormatBool(s.AutomateDonationInvoicing),
		SettingAutomateDonationPaymentEntries: strconv.FormatBool(s.AutomateDonationPaymentEntries),
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]Setting, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, Setting{Key: k, Value: values[k], Type: getSettingType(k)})
	}
	return rows
}

// getSettingType returns the type of a setting based on its key
func getSettingType(key string) string {
	switch key {
	case SettingAllowDonationInvoicing, SettingAutomateDonationInvoicing, SettingAutomateDonationPaymentEntries:
		return "boolean"
	default:
		return "string"
	}
}

func parseSettingBool(v string) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return v == "1"
	}
	return b
}
