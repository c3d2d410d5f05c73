package donation

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/DonationDesk/app/models"
)

func TestSubmitRequiresDonor(t *testing.T) {
	e := newTestEnv(t)
	d := &models.Donation{Amount: decimal.NewFromInt(10)}

	err := e.svc.Ledger.Submit(context.Background(), defaultSettings(), d, Submitter{Email: "ops@org", UserType: UserTypeSystem})
	assert.True(t, errors.Is(err, ErrMissingDonor))
	assert.Empty(t, e.donations.rows)

	d = &models.Donation{DonorID: 42, Amount: decimal.NewFromInt(10)}
	err = e.svc.Ledger.Submit(context.Background(), defaultSettings(), d, Submitter{Email: "admin@org", UserType: UserTypeWebsite, IsAdmin: true})
	assert.True(t, errors.Is(err, ErrMissingDonor))
}

func TestSubmitProvisionsDonorForWebsiteUser(t *testing.T) {
	e := newTestEnv(t)
	d := &models.Donation{Amount: decimal.NewFromInt(25)}

	err := e.svc.Ledger.Submit(context.Background(), defaultSettings(), d, Submitter{
		Email:    "web@user.org",
		FullName: "Web User",
		UserType: UserTypeWebsite,
	})
	require.NoError(t, err)

	require.NotZero(t, d.DonorID)
	donor, _ := e.donors.GetByID(d.DonorID)
	assert.Equal(t, "Web User", donor.DonorName)
	assert.Equal(t, "Individual", donor.DonorType)

	assert.Equal(t, models.DonationStateSubmitted, e.svc.Ledger.State(d))
	assert.Equal(t, "Helping Hands", d.Company)
	assert.Equal(t, "INR", d.Currency)
	assert.Equal(t, testClock, d.Date)
	assert.Equal(t, "Web User", d.DonorName)
}

func TestSubmitUsesDonationCompany(t *testing.T) {
	e := newTestEnv(t)
	donor := e.addDonor(t, "a@b.com", "")
	settings := defaultSettings()
	settings.DonationCompany = "Helping Hands Trust"

	d := &models.Donation{DonorID: donor.ID, Amount: decimal.NewFromInt(5), Currency: "usd"}
	require.NoError(t, e.svc.Ledger.Submit(context.Background(), settings, d, SystemSubmitter))
	assert.Equal(t, "Helping Hands Trust", d.Company)
	assert.Equal(t, "USD", d.Currency)
}

func TestSubmitRejectsNonPositiveAmount(t *testing.T) {
	e := newTestEnv(t)
	donor := e.addDonor(t, "a@b.com", "")

	d := &models.Donation{DonorID: donor.ID, Amount: decimal.Zero}
	err := e.svc.Ledger.Submit(context.Background(), defaultSettings(), d, SystemSubmitter)
	assert.True(t, errors.Is(err, ErrInvalidDonation))
	assert.Equal(t, models.DocStatusDraft, d.DocStatus)
}

func TestOnPaymentAuthorizedIgnoresOtherStatuses(t *testing.T) {
	e := newTestEnv(t)
	d := e.addDonation(t, e.addDonor(t, "a@b.com", ""), "10", false)

	for _, status := range []string{"Pending", "Failed", "", "completed"} {
		got, err := e.svc.Ledger.OnPaymentAuthorized(context.Background(), defaultSettings(), d.ID, status)
		assert.NoError(t, err)
		assert.Nil(t, got)
	}
	stored, _ := e.donations.GetByID(d.ID)
	assert.False(t, stored.Paid)
}

func TestOnPaymentAuthorizedMarksPaid(t *testing.T) {
	e := newTestEnv(t)
	d := e.addDonation(t, e.addDonor(t, "a@b.com", "CUST-A"), "10", false)

	got, err := e.svc.Ledger.OnPaymentAuthorized(context.Background(), defaultSettings(), d.ID, PaymentStatusCompleted)
	require.NoError(t, err)
	assert.True(t, got.Paid)
	assert.Equal(t, models.DonationStatePaid, got.State())
	assert.Empty(t, e.acct.invoices)
}

func TestOnPaymentAuthorizedCascadesIntoInvoicing(t *testing.T) {
	e := newTestEnv(t)
	d := e.addDonation(t, e.addDonor(t, "a@b.com", "CUST-A"), "10", false)
	settings := defaultSettings()
	settings.AutomateDonationInvoicing = true
	settings.AutomateDonationPaymentEntries = true

	got, err := e.svc.Ledger.OnPaymentAuthorized(context.Background(), settings, d.ID, PaymentStatusAuthorized)
	require.NoError(t, err)
	assert.Equal(t, "SINV-0001", got.Invoice)
	assert.Equal(t, "PE-0001", got.PaymentEntry)

	// a repeated callback neither reverts paid nor invoices again
	got, err = e.svc.Ledger.OnPaymentAuthorized(context.Background(), settings, d.ID, PaymentStatusCompleted)
	require.NoError(t, err)
	assert.True(t, got.Paid)
	assert.Len(t, e.acct.invoices, 1)
}

func TestOnPaymentAuthorizedSurfacesInvoiceValidation(t *testing.T) {
	e := newTestEnv(t)
	d := e.addDonation(t, e.addDonor(t, "a@b.com", ""), "10", false)
	settings := defaultSettings()
	settings.AutomateDonationInvoicing = true

	got, err := e.svc.Ledger.OnPaymentAuthorized(context.Background(), settings, d.ID, PaymentStatusCompleted)
	assert.True(t, errors.Is(err, ErrNoCustomerLinked))
	require.NotNil(t, got)

	stored, _ := e.donations.GetByID(d.ID)
	assert.True(t, stored.Paid)
}

func TestCreatePaymentEntry(t *testing.T) {
	e := newTestEnv(t)
	settings := defaultSettings()
	ctx := context.Background()

	linked := e.addDonation(t, e.addDonor(t, "a@b.com", "CUST-A"), "10", true)
	require.NoError(t, e.svc.Ledger.CreatePaymentEntry(ctx, settings, linked))
	assert.Empty(t, e.acct.invoices, "automation disabled")

	settings.AutomateDonationInvoicing = true
	require.NoError(t, e.svc.Ledger.CreatePaymentEntry(ctx, settings, linked))
	assert.Equal(t, "SINV-0001", linked.Invoice)
	assert.Empty(t, e.acct.settlements)

	unlinked := e.addDonation(t, e.addDonor(t, "c@d.org", ""), "10", true)
	require.NoError(t, e.svc.Ledger.CreatePaymentEntry(ctx, settings, unlinked))
	assert.Len(t, e.acct.invoices, 1)
}
