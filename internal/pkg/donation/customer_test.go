package donation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/DonationDesk/internal/pkg/accounting"
)

func TestLinkCustomer(t *testing.T) {
	e := newTestEnv(t)
	donor := e.addDonor(t, "a@b.com", "")
	donor.Mobile = "+911234"
	require.NoError(t, e.donors.Update(donor))

	res, err := e.svc.Linker.LinkCustomer(context.Background(), defaultSettings(), donor.ID)
	require.NoError(t, err)
	assert.Equal(t, LinkResult{CustomerID: "CUST-0001"}, res)

	require.Len(t, e.acct.customers, 1)
	assert.Equal(t, accounting.CustomerRequest{
		CustomerName:    "a@b.com",
		CustomerType:    accounting.CustomerTypeIndividual,
		CustomerGroup:   "Donors",
		Territory:       "India",
		IgnoreMandatory: true,
	}, e.acct.customers[0])

	require.Len(t, e.acct.contacts, 1)
	contact := e.acct.contacts[0]
	assert.Equal(t, "+911234", contact.Phone)
	assert.Equal(t, "a@b.com", contact.Email)
	assert.Contains(t, contact.Links, accounting.ContactLink{LinkDoctype: accounting.DoctypeCustomer, LinkName: "CUST-0001"})

	stored, _ := e.donors.GetByID(donor.ID)
	assert.Equal(t, "CUST-0001", stored.Customer)
}

func TestLinkCustomerAlreadyLinked(t *testing.T) {
	e := newTestEnv(t)
	donor := e.addDonor(t, "a@b.com", "CUST-EXISTING")

	res, err := e.svc.Linker.LinkCustomer(context.Background(), defaultSettings(), donor.ID)
	require.NoError(t, err)
	assert.Equal(t, LinkResult{CustomerID: "CUST-EXISTING", AlreadyLinked: true}, res)
	assert.Empty(t, e.acct.customers)
}

func TestLinkCustomerContactDuplicateIsSuccess(t *testing.T) {
	e := newTestEnv(t)
	e.acct.contactErr = fmt.Errorf("%w: contact exists", accounting.ErrDuplicateEntry)
	donor := e.addDonor(t, "a@b.com", "")

	res, err := e.svc.Linker.LinkCustomer(context.Background(), defaultSettings(), donor.ID)
	require.NoError(t, err)
	assert.Equal(t, "CUST-0001", res.CustomerID)
	assert.Empty(t, e.errorLogs.entries)
}

func TestLinkCustomerContactFailureKeepsCustomer(t *testing.T) {
	e := newTestEnv(t)
	e.acct.contactErr = errBoom
	donor := e.addDonor(t, "a@b.com", "")

	res, err := e.svc.Linker.LinkCustomer(context.Background(), defaultSettings(), donor.ID)
	require.NoError(t, err)
	assert.Equal(t, "CUST-0001", res.CustomerID)

	require.Len(t, e.errorLogs.entries, 1)
	assert.Equal(t, "Contact Creation Failed", e.errorLogs.entries[0].Title)

	stored, _ := e.donors.GetByID(donor.ID)
	assert.Equal(t, "CUST-0001", stored.Customer)
}

func TestLinkCustomerDuplicateCustomer(t *testing.T) {
	e := newTestEnv(t)
	e.acct.customerErr = accounting.ErrDuplicateEntry
	donor := e.addDonor(t, "a@b.com", "")

	res, err := e.svc.Linker.LinkCustomer(context.Background(), defaultSettings(), donor.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", res.CustomerID)
}

func TestLinkCustomerFailure(t *testing.T) {
	e := newTestEnv(t)
	e.acct.customerErr = errBoom
	donor := e.addDonor(t, "a@b.com", "")

	_, err := e.svc.Linker.LinkCustomer(context.Background(), defaultSettings(), donor.ID)
	assert.ErrorIs(t, err, errBoom)

	stored, _ := e.donors.GetByID(donor.ID)
	assert.Empty(t, stored.Customer)
	assert.Empty(t, e.acct.contacts)
}
