package donation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"github.com/ManuelReschke/DonationDesk/app/repository"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/accounting"
)

var testClock = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type fakeDonorRepo struct {
	rows   map[uint]models.Donor
	nextID uint
}

func newFakeDonorRepo() *fakeDonorRepo {
	return &fakeDonorRepo{rows: map[uint]models.Donor{}}
}

func (r *fakeDonorRepo) Create(d *models.Donor) error {
	r.nextID++
	d.ID = r.nextID
	if d.CreatedAt.IsZero() {
		d.CreatedAt = testClock.Add(time.Duration(d.ID) * time.Minute)
	}
	r.rows[d.ID] = *d
	return nil
}

func (r *fakeDonorRepo) GetByID(id uint) (*models.Donor, error) {
	d, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

func (r *fakeDonorRepo) FindLatestByEmail(email string) (*models.Donor, error) {
	var latest *models.Donor
	for _, d := range r.rows {
		if d.Email != email {
			continue
		}
		d := d
		if latest == nil || d.CreatedAt.After(latest.CreatedAt) ||
			(d.CreatedAt.Equal(latest.CreatedAt) && d.ID > latest.ID) {
			latest = &d
		}
	}
	return latest, nil
}

func (r *fakeDonorRepo) Update(d *models.Donor) error {
	if _, ok := r.rows[d.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.rows[d.ID] = *d
	return nil
}

type fakeDonationRepo struct {
	rows   map[uint]models.Donation
	nextID uint
}

func newFakeDonationRepo() *fakeDonationRepo {
	return &fakeDonationRepo{rows: map[uint]models.Donation{}}
}

func (r *fakeDonationRepo) Create(d *models.Donation) error {
	if pid := d.GatewayPaymentID(); pid != "" {
		for _, existing := range r.rows {
			if existing.GatewayPaymentID() == pid {
				return gorm.ErrDuplicatedKey
			}
		}
	}
	r.nextID++
	d.ID = r.nextID
	r.rows[d.ID] = *d
	return nil
}

func (r *fakeDonationRepo) GetByID(id uint) (*models.Donation, error) {
	d, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

func (r *fakeDonationRepo) GetByPaymentID(paymentID string) (*models.Donation, error) {
	for _, d := range r.rows {
		if d.GatewayPaymentID() == paymentID {
			d := d
			return &d, nil
		}
	}
	return nil, nil
}

func (r *fakeDonationRepo) Update(d *models.Donation) error {
	r.rows[d.ID] = *d
	return nil
}

func (r *fakeDonationRepo) SetPaid(id uint) error {
	d, ok := r.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	d.Paid = true
	r.rows[id] = d
	return nil
}

func (r *fakeDonationRepo) AttachInvoice(id uint, invoice string) (bool, error) {
	d, ok := r.rows[id]
	if !ok || d.Invoice != "" {
		return false, nil
	}
	d.Invoice = invoice
	r.rows[id] = d
	return true, nil
}

func (r *fakeDonationRepo) AttachPaymentEntry(id uint, paymentEntry string) error {
	d, ok := r.rows[id]
	if ok && d.PaymentEntry == "" {
		d.PaymentEntry = paymentEntry
		r.rows[id] = d
	}
	return nil
}

func (r *fakeDonationRepo) countByPaymentID(paymentID string) int {
	n := 0
	for _, d := range r.rows {
		if d.GatewayPaymentID() == paymentID {
			n++
		}
	}
	return n
}

type fakeDonorTypeRepo map[string]models.DonorType

func (r fakeDonorTypeRepo) GetByName(name string) (*models.DonorType, error) {
	dt, ok := r[name]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &dt, nil
}

type fakeModeRepo struct {
	modes map[string]models.ModeOfPayment
}

func (r *fakeModeRepo) Exists(name string) (bool, error) {
	_, ok := r.modes[name]
	return ok, nil
}

func (r *fakeModeRepo) Create(m *models.ModeOfPayment) error {
	r.modes[m.Name] = *m
	return nil
}

type fakeSettingRepo struct {
	settings *models.NonProfitSettings
	err      error
}

func (r *fakeSettingRepo) GetNonProfitSettings() (*models.NonProfitSettings, error) {
	if r.err != nil {
		return nil, r.err
	}
	s := *r.settings
	return &s, nil
}

func (r *fakeSettingRepo) SaveNonProfitSettings(s *models.NonProfitSettings) error {
	r.settings = s
	return nil
}

type fakeCommentRepo struct {
	comments []models.Comment
}

func (r *fakeCommentRepo) Create(c *models.Comment) error {
	c.ID = uint(len(r.comments) + 1)
	r.comments = append(r.comments, *c)
	return nil
}

func (r *fakeCommentRepo) ListByReference(referenceType string, referenceID uint) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range r.comments {
		if c.ReferenceType == referenceType && c.ReferenceID == referenceID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeErrorLogRepo struct {
	entries []models.ErrorLog
}

func (r *fakeErrorLogRepo) Create(e *models.ErrorLog) error {
	e.ID = uint(len(r.entries) + 1)
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeErrorLogRepo) GetByID(id uint) (*models.ErrorLog, error) {
	if id == 0 || int(id) > len(r.entries) {
		return nil, gorm.ErrRecordNotFound
	}
	e := r.entries[id-1]
	return &e, nil
}

type fakeWebhookEventRepo struct {
	events []models.DonationWebhookEvent
}

func (r *fakeWebhookEventRepo) CreateIfNotExists(e *models.DonationWebhookEvent) (bool, *models.DonationWebhookEvent, error) {
	for _, existing := range r.events {
		if existing.Provider == e.Provider && existing.PaymentID == e.PaymentID {
			stored := existing
			return false, &stored, nil
		}
	}
	e.ID = uint(len(r.events) + 1)
	r.events = append(r.events, *e)
	stored := *e
	return true, &stored, nil
}

func (r *fakeWebhookEventRepo) Reclaim(id uint) (bool, error) {
	e := &r.events[id-1]
	if e.ProcessingError == "" {
		return false, nil
	}
	e.ProcessingError = ""
	e.ProcessedAt = nil
	return true, nil
}

func (r *fakeWebhookEventRepo) MarkProcessed(id uint, donationID *uint, processingError string) error {
	e := &r.events[id-1]
	now := testClock
	e.ProcessedAt = &now
	e.ProcessingError = processingError
	if donationID != nil {
		e.DonationID = donationID
	}
	return nil
}

type fakeAccounting struct {
	invoices    []accounting.InvoiceRequest
	settlements []accounting.SettlementRequest
	customers   []accounting.CustomerRequest
	contacts    []accounting.ContactRequest

	settlementElevated bool
	invoiceErr         error
	settlementErr      error
	customerErr        error
	contactErr         error
}

func (f *fakeAccounting) CreateInvoice(ctx context.Context, in accounting.InvoiceRequest) (*accounting.Invoice, error) {
	if f.invoiceErr != nil {
		return nil, f.invoiceErr
	}
	f.invoices = append(f.invoices, in)
	total := decimal.Zero
	for _, item := range in.Items {
		total = total.Add(item.Rate.Mul(item.Qty))
	}
	return &accounting.Invoice{
		Name:       fmt.Sprintf("SINV-%04d", len(f.invoices)),
		Customer:   in.Customer,
		Currency:   in.Currency,
		Company:    in.Company,
		GrandTotal: total,
		DocStatus:  1,
	}, nil
}

func (f *fakeAccounting) CreatePaymentSettlement(ctx context.Context, in accounting.SettlementRequest) (*accounting.Settlement, error) {
	f.settlementElevated = accounting.IsElevated(ctx)
	if f.settlementErr != nil {
		return nil, f.settlementErr
	}
	f.settlements = append(f.settlements, in)
	return &accounting.Settlement{
		Name:          fmt.Sprintf("PE-%04d", len(f.settlements)),
		ReferenceName: in.ReferenceName,
		Amount:        in.Amount,
		PaidTo:        in.PaidTo,
	}, nil
}

func (f *fakeAccounting) CreateCustomer(ctx context.Context, in accounting.CustomerRequest) (*accounting.Customer, error) {
	if f.customerErr != nil {
		return nil, f.customerErr
	}
	f.customers = append(f.customers, in)
	return &accounting.Customer{Name: fmt.Sprintf("CUST-%04d", len(f.customers)), CustomerName: in.CustomerName}, nil
}

func (f *fakeAccounting) CreateContact(ctx context.Context, in accounting.ContactRequest) (*accounting.Contact, error) {
	if f.contactErr != nil {
		return nil, f.contactErr
	}
	f.contacts = append(f.contacts, in)
	return &accounting.Contact{Name: fmt.Sprintf("CONT-%04d", len(f.contacts))}, nil
}

type fakeNotifier struct {
	subjects []string
	bodies   []string
	err      error
}

func (n *fakeNotifier) NotifyOperators(ctx context.Context, subject, body string) error {
	n.subjects = append(n.subjects, subject)
	n.bodies = append(n.bodies, body)
	return n.err
}

const testSecret = "whsec_test"

type testEnv struct {
	donors     *fakeDonorRepo
	donations  *fakeDonationRepo
	donorTypes fakeDonorTypeRepo
	modes      *fakeModeRepo
	settings   *fakeSettingRepo
	comments   *fakeCommentRepo
	errorLogs  *fakeErrorLogRepo
	events     *fakeWebhookEventRepo
	acct       *fakeAccounting
	notifier   *fakeNotifier
	svc        *Service
}

func defaultSettings() *models.NonProfitSettings {
	return &models.NonProfitSettings{
		Company:                "Helping Hands",
		DonationDebitAccount:   "Debtors - HH",
		DonationPaymentAccount: "Bank - HH",
		DefaultDonorType:       "Individual",
		DefaultCurrency:        "INR",
		CustomerGroup:          "Donors",
		Territory:              "India",
		AllowDonationInvoicing: true,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		donors:     newFakeDonorRepo(),
		donations:  newFakeDonationRepo(),
		donorTypes: fakeDonorTypeRepo{"Individual": {Name: "Individual", LinkedItem: "Donation Item"}},
		modes:      &fakeModeRepo{modes: map[string]models.ModeOfPayment{}},
		settings:   &fakeSettingRepo{settings: defaultSettings()},
		comments:   &fakeCommentRepo{},
		errorLogs:  &fakeErrorLogRepo{},
		events:     &fakeWebhookEventRepo{},
		acct:       &fakeAccounting{},
		notifier:   &fakeNotifier{},
	}
	repos := &repository.Repositories{
		Donor:         e.donors,
		Donation:      e.donations,
		DonorType:     e.donorTypes,
		ModeOfPayment: e.modes,
		Setting:       e.settings,
		Comment:       e.comments,
		ErrorLog:      e.errorLogs,
		WebhookEvent:  e.events,
	}
	e.svc = NewService(repos, e.acct, e.notifier, Config{
		PublicBaseURL: "https://donations.example.org/",
		Secrets:       StaticSecrets{EndpointDonation: testSecret},
	})
	e.svc.Issuer.now = func() time.Time { return testClock }
	e.svc.Ledger.now = func() time.Time { return testClock }
	return e
}

// addDonor stores a donor, optionally linked to a customer.
func (e *testEnv) addDonor(t *testing.T, email, customer string) *models.Donor {
	t.Helper()
	d := &models.Donor{DonorName: email, DonorType: "Individual", Email: email, Customer: customer}
	if err := e.donors.Create(d); err != nil {
		t.Fatalf("create donor: %v", err)
	}
	return d
}

// addDonation stores a submitted donation for donor.
func (e *testEnv) addDonation(t *testing.T, donor *models.Donor, amount string, paid bool) *models.Donation {
	t.Helper()
	d := &models.Donation{
		DonorID:   donor.ID,
		DonorName: donor.DonorName,
		DonorType: donor.DonorType,
		Amount:    decimal.RequireFromString(amount),
		Currency:  "INR",
		Date:      testClock,
		Paid:      paid,
		DocStatus: models.DocStatusSubmitted,
	}
	if err := e.donations.Create(d); err != nil {
		t.Fatalf("create donation: %v", err)
	}
	return d
}

var errBoom = errors.New("boom")
