package controllers

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"github.com/ManuelReschke/DonationDesk/app/repository"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/jobqueue"
)

type fakeErrorLogs struct {
	entries map[uint]models.ErrorLog
}

func (f *fakeErrorLogs) Create(e *models.ErrorLog) error {
	e.ID = uint(len(f.entries) + 1)
	f.entries[e.ID] = *e
	return nil
}

func (f *fakeErrorLogs) GetByID(id uint) (*models.ErrorLog, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

type fakeSettings struct {
	current models.NonProfitSettings
}

func (f *fakeSettings) GetNonProfitSettings() (*models.NonProfitSettings, error) {
	s := f.current
	return &s, nil
}

func (f *fakeSettings) SaveNonProfitSettings(s *models.NonProfitSettings) error {
	f.current = *s
	return nil
}

type fakeQueueStats struct{}

func (fakeQueueStats) GetJobStats(ctx context.Context) (map[jobqueue.JobStatus]int64, error) {
	return map[jobqueue.JobStatus]int64{jobqueue.JobStatusCompleted: 4, jobqueue.JobStatusFailed: 1}, nil
}

func (fakeQueueStats) GetQueueSize(ctx context.Context) (int64, error) { return 2, nil }

func (fakeQueueStats) GetProcessingSize(ctx context.Context) (int64, error) { return 1, nil }

type fakeWebhookStats struct{}

func (fakeWebhookStats) Totals(ctx context.Context) (map[string]int64, error) {
	return map[string]int64{"processed": 10, "failed": 2}, nil
}

func (fakeWebhookStats) Day(ctx context.Context, day time.Time) (map[string]int64, error) {
	return map[string]int64{"processed": 1}, nil
}

func newAdminApp() *fiber.App {
	app, _ := newAdminAppWithSettings()
	return app
}

func newAdminAppWithSettings() (*fiber.App, *fakeSettings) {
	logs := &fakeErrorLogs{entries: map[uint]models.ErrorLog{}}
	_ = logs.Create(&models.ErrorLog{Title: "Donation Webhook Verification Error", Message: "invalid signature"})
	settings := &fakeSettings{current: models.NonProfitSettings{Company: "Helping Hands"}}

	ac := NewAdminController(&repository.Repositories{ErrorLog: logs, Setting: settings}, fakeQueueStats{}, fakeWebhookStats{})
	app := fiber.New()
	app.Get("/admin/error-logs/:id", ac.HandleGetErrorLog)
	app.Get("/admin/queues", ac.HandleQueueStats)
	app.Get("/admin/webhook-stats", ac.HandleWebhookStats)
	app.Get("/admin/settings", ac.HandleGetSettings)
	app.Put("/admin/settings", ac.HandleUpdateSettings)
	return app, settings
}

func TestHandleGetErrorLog(t *testing.T) {
	app := newAdminApp()

	status, body := doJSON(t, app, "GET", "/admin/error-logs/1", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Donation Webhook Verification Error", body["title"])

	status, _ = doJSON(t, app, "GET", "/admin/error-logs/2", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHandleQueueStats(t *testing.T) {
	app := newAdminApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/admin/queues", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	status, body := doJSON(t, app, "GET", "/admin/queues", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), body["pending"])
	assert.Equal(t, float64(1), body["processing"])
	assert.Equal(t, float64(4), body["completed"])
	assert.Equal(t, float64(1), body["failed"])
}

func TestHandleWebhookStats(t *testing.T) {
	app := newAdminApp()

	status, body := doJSON(t, app, "GET", "/admin/webhook-stats", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, map[string]interface{}{"processed": float64(10), "failed": float64(2)}, body["total"])
	assert.Equal(t, map[string]interface{}{"processed": float64(1)}, body["today"])
}

func TestHandleSettings(t *testing.T) {
	app, settings := newAdminAppWithSettings()

	status, body := doJSON(t, app, "GET", "/admin/settings", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Helping Hands", body["company"])

	status, _ = doJSON(t, app, "PUT", "/admin/settings",
		`{"company":"Helping Hands","donation_debit_account":"Debtors - HH","default_currency":"INR","allow_donation_invoicing":true}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Debtors - HH", settings.current.DonationDebitAccount)
	assert.True(t, settings.current.AllowDonationInvoicing)

	status, _ = doJSON(t, app, "PUT", "/admin/settings", `{"default_currency":"RUPEES"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Debtors - HH", settings.current.DonationDebitAccount)
}
