package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/DonationDesk/app/models"
	"github.com/ManuelReschke/DonationDesk/app/repository"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/jobqueue"
)

// QueueStats is the read side of the job queue.
type QueueStats interface {
	GetJobStats(ctx context.Context) (map[jobqueue.JobStatus]int64, error)
	GetQueueSize(ctx context.Context) (int64, error)
	GetProcessingSize(ctx context.Context) (int64, error)
}

// WebhookStats reads the webhook outcome counters.
type WebhookStats interface {
	Totals(ctx context.Context) (map[string]int64, error)
	Day(ctx context.Context, day time.Time) (map[string]int64, error)
}

// AdminController serves operator diagnostics
type AdminController struct {
	errorLogs repository.ErrorLogRepository
	settings  repository.SettingRepository
	queue     QueueStats
	webhooks  WebhookStats
}

func NewAdminController(repos *repository.Repositories, queue QueueStats, webhooks WebhookStats) *AdminController {
	return &AdminController{
		errorLogs: repos.ErrorLog,
		settings:  repos.Setting,
		queue:     queue,
		webhooks:  webhooks,
	}
}

// HandleGetErrorLog returns one diagnostic record, the target of the links
// in operator notifications.
func (ac *AdminController) HandleGetErrorLog(c *fiber.Ctx) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "Invalid error log id")
	}
	entry, err := ac.errorLogs.GetByID(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(entry)
}

// HandleQueueStats reports job queue counters.
func (ac *AdminController) HandleQueueStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	stats, err := ac.queue.GetJobStats(ctx)
	if err != nil {
		return respondError(c, err)
	}
	pending, err := ac.queue.GetQueueSize(ctx)
	if err != nil {
		return respondError(c, err)
	}
	processing, err := ac.queue.GetProcessingSize(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"pending":    pending,
		"processing": processing,
		"completed":  stats[jobqueue.JobStatusCompleted],
		"failed":     stats[jobqueue.JobStatusFailed],
	})
}

// HandleWebhookStats reports webhook outcome counters, all time and for today.
func (ac *AdminController) HandleWebhookStats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	totals, err := ac.webhooks.Totals(ctx)
	if err != nil {
		return respondError(c, err)
	}
	today, err := ac.webhooks.Day(ctx, time.Now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"total": totals, "today": today})
}

// HandleGetSettings returns the current non profit settings.
func (ac *AdminController) HandleGetSettings(c *fiber.Ctx) error {
	settings, err := ac.settings.GetNonProfitSettings()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(settings)
}

// HandleUpdateSettings replaces the non profit settings.
func (ac *AdminController) HandleUpdateSettings(c *fiber.Ctx) error {
	var settings models.NonProfitSettings
	if err := c.BodyParser(&settings); err != nil {
		return badRequest(c, err.Error())
	}
	if err := settings.Validate(); err != nil {
		return badRequest(c, err.Error())
	}
	if err := ac.settings.SaveNonProfitSettings(&settings); err != nil {
		return respondError(c, err)
	}
	return c.JSON(settings)
}
