package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/DonationDesk/internal/pkg/env"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/jobqueue"
	"github.com/ManuelReschke/DonationDesk/internal/pkg/mail"
)

// SendFunc delivers one mail.
type SendFunc func(to, subject, body string) error

// MailNotifier mails every operator address.
type MailNotifier struct {
	Recipients []string
	Send       SendFunc
}

// NewMailNotifierFromEnv mails OPERATOR_EMAILS through SMTP.
func NewMailNotifierFromEnv() *MailNotifier {
	return &MailNotifier{
		Recipients: env.GetEnvList("OPERATOR_EMAILS"),
		Send:       mail.SendMail,
	}
}

func (n *MailNotifier) NotifyOperators(ctx context.Context, subject, body string) error {
	_ = ctx
	if len(n.Recipients) == 0 {
		log.Warnf("[Notify] no OPERATOR_EMAILS configured, dropping %q", subject)
		return nil
	}
	var errs []error
	for _, to := range n.Recipients {
		if err := n.Send(to, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

// Enqueuer is the part of the job queue the notifier needs.
type Enqueuer interface {
	EnqueueJob(jobType jobqueue.JobType, payload map[string]interface{}) (*jobqueue.Job, error)
}

// QueuedNotifier hands notifications to the job queue so that callers never
// wait on SMTP.
type QueuedNotifier struct {
	queue Enqueuer
}

func NewQueuedNotifier(queue Enqueuer) *QueuedNotifier {
	return &QueuedNotifier{queue: queue}
}

func (n *QueuedNotifier) NotifyOperators(ctx context.Context, subject, body string) error {
	_ = ctx
	_, err := n.queue.EnqueueJob(jobqueue.JobTypeOperatorNotification, jobqueue.OperatorNotificationJobPayload{
		Subject: strings.TrimSpace(subject),
		Body:    body,
	}.ToMap())
	return err
}

// Notifier is implemented by MailNotifier and QueuedNotifier.
type Notifier interface {
	NotifyOperators(ctx context.Context, subject, body string) error
}

// JobHandler delivers queued operator notifications through next.
func JobHandler(next Notifier) jobqueue.Handler {
	return func(ctx context.Context, job *jobqueue.Job) error {
		payload, err := jobqueue.OperatorNotificationJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("decode notification job %s: %w", job.ID, err)
		}
		return next.NotifyOperators(ctx, payload.Subject, payload.Body)
	}
}
