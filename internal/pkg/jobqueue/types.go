package jobqueue

import (
	"encoding/json"
	"fmt"
	"time"
)

type JobType string

const (
	// JobTypeOperatorNotification mails every configured operator.
	JobTypeOperatorNotification JobType = "operator_notification"
	// JobTypeDonationInvoice invoices a paid donation outside the request.
	JobTypeDonationInvoice JobType = "donation_invoice"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job is the document stored in Redis for every enqueued unit of work.
// Payload stays a plain map so a job survives payload struct changes.
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

type OperatorNotificationJobPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (p OperatorNotificationJobPayload) ToMap() map[string]interface{} {
	return payloadToMap(p)
}

func OperatorNotificationJobPayloadFromMap(data map[string]interface{}) (*OperatorNotificationJobPayload, error) {
	return payloadFromMap[OperatorNotificationJobPayload](data)
}

// DonationInvoiceJobPayload names the donation to invoice and whether a
// payment settlement follows the invoice.
type DonationInvoiceJobPayload struct {
	DonationID     uint `json:"donation_id"`
	WithSettlement bool `json:"with_settlement"`
}

func (p DonationInvoiceJobPayload) ToMap() map[string]interface{} {
	return payloadToMap(p)
}

func DonationInvoiceJobPayloadFromMap(data map[string]interface{}) (*DonationInvoiceJobPayload, error) {
	p, err := payloadFromMap[DonationInvoiceJobPayload](data)
	if err != nil {
		return nil, err
	}
	if p.DonationID == 0 {
		return nil, fmt.Errorf("donation invoice job: missing donation_id")
	}
	return p, nil
}

// payloadToMap goes through JSON so numbers and nested values have the same
// shape as after a round trip through Redis.
func payloadToMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func payloadFromMap[T any](data map[string]interface{}) (*T, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode job payload: %w", err)
	}
	return &out, nil
}

// IsRetryable reports whether a failed job has attempts left.
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

func (j *Job) transition(status JobStatus) time.Time {
	now := time.Now()
	j.Status = status
	j.UpdatedAt = now
	return now
}

func (j *Job) MarkAsProcessing() {
	now := j.transition(JobStatusProcessing)
	j.ProcessedAt = &now
}

func (j *Job) MarkAsCompleted() {
	now := j.transition(JobStatusCompleted)
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed records the error and counts the attempt.
func (j *Job) MarkAsFailed(errorMsg string) {
	j.transition(JobStatusFailed)
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

func (j *Job) MarkAsRetrying() {
	j.transition(JobStatusRetrying)
}
