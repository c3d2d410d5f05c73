package donation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebhookPayload(t *testing.T) {
	raw := []byte(`{
		"entity": "event",
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_1",
					"amount": 50000,
					"currency": "INR",
					"email": "a@b.com",
					"contact": "+919999999999",
					"method": "card",
					"description": "Donation",
					"invoice_id": null,
					"notes": {"Full Name": "Jane Doe", "count": 3}
				}
			}
		}
	}`)

	payload, err := ParseWebhookPayload(raw)
	require.NoError(t, err)

	payment := payload.Payment()
	assert.Equal(t, EventPaymentCaptured, payload.Event)
	assert.Equal(t, "pay_1", payment.ID)
	assert.Equal(t, int64(50000), payment.Amount)
	assert.Equal(t, "card", payment.Method)
	assert.Equal(t, "", payment.InvoiceID)
	assert.Equal(t, "Jane Doe", payment.Notes.Fields["Full Name"])
	assert.Equal(t, "3", payment.Notes.Fields["count"])
	assert.True(t, decimal.RequireFromString("500.00").Equal(payment.MajorAmount()))
	assert.False(t, payment.IsRecurring())
}

func TestParseWebhookPayloadNotesShapes(t *testing.T) {
	payload, err := ParseWebhookPayload([]byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_2","notes":"in memory of Ann"}}}}`))
	require.NoError(t, err)
	assert.Equal(t, "in memory of Ann", payload.Payment().Notes.Text)

	payload, err = ParseWebhookPayload([]byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_3","notes":[]}}}}`))
	require.NoError(t, err)
	assert.True(t, payload.Payment().Notes.IsEmpty())
}

func TestParseWebhookPayloadRejectsBadInput(t *testing.T) {
	for _, raw := range []string{`not json`, `{"payload":{}}`, `{"event":"payment.captured","payload":{"payment":{"entity":{"amount":"12"}}}}`} {
		_, err := ParseWebhookPayload([]byte(raw))
		assert.True(t, errors.Is(err, ErrInvalidPayload), "input %s: %v", raw, err)
	}
}

func TestPaymentIsRecurring(t *testing.T) {
	assert.True(t, PaymentEntity{InvoiceID: "inv_1"}.IsRecurring())
	assert.True(t, PaymentEntity{Description: "Monthly SUBSCRIPTION charge"}.IsRecurring())
	assert.False(t, PaymentEntity{Description: "one-off gift"}.IsRecurring())
}

func TestMajorAmount(t *testing.T) {
	assert.Equal(t, "1.05", PaymentEntity{Amount: 105}.MajorAmount().StringFixed(2))
	assert.Equal(t, "0.00", PaymentEntity{}.MajorAmount().StringFixed(2))
}
