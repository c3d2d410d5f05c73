package donation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// EventPaymentCaptured is the only gateway event that creates donations.
const EventPaymentCaptured = "payment.captured"

// WebhookPayload is the typed shape of a gateway payment webhook.
type WebhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Payment returns the nested payment entity.
func (p *WebhookPayload) Payment() PaymentEntity {
	return p.Payload.Payment.Entity
}

// PaymentEntity holds the payment fields used to materialize a donation.
// Amount is in the minor currency unit.
type PaymentEntity struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email"`
	Contact     string `json:"contact"`
	Method      string `json:"method"`
	Description string `json:"description"`
	InvoiceID   string `json:"invoice_id"`
	Notes       Notes  `json:"notes"`
}

// MajorAmount converts the gateway amount to the major currency unit.
func (p PaymentEntity) MajorAmount() decimal.Decimal {
	return decimal.New(p.Amount, -2)
}

// IsRecurring reports whether the payment belongs to a subscription. Those
// charges are booked by the subscription flow, not as donations.
func (p PaymentEntity) IsRecurring() bool {
	if strings.TrimSpace(p.InvoiceID) != "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Description), "subscription")
}

// Notes are free-form custom fields. Gateways send either a flat object, a
// plain string, or an empty array when nothing was entered.
type Notes struct {
	Fields map[string]string
	Text   string
}

func (n *Notes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &n.Text)
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		if len(list) > 0 {
			return fmt.Errorf("notes: unexpected non-empty array")
		}
		return nil
	case '{':
		var raw map[string]interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		n.Fields = make(map[string]string, len(raw))
		for k, v := range raw {
			switch val := v.(type) {
			case nil:
				n.Fields[k] = ""
			case string:
				n.Fields[k] = val
			default:
				n.Fields[k] = fmt.Sprint(val)
			}
		}
		return nil
	default:
		return fmt.Errorf("notes: unsupported json value")
	}
}

func (n Notes) MarshalJSON() ([]byte, error) {
	if n.Fields != nil {
		return json.Marshal(n.Fields)
	}
	if n.Text != "" {
		return json.Marshal(n.Text)
	}
	return []byte("null"), nil
}

// IsEmpty reports whether no notes were sent.
func (n Notes) IsEmpty() bool {
	return len(n.Fields) == 0 && strings.TrimSpace(n.Text) == ""
}

// SortedKeys returns the field names in a stable order.
func (n Notes) SortedKeys() []string {
	keys := make([]string, 0, len(n.Fields))
	for k := range n.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseWebhookPayload decodes a webhook body. It fails with an
// InvalidPayload error when the body is not a payment event.
func ParseWebhookPayload(raw []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, wrapError(KindInvalidPayload, "invalid webhook payload", err)
	}
	payload.Event = strings.TrimSpace(payload.Event)
	if payload.Event == "" {
		return nil, newError(KindInvalidPayload, "webhook payload has no event")
	}
	return &payload, nil
}
