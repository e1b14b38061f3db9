package paypal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EventPaymentSaleCompleted is the only event type that reaches persistence.
// Everything else well-formed is acknowledged without action.
const EventPaymentSaleCompleted = "PAYMENT.SALE.COMPLETED"

// WebhookEvent is the transient shape of an inbound notification body.
type WebhookEvent struct {
	EventType string `json:"event_type"`
	Resource  struct {
		ID     string `json:"id"`
		State  string `json:"state"`
		Amount struct {
			Total    string `json:"total"`
			Currency string `json:"currency"`
		} `json:"amount"`
		CreateTime string `json:"create_time"`
	} `json:"resource"`
}

// SaleNotification carries the validated fields of a completed sale.
type SaleNotification struct {
	PaymentID  string `validate:"required"`
	State      string `validate:"required"`
	Total      string `validate:"required"`
	Currency   string
	CreateTime string `validate:"required"`

	// Amount is Total parsed as a decimal number.
	Amount float64
}

// ParseWebhookEvent decodes a webhook body. A body that does not parse, or
// parses without an event type, is malformed.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("unparsable webhook body: %w", err)
	}
	if strings.TrimSpace(event.EventType) == "" {
		return nil, errors.New("webhook body missing event_type")
	}
	return &event, nil
}

// SaleNotification validates the resource fields required for a completed
// sale and returns them in normalized form. Rejection happens here, before
// any mutation occurs.
func (e *WebhookEvent) SaleNotification() (*SaleNotification, error) {
	n := &SaleNotification{
		PaymentID:  strings.TrimSpace(e.Resource.ID),
		State:      strings.TrimSpace(e.Resource.State),
		Total:      strings.TrimSpace(e.Resource.Amount.Total),
		Currency:   strings.TrimSpace(e.Resource.Amount.Currency),
		CreateTime: strings.TrimSpace(e.Resource.CreateTime),
	}

	v := validator.New()
	if err := v.Struct(n); err != nil {
		return nil, fmt.Errorf("missing required resource field: %w", err)
	}

	amount, err := strconv.ParseFloat(n.Total, 64)
	if err != nil {
		return nil, fmt.Errorf("non-numeric amount %q: %w", n.Total, err)
	}
	n.Amount = amount
	return n, nil
}
