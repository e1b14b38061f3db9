package paypal

import (
	"testing"
)

func TestParseWebhookEvent_Malformed(t *testing.T) {
	if _, err := ParseWebhookEvent([]byte("{not json")); err == nil {
		t.Fatalf("expected unparsable body to fail")
	}
	if _, err := ParseWebhookEvent([]byte(`{"resource":{"id":"PAY-1"}}`)); err == nil {
		t.Fatalf("expected missing event_type to fail")
	}
}

func TestParseWebhookEvent_IrrelevantType(t *testing.T) {
	event, err := ParseWebhookEvent([]byte(`{"event_type":"BILLING.SUBSCRIPTION.CREATED"}`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if event.EventType == EventPaymentSaleCompleted {
		t.Fatalf("event type should not be the relevant one")
	}
}

func TestSaleNotification_Valid(t *testing.T) {
	raw := []byte(`{
		"event_type": "PAYMENT.SALE.COMPLETED",
		"resource": {
			"id": "PAY-1",
			"state": "completed",
			"amount": { "total": "10.00", "currency": "USD" },
			"create_time": "2024-01-01T00:00:00Z"
		}
	}`)

	event, err := ParseWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	sale, err := event.SaleNotification()
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if sale.PaymentID != "PAY-1" || sale.Currency != "USD" {
		t.Fatalf("unexpected fields: id=%q currency=%q", sale.PaymentID, sale.Currency)
	}
	if sale.Amount != 10.00 {
		t.Fatalf("expected amount 10.00, got %v", sale.Amount)
	}
}

func TestSaleNotification_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing id", `{"event_type":"PAYMENT.SALE.COMPLETED","resource":{"state":"completed","amount":{"total":"10.00","currency":"USD"},"create_time":"2024-01-01T00:00:00Z"}}`},
		{"missing state", `{"event_type":"PAYMENT.SALE.COMPLETED","resource":{"id":"PAY-1","amount":{"total":"10.00","currency":"USD"},"create_time":"2024-01-01T00:00:00Z"}}`},
		{"missing total", `{"event_type":"PAYMENT.SALE.COMPLETED","resource":{"id":"PAY-1","state":"completed","amount":{"currency":"USD"},"create_time":"2024-01-01T00:00:00Z"}}`},
		{"missing create_time", `{"event_type":"PAYMENT.SALE.COMPLETED","resource":{"id":"PAY-1","state":"completed","amount":{"total":"10.00","currency":"USD"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseWebhookEvent([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			if _, err := event.SaleNotification(); err == nil {
				t.Fatalf("expected validation to fail")
			}
		})
	}
}

func TestSaleNotification_NonNumericAmount(t *testing.T) {
	raw := []byte(`{
		"event_type": "PAYMENT.SALE.COMPLETED",
		"resource": {
			"id": "PAY-1",
			"state": "completed",
			"amount": { "total": "ten dollars", "currency": "USD" },
			"create_time": "2024-01-01T00:00:00Z"
		}
	}`)

	event, err := ParseWebhookEvent(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if _, err := event.SaleNotification(); err == nil {
		t.Fatalf("expected non-numeric amount to fail validation")
	}
}
