// Package billing applies payment provider webhooks to profile subscription
// state.
package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

// Provider event names.
const (
	EventSubscriptionCreate  = "subscription.create"
	EventSubscriptionDisable = "subscription.disable"
	EventSubscriptionNoRenew = "subscription.not_renew"
	EventChargeSuccess       = "charge.success"
	EventInvoiceCreate       = "invoice.create"
	EventInvoiceFailed       = "invoice.payment_failed"
)

// Event is a webhook delivery.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

type EventData struct {
	// ID is a number for most events and a string for some.
	ID               any              `json:"id"`
	Reference        string           `json:"reference"`
	SubscriptionCode string           `json:"subscription_code"`
	Customer         Customer         `json:"customer"`
	Subscription     *SubscriptionRef `json:"subscription"`
}

// SubscriptionRef is the nested subscription object on invoice events.
type SubscriptionRef struct {
	SubscriptionCode string `json:"subscription_code"`
}

type Customer struct {
	CustomerCode string `json:"customer_code"`
	Email        string `json:"email"`
}

// ParseEvent decodes a webhook body. Numeric ids keep their exact digits.
func ParseEvent(body []byte) (Event, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var e Event
	if err := dec.Decode(&e); err != nil {
		return Event{}, apierr.Validation("invalid webhook payload: %v", err)
	}
	if e.Event == "" {
		return Event{}, apierr.Validation("webhook payload has no event")
	}
	return e, nil
}

// SubscriptionCode returns the subscription code at the top of data or inside
// data.subscription.
func (e Event) SubscriptionCode() string {
	if e.Data.SubscriptionCode != "" {
		return e.Data.SubscriptionCode
	}
	if e.Data.Subscription != nil {
		return e.Data.Subscription.SubscriptionCode
	}
	return ""
}

// DedupKey identifies a delivery across retries: the event name joined with
// data.id, data.reference or the subscription code, whichever is present
// first. ok is false when none is.
func (e Event) DedupKey() (key string, ok bool) {
	for _, part := range []string{idString(e.Data.ID), e.Data.Reference, e.SubscriptionCode()} {
		if part = strings.TrimSpace(part); part != "" {
			return e.Event + ":" + part, true
		}
	}
	return "", false
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}
