package gateway

import (
	"encoding/json"

	"github.com/google/uuid"
)

// SettlementSignal is the asynchronous outcome of a checkout. It may be
// delivered more than once and from more than one source.
type SettlementSignal struct {
	PaymentId  uuid.UUID       `json:"payment_id"`
	GatewayRef string          `json:"gateway_ref,omitempty"`
	Method     string          `json:"method,omitempty"`
	Success    bool            `json:"success"`
	Source     string          `json:"source,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Signal sources.
const (
	SourceWebhook    = "webhook"
	SourceBus        = "bus"
	SourceReconciler = "reconciler"
)
