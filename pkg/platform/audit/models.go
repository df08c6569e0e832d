package audit

import (
	"context"
	"time"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	// Subject is a hashed identifier of the evaluated identity, never the raw value.
	Subject    string   `json:"subject"`
	Decision   string   `json:"decision"`
	Reason     string   `json:"reason"`
	StatusCode int      `json:"status_code,omitempty"`
	Modules    []string `json:"modules,omitempty"`
	// ReferenceID is the upstream verification reference, when one was returned.
	ReferenceID string `json:"reference_id,omitempty"`
	RequestID   string `json:"request_id,omitempty"`

	// Client enrichment from request middleware.
	ClientIPPrefix string `json:"client_ip_prefix,omitempty"`
	DeviceBrowser  string `json:"device_browser,omitempty"`
	DeviceOS       string `json:"device_os,omitempty"`
	DeviceMobile   bool   `json:"device_mobile,omitempty"`
}

type AuditEvent string

const (
	EventDecisionMade     AuditEvent = "decision_made"
	EventDecisionRejected AuditEvent = "decision_rejected"
)

// Store persists audit events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
}
