// Package tracer is a small tracing abstraction so domain packages can emit
// spans without importing OpenTelemetry directly.
//
// Implementations:
//   - NoopTracer: zero overhead, the default
//   - OTelTracer: OpenTelemetry adapter for production
//   - Recorder: keeps finished spans in memory for tests
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, marking it failed when err is non-nil.
	// End must be called exactly once, typically via defer.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a span. The returned context carries it to child operations.
	//
	//   ctx, span := t.Start(ctx, tracer.SpanVerificationSend, tracer.Int64("modules", 2))
	//   defer span.End(err)
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names, one per evaluation stage.
const (
	SpanEvaluate         = "decision.evaluate"
	SpanIdentityLookup   = "decision.identity_lookup"
	SpanBuildRequest     = "decision.build_request"
	SpanVerificationSend = "decision.verification_send"
	SpanEvaluateResponse = "decision.evaluate_response"
)

// Attribute keys.
const (
	AttrSubjectHash   = "subject.hash"
	AttrModules       = "verification.modules"
	AttrAttempt       = "verification.attempt"
	AttrStatusCode    = "verification.status_code"
	AttrTransportKind = "verification.transport_error"
	AttrProceed       = "decision.proceed"
	AttrReason        = "decision.reason"
	AttrPolicy        = "decision.policy"
	AttrCacheHit      = "cache.hit"
)

// Event names.
const (
	EventAuditEmitted = "audit.emitted"
	EventRetry        = "verification.retry"
)
