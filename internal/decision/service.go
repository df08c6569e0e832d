package decision

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/TylerGelinas/socure/internal/decision/metrics"
	"github.com/TylerGelinas/socure/internal/decision/ports"
	"github.com/TylerGelinas/socure/internal/identity"
	"github.com/TylerGelinas/socure/internal/platform/tracer"
	"github.com/TylerGelinas/socure/internal/verification/client"
	"github.com/TylerGelinas/socure/internal/verification/evaluator"
	"github.com/TylerGelinas/socure/internal/verification/module"
	"github.com/TylerGelinas/socure/internal/verification/request"
	dErrors "github.com/TylerGelinas/socure/pkg/domain-errors"
	"github.com/TylerGelinas/socure/pkg/platform/audit"
	"github.com/TylerGelinas/socure/pkg/platform/privacy"
	"github.com/TylerGelinas/socure/pkg/platform/sentinel"
	"github.com/TylerGelinas/socure/pkg/requestcontext"
)

// Stage labels for the stage latency histogram.
const (
	stageIdentityLookup   = "identity_lookup"
	stageBuildRequest     = "build_request"
	stageVerificationSend = "verification_send"
	stageEvaluateResponse = "evaluate_response"
)

// RetryPolicy controls re-sending after transient transport failures.
// Attempts counts the first call, so 1 disables retries.
type RetryPolicy struct {
	Attempts uint
	Delay    time.Duration
}

// Service evaluates whether an identity may proceed. One call runs one linear
// pipeline: resolve identity, build the request, call the verification service,
// judge each module, combine. The Service holds no per-call state and is safe
// for concurrent use.
type Service struct {
	source    identity.Source
	client    ports.VerificationClient
	evaluator ports.ResponseEvaluator
	auditor   ports.AuditPublisher
	selection module.Selection
	policy    Policy
	retry     RetryPolicy
	metrics   *metrics.Metrics
	tracer    tracer.Tracer
	logger    *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

// WithPolicy sets how Inconclusive judgments are treated. Defaults to PolicyFailOpen.
func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithRetry enables re-sending on transient transport failures. Attempts below 1 are treated as 1.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(s *Service) {
		s.retry = RetryPolicy{Attempts: max(attempts, 1), Delay: delay}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a decision service. Panics if a required dependency is nil.
// An empty selection is accepted here and reported per call as a
// misconfiguration, so a bad deploy surfaces on the first request.
func New(
	source identity.Source,
	verifier ports.VerificationClient,
	eval ports.ResponseEvaluator,
	auditor ports.AuditPublisher,
	selection module.Selection,
	opts ...Option,
) *Service {
	if source == nil {
		panic("decision.New: identity source is required")
	}
	if verifier == nil {
		panic("decision.New: verification client is required")
	}
	if eval == nil {
		panic("decision.New: response evaluator is required")
	}
	if auditor == nil {
		panic("decision.New: auditor is required for the decision audit trail")
	}

	s := &Service{
		source:    source,
		client:    verifier,
		evaluator: eval,
		auditor:   auditor,
		selection: selection,
		policy:    PolicyFailOpen,
		retry:     RetryPolicy{Attempts: 1},
		tracer:    tracer.NewNoop(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Selection returns the configured module selection.
func (s *Service) Selection() module.Selection {
	return s.selection
}

// Policy returns the configured inconclusive policy.
func (s *Service) Policy() Policy {
	return s.policy
}

// Evaluate runs one decision. Transport and parse failures never abort: they
// are folded into an Outcome with Proceed=false or Inconclusive judgments.
// Errors are returned only for identity problems, misconfiguration and
// caller cancellation.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest) (outcome *Outcome, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanEvaluate,
		tracer.String(tracer.AttrPolicy, string(s.policy)),
		tracer.String(tracer.AttrModules, s.selection.String()),
	)
	defer func() {
		span.End(err)
		s.metrics.ObserveEvaluateLatency(time.Since(start))
	}()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, cancelled(ctxErr)
	}

	record, err := s.resolveIdentity(ctx, req)
	if err != nil {
		s.emitRejected(ctx, req.Subject, err)
		return nil, err
	}

	payload, err := s.buildRequest(ctx, record)
	if err != nil {
		s.emitRejected(ctx, req.Subject, err)
		return nil, err
	}

	resp, sendErr := s.send(ctx, payload)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, cancelled(ctxErr)
	}

	judgments := s.evaluateResponse(ctx, resp)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	verdict := Combine(status, judgments, s.policy)

	outcome = &Outcome{
		EvaluationID: uuid.New(),
		Proceed:      verdict.Proceed,
		Reason:       verdict.Reason,
		StatusCode:   status,
		Judgments:    judgments,
		UpdatedState: updatedState(req.State, resp, judgments, status, verdict.Proceed),
		EvaluatedAt:  requestcontext.Now(ctx),
	}

	span.SetAttributes(
		tracer.Bool(tracer.AttrProceed, outcome.Proceed),
		tracer.String(tracer.AttrReason, string(outcome.Reason)),
		tracer.Int64(tracer.AttrStatusCode, int64(status)),
	)
	s.metrics.IncOutcome(outcome.Proceed, string(outcome.Reason))
	if s.emitDecision(ctx, req.Subject, outcome) {
		span.AddEvent(tracer.EventAuditEmitted, tracer.String("audit.action", string(audit.EventDecisionMade)))
	}

	s.logger.InfoContext(ctx, "decision evaluated",
		"evaluation_id", outcome.EvaluationID,
		"proceed", outcome.Proceed,
		"reason", outcome.Reason,
		"status_code", status,
		"transport_error", sendErr != nil,
		"subject_hash", privacy.HashIdentifier(req.Subject),
		"request_id", requestcontext.RequestID(ctx),
	)
	return outcome, nil
}

func (s *Service) resolveIdentity(ctx context.Context, req EvaluateRequest) (_ identity.Record, err error) {
	if req.Identity != nil {
		rec := *req.Identity
		rec.Normalize()
		return rec, nil
	}
	if strings.TrimSpace(req.Subject) == "" {
		return identity.Record{}, dErrors.New(dErrors.CodeBadRequest, "subject is required")
	}

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanIdentityLookup,
		tracer.String(tracer.AttrSubjectHash, privacy.HashIdentifier(req.Subject)),
	)
	defer func() {
		span.End(err)
		s.metrics.ObserveStage(stageIdentityLookup, time.Since(start))
	}()

	found, err := s.source.Lookup(ctx, req.Subject)
	switch {
	case err == nil && found != nil:
	case err == nil, errors.Is(err, sentinel.ErrNotFound):
		return identity.Record{}, dErrors.New(dErrors.CodeNotFound, "identity not found")
	case ctx.Err() != nil:
		return identity.Record{}, cancelled(ctx.Err())
	default:
		return identity.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up identity")
	}

	rec := *found
	rec.Normalize()
	return rec, nil
}

func (s *Service) buildRequest(ctx context.Context, record identity.Record) (_ *request.Payload, err error) {
	start := time.Now()
	_, span := s.tracer.Start(ctx, tracer.SpanBuildRequest)
	defer func() {
		span.End(err)
		s.metrics.ObserveStage(stageBuildRequest, time.Since(start))
	}()

	payload, err := request.Build(record, s.selection)
	if err != nil {
		s.logger.WarnContext(ctx, "verification request not built",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, err
	}
	return payload, nil
}

// send calls the verification service under the retry policy. The returned
// error is the last attempt's transport error; it is informational only.
func (s *Service) send(ctx context.Context, payload *request.Payload) (resp *client.Response, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerificationSend,
		tracer.String(tracer.AttrModules, s.selection.String()),
	)
	defer func() {
		span.End(err)
		s.metrics.ObserveStage(stageVerificationSend, time.Since(start))
	}()

	var attempt uint
	// The outcome is read from resp/err; Do's own error only adds context errors
	// which the caller checks directly.
	_ = retry.Do(
		func() error {
			attempt++
			if attempt > 1 {
				s.metrics.IncRetry()
				span.AddEvent(tracer.EventRetry, tracer.Int64(tracer.AttrAttempt, int64(attempt)))
				s.logger.InfoContext(ctx, "retrying verification request",
					"attempt", attempt,
					"previous_error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
			}
			resp, err = s.client.Send(ctx, payload)
			return err
		},
		retry.Attempts(s.retry.Attempts),
		retry.Delay(s.retry.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.Context(ctx),
	)

	span.SetAttributes(tracer.Int64(tracer.AttrAttempt, int64(attempt)))
	if resp != nil {
		span.SetAttributes(tracer.Int64(tracer.AttrStatusCode, int64(resp.StatusCode)))
	}
	var terr *client.TransportError
	if errors.As(err, &terr) {
		span.SetAttributes(tracer.String(tracer.AttrTransportKind, string(terr.Kind)))
	}
	return resp, err
}

// retryable reports whether a failed send is worth repeating.
func retryable(err error) bool {
	var terr *client.TransportError
	return errors.As(err, &terr) && terr.Transient()
}

func (s *Service) evaluateResponse(ctx context.Context, resp *client.Response) []evaluator.Judgment {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanEvaluateResponse)
	defer func() {
		span.End(nil)
		s.metrics.ObserveStage(stageEvaluateResponse, time.Since(start))
	}()
	return s.evaluator.Evaluate(ctx, resp, s.selection)
}

// updatedState copies in and adds the verification results. The caller's map
// is never modified or aliased.
func updatedState(in map[string]any, resp *client.Response, judgments []evaluator.Judgment, status int, proceed bool) map[string]any {
	out := make(map[string]any, len(in)+4)
	maps.Copy(out, in)

	delete(out, StateReferenceID)
	if resp != nil && gjson.ValidBytes(resp.Body) {
		if ref := gjson.GetBytes(resp.Body, "referenceId"); ref.Type == gjson.String && ref.Str != "" {
			out[StateReferenceID] = ref.Str
		}
	}

	modules := make(map[string]string, len(judgments))
	for _, j := range judgments {
		modules[j.Module.WireID()] = string(j.Verdict)
	}
	out[StateStatusCode] = status
	out[StateModules] = modules
	out[StateProceed] = proceed
	return out
}

func (s *Service) emitDecision(ctx context.Context, subject string, outcome *Outcome) bool {
	event := s.baseEvent(ctx, subject, audit.EventDecisionMade)
	event.Decision = decisionLabel(outcome.Proceed)
	event.Reason = string(outcome.Reason)
	event.StatusCode = outcome.StatusCode
	if ref, ok := outcome.UpdatedState[StateReferenceID].(string); ok {
		event.ReferenceID = ref
	}
	return s.emit(ctx, event)
}

func (s *Service) emitRejected(ctx context.Context, subject string, cause error) {
	if dErrors.HasCode(cause, dErrors.CodeCancelled) {
		return
	}
	event := s.baseEvent(ctx, subject, audit.EventDecisionRejected)
	event.Decision = decisionLabel(false)
	event.Reason = string(dErrors.CodeOf(cause))
	_ = s.emit(ctx, event)
}

func (s *Service) baseEvent(ctx context.Context, subject string, action audit.AuditEvent) audit.Event {
	event := audit.Event{
		Action:    string(action),
		Subject:   privacy.HashIdentifier(subject),
		Modules:   s.selection.WireIDs(),
		RequestID: requestcontext.RequestID(ctx),
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		event.ClientIPPrefix = privacy.AnonymizeIP(ip)
	}
	if device, ok := requestcontext.DeviceInfo(ctx); ok {
		event.DeviceBrowser = device.Browser
		event.DeviceOS = device.OS
		event.DeviceMobile = device.Mobile
	}
	return event
}

// emit is fail-open: an audit failure is logged and counted, never returned.
func (s *Service) emit(ctx context.Context, event audit.Event) bool {
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.metrics.IncAuditFailure()
		s.logger.ErrorContext(ctx, "failed to emit decision audit event",
			"action", event.Action,
			"error", err,
			"request_id", event.RequestID,
		)
		return false
	}
	return true
}

func decisionLabel(proceed bool) string {
	if proceed {
		return "proceed"
	}
	return "deny"
}

func cancelled(cause error) error {
	return dErrors.Wrap(cause, dErrors.CodeCancelled, "evaluation cancelled")
}
