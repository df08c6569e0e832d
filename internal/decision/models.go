package decision

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TylerGelinas/socure/internal/identity"
	"github.com/TylerGelinas/socure/internal/verification/evaluator"
	dErrors "github.com/TylerGelinas/socure/pkg/domain-errors"
)

// Policy decides how Inconclusive judgments affect the outcome.
type Policy string

const (
	// PolicyFailOpen lets Inconclusive judgments through. This is the default.
	PolicyFailOpen Policy = "fail_open"
	// PolicyFailClosed blocks when any module is Inconclusive.
	PolicyFailClosed Policy = "fail_closed"
)

// ParsePolicy accepts "fail_open"/"fail_closed" (also with hyphens, any case).
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")) {
	case PolicyFailOpen, "":
		return PolicyFailOpen, nil
	case PolicyFailClosed:
		return PolicyFailClosed, nil
	default:
		return "", dErrors.New(dErrors.CodeMisconfigured, fmt.Sprintf("unknown inconclusive policy %q", s))
	}
}

// Reason explains why an outcome was reached.
type Reason string

const (
	ReasonTransportFailure       Reason = "transport_failure"
	ReasonNonSuccessStatus       Reason = "non_success_status"
	ReasonModuleFailed           Reason = "module_failed"
	ReasonInconclusiveBlocked    Reason = "inconclusive_blocked"
	ReasonAllChecksPassed        Reason = "all_checks_passed"
	ReasonPassedWithInconclusive Reason = "passed_with_inconclusive"
)

// Verdict is the combined decision before it is wrapped into an Outcome.
type Verdict struct {
	Proceed bool
	Reason  Reason
}

// EvaluateRequest is the input to Service.Evaluate.
type EvaluateRequest struct {
	// Subject is the identity lookup key. Ignored when Identity is set.
	Subject string
	// Identity, when non-nil, is used instead of looking the subject up.
	Identity *identity.Record
	// State is carried forward into Outcome.UpdatedState. It is never modified.
	State map[string]any
}

// State keys written into Outcome.UpdatedState.
const (
	StateReferenceID = "socureReferenceId"
	StateStatusCode  = "socureStatusCode"
	StateModules     = "socureModules"
	StateProceed     = "socureProceed"
)

// Outcome is the result of one evaluation. It is not mutated after Evaluate returns.
type Outcome struct {
	EvaluationID uuid.UUID
	Proceed      bool
	Reason       Reason
	// StatusCode is the verification response status, 0 when no response was received.
	StatusCode   int
	Judgments    []evaluator.Judgment
	UpdatedState map[string]any
	EvaluatedAt  time.Time
}
