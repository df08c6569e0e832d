// Package ports defines the interfaces the decision service depends on.
package ports

import (
	"context"

	"github.com/TylerGelinas/socure/internal/verification/client"
	"github.com/TylerGelinas/socure/internal/verification/evaluator"
	"github.com/TylerGelinas/socure/internal/verification/module"
	"github.com/TylerGelinas/socure/internal/verification/request"
	"github.com/TylerGelinas/socure/pkg/platform/audit"
)

// VerificationClient performs one outbound verification call.
// Failures are reported as *client.TransportError.
type VerificationClient interface {
	Send(ctx context.Context, payload *request.Payload) (*client.Response, error)
}

// ResponseEvaluator turns a verification response into one judgment per selected module.
type ResponseEvaluator interface {
	Evaluate(ctx context.Context, resp *client.Response, sel module.Selection) []evaluator.Judgment
}

// AuditPublisher records decision events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
