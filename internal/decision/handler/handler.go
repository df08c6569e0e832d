// Package handler exposes decision evaluation over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TylerGelinas/socure/internal/decision"
	dErrors "github.com/TylerGelinas/socure/pkg/domain-errors"
	"github.com/TylerGelinas/socure/pkg/platform/httputil"
	"github.com/TylerGelinas/socure/pkg/requestcontext"
)

// Service evaluates decisions.
type Service interface {
	Evaluate(ctx context.Context, req decision.EvaluateRequest) (*decision.Outcome, error)
}

// Handler handles decision endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the decision routes. Callers mount it behind RequireAuth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/decision/evaluate", h.HandleEvaluate)
}

// HandleEvaluate evaluates the authenticated subject. The body is optional.
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	subject := requestcontext.Subject(ctx)

	if subject == "" {
		h.logger.ErrorContext(ctx, "subject missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	body, ok := httputil.DecodeAndPrepareOptional[EvaluateRequest](ctx, w, r, h.logger, requestID)
	if !ok {
		return
	}

	outcome, err := h.service.Evaluate(ctx, decision.EvaluateRequest{
		Subject:  subject,
		Identity: body.Identity,
		State:    body.State,
	})
	if err != nil {
		h.logEvaluateError(ctx, err, requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(outcome))
}

func (h *Handler) logEvaluateError(ctx context.Context, err error, requestID string) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeMisconfigured:
		h.logger.ErrorContext(ctx, "decision evaluation failed",
			"error", err,
			"request_id", requestID,
		)
	default:
		h.logger.WarnContext(ctx, "decision evaluation rejected",
			"error", err,
			"request_id", requestID,
		)
	}
}
