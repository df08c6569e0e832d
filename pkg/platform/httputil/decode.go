package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "github.com/TylerGelinas/socure/pkg/domain-errors"
)

// DecodeJSON decodes the request body into T. On failure it writes a 400 and returns false.
func DecodeJSON[T any](ctx context.Context, w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string) (*T, bool) {
	return decodeJSON[T](ctx, w, r, logger, requestID, false)
}

func decodeJSON[T any](ctx context.Context, w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string, optional bool) (*T, bool) {
	var req T
	err := json.NewDecoder(r.Body).Decode(&req)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return &req, true
	}

	logger.WarnContext(ctx, "failed to decode request body",
		"error", err,
		"request_id", requestID,
	)
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body too large"))
		return nil, false
	}
	WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
	return nil, false
}

// Validatable is implemented by request types that support validation.
type Validatable interface {
	Validate() error
}

// Normalizable is implemented by request types that support normalization.
type Normalizable interface {
	Normalize()
}

// Sanitizable is implemented by request types that support sanitization.
type Sanitizable interface {
	Sanitize()
}

// PrepareRequest runs Sanitize, Normalize and Validate in that order, for whichever
// of them req implements.
func PrepareRequest(req any) error {
	if s, ok := req.(Sanitizable); ok {
		s.Sanitize()
	}
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// DecodeAndPrepare decodes the body and prepares it. Preparation failures become
// validation errors unless they already carry a domain code.
func DecodeAndPrepare[T any](ctx context.Context, w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string) (*T, bool) {
	return decodeAndPrepare[T](ctx, w, r, logger, requestID, false)
}

// DecodeAndPrepareOptional is DecodeAndPrepare for endpoints whose body may be
// absent: an empty body, including an empty chunked one, yields the zero T.
func DecodeAndPrepareOptional[T any](ctx context.Context, w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string) (*T, bool) {
	return decodeAndPrepare[T](ctx, w, r, logger, requestID, true)
}

func decodeAndPrepare[T any](ctx context.Context, w http.ResponseWriter, r *http.Request, logger *slog.Logger, requestID string, optional bool) (*T, bool) {
	req, ok := decodeJSON[T](ctx, w, r, logger, requestID, optional)
	if !ok {
		return nil, false
	}

	if err := PrepareRequest(req); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestID,
		)
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			WriteError(w, err)
		} else {
			WriteError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
		}
		return nil, false
	}
	return req, true
}
