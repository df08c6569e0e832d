package handler

//go:generate mockgen -source=handler.go -destination=mocks/handler_mock.go -package=mocks Service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/TylerGelinas/socure/internal/decision"
	"github.com/TylerGelinas/socure/internal/decision/handler/mocks"
	"github.com/TylerGelinas/socure/internal/verification/evaluator"
	"github.com/TylerGelinas/socure/internal/verification/module"
	dErrors "github.com/TylerGelinas/socure/pkg/domain-errors"
	"github.com/TylerGelinas/socure/pkg/requestcontext"
)

const path = "/decision/evaluate"

type HandlerSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockService *mocks.MockService
	router      http.Handler
	subject     string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockService = mocks.NewMockService(s.ctrl)
	s.subject = "user-123"
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(s.mockService, logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithRequestID(r.Context(), "req-1")
			if s.subject != "" {
				ctx = requestcontext.WithSubject(ctx, s.subject)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	h.Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) post(body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, path, nil)
	} else {
		req = httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func sampleOutcome() *decision.Outcome {
	score := 0.97
	return &decision.Outcome{
		EvaluationID: uuid.MustParse("5f0c6f1e-8a3b-4c2d-9e1f-0a1b2c3d4e5f"),
		Proceed:      true,
		Reason:       decision.ReasonPassedWithInconclusive,
		StatusCode:   200,
		Judgments: []evaluator.Judgment{
			{Module: module.KYC, Verdict: evaluator.Inconclusive, Detail: evaluator.DetailAbsent},
			{Module: module.AddressRiskScore, Verdict: evaluator.Pass, Score: &score},
		},
		UpdatedState: map[string]any{"flow": "login", decision.StateProceed: true},
		EvaluatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *HandlerSuite) TestEvaluateSuccess() {
	s.mockService.EXPECT().Evaluate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req decision.EvaluateRequest) (*decision.Outcome, error) {
			s.Equal("user-123", req.Subject)
			s.Equal(map[string]any{"flow": "login"}, req.State)
			s.Require().NotNil(req.Identity)
			s.Equal("ada@example.com", req.Identity.Email.String)
			return sampleOutcome(), nil
		})

	rec := s.post(`{"identity":{"email":" ada@example.com "},"state":{"flow":"login"}}`)

	s.Require().Equal(http.StatusOK, rec.Code)
	body := decodeMap(s.T(), rec)
	s.Equal(true, body["proceed"])
	s.Equal("passed_with_inconclusive", body["reason"])
	s.Equal(float64(200), body["status_code"])
	s.Equal("5f0c6f1e-8a3b-4c2d-9e1f-0a1b2c3d4e5f", body["evaluation_id"])
	s.Equal("2026-03-01T12:00:00Z", body["evaluated_at"])
	s.Equal(map[string]any{"flow": "login", "socureProceed": true}, body["state"])

	judgments, ok := body["judgments"].([]any)
	s.Require().True(ok)
	s.Require().Len(judgments, 2)
	s.Equal(map[string]any{"module": "kyc", "verdict": "inconclusive", "score": nil, "detail": "section absent"}, judgments[0])
	s.Equal(map[string]any{"module": "addressriskscore", "verdict": "pass", "score": 0.97}, judgments[1])
}

func (s *HandlerSuite) TestEmptyBodyUsesStoredIdentity() {
	s.mockService.EXPECT().Evaluate(gomock.Any(), decision.EvaluateRequest{Subject: "user-123"}).
		Return(sampleOutcome(), nil)

	rec := s.post("")
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestEmptyChunkedBodyUsesStoredIdentity() {
	s.mockService.EXPECT().Evaluate(gomock.Any(), decision.EvaluateRequest{Subject: "user-123"}).
		Return(sampleOutcome(), nil)

	req := httptest.NewRequest(http.MethodPost, path, io.NopCloser(strings.NewReader("")))
	req.Header.Set("Content-Type", "application/json")
	s.Require().EqualValues(-1, req.ContentLength)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestBlankIdentityIsIgnored() {
	s.mockService.EXPECT().Evaluate(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req decision.EvaluateRequest) (*decision.Outcome, error) {
			s.Nil(req.Identity)
			return sampleOutcome(), nil
		})

	rec := s.post(`{"identity":{"given_name":"  ","email":null}}`)
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestRequestValidation() {
	tooMany := make(map[string]int, 201)
	for i := range 201 {
		tooMany[fmt.Sprintf("k%d", i)] = i
	}
	stateJSON, err := json.Marshal(map[string]any{"state": tooMany})
	s.Require().NoError(err)

	tests := []struct {
		name     string
		body     string
		status   int
		errCode  string
		errMatch string
	}{
		{"malformed json", `{"identity":`, http.StatusBadRequest, "bad_request", "invalid request body"},
		{"invalid email", `{"identity":{"email":"not-an-email"}}`, http.StatusUnprocessableEntity, "validation_error", "email must be a valid email"},
		{"field too long", `{"identity":{"given_name":"` + strings.Repeat("a", 300) + `"}}`, http.StatusUnprocessableEntity, "validation_error", "given_name"},
		{"too many state keys", string(stateJSON), http.StatusUnprocessableEntity, "validation_error", "too many state keys"},
		{"state key too long", `{"state":{"` + strings.Repeat("k", 257) + `":1}}`, http.StatusUnprocessableEntity, "validation_error", "state key exceeds max length"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.post(tt.body)
			s.Equal(tt.status, rec.Code)
			body := decodeMap(s.T(), rec)
			s.Equal(tt.errCode, body["error"])
			s.Contains(body["error_description"], tt.errMatch)
		})
	}
}

func (s *HandlerSuite) TestServiceErrorsMapToStatus() {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", dErrors.New(dErrors.CodeNotFound, "identity not found"), http.StatusNotFound, "not_found"},
		{"missing fields", dErrors.New(dErrors.CodeValidation, "missing required identity fields: zip"), http.StatusUnprocessableEntity, "validation_error"},
		{"cancelled", dErrors.New(dErrors.CodeCancelled, "evaluation cancelled"), 499, "request_cancelled"},
		{"misconfigured", dErrors.New(dErrors.CodeMisconfigured, "no verification modules configured"), http.StatusInternalServerError, "service_misconfigured"},
		{"internal", dErrors.New(dErrors.CodeInternal, "db password in here"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.mockService.EXPECT().Evaluate(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			rec := s.post("")
			s.Equal(tt.status, rec.Code)
			body := decodeMap(s.T(), rec)
			s.Equal(tt.code, body["error"])
			if tt.code == "internal_error" {
				s.NotContains(body, "error_description")
			}
		})
	}
}

func (s *HandlerSuite) TestMissingSubjectIsInternalError() {
	s.subject = ""
	rec := s.post("")
	assert.Equal(s.T(), http.StatusInternalServerError, rec.Code)
}
