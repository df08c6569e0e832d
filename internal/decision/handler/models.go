package handler

import (
	"time"

	"github.com/TylerGelinas/socure/internal/decision"
	"github.com/TylerGelinas/socure/internal/identity"
	"github.com/TylerGelinas/socure/pkg/platform/validation"
	basevalidation "github.com/TylerGelinas/socure/pkg/validation"
)

// EvaluateRequest is the optional body of POST /decision/evaluate.
type EvaluateRequest struct {
	// Identity overrides the stored identity for the token subject.
	Identity *identity.Record `json:"identity"`
	// State is opaque workflow state, returned with the verification results added.
	State map[string]any `json:"state"`
}

// Normalize trims identity fields; an identity with no values counts as not supplied.
func (r *EvaluateRequest) Normalize() {
	if r.Identity == nil {
		return
	}
	r.Identity.Normalize()
	if r.Identity.IsEmpty() {
		r.Identity = nil
	}
}

func (r *EvaluateRequest) Validate() error {
	if err := validation.CheckMapSize("state keys", r.State, validation.MaxStateKeys); err != nil {
		return err
	}
	for k := range r.State {
		if err := validation.CheckStringLength("state key", k, validation.MaxStateKeyLength); err != nil {
			return err
		}
	}
	if r.Identity == nil {
		return nil
	}
	return basevalidation.Validate(r.Identity)
}

type JudgmentResponse struct {
	Module  string   `json:"module"`
	Verdict string   `json:"verdict"`
	Score   *float64 `json:"score"`
	Detail  string   `json:"detail,omitempty"`
}

type EvaluateResponse struct {
	Proceed      bool               `json:"proceed"`
	Reason       string             `json:"reason"`
	StatusCode   int                `json:"status_code"`
	Judgments    []JudgmentResponse `json:"judgments"`
	State        map[string]any     `json:"state"`
	EvaluationID string             `json:"evaluation_id"`
	EvaluatedAt  time.Time          `json:"evaluated_at"`
}

func toResponse(o *decision.Outcome) *EvaluateResponse {
	judgments := make([]JudgmentResponse, len(o.Judgments))
	for i, j := range o.Judgments {
		judgments[i] = JudgmentResponse{
			Module:  j.Module.WireID(),
			Verdict: string(j.Verdict),
			Score:   j.Score,
			Detail:  j.Detail,
		}
	}
	return &EvaluateResponse{
		Proceed:      o.Proceed,
		Reason:       string(o.Reason),
		StatusCode:   o.StatusCode,
		Judgments:    judgments,
		State:        o.UpdatedState,
		EvaluationID: o.EvaluationID.String(),
		EvaluatedAt:  o.EvaluatedAt.UTC(),
	}
}
