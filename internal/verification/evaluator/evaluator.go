// Package evaluator converts a verification response into per-module judgments.
//
// Evaluation never fails as a whole: an absent or malformed section makes that
// module Inconclusive, and a malformed body makes every module Inconclusive.
// Parse problems are logged and counted.
package evaluator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/TylerGelinas/socure/internal/verification/client"
	"github.com/TylerGelinas/socure/internal/verification/metrics"
	"github.com/TylerGelinas/socure/internal/verification/module"
	"github.com/TylerGelinas/socure/pkg/requestcontext"
)

// Thresholds are the pass marks applied by the module rules.
type Thresholds struct {
	// Score applies to the risk-score modules. A score below it fails.
	Score float64
	// FieldValidation applies to each KYC field confidence. Any value below it fails.
	FieldValidation float64
}

// DefaultThresholds returns the historical pass marks.
func DefaultThresholds() Thresholds {
	return Thresholds{Score: 0.9, FieldValidation: 0.2}
}

// Evaluator applies module rules to a response. It is immutable and safe for concurrent use.
type Evaluator struct {
	thresholds Thresholds
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Evaluator)

func WithThresholds(t Thresholds) Option {
	return func(e *Evaluator) { e.thresholds = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		thresholds: DefaultThresholds(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Thresholds returns the pass marks in use.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate returns one judgment per selected module, in selection order.
// A nil resp (no response received) yields Inconclusive for every module.
func (e *Evaluator) Evaluate(ctx context.Context, resp *client.Response, sel module.Selection) []Judgment {
	mods := sel.Modules()
	judgments := make([]Judgment, len(mods))

	if resp == nil {
		for i, m := range mods {
			judgments[i] = inconclusive(m, DetailNoResponse)
		}
		e.countVerdicts(judgments)
		return judgments
	}

	if !gjson.ValidBytes(resp.Body) || !gjson.ParseBytes(resp.Body).IsObject() {
		e.parseFailure(ctx, &ParseError{Module: "body", Reason: "response body is not a JSON object"}, resp.StatusCode)
		for i, m := range mods {
			judgments[i] = inconclusive(m, DetailMalformedBody)
		}
		e.countVerdicts(judgments)
		return judgments
	}

	root := gjson.ParseBytes(resp.Body)

	// Each goroutine owns one slot; no other synchronisation is needed.
	var g errgroup.Group
	for i, m := range mods {
		g.Go(func() error {
			judgments[i] = e.judge(ctx, root, m, resp.StatusCode)
			return nil
		})
	}
	_ = g.Wait()

	e.countVerdicts(judgments)
	return judgments
}

func (e *Evaluator) judge(ctx context.Context, root gjson.Result, m module.Module, status int) Judgment {
	r, ok := rules[m]
	if !ok {
		return inconclusive(m, DetailNoRule)
	}

	sec, found := section(root, m)
	if !found {
		e.logger.DebugContext(ctx, "verification section absent",
			"module", m.WireID(),
			"status_code", status,
			"request_id", requestcontext.RequestID(ctx),
		)
		return inconclusive(m, DetailAbsent)
	}

	j, err := r(m, sec, e.thresholds)
	if err != nil {
		var perr *ParseError
		if !errors.As(err, &perr) {
			perr = &ParseError{Module: m.WireID(), Reason: err.Error()}
		}
		e.parseFailure(ctx, perr, status)
		return inconclusive(m, perr.Reason)
	}
	return j
}

func (e *Evaluator) parseFailure(ctx context.Context, perr *ParseError, status int) {
	e.metrics.IncParseError(perr.Module)
	e.logger.WarnContext(ctx, "verification response parse error",
		"module", perr.Module,
		"reason", perr.Reason,
		"status_code", status,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (e *Evaluator) countVerdicts(judgments []Judgment) {
	for _, j := range judgments {
		e.metrics.IncVerdict(j.Module.WireID(), string(j.Verdict))
	}
}
