package evaluator

import (
	"fmt"

	"github.com/TylerGelinas/socure/internal/verification/module"
)

// Verdict is a module-level result.
type Verdict string

const (
	Pass Verdict = "pass"
	Fail Verdict = "fail"
	// Inconclusive means the module yielded no usable signal. It is not a Fail.
	Inconclusive Verdict = "inconclusive"
)

// Judgment is the verdict for one requested module.
type Judgment struct {
	Module  module.Module
	Verdict Verdict
	// Score is the signal the verdict was derived from: the risk score, or the
	// lowest field confidence for KYC. Nil when no signal was extracted.
	Score  *float64
	Detail string
}

// Detail strings shared across rules.
const (
	DetailNoRule        = "no rule defined"
	DetailAbsent        = "section absent"
	DetailNoResponse    = "no response"
	DetailMalformedBody = "malformed response body"
)

// ParseError reports a response section whose shape did not match the module's rule.
type ParseError struct {
	// Module is the module wire id, or "body" for the whole document.
	Module string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s section: %s", e.Module, e.Reason)
}

func inconclusive(m module.Module, detail string) Judgment {
	return Judgment{Module: m, Verdict: Inconclusive, Detail: detail}
}
