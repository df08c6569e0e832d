package evaluator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/TylerGelinas/socure/internal/verification/module"
)

// rule turns a located section into a judgment, or a *ParseError when the
// section's shape is not what the module promises.
type rule func(m module.Module, section gjson.Result, t Thresholds) (Judgment, error)

var rules = map[module.Module]rule{
	module.KYC:              fieldValidationRule,
	module.EmailRiskScore:   riskScoreRule,
	module.AddressRiskScore: riskScoreRule,
	module.PhoneRiskScore:   riskScoreRule,
}

// riskScoreRule fails a module whose numeric "score" is below the score threshold.
func riskScoreRule(m module.Module, section gjson.Result, t Thresholds) (Judgment, error) {
	if !section.IsObject() {
		return Judgment{}, &ParseError{Module: m.WireID(), Reason: "section is not an object"}
	}
	score := section.Get("score")
	if !score.Exists() {
		return Judgment{}, &ParseError{Module: m.WireID(), Reason: "score missing"}
	}
	if score.Type != gjson.Number {
		return Judgment{}, &ParseError{Module: m.WireID(), Reason: "score is not numeric"}
	}

	v := score.Float()
	j := Judgment{Module: m, Verdict: Pass, Score: &v}
	if v < t.Score {
		j.Verdict = Fail
		j.Detail = fmt.Sprintf("score %.2f below %.2f", v, t.Score)
	}
	return j, nil
}

// fieldValidationRule fails KYC when any field confidence is below the field threshold.
func fieldValidationRule(m module.Module, section gjson.Result, t Thresholds) (Judgment, error) {
	if !section.IsObject() {
		return Judgment{}, &ParseError{Module: m.WireID(), Reason: "section is not an object"}
	}
	fields := section.Get("fieldValidations")
	if !fields.IsObject() {
		return Judgment{}, &ParseError{Module: m.WireID(), Reason: "fieldValidations missing or not an object"}
	}

	var (
		lowest  float64
		seen    int
		failing []string
		badErr  error
	)
	fields.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.Number {
			badErr = &ParseError{Module: m.WireID(), Reason: fmt.Sprintf("fieldValidations.%s is not numeric", key.String())}
			return false
		}
		v := value.Float()
		if seen == 0 || v < lowest {
			lowest = v
		}
		seen++
		if v < t.FieldValidation {
			failing = append(failing, key.String())
		}
		return true
	})
	if badErr != nil {
		return Judgment{}, badErr
	}
	if seen == 0 {
		return Judgment{}, &ParseError{Module: m.WireID(), Reason: "fieldValidations is empty"}
	}

	j := Judgment{Module: m, Verdict: Pass, Score: &lowest}
	if len(failing) > 0 {
		slices.Sort(failing)
		j.Verdict = Fail
		j.Detail = fmt.Sprintf("fields below %.2f: %s", t.FieldValidation, strings.Join(failing, ", "))
	}
	return j, nil
}

// section returns the first present section for m, trying its response key before its wire id.
func section(root gjson.Result, m module.Module) (gjson.Result, bool) {
	for _, key := range m.SectionKeys() {
		if r := root.Get(gjson.Escape(key)); r.Exists() && r.Type != gjson.Null {
			return r, true
		}
	}
	return gjson.Result{}, false
}
