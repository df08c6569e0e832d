package decision

import (
	"net/http"

	"github.com/TylerGelinas/socure/internal/verification/evaluator"
)

// Combine reduces a response status and module judgments into one verdict.
// Rule priority (first match wins):
//  1. Any status other than 200 blocks. Status 0 means no response arrived.
//  2. Any Fail blocks.
//  3. Under PolicyFailClosed, any Inconclusive blocks.
//  4. Otherwise proceed.
//
// The result depends only on the multiset of verdicts, so judgment order never matters.
func Combine(status int, judgments []evaluator.Judgment, policy Policy) Verdict {
	if status != http.StatusOK {
		if status == 0 {
			return Verdict{Proceed: false, Reason: ReasonTransportFailure}
		}
		return Verdict{Proceed: false, Reason: ReasonNonSuccessStatus}
	}

	inconclusive := false
	for _, j := range judgments {
		switch j.Verdict {
		case evaluator.Fail:
			return Verdict{Proceed: false, Reason: ReasonModuleFailed}
		case evaluator.Inconclusive:
			inconclusive = true
		}
	}

	if inconclusive {
		if policy == PolicyFailClosed {
			return Verdict{Proceed: false, Reason: ReasonInconclusiveBlocked}
		}
		return Verdict{Proceed: true, Reason: ReasonPassedWithInconclusive}
	}
	return Verdict{Proceed: true, Reason: ReasonAllChecksPassed}
}
