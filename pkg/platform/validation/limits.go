package validation

import (
	"fmt"

	dErrors "github.com/TylerGelinas/socure/pkg/domain-errors"
)

// MaxBodySize is the maximum accepted request body size (64 KB).
const MaxBodySize = 64 * 1024

const (
	// MaxStateKeys bounds the number of top-level keys in the workflow state
	// echoed back to the caller.
	MaxStateKeys = 200

	// MaxStateKeyLength bounds each workflow state key.
	MaxStateKeyLength = 256
)

// CheckMapSize validates that a map does not exceed the maximum number of keys.
func CheckMapSize[V any](fieldName string, m map[string]V, max int) error {
	if len(m) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum length.
func CheckStringLength(fieldName, value string, max int) error {
	if len(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}
