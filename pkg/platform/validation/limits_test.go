package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "github.com/TylerGelinas/socure/pkg/domain-errors"
)

func TestCheckMapSize(t *testing.T) {
	assert.NoError(t, CheckMapSize("state keys", map[string]any{"a": 1}, 1))

	err := CheckMapSize("state keys", map[string]any{"a": 1, "b": 2}, 1)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	assert.EqualError(t, err, "too many state keys: max 1 allowed")
}

func TestCheckStringLength(t *testing.T) {
	assert.NoError(t, CheckStringLength("state key", "journey", MaxStateKeyLength))
	err := CheckStringLength("state key", strings.Repeat("x", MaxStateKeyLength+1), MaxStateKeyLength)
	assert.EqualError(t, err, "state key exceeds max length of 256")
}
