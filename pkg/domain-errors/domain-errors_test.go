package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite covers the error primitives every service boundary relies on:
// wrapped codes survive, errors.Is matches by code, CodeOf falls back to internal.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorString() {
	s.Equal("identity not found", (&Error{Code: CodeNotFound, Message: "identity not found"}).Error())
	s.Equal("misconfigured", (&Error{Code: CodeMisconfigured}).Error())
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	s.Run("same code different message", func() {
		s.True(errors.Is(New(CodeValidation, "dob is required"), &Error{Code: CodeValidation}))
	})

	s.Run("different code", func() {
		s.False(errors.Is(New(CodeValidation, "x"), &Error{Code: CodeCancelled}))
	})

	s.Run("through fmt wrapping", func() {
		err := fmt.Errorf("evaluate: %w", New(CodeCancelled, "caller went away"))
		s.True(errors.Is(err, &Error{Code: CodeCancelled}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves existing domain code", func() {
		wrapped := Wrap(New(CodeNotFound, "no profile"), CodeInternal, "lookup identity")
		s.True(HasCode(wrapped, CodeNotFound))
		s.Equal("lookup identity", wrapped.Error())
	})

	s.Run("applies code to foreign errors", func() {
		root := errors.New("connection reset")
		wrapped := Wrap(root, CodeInternal, "lookup identity")
		s.True(HasCode(wrapped, CodeInternal))
		s.True(errors.Is(wrapped, root))
	})
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeValidation, CodeOf(New(CodeValidation, "bad")))
	s.Equal(CodeInternal, CodeOf(errors.New("plain")))
	s.Equal(CodeInternal, CodeOf(nil))
	s.False(HasCode(nil, CodeNotFound))
}
