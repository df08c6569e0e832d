package jwttoken

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/TylerGelinas/socure/pkg/domain-errors"
	"github.com/TylerGelinas/socure/pkg/requestcontext"
)

const (
	testKey      = "test-signing-key"
	testIssuer   = "socure-evaluator"
	testAudience = "workflow"
)

func newService(ttl time.Duration) *JWTService {
	return NewJWTService(testKey, testIssuer, testAudience, ttl)
}

func Test_GenerateAndValidate(t *testing.T) {
	svc := newService(time.Minute)
	svc.SetEnv("test")

	token, err := svc.GenerateAccessToken(context.Background(), "user-42")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
	assert.Equal(t, "test", claims.Env)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func Test_GenerateAccessToken_RejectsBlankSubject(t *testing.T) {
	_, err := newService(time.Minute).GenerateAccessToken(context.Background(), " ")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func Test_ValidateToken_Expired(t *testing.T) {
	svc := newService(time.Minute)
	ctx := requestcontext.WithTime(context.Background(), time.Now().Add(-time.Hour))

	token, err := svc.GenerateAccessToken(ctx, "user-42")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.ErrorContains(t, err, "token expired")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_Garbage(t *testing.T) {
	_, err := newService(time.Minute).ValidateToken("not-a-jwt")
	require.ErrorContains(t, err, "invalid token")
}

func Test_ValidateToken_WrongIssuer(t *testing.T) {
	other := NewJWTService(testKey, "someone-else", testAudience, time.Minute)
	token, err := other.GenerateAccessToken(context.Background(), "user-42")
	require.NoError(t, err)

	_, err = newService(time.Minute).ValidateToken(token)
	require.ErrorContains(t, err, "invalid token issuer")
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	other := NewJWTService("another-key", testIssuer, testAudience, time.Minute)
	token, err := other.GenerateAccessToken(context.Background(), "user-42")
	require.NoError(t, err)

	_, err = newService(time.Minute).ValidateToken(token)
	require.Error(t, err)
}

func Test_ValidateToken_RejectsAlgorithmConfusion(t *testing.T) {
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			ID:        uuid.NewString(),
		},
	}

	cases := []struct {
		name       string
		signMethod jwt.SigningMethod
		signKey    any
	}{
		{"hs512 header rejected", jwt.SigningMethodHS512, []byte(testKey)},
		{"alg none rejected", jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			tokenString, err := jwt.NewWithClaims(tt.signMethod, claims).SignedString(tt.signKey)
			require.NoError(t, err)

			_, err = newService(time.Minute).ValidateToken(tokenString)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		})
	}
}

func Test_Adapter(t *testing.T) {
	svc := newService(time.Minute)
	token, err := svc.GenerateAccessToken(context.Background(), "user-7")
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(svc).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims.Subject)
	assert.NotEmpty(t, claims.JTI)

	_, err = NewJWTServiceAdapter(svc).ValidateToken("junk")
	assert.Error(t, err)
}
