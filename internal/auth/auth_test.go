package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBearer(t *testing.T) {
	token, err := ExtractBearer("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	token, err = ExtractBearer("  bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	_, err = ExtractBearer("")
	assert.ErrorIs(t, err, ErrMissingToken)
	for _, h := range []string{"Basic abc", "Bearer", "Bearer a b", "abc"} {
		_, err = ExtractBearer(h)
		assert.ErrorIs(t, err, ErrInvalidFormat, h)
	}
}

func TestRoles(t *testing.T) {
	def := NewRoles()
	assert.True(t, def.IsOperator("admin"))
	assert.True(t, def.IsOperator("Super_User"))
	assert.False(t, def.IsOperator("user"))
	assert.False(t, def.IsOperator(""))

	custom := NewRoles(" clerk ", "", "supervisor")
	assert.True(t, custom.IsOperator("clerk"))
	assert.True(t, custom.IsOperator("SUPERVISOR"))
	assert.False(t, custom.IsOperator("admin"))
}

func TestJWTVerifier(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	verifier := NewJWTVerifier("secret", NewRoles())
	ctx := context.Background()

	userToken, err := issuer.GenerateToken("u-1", "Alice", "alice@example.com", "user")
	require.NoError(t, err)
	res := verifier.Verify(ctx, userToken)
	require.Equal(t, Valid, res.Outcome, res.Err)
	assert.Equal(t, Identity{SubjectID: "u-1"}, res.Identity)

	adminToken, err := issuer.GenerateToken("u-2", "Op", "op@example.com", "admin")
	require.NoError(t, err)
	res = verifier.Verify(ctx, adminToken)
	require.Equal(t, Valid, res.Outcome)
	assert.True(t, res.Identity.Operator)

	res = NewJWTVerifier("other", NewRoles()).Verify(ctx, userToken)
	assert.Equal(t, Invalid, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrInvalidToken)

	res = verifier.Verify(ctx, "not-a-token")
	assert.Equal(t, Invalid, res.Outcome)
}

func TestJWTVerifier_Expired(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := issuer.GenerateToken("u-1", "Alice", "a@example.com", "admin")
	require.NoError(t, err)

	res := NewJWTVerifier("secret", NewRoles()).Verify(context.Background(), token)
	assert.Equal(t, Invalid, res.Outcome)
	assert.Equal(t, "invalid", res.Outcome.String())
}

func TestJWTVerifier_SubjectFallbackAndAlgorithm(t *testing.T) {
	verifier := NewJWTVerifier("secret", NewRoles())
	ctx := context.Background()

	sub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u-9",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := sub.SignedString([]byte("secret"))
	require.NoError(t, err)
	res := verifier.Verify(ctx, signed)
	require.Equal(t, Valid, res.Outcome)
	assert.Equal(t, "u-9", res.Identity.SubjectID)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err = noSubject.SignedString([]byte("secret"))
	require.NoError(t, err)
	assert.Equal(t, Invalid, verifier.Verify(ctx, signed).Outcome)

	hs512 := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{UserID: "u-1"})
	signed, err = hs512.SignedString([]byte("secret"))
	require.NoError(t, err)
	assert.Equal(t, Invalid, verifier.Verify(ctx, signed).Outcome)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "valid", Valid.String())
	assert.Equal(t, "invalid", Invalid.String())
	assert.Equal(t, "unavailable", Unavailable.String())
}
