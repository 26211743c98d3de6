package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOracle(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body struct {
			Token string `json:"token"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch body.Token {
		case "user":
			_, _ = w.Write([]byte(`{"is_valid":true,"is_admin":false,"user_id":"u-1"}`))
		case "admin":
			_, _ = w.Write([]byte(`{"is_valid":true,"is_admin":true,"user_id":42}`))
		case "no-subject":
			_, _ = w.Write([]byte(`{"is_valid":true,"is_admin":false}`))
		case "expired":
			w.WriteHeader(http.StatusUnauthorized)
		case "revoked":
			w.WriteHeader(http.StatusForbidden)
		case "crash":
			w.WriteHeader(http.StatusInternalServerError)
		case "garbage":
			_, _ = w.Write([]byte(`nope`))
		default:
			_, _ = w.Write([]byte(`{"is_valid":false}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteVerifier(t *testing.T) {
	srv := newOracle(t)
	v := NewRemoteVerifier(srv.URL, time.Second)
	ctx := context.Background()

	res := v.Verify(ctx, "user")
	require.Equal(t, Valid, res.Outcome, res.Err)
	assert.Equal(t, Identity{SubjectID: "u-1"}, res.Identity)

	res = v.Verify(ctx, "admin")
	require.Equal(t, Valid, res.Outcome)
	assert.Equal(t, Identity{SubjectID: "42", Operator: true}, res.Identity)

	assert.Equal(t, Invalid, v.Verify(ctx, "forged").Outcome)
	assert.Equal(t, Invalid, v.Verify(ctx, "no-subject").Outcome)

	// An explicit 401/403 is a rejection, not an outage.
	for _, tok := range []string{"expired", "revoked"} {
		res := v.Verify(ctx, tok)
		assert.Equal(t, Invalid, res.Outcome, tok)
		assert.ErrorIs(t, res.Err, ErrInvalidToken, tok)
	}

	assert.Equal(t, Unavailable, v.Verify(ctx, "crash").Outcome)
	assert.Equal(t, Unavailable, v.Verify(ctx, "garbage").Outcome)
}

func TestRemoteVerifier_Unreachable(t *testing.T) {
	v := NewRemoteVerifier("http://127.0.0.1:1/verify", 100*time.Millisecond)
	res := v.Verify(context.Background(), "user")
	assert.Equal(t, Unavailable, res.Outcome)
	assert.Error(t, res.Err)
}
