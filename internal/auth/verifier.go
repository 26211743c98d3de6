// Package auth verifies bearer tokens and issues them for local logins.
package auth

import (
	"context"
	"errors"
	"strings"
)

// Outcome tags the result of a token verification.
type Outcome int

const (
	// Invalid means the oracle answered and rejected the token.
	Invalid Outcome = iota
	// Valid means the token was accepted.
	Valid
	// Unavailable means the oracle could not be asked. Retryable.
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Valid:
		return "valid"
	case Unavailable:
		return "unavailable"
	}
	return "invalid"
}

// Identity is who a valid token speaks for.
type Identity struct {
	SubjectID string
	Operator  bool
}

// Result is a tagged verification outcome. Identity is set only when
// Outcome is Valid; Err explains Invalid and Unavailable.
type Result struct {
	Outcome  Outcome
	Identity Identity
	Err      error
}

// Verifier is the auth oracle.
type Verifier interface {
	Verify(ctx context.Context, token string) Result
}

var (
	ErrMissingToken  = errors.New("auth: missing token")
	ErrInvalidFormat = errors.New("auth: invalid authorization format")
	ErrInvalidToken  = errors.New("auth: invalid or expired token")
)

// ExtractBearer pulls the token out of an Authorization header value.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrInvalidFormat
	}
	return parts[1], nil
}
