package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RemoteVerifier asks an external auth service over HTTP:
// POST {url} {"token": "..."} -> {"is_valid", "is_admin", "user_id"}.
type RemoteVerifier struct {
	url    string
	client *http.Client
}

func NewRemoteVerifier(url string, timeout time.Duration) *RemoteVerifier {
	return &RemoteVerifier{url: url, client: &http.Client{Timeout: timeout}}
}

type verifyResponse struct {
	IsValid bool `json:"is_valid"`
	IsAdmin bool `json:"is_admin"`
	UserID  any  `json:"user_id"`
}

func (r *RemoteVerifier) Verify(ctx context.Context, token string) Result {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return Result{Outcome: Unavailable, Err: fmt.Errorf("auth: encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return Result{Outcome: Unavailable, Err: fmt.Errorf("auth: build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Result{Outcome: Unavailable, Err: fmt.Errorf("auth: oracle unreachable: %w", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		// The oracle answered and rejected the token.
		return Result{Outcome: Invalid, Err: fmt.Errorf("%w: oracle returned %d", ErrInvalidToken, resp.StatusCode)}
	default:
		return Result{Outcome: Unavailable, Err: fmt.Errorf("auth: oracle returned %d", resp.StatusCode)}
	}

	var out verifyResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return Result{Outcome: Unavailable, Err: fmt.Errorf("auth: decode oracle response: %w", err)}
	}

	subject := ""
	if out.UserID != nil {
		subject = fmt.Sprint(out.UserID)
	}
	if !out.IsValid || subject == "" {
		return Result{Outcome: Invalid, Err: ErrInvalidToken}
	}
	return Result{
		Outcome:  Valid,
		Identity: Identity{SubjectID: subject, Operator: out.IsAdmin},
	}
}
