package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"membership-service/internal/models"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AssertionVerifier checks sign-in assertions against a remote verifier and
// returns the e-mail address they vouch for.
type AssertionVerifier struct {
	client      *http.Client
	verifierURL string
	audience    string
}

func NewAssertionVerifier(verifierURL, audience string, timeout time.Duration) *AssertionVerifier {
	return &AssertionVerifier{
		client:      &http.Client{Timeout: timeout},
		verifierURL: verifierURL,
		audience:    audience,
	}
}

func (v *AssertionVerifier) Verify(ctx context.Context, assertion string) (string, error) {
	if assertion == "" {
		return "", fmt.Errorf("%w: empty assertion", models.ErrIdentityRejected)
	}

	form := url.Values{
		"assertion": {assertion},
		"audience":  {v.audience},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifierURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrIdentityUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrIdentityUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: verifier answered %d", models.ErrIdentityUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response body: %v", models.ErrIdentityUnavailable, err)
	}

	var result models.Assertion
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: failed to parse verifier response: %v", models.ErrIdentityUnavailable, err)
	}

	if result.Status != "okay" {
		return "", fmt.Errorf("%w: status %q %s", models.ErrIdentityRejected, result.Status, result.Reason)
	}
	if result.Email == "" {
		return "", fmt.Errorf("%w: no email in assertion", models.ErrIdentityRejected)
	}
	return result.Email, nil
}
