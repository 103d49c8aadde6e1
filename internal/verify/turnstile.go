package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const siteverifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// turnstileClient is the concrete Verifier backed by Cloudflare Turnstile.
type turnstileClient struct {
	secret     string
	endpoint   string
	httpClient *http.Client
}

// NewTurnstileVerifier returns a Verifier that checks tokens against the
// Turnstile siteverify endpoint. An empty secret disables verification
// entirely — every token passes. This is the local/dev bypass: environments
// without TURNSTILE_SECRET_KEY never make the outbound call.
func NewTurnstileVerifier(secret string) Verifier {
	return &turnstileClient{
		secret:   secret,
		endpoint: siteverifyURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func (c *turnstileClient) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if c.secret == "" {
		return true, nil
	}
	if strings.TrimSpace(token) == "" {
		// Don't bother the service with a token we know is missing.
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("verify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, fmt.Errorf("verify: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return false, fmt.Errorf("verify: read response: %w", err)
	}

	var parsed siteverifyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, fmt.Errorf("verify: unmarshal response: %w", err)
	}

	return parsed.Success, nil
}
