package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// maxDetailLen caps how much of a provider error body is surfaced to callers.
const maxDetailLen = 400

// brevoClient is the concrete Sender backed by the Brevo transactional API.
type brevoClient struct {
	apiKey     string
	senderName string // e.g. "CardValueLab"
	senderAddr string // e.g. "results@cardvaluelab.com"
	siteURL    string // calculator page link base, e.g. "https://cardvaluelab.com"
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewBrevoClient returns a Sender that delivers email via Brevo.
func NewBrevoClient(apiKey, senderName, senderAddr, siteURL string, logger *slog.Logger) Sender {
	return &brevoClient{
		apiKey:     apiKey,
		senderName: senderName,
		senderAddr: senderAddr,
		siteURL:    siteURL,
		endpoint:   brevoEndpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// ─── BREVO API SHAPES ─────────────────────────────────────────────────────────

type brevoParty struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoRequest struct {
	Sender      brevoParty        `json:"sender"`
	To          []brevoParty      `json:"to"`
	Subject     string            `json:"subject"`
	HTMLContent string            `json:"htmlContent"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// ─── SENDER IMPLEMENTATION ────────────────────────────────────────────────────

// SendResults renders the template for p.Tool and makes a single dispatch
// attempt. There is no retry: a non-2xx answer comes back as a *SendError
// carrying the truncated provider body.
func (c *brevoClient) SendResults(ctx context.Context, p ResultsParams) error {
	subject, htmlBody := BuildResultsEmail(p.Tool, p.Payload, c.siteURL)

	// Per-dispatch reference, attached as a message header and logged so a
	// provider-side trace can be matched to our logs.
	dispatchID := uuid.NewString()

	reqBody := brevoRequest{
		Sender:      brevoParty{Name: c.senderName, Email: c.senderAddr},
		To:          []brevoParty{{Email: p.To}},
		Subject:     subject,
		HTMLContent: htmlBody,
		Headers:     map[string]string{"X-Dispatch-Id": dispatchID},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("email: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &SendError{
			StatusCode: resp.StatusCode,
			Detail:     truncate(string(respBytes), maxDetailLen),
			DispatchID: dispatchID,
		}
	}

	c.logger.Info("email dispatched",
		"tool", p.Tool,
		"dispatch_id", dispatchID,
		"status", resp.StatusCode,
	)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
