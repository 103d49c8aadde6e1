// Package email defines the interface for transactional email delivery and
// provides a Brevo-backed implementation that renders the calculator result
// templates.
package email

import (
	"context"
	"fmt"

	"github.com/cardvaluelab/backend/internal/calc"
)

// ResultsParams holds the data needed to send a calculator-results email.
// Payload carries the client-submitted inputs/outputs — the server formats
// them for display but never recomputes them.
type ResultsParams struct {
	To      string
	Tool    calc.Tool
	Payload ResultPayload
}

// Sender is the interface the API layer uses to send email.
// Tests inject a stub that records calls without hitting the network.
type Sender interface {
	// SendResults renders the template for p.Tool and dispatches it to p.To.
	// A provider rejection is returned as a *SendError.
	SendResults(ctx context.Context, p ResultsParams) error
}

// SendError is returned when the email provider answers with a non-success
// status. Detail is the provider's response body truncated to 400 characters,
// safe to echo back to the caller as a diagnostic.
type SendError struct {
	StatusCode int
	Detail     string
	DispatchID string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("email: provider status %d: %s", e.StatusCode, e.Detail)
}
