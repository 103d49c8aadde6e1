package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/cardvaluelab/backend/internal/calc"
	"github.com/cardvaluelab/backend/internal/email"
)

// emailPattern is deliberately loose: one '@', no whitespace, a dotted
// domain. Deliverability is the mail provider's problem, not ours.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type sendResultsRequest struct {
	Email          string          `json:"email"`
	Consent        bool            `json:"consent"`
	Tool           string          `json:"tool"`
	Payload        json.RawMessage `json:"payload"`
	TurnstileToken string          `json:"turnstileToken"`
}

// handleSendResults validates a calculator-results submission, verifies the
// Turnstile token, and forwards the rendered email to the mail provider.
// Validation fails fast on the first violation, in a fixed order:
// content-type, JSON, consent, email, tool.
func (s *Server) handleSendResults(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		respondErr(w, http.StatusBadRequest, "Invalid content type.")
		return
	}

	var req sendResultsRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB max
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondErr(w, http.StatusBadRequest, "Invalid JSON.")
		return
	}

	if !req.Consent {
		respondErr(w, http.StatusBadRequest, "Consent is required.")
		return
	}

	addr := strings.TrimSpace(req.Email)
	if !emailPattern.MatchString(addr) {
		respondErr(w, http.StatusBadRequest, "Enter a valid email.")
		return
	}

	tool, err := calc.ParseTool(strings.TrimSpace(req.Tool))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "Unknown tool.")
		return
	}

	// Anti-abuse gate. An upstream failure is logged but still rejects — the
	// caller sees the same generic 403 either way.
	ok, err := s.verifier.Verify(r.Context(), strings.TrimSpace(req.TurnstileToken), clientIP(r))
	if err != nil {
		s.logger.Warn("turnstile verification error",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
	if err != nil || !ok {
		respondErr(w, http.StatusForbidden, "Verification failed. Please try again.")
		return
	}

	// Single dispatch attempt; no retry. The payload is formatted as-is —
	// outputs are never recomputed server-side.
	err = s.mailer.SendResults(r.Context(), email.ResultsParams{
		To:      addr,
		Tool:    tool,
		Payload: email.ResolvePayload(req.Payload),
	})
	if err != nil {
		var sendErr *email.SendError
		if errors.As(err, &sendErr) {
			s.logger.Error("email send failed",
				"status", sendErr.StatusCode,
				"dispatch_id", sendErr.DispatchID,
				"request_id", middleware.GetReqID(r.Context()),
			)
			respond(w, http.StatusInternalServerError, map[string]any{
				"ok":     false,
				"error":  "Email send failed.",
				"detail": sendErr.Detail,
			})
			return
		}
		s.respondInternalErr(w, r, err)
		return
	}

	respond(w, http.StatusOK, map[string]any{"ok": true})
}
