package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cardvaluelab/backend/internal/api"
	"github.com/cardvaluelab/backend/internal/calc"
	"github.com/cardvaluelab/backend/internal/email"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

// stubVerifier is a controllable Verifier that records calls.
type stubVerifier struct {
	ok     bool
	err    error
	tokens []string
	ips    []string
}

func (v *stubVerifier) Verify(_ context.Context, token, remoteIP string) (bool, error) {
	v.tokens = append(v.tokens, token)
	v.ips = append(v.ips, remoteIP)
	return v.ok, v.err
}

// stubMailer captures sent emails.
type stubMailer struct {
	sent []email.ResultsParams
	err  error
}

func (m *stubMailer) SendResults(_ context.Context, p email.ResultsParams) error {
	m.sent = append(m.sent, p)
	return m.err
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

type testDeps struct {
	verifier *stubVerifier
	mailer   *stubMailer
	handler  http.Handler
}

func newTestServer(t *testing.T) *testDeps {
	t.Helper()

	v := &stubVerifier{ok: true}
	m := &stubMailer{}

	cfg := api.Config{
		Env:     "development",
		SiteURL: "https://cardvaluelab.com",
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &testDeps{
		verifier: v,
		mailer:   m,
		handler:  api.NewServer(v, m, cfg, logger),
	}
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, bodyReader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Detail string `json:"detail"`
	Note   string `json:"note"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode response body: %v (raw: %s)", err, rr.Body.String())
	}
	return e
}

// validSubmission is a complete, well-formed send-results body.
func validSubmission() map[string]any {
	return map[string]any{
		"email":   "user@example.com",
		"consent": true,
		"tool":    "points",
		"payload": map[string]any{
			"tool":    "points",
			"inputs":  map[string]any{"points": 50000, "cpp": 1.2},
			"outputs": map[string]any{"value": 600, "low": 400, "high": 750},
		},
		"turnstileToken": "tok_test",
	}
}

// ─── GET /healthz ─────────────────────────────────────────────────────────────

func TestHealthz(t *testing.T) {
	deps := newTestServer(t)
	rr := doRequest(t, deps.handler, http.MethodGet, "/healthz", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

// ─── POST /api/send-results — validation ─────────────────────────────────────

func TestSendResults_MissingContentTypeReturns400(t *testing.T) {
	deps := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/send-results",
		strings.NewReader(`{"email":"user@example.com"}`))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	deps.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if e := decodeEnvelope(t, rr); e.OK || e.Error != "Invalid content type." {
		t.Errorf("envelope = %+v", e)
	}
}

func TestSendResults_ContentTypeWithCharsetAccepted(t *testing.T) {
	deps := newTestServer(t)
	b, _ := json.Marshal(validSubmission())
	req := httptest.NewRequest(http.MethodPost, "/api/send-results", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rr := httptest.NewRecorder()
	deps.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSendResults_InvalidJSONReturns400(t *testing.T) {
	deps := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/send-results",
		strings.NewReader(`{bad json`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	deps.handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if e := decodeEnvelope(t, rr); e.Error != "Invalid JSON." {
		t.Errorf("error = %q", e.Error)
	}
}

func TestSendResults_NoConsentReturns400(t *testing.T) {
	// Consent is checked regardless of every other field being valid.
	deps := newTestServer(t)
	body := validSubmission()
	body["consent"] = false

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-results", body, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if e := decodeEnvelope(t, rr); e.Error != "Consent is required." {
		t.Errorf("error = %q", e.Error)
	}
	if len(deps.mailer.sent) != 0 {
		t.Error("no mail should be sent without consent")
	}
}

func TestSendResults_InvalidEmailReturns400(t *testing.T) {
	deps := newTestServer(t)
	for _, addr := range []string{"", "   ", "no-at-sign", "a@b", "a b@c.com", "a@b c.com"} {
		body := validSubmission()
		body["email"] = addr

		rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-results", body, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("email=%q: expected 400, got %d", addr, rr.Code)
			continue
		}
		if e := decodeEnvelope(t, rr); e.Error != "Enter a valid email." {
			t.Errorf("email=%q: error = %q", addr, e.Error)
		}
	}
}

func TestSendResults_UnknownToolReturns400(t *testing.T) {
	deps := newTestServer(t)
	body := validSubmission()
	body["tool"] = "mortgage"

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-results", body, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if e := decodeEnvelope(t, rr); e.Error != "Unknown tool." {
		t.Errorf("error = %q", e.Error)
	}
}

func TestSendResults_ValidationOrder(t *testing.T) {
	// Everything is wrong at once: consent wins, then email, then tool.
	deps := newTestServer(t)

	body := map[string]any{"email": "bad", "consent": false, "tool": "bad"}
	rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-results", body, nil)
	if e := decodeEnvelope(t, rr); e.Error != "Consent is required." {
		t.Errorf("first violation should be consent, got %q", e.Error)
	}

	body["consent"] = true
	rr = doRequest(t, deps.handler, http.MethodPost, "/api/send-results", body, nil)
	if e := decodeEnvelope(t, rr); e.Error != "Enter a valid email." {
		t.Errorf("second violation should be email, got %q", e.Error)
	}

	body["email"] = "user@example.com"
	rr = doRequest(t, deps.handler, http.MethodPost, "/api/send-results", body, nil)
	if e := decodeEnvelope(t, rr); e.Error != "Unknown tool." {
		t.Errorf("third violation should be tool, got %q", e.Error)
	}
}

// ─── POST /api/send-results — verification ───────────────────────────────────

func TestSendResults_VerificationRejectionReturns403(t *testing.T) {
	deps := newTestServer(t)
	deps.verifier.ok = false

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-results", validSubmission(), nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if e := decodeEnvelope(t, rr); e.Error != "Verification failed. Please try again." {
		t.Errorf("error = %q", e.Error)
	}
	if len(deps.mailer.sent) != 0 {
		t.Error("no mail should be sent after a failed verification")
	}
}

func TestSendResults_VerificationErrorReturns403(t *testing.T) {
	// An upstream failure is indistinguishable from a rejection to the caller.
	deps := newTestServer(t)
	deps.verifier.ok = false
	deps.verifier.err = errors.New("siteverify timeout")

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-results", validSubmission(), nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	if e := decodeEnvelope(t, rr); strings.Contains(e.Error, "timeout") {
		t.Error("upstream detail must not leak into the 403")
	}
}

func TestSendResults_PassesTokenAndForwardedIPToVerifier(t *testing.T) {
	deps := newTestServer(t)

	doRequest(t, deps.handler, http.MethodPost, "/api/send-results", validSubmission(),
		map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"})

	if len(deps.verifier.tokens) != 1 || deps.verifier.tokens[0] != "tok_test" {
		t.Errorf("tokens = %v", deps.verifier.tokens)
	}
	if deps.verifier.ips[0] != "203.0.113.9" {
		t.Errorf("ip = %q, want first forwarded entry", deps.verifier.ips[0])
	}
}

func TestSendResults_PrefersDirectConnectionHeader(t *testing.T) {
	deps := newTestServer(t)

	doRequest(t, deps.handler, http.MethodPost, "/api/send-results", validSubmission(),
		map[string]string{
			"CF-Connecting-IP": "198.51.100.7",
			"X-Forwarded-For":  "203.0.113.9",
		})

	if deps.verifier.ips[0] != "198.51.100.7" {
		t.Errorf("ip = %q, want CF-Connecting-IP value", deps.verifier.ips[0])
	}
}

// ─── POST /api/send-results — dispatch ───────────────────────────────────────

func TestSendResults_SuccessSendsMailAndReturns200(t *testing.T) {
	deps := newTestServer(t)

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-results", validSubmission(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if e := decodeEnvelope(t, rr); !e.OK {
		t.Errorf("envelope = %+v", e)
	}

	if len(deps.mailer.sent) != 1 {
		t.Fatalf("expected 1 sent mail, got %d", len(deps.mailer.sent))
	}
	sent := deps.mailer.sent[0]
	if sent.To != "user@example.com" {
		t.Errorf("to = %q", sent.To)
	}
	if sent.Tool != calc.ToolPoints {
		t.Errorf("tool = %q", sent.Tool)
	}
	if sent.Payload.Inputs["points"] != float64(50000) {
		t.Errorf("payload inputs not resolved: %+v", sent.Payload.Inputs)
	}
}

func TestSendResults_NestedPayloadShapeAccepted(t *testing.T) {
	deps := newTestServer(t)
	body := validSubmission()
	body["payload"] = map[string]any{
		"payload": map[string]any{
			"inputs":  map[string]any{"points": 1000},
			"outputs": map[string]any{"value": 12},
		},
	}

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-results", body, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if deps.mailer.sent[0].Payload.Inputs["points"] != float64(1000) {
		t.Errorf("nested payload not resolved: %+v", deps.mailer.sent[0].Payload)
	}
}

func TestSendResults_MissingPayloadStillSends(t *testing.T) {
	// The payload is display data only; its absence renders zero values
	// rather than failing validation.
	deps := newTestServer(t)
	body := validSubmission()
	delete(body, "payload")

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-results", body, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if deps.mailer.sent[0].Payload.Inputs == nil || deps.mailer.sent[0].Payload.Outputs == nil {
		t.Error("resolved payload maps must not be nil")
	}
}

func TestSendResults_ProviderFailureReturns500WithDetail(t *testing.T) {
	deps := newTestServer(t)
	deps.mailer.err = &email.SendError{
		StatusCode: http.StatusUnauthorized,
		Detail:     `{"code":"unauthorized"}`,
		DispatchID: "d-1",
	}

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-results", validSubmission(), nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	e := decodeEnvelope(t, rr)
	if e.Error != "Email send failed." {
		t.Errorf("error = %q", e.Error)
	}
	if e.Detail != `{"code":"unauthorized"}` {
		t.Errorf("detail = %q", e.Detail)
	}
}

func TestSendResults_UnexpectedErrorReturnsGeneric500(t *testing.T) {
	deps := newTestServer(t)
	deps.mailer.err = errors.New("dial tcp: connection refused")

	rr := doRequest(t, deps.handler, http.MethodPost, "/api/send-results", validSubmission(), nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	e := decodeEnvelope(t, rr)
	if e.Error != "Server error." {
		t.Errorf("error = %q", e.Error)
	}
	if e.Detail != "" {
		t.Error("generic failures must not include a detail")
	}
}

// ─── POST /api/subscribe ─────────────────────────────────────────────────────

func TestSubscribe_AlwaysAcknowledges(t *testing.T) {
	deps := newTestServer(t)

	// Any body — even none at all — gets the same acknowledgment.
	for _, body := range []any{nil, map[string]any{"email": "x@y.z"}, map[string]any{}} {
		rr := doRequest(t, deps.handler, http.MethodPost, "/api/subscribe", body, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		e := decodeEnvelope(t, rr)
		if !e.OK || e.Note != "Not implemented in V1." {
			t.Errorf("envelope = %+v", e)
		}
	}
}
