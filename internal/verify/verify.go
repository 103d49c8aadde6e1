// Package verify defines the interface for anti-abuse token verification and
// provides a Cloudflare Turnstile-backed implementation.
package verify

import "context"

// Verifier is the interface the API layer uses to check a bot-challenge
// token. Tests inject a stub that records calls without hitting the network.
type Verifier interface {
	// Verify reports whether the token passes the challenge. ok=false with a
	// nil error is an ordinary rejection; a non-nil error indicates the
	// upstream call itself failed (also treated as rejection by callers, but
	// worth logging separately).
	Verify(ctx context.Context, token, remoteIP string) (ok bool, err error)
}
