package api

import "net/http"

// handleSubscribe is the V1 stub for list subscriptions. It acknowledges any
// request without validating or storing anything; the real implementation
// would add the address to a Brevo contact list.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]any{
		"ok":   true,
		"note": "Not implemented in V1.",
	})
}
