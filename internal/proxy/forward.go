package proxy

import (
	"net/http"
	"strings"
)

// hopByHopHeaders must never be forwarded end-to-end; copied verbatim
// from the teacher's internal/proxy/forwarder.go.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailers":            true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// authHeaders are the client-presented auth slots Proxy Instance always
// strips before forwarding (§4.I step 6).
var authHeaders = []string{"Authorization", "X-Api-Key", "X-Goog-Api-Key"}

// extractClientAuth returns the first non-empty client auth credential
// from, in order, authorization (bearer), x-api-key, x-goog-api-key.
func extractClientAuth(h http.Header) string {
	if v := h.Get("Authorization"); v != "" {
		return strings.TrimPrefix(v, "Bearer ")
	}
	if v := h.Get("X-Api-Key"); v != "" {
		return v
	}
	if v := h.Get("X-Goog-Api-Key"); v != "" {
		return v
	}
	return ""
}

// copyHeaders copies src into dst, skipping hop-by-hop headers, Host, and
// every client auth slot (the upstream credential is inserted separately
// by insertUpstreamAuth).
func copyHeaders(dst, src http.Header) {
	for k, values := range src {
		if hopByHopHeaders[k] || k == "Host" || isAuthHeader(k) {
			continue
		}
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

func isAuthHeader(k string) bool {
	for _, h := range authHeaders {
		if strings.EqualFold(k, h) {
			return true
		}
	}
	return false
}

// insertUpstreamAuth places route's credential in the vendor-appropriate
// header slot.
func insertUpstreamAuth(h http.Header, wireAPI, apiKey string) {
	switch wireAPI {
	case "gemini-generatecontent":
		h.Set("X-Goog-Api-Key", apiKey)
	default:
		h.Set("Authorization", "Bearer "+apiKey)
	}
}

// copyResponseHeaders copies src into dst, skipping hop-by-hop headers.
func copyResponseHeaders(dst, src http.Header) {
	for k, values := range src {
		if hopByHopHeaders[k] {
			continue
		}
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}
