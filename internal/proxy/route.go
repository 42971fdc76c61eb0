// Package proxy implements the Proxy Instance: the per-tool loopback HTTP
// server that authenticates local clients, rewrites auth for the real
// upstream, streams the response back to the client while tapping it for
// token accounting, and records a TokenLog + session touch on
// completion.
//
// Grounded on the teacher's internal/proxy (Options/Proxy/ServeHTTP
// pipeline), internal/proxy/router.go (route parsing, generalized from
// multi-agent-per-provider paths down to one tool per listen address),
// and internal/proxy/forwarder.go (hop-by-hop header stripping, reused
// near verbatim).
package proxy

// Route is the resolved upstream a request forwards to: an immutable
// snapshot taken once per request so concurrent config changes never
// tear a single request's routing (§5: "Runtime config mutation is
// forbidden; changes require stop→write→start").
type Route struct {
	BaseURL string
	APIKey  string
	WireAPI string
	Model   string
}
