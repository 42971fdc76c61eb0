package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/duckcoding/duckcoding/internal/events"
	"github.com/duckcoding/duckcoding/internal/pricing"
	"github.com/duckcoding/duckcoding/internal/profile"
	"github.com/duckcoding/duckcoding/internal/session"
	"github.com/duckcoding/duckcoding/internal/stats"
	"github.com/duckcoding/duckcoding/internal/tool"
)

const (
	readHeaderTimeout = 30 * time.Second
	upstreamIdleTimeout = 120 * time.Second
	drainTimeout      = 10 * time.Second
)

// Options configures one Instance. The upstream route is resolved per
// request from Profiles' active profile for ToolID, or from a per-session
// endpoint override when SessionEndpointConfigEnabled is set.
type Options struct {
	ToolID                       tool.ID
	ListenAddr                   string
	LocalAPIKey                  string
	AllowPublic                  bool
	SessionEndpointConfigEnabled bool
	PricingTemplateID            string

	Profiles       *profile.Manager
	Sessions       *session.Manager
	Pricing        *pricing.Engine
	Stats          *stats.Store
	Hub            *events.Hub
	UpstreamClient *http.Client
}

// Instance is the Proxy Instance: one HTTP server per tool.
type Instance struct {
	opts Options

	server   *http.Server
	listener net.Listener

	mu        sync.Mutex
	startedAt time.Time
	running   bool
}

// New constructs an Instance from opts. It does not bind a listener —
// call Start for that.
func New(opts Options) *Instance {
	if opts.UpstreamClient == nil {
		opts.UpstreamClient = &http.Client{Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     120 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			ForceAttemptHTTP2:   true,
		}}
	}
	inst := &Instance{opts: opts}
	inst.server = &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           inst,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return inst
}

// Start binds the listener and serves in a background goroutine. Returns
// once the listener is bound (not once serving stops).
func (i *Instance) Start() error {
	ln, err := net.Listen("tcp", i.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("proxy: binding %s: %w", i.opts.ListenAddr, err)
	}
	i.mu.Lock()
	i.listener = ln
	i.startedAt = time.Now().UTC()
	i.running = true
	i.mu.Unlock()

	go func() {
		if err := i.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			_ = err
		}
	}()
	return nil
}

// Stop gracefully shuts the instance down, allowing in-flight requests up
// to drainTimeout before forcing closure. Idempotent.
func (i *Instance) Stop(ctx context.Context) error {
	i.mu.Lock()
	if !i.running {
		i.mu.Unlock()
		return nil
	}
	i.running = false
	i.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	err := i.server.Shutdown(shutdownCtx)
	if err != nil {
		_ = i.server.Close()
	}
	return err
}

// Status is the public view of an instance's lifecycle state.
type Status struct {
	Running   bool
	Port      int
	StartedAt time.Time
}

// StatusOf returns i's current status.
func (i *Instance) StatusOf() Status {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, portStr, _ := net.SplitHostPort(i.opts.ListenAddr)
	port := 0
	fmt.Sscanf(portStr, "%d", &port)
	return Status{Running: i.running, Port: port, StartedAt: i.startedAt}
}

// currentRoute resolves the instance's own internal dc_proxy_<tool>
// profile — the upstream credentials installed by Proxy Manager.Start.
func (i *Instance) currentRoute() (Route, error) {
	active, err := i.opts.Profiles.GetActive(i.opts.ToolID)
	if err != nil {
		return Route{}, err
	}
	if active == nil {
		return Route{}, fmt.Errorf("proxy: no active profile for %s", i.opts.ToolID)
	}
	p, ok, err := i.opts.Profiles.GetProfile(i.opts.ToolID, active.ProfileName)
	if err != nil {
		return Route{}, err
	}
	if !ok {
		return Route{}, fmt.Errorf("proxy: active profile %q missing", active.ProfileName)
	}
	return Route{BaseURL: p.BaseURL, APIKey: p.APIKey, WireAPI: p.WireAPI, Model: p.Model}, nil
}

// sessionOverrideRoute resolves a per-session profile override, if
// session_endpoint_config_enabled and the session is bound to a custom
// profile.
func (i *Instance) sessionOverrideRoute(sessionID string) (Route, bool) {
	if !i.opts.SessionEndpointConfigEnabled || sessionID == "" {
		return Route{}, false
	}
	s, ok := i.opts.Sessions.Get(sessionID)
	if !ok || s.ConfigMode != session.ConfigCustom || s.ConfigProfileName == "" {
		return Route{}, false
	}
	p, ok, err := i.opts.Profiles.GetProfile(i.opts.ToolID, s.ConfigProfileName)
	if err != nil || !ok {
		return Route{}, false
	}
	return Route{BaseURL: p.BaseURL, APIKey: p.APIKey, WireAPI: p.WireAPI, Model: p.Model}, true
}

// isLoopback reports whether host is a loopback address or resolves to
// one.
func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	if ip != nil {
		return ip.IsLoopback()
	}
	addrs, err := net.LookupHost(host)
	if err != nil {
		return false
	}
	for _, a := range addrs {
		if ip := net.ParseIP(a); ip == nil || !ip.IsLoopback() {
			return false
		}
	}
	return len(addrs) > 0
}
