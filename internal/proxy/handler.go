package proxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/duckcoding/duckcoding/internal/extractor"
	"github.com/duckcoding/duckcoding/internal/session"
)

const maxBufferedBody = 20 << 20 // 20MB

// ServeHTTP is the per-request pipeline from §4.I. Only POST is accepted;
// the Host header is ignored and routing is entirely by the instance's
// own ToolID.
func (i *Instance) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "only POST is accepted", http.StatusMethodNotAllowed)
		return
	}

	clientHost, _, _ := net.SplitHostPort(r.RemoteAddr)
	if !i.opts.AllowPublic && !isLoopback(clientHost) {
		writeJSONError(w, http.StatusForbidden, "forbidden_public_access")
		return
	}

	cred := extractClientAuth(r.Header)
	if cred == "" || cred != i.opts.LocalAPIKey {
		writeJSONError(w, http.StatusUnauthorized, "auth_failed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBufferedBody+1))
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, "io_error")
		return
	}
	if len(body) > maxBufferedBody {
		writeJSONError(w, http.StatusRequestEntityTooLarge, "invalid_argument")
		return
	}

	sessionID, displayID := session.DeriveID(i.opts.ToolID, body, clientHost, time.Now())

	route, configMode, configName := i.resolveRoute(sessionID)
	if route.BaseURL == "" {
		writeJSONError(w, http.StatusInternalServerError, "internal")
		return
	}

	if loop, err := i.detectLoop(route); err != nil || loop {
		writeJSONError(w, http.StatusLoopDetected, "proxy_loop_detected")
		return
	}

	upstreamReq, err := i.buildUpstreamRequest(r, route, body)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, "internal")
		return
	}

	watchdog := newIdleWatchdog(upstreamIdleTimeout)
	defer watchdog.stop()
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	watchdog.arm(cancel)
	upstreamReq = upstreamReq.WithContext(ctx)

	resp, err := i.opts.UpstreamClient.Do(upstreamReq)
	if err != nil {
		log := i.newLogger(route, sessionID, configName, clientHost, extractor.ResponseUnknown)
		i.finalizeError(log, extractor.ErrorUpstream, err.Error())
		writeJSONError(w, http.StatusBadGateway, "upstream_error")
		return
	}
	defer resp.Body.Close()
	watchdog.touch()

	respType := classifyResponse(resp.Header.Get("Content-Type"))
	logger := i.newLogger(route, sessionID, configName, clientHost, respType)

	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		w.Write(raw)
		i.finalizeError(logger, extractor.ErrorUpstream, fmt.Sprintf("upstream status %d", resp.StatusCode))
		i.touchSession(sessionID, displayID, session.Counters{}, configMode, configName)
		return
	}

	i.streamResponse(w, resp.Body, logger, watchdog)
	i.touchSessionFromLog(sessionID, displayID, logger, configMode, configName)
}

func classifyResponse(contentType string) extractor.ResponseType {
	switch {
	case strings.Contains(contentType, "text/event-stream"):
		return extractor.ResponseSSE
	case strings.Contains(contentType, "application/json"):
		return extractor.ResponseJSON
	default:
		return extractor.ResponseUnknown
	}
}

// streamResponse tees resp.Body to both the client and the Processor as
// chunks arrive (§4.I step 8), finalizing the TokenLog once EOF or a
// client/upstream error occurs.
func (i *Instance) streamResponse(w http.ResponseWriter, body io.Reader, logger *loggerState, watchdog *idleWatchdog) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			watchdog.touch()
			chunk := buf[:n]
			if _, werr := w.Write(chunk); werr != nil {
				logger.logger.Feed(chunk)
				logger.markInterrupted()
				i.recordLog(logger.finalize())
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			if logger.respType != extractor.ResponseUnknown {
				logger.logger.Feed(chunk)
			}
		}
		if err != nil {
			if err != io.EOF {
				logger.markInterrupted()
			}
			i.recordLog(logger.finalize())
			return
		}
	}
}

func (i *Instance) finalizeError(logger *loggerState, kind extractor.ErrorType, detail string) {
	log := logger.logger.FinalizeUpstreamError(detail)
	log.ErrorType = kind
	i.recordLog(log)
}

func (i *Instance) recordLog(log extractor.TokenLog) {
	log.ToolID = string(i.opts.ToolID)
	i.opts.Stats.AppendLog(log)
}

func (i *Instance) touchSession(sessionID, displayID string, counters session.Counters, mode session.ConfigMode, configName string) {
	i.opts.Sessions.Touch(i.opts.ToolID, sessionID, displayID, counters, mode, configName)
}

func (i *Instance) touchSessionFromLog(sessionID, displayID string, logger *loggerState, mode session.ConfigMode, configName string) {
	counters := logger.counters()
	i.opts.Sessions.Touch(i.opts.ToolID, sessionID, displayID, counters, mode, configName)
}

// resolveRoute implements §4.I step 5: per-session override first, else
// the tool's internal profile.
func (i *Instance) resolveRoute(sessionID string) (Route, session.ConfigMode, string) {
	if r, ok := i.sessionOverrideRoute(sessionID); ok {
		return r, session.ConfigCustom, sessionID
	}
	r, err := i.currentRoute()
	if err != nil {
		return Route{}, session.ConfigGlobal, ""
	}
	return r, session.ConfigGlobal, string(i.opts.ToolID)
}

// detectLoop implements §4.I step 4: the route's upstream host:port must
// not equal this instance's own listen address, and a public listener
// must refuse a loopback-resolving upstream.
func (i *Instance) detectLoop(route Route) (bool, error) {
	return DetectLoop(route.BaseURL, i.opts.ListenAddr, i.opts.AllowPublic)
}

// DetectLoop reports whether baseURL, if used as a proxy's upstream,
// would route a request back into a listener bound at listenAddr: either
// baseURL resolves to listenAddr's own loopback host:port, or listenAddr
// is a public (AllowPublic) bind and baseURL resolves to any loopback
// address at all. Shared between the per-request check in ServeHTTP and
// the pre-bind check the Proxy Manager runs in Start, before a listener
// ever exists (§8 Testable Properties: a self-referential real_base_url
// must fail start_tool_proxy with loop_detected, not merely 502 on the
// first request).
func DetectLoop(baseURL, listenAddr string, allowPublic bool) (bool, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return false, err
	}
	upstreamHost := u.Hostname()
	upstreamPort := u.Port()
	if upstreamPort == "" {
		if u.Scheme == "https" {
			upstreamPort = "443"
		} else {
			upstreamPort = "80"
		}
	}

	_, ownPort, _ := net.SplitHostPort(listenAddr)
	if isLoopback(upstreamHost) && upstreamPort == ownPort {
		return true, nil
	}
	if allowPublic && isLoopback(upstreamHost) {
		return true, nil
	}
	return false, nil
}

func (i *Instance) buildUpstreamRequest(r *http.Request, route Route, body []byte) (*http.Request, error) {
	upstreamURL := strings.TrimRight(route.BaseURL, "/") + r.URL.Path
	if r.URL.RawQuery != "" {
		upstreamURL += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequest(http.MethodPost, upstreamURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	copyHeaders(req.Header, r.Header)
	insertUpstreamAuth(req.Header, route.WireAPI, route.APIKey)
	req.ContentLength = int64(len(body))
	return req, nil
}

func writeJSONError(w http.ResponseWriter, status int, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"kind":%q}`, kind)
}

// idleWatchdog aborts a request's context if upstreamIdleTimeout elapses
// between touch() calls (§4.I step 10).
type idleWatchdog struct {
	timeout time.Duration
	resetCh chan struct{}
	doneCh  chan struct{}
	armed   int32
}

func newIdleWatchdog(timeout time.Duration) *idleWatchdog {
	return &idleWatchdog{timeout: timeout, resetCh: make(chan struct{}, 1), doneCh: make(chan struct{})}
}

func (w *idleWatchdog) arm(cancel context.CancelFunc) {
	if !atomic.CompareAndSwapInt32(&w.armed, 0, 1) {
		return
	}
	go func() {
		timer := time.NewTimer(w.timeout)
		defer timer.Stop()
		for {
			select {
			case <-w.doneCh:
				return
			case <-w.resetCh:
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.timeout)
			case <-timer.C:
				cancel()
				return
			}
		}
	}()
}

func (w *idleWatchdog) touch() {
	select {
	case w.resetCh <- struct{}{}:
	default:
	}
}

func (w *idleWatchdog) stop() {
	select {
	case <-w.doneCh:
	default:
		close(w.doneCh)
	}
}
