package extractor

import (
	"time"

	"github.com/duckcoding/duckcoding/internal/pricing"
)

// TokenInfo is the final accumulated usage for one request/response pair.
type TokenInfo struct {
	Input         int64
	Output        int64
	CacheCreation int64
	CacheRead     int64
	Model         string
	MessageID     string
}

// TokenEvent is one incremental usage observation emitted mid-stream.
type TokenEvent struct {
	MessageID string
	Model     string
	Delta     *TokenInfo
}

// Processor is the per-tool capability set: feed raw bytes, get events
// out; finalize to the accumulated total. One implementation per tool
// (claudeProcessor, codexProcessor, geminiProcessor); ampProcessor
// delegates to whichever of the three the bound child profile uses.
type Processor interface {
	Feed(chunk []byte) []TokenEvent
	Finalize() (*TokenInfo, error)
}

// ResponseType records which parsing path handled the response body.
type ResponseType string

const (
	ResponseSSE     ResponseType = "sse"
	ResponseJSON    ResponseType = "json"
	ResponseUnknown ResponseType = "unknown"
)

// RequestStatus is the terminal status recorded on a TokenLog.
type RequestStatus string

const (
	StatusSuccess RequestStatus = "success"
	StatusFailed  RequestStatus = "failed"
)

// ErrorType classifies a failed TokenLog, one of the Token Processor's
// failure kinds (§4.E).
type ErrorType string

const (
	ErrorParse              ErrorType = "parse_error"
	ErrorUpstream           ErrorType = "upstream_error"
	ErrorRequestInterrupted ErrorType = "request_interrupted"
)

// TokenLog is the append-only record Stats Store persists per request.
type TokenLog struct {
	ID            int64         `json:"id"`
	Timestamp     time.Time     `json:"timestamp"`
	ToolID        string        `json:"tool_id"`
	SessionID     string        `json:"session_id"`
	MessageID     string        `json:"message_id,omitempty"`
	Model         string        `json:"model"`
	ConfigName    string        `json:"config_name"`
	ClientIP      string        `json:"client_ip"`
	RequestStatus RequestStatus `json:"request_status"`
	ErrorType     ErrorType     `json:"error_type,omitempty"`
	ErrorDetail   string        `json:"error_detail,omitempty"`
	ResponseType  ResponseType  `json:"response_type"`

	Input         int64 `json:"input"`
	Output        int64 `json:"output"`
	CacheCreation int64 `json:"cache_creation"`
	CacheRead     int64 `json:"cache_read"`

	Cost pricing.Cost `json:"cost"`
}

// Logger wraps a Processor with pricing, producing a priced TokenLog on
// Finalize.
type Logger struct {
	proc       Processor
	priceFn    func(model string) (pricing.EffectivePrice, error)
	toolID     string
	sessionID  string
	configName string
	clientIP   string
	respType   ResponseType
	lastModel  string
	lastInfo   TokenInfo
}

// NewLogger wraps proc with a price resolver (bound to a specific
// pricing template by the caller) and request-identifying fields.
func NewLogger(proc Processor, priceFn func(model string) (pricing.EffectivePrice, error), toolID, sessionID, configName, clientIP string, respType ResponseType) *Logger {
	return &Logger{proc: proc, priceFn: priceFn, toolID: toolID, sessionID: sessionID, configName: configName, clientIP: clientIP, respType: respType}
}

// Feed forwards chunk to the wrapped Processor, tracking the latest model
// seen so a mid-stream disconnect still has something to price.
func (l *Logger) Feed(chunk []byte) {
	for _, ev := range l.proc.Feed(chunk) {
		if ev.Model != "" {
			l.lastModel = ev.Model
		}
		if ev.Delta != nil {
			l.lastInfo.Input += ev.Delta.Input
			l.lastInfo.Output += ev.Delta.Output
			l.lastInfo.CacheCreation += ev.Delta.CacheCreation
			l.lastInfo.CacheRead += ev.Delta.CacheRead
		}
	}
}

// Counters returns the usage accumulated so far from mid-stream events,
// for callers that need a running total before Finalize is called.
func (l *Logger) Counters() TokenInfo {
	return l.lastInfo
}

// Finalize produces the TokenLog for a request that completed normally.
func (l *Logger) Finalize() TokenLog {
	info, err := l.proc.Finalize()
	if err != nil {
		return l.errorLog(ErrorParse, err.Error())
	}
	if info == nil {
		info = &l.lastInfo
		if info.Model == "" {
			info.Model = l.lastModel
		}
	}
	return l.priceAndBuild(*info, StatusSuccess, "", "")
}

// FinalizeInterrupted produces the TokenLog for a request whose client
// disconnected before the stream completed, using whatever counters had
// accumulated so far.
func (l *Logger) FinalizeInterrupted() TokenLog {
	info := l.lastInfo
	if info.Model == "" {
		info.Model = l.lastModel
	}
	return l.priceAndBuild(info, StatusFailed, ErrorRequestInterrupted, "client disconnected before stream completed")
}

// FinalizeUpstreamError produces the TokenLog for a request that failed
// with an upstream HTTP error.
func (l *Logger) FinalizeUpstreamError(detail string) TokenLog {
	info := l.lastInfo
	if info.Model == "" {
		info.Model = l.lastModel
	}
	return l.priceAndBuild(info, StatusFailed, ErrorUpstream, detail)
}

func (l *Logger) errorLog(kind ErrorType, detail string) TokenLog {
	info := l.lastInfo
	if info.Model == "" {
		info.Model = l.lastModel
	}
	return l.priceAndBuild(info, StatusFailed, kind, detail)
}

func (l *Logger) priceAndBuild(info TokenInfo, status RequestStatus, errType ErrorType, errDetail string) TokenLog {
	log := TokenLog{
		Timestamp:     time.Now().UTC(),
		ToolID:        l.toolID,
		SessionID:     l.sessionID,
		MessageID:     info.MessageID,
		Model:         info.Model,
		ConfigName:    l.configName,
		ClientIP:      l.clientIP,
		RequestStatus: status,
		ErrorType:     errType,
		ErrorDetail:   errDetail,
		ResponseType:  l.respType,
		Input:         info.Input,
		Output:        info.Output,
		CacheCreation: info.CacheCreation,
		CacheRead:     info.CacheRead,
	}

	if info.Model != "" {
		if price, err := l.priceFn(info.Model); err == nil {
			log.Cost = pricing.ComputeCost(price, pricing.Counters{
				Input:         info.Input,
				Output:        info.Output,
				CacheCreation: info.CacheCreation,
				CacheRead:     info.CacheRead,
			})
		}
	}
	return log
}
