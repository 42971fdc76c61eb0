package proxy

import (
	"github.com/duckcoding/duckcoding/internal/extractor"
	"github.com/duckcoding/duckcoding/internal/pricing"
	"github.com/duckcoding/duckcoding/internal/session"
	"github.com/duckcoding/duckcoding/internal/tool"
)

// loggerState threads a Logger through one request's lifetime, tracking
// whether the stream ended normally or was interrupted.
type loggerState struct {
	logger      *extractor.Logger
	respType    extractor.ResponseType
	interrupted bool
}

func (i *Instance) newLogger(route Route, sessionID, configName, clientIP string, respType extractor.ResponseType) *loggerState {
	proc := extractor.NewForTool(i.opts.ToolID, tool.WireProtocol(route.WireAPI))
	templateID := i.opts.PricingTemplateID
	priceFn := func(model string) (pricing.EffectivePrice, error) {
		return i.opts.Pricing.Resolve(templateID, model)
	}
	logger := extractor.NewLogger(proc, priceFn, string(i.opts.ToolID), sessionID, configName, clientIP, respType)
	return &loggerState{logger: logger, respType: respType}
}

func (s *loggerState) markInterrupted() {
	s.interrupted = true
}

func (s *loggerState) finalize() extractor.TokenLog {
	if s.interrupted {
		return s.logger.FinalizeInterrupted()
	}
	return s.logger.Finalize()
}

func (s *loggerState) counters() session.Counters {
	info := s.logger.Counters()
	return session.Counters{
		Input:         info.Input,
		Output:        info.Output,
		CacheCreation: info.CacheCreation,
		CacheRead:     info.CacheRead,
	}
}
