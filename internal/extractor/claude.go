package extractor

import "encoding/json"

// claudeProcessor parses Anthropic's SSE event stream: message_start
// carries the initial usage block (and model/message id), message_delta
// carries incremental output_tokens, message_stop ends the stream.
// cache_creation is a nested object on recent API versions; every numeric
// child is summed per §4.E.
type claudeProcessor struct {
	acc  SSEAccumulator
	info TokenInfo
	seen bool
}

// NewClaudeProcessor returns a fresh Processor for one Claude request.
func NewClaudeProcessor() Processor {
	return &claudeProcessor{}
}

type claudeUsage struct {
	InputTokens          int64           `json:"input_tokens"`
	OutputTokens         int64           `json:"output_tokens"`
	CacheCreation        json.RawMessage `json:"cache_creation"`
	CacheReadInputTokens int64           `json:"cache_read_input_tokens"`
}

type claudeMessageStart struct {
	Type    string `json:"type"`
	Message struct {
		ID    string      `json:"id"`
		Model string      `json:"model"`
		Usage claudeUsage `json:"usage"`
	} `json:"message"`
}

type claudeMessageDelta struct {
	Type  string      `json:"type"`
	Usage claudeUsage `json:"usage"`
}

func sumCacheCreation(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var children map[string]int64
	if err := json.Unmarshal(raw, &children); err != nil {
		return 0
	}
	var total int64
	for _, v := range children {
		total += v
	}
	return total
}

func (p *claudeProcessor) Feed(chunk []byte) []TokenEvent {
	var out []TokenEvent
	for _, ev := range p.acc.Feed(chunk) {
		switch ev.Name {
		case "message_start":
			var m claudeMessageStart
			if err := json.Unmarshal([]byte(ev.Data), &m); err != nil {
				continue
			}
			p.info.MessageID = m.Message.ID
			p.info.Model = m.Message.Model
			p.info.Input = m.Message.Usage.InputTokens
			p.info.Output = m.Message.Usage.OutputTokens
			p.info.CacheCreation = sumCacheCreation(m.Message.Usage.CacheCreation)
			p.info.CacheRead = m.Message.Usage.CacheReadInputTokens
			p.seen = true
			out = append(out, TokenEvent{MessageID: p.info.MessageID, Model: p.info.Model, Delta: &TokenInfo{
				Input: p.info.Input, Output: p.info.Output, CacheCreation: p.info.CacheCreation, CacheRead: p.info.CacheRead,
			}})

		case "message_delta":
			var m claudeMessageDelta
			if err := json.Unmarshal([]byte(ev.Data), &m); err != nil {
				continue
			}
			deltaOutput := m.Usage.OutputTokens
			p.info.Output += m.Usage.OutputTokens
			if m.Usage.InputTokens > 0 {
				p.info.Input = m.Usage.InputTokens
			}
			out = append(out, TokenEvent{MessageID: p.info.MessageID, Delta: &TokenInfo{Output: deltaOutput}})
		}
	}
	return out
}

func (p *claudeProcessor) Finalize() (*TokenInfo, error) {
	if !p.seen {
		return nil, nil
	}
	info := p.info
	return &info, nil
}
