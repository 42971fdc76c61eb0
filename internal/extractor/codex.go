package extractor

import "encoding/json"

// codexProcessor parses the OpenAI Responses API SSE stream Codex's
// upstream speaks: events arrive as "data: {...}" lines with a "type"
// field (no separate SSE "event:" line), so dispatch happens on the
// decoded type rather than on Event.Name. response.created carries the
// response id (used as message_id); response.completed carries the final
// usage block. cache_creation is always 0 for this API.
type codexProcessor struct {
	acc  SSEAccumulator
	info TokenInfo
	seen bool
}

// NewCodexProcessor returns a fresh Processor for one Codex request.
func NewCodexProcessor() Processor {
	return &codexProcessor{}
}

type codexEnvelope struct {
	Type     string `json:"type"`
	Response struct {
		ID    string `json:"id"`
		Model string `json:"model"`
		Usage struct {
			InputTokens        int64 `json:"input_tokens"`
			InputTokensDetails struct {
				CachedTokens int64 `json:"cached_tokens"`
			} `json:"input_tokens_details"`
			OutputTokens        int64 `json:"output_tokens"`
			OutputTokensDetails struct {
				ReasoningTokens int64 `json:"reasoning_tokens"`
			} `json:"output_tokens_details"`
		} `json:"usage"`
	} `json:"response"`
}

func (p *codexProcessor) Feed(chunk []byte) []TokenEvent {
	var out []TokenEvent
	for _, ev := range p.acc.Feed(chunk) {
		var env codexEnvelope
		if err := json.Unmarshal([]byte(ev.Data), &env); err != nil {
			continue
		}
		switch env.Type {
		case "response.created":
			p.info.MessageID = env.Response.ID
			p.info.Model = env.Response.Model
			out = append(out, TokenEvent{MessageID: p.info.MessageID, Model: p.info.Model})

		case "response.completed":
			p.info.Input = env.Response.Usage.InputTokens
			p.info.Output = env.Response.Usage.OutputTokens
			p.info.CacheRead = env.Response.Usage.InputTokensDetails.CachedTokens
			p.info.CacheCreation = 0
			p.seen = true
			out = append(out, TokenEvent{MessageID: p.info.MessageID, Delta: &TokenInfo{
				Input: p.info.Input, Output: p.info.Output, CacheRead: p.info.CacheRead,
			}})
		}
	}
	return out
}

func (p *codexProcessor) Finalize() (*TokenInfo, error) {
	if !p.seen {
		return nil, nil
	}
	info := p.info
	return &info, nil
}
