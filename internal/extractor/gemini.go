package extractor

import (
	"encoding/json"
	"strings"
)

// geminiProcessor handles both of Gemini's response shapes: a streamed
// SSE body (one usageMetadata-bearing chunk per "data:" line) and a
// single JSON object returned in full. Both are fed the same raw bytes;
// the SSE accumulator opportunistically extracts events as they complete,
// while the raw buffer is kept in case the body turns out to be a single
// JSON document with no blank-line event terminators at all.
type geminiProcessor struct {
	acc    SSEAccumulator
	raw    strings.Builder
	info   TokenInfo
	seenSSE bool
}

// NewGeminiProcessor returns a fresh Processor for one Gemini request.
func NewGeminiProcessor() Processor {
	return &geminiProcessor{}
}

type geminiUsageMetadata struct {
	PromptTokenCount        int64 `json:"promptTokenCount"`
	CandidatesTokenCount    int64 `json:"candidatesTokenCount"`
	CachedContentTokenCount int64 `json:"cachedContentTokenCount"`
}

type geminiResponse struct {
	ModelVersion string              `json:"modelVersion"`
	UsageMetadata geminiUsageMetadata `json:"usageMetadata"`
}

func (p *geminiProcessor) Feed(chunk []byte) []TokenEvent {
	p.raw.Write(chunk)

	var out []TokenEvent
	for _, ev := range p.acc.Feed(chunk) {
		if p.applyFromJSON([]byte(ev.Data)) {
			p.seenSSE = true
			out = append(out, TokenEvent{Model: p.info.Model, Delta: &TokenInfo{
				Input: p.info.Input, Output: p.info.Output, CacheRead: p.info.CacheRead,
			}})
		}
	}
	return out
}

func (p *geminiProcessor) applyFromJSON(data []byte) bool {
	var r geminiResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return false
	}
	if r.UsageMetadata == (geminiUsageMetadata{}) {
		return false
	}
	p.info.Model = r.ModelVersion
	p.info.Input = r.UsageMetadata.PromptTokenCount
	p.info.Output = r.UsageMetadata.CandidatesTokenCount
	p.info.CacheRead = r.UsageMetadata.CachedContentTokenCount
	return true
}

func (p *geminiProcessor) Finalize() (*TokenInfo, error) {
	if p.seenSSE {
		info := p.info
		return &info, nil
	}
	// Fall back to parsing the whole body as one JSON document, or a JSON
	// array of chunks (Gemini's non-SSE streaming shape).
	body := strings.TrimSpace(p.raw.String())
	if body == "" {
		return nil, nil
	}
	if body[0] == '[' {
		var chunks []geminiResponse
		if err := json.Unmarshal([]byte(body), &chunks); err != nil {
			return nil, err
		}
		for _, c := range chunks {
			if c.UsageMetadata != (geminiUsageMetadata{}) {
				p.info.Model = c.ModelVersion
				p.info.Input = c.UsageMetadata.PromptTokenCount
				p.info.Output = c.UsageMetadata.CandidatesTokenCount
				p.info.CacheRead = c.UsageMetadata.CachedContentTokenCount
			}
		}
		info := p.info
		return &info, nil
	}
	if !p.applyFromJSON([]byte(body)) {
		return nil, nil
	}
	info := p.info
	return &info, nil
}
