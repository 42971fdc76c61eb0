package extractor

import "github.com/duckcoding/duckcoding/internal/tool"

// ampProcessor reuses whichever of the three vendor processors the bound
// child profile speaks — AMP Code has no wire format of its own (§4.E).
type ampProcessor struct {
	Processor
}

// NewAmpProcessor wraps the processor for the child wire protocol AMP's
// currently-selected profile delegates to.
func NewAmpProcessor(childWire tool.WireProtocol) Processor {
	return &ampProcessor{Processor: forWire(childWire)}
}

func forWire(wire tool.WireProtocol) Processor {
	switch wire {
	case tool.WireCodex:
		return NewCodexProcessor()
	case tool.WireGemini:
		return NewGeminiProcessor()
	default:
		return NewClaudeProcessor()
	}
}

// NewForTool is the factory selecting the right Processor variant from a
// tool id — "polymorphism over tools" per §9: no inheritance, adding a
// tool means adding one Processor implementation and registering it here.
func NewForTool(tid tool.ID, ampChildWire tool.WireProtocol) Processor {
	switch tid {
	case tool.Claude:
		return NewClaudeProcessor()
	case tool.Codex:
		return NewCodexProcessor()
	case tool.Gemini:
		return NewGeminiProcessor()
	case tool.Amp:
		return NewAmpProcessor(ampChildWire)
	default:
		return NewClaudeProcessor()
	}
}
