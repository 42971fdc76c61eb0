// Package errs holds the stable error taxonomy shared by every component
// down to the Command Surface (internal/command), which maps each Kind to
// a stable wire-facing error code. Kept as its own leaf package (rather
// than living in internal/command itself) so the components the Command
// Surface calls into — Profile Manager, Proxy Manager, Pricing Engine,
// and the rest — can construct these errors without importing the
// Command Surface and creating an import cycle.
package errs

import "fmt"

// Kind is the stable error taxonomy every command failure is mapped to.
type Kind string

const (
	KindInvalidArgument    Kind = "invalid_argument"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindReserved           Kind = "reserved"
	KindPortBusy           Kind = "port_busy"
	KindPortInvalid        Kind = "port_invalid"
	KindAuthFailed         Kind = "auth_failed"
	KindLoopDetected       Kind = "loop_detected"
	KindUpstreamError      Kind = "upstream_error"
	KindParseError         Kind = "parse_error"
	KindRequestInterrupted Kind = "request_interrupted"
	KindTimeout            Kind = "timeout"
	KindIOError            Kind = "io_error"
	KindPricingMissing     Kind = "pricing_missing"
	KindPricingCycle       Kind = "pricing_cycle"
	KindInternal           Kind = "internal"
)

// Error is the typed error every command returns on failure: {kind,
// message, details?}.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds an Error of kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches structured details to an Error and returns it.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// As reports whether err (or one it wraps) is a *Error and, if so, returns
// it. Mirrors the errors.As contract without importing the stdlib errors
// package for this one callsite.
func As(err error) (*Error, bool) {
	for err != nil {
		if ce, ok := err.(*Error); ok {
			return ce, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
