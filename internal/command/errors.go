package command

import "github.com/duckcoding/duckcoding/internal/errs"

// Kind and Error are re-exported from internal/errs, which is where the
// stable taxonomy actually lives — every component down-stack from the
// Command Surface constructs these, and importing internal/command itself
// from Profile Manager/Proxy Manager/Pricing Engine would cycle back here.
type Kind = errs.Kind

type Error = errs.Error

const (
	KindInvalidArgument    = errs.KindInvalidArgument
	KindNotFound           = errs.KindNotFound
	KindConflict           = errs.KindConflict
	KindReserved           = errs.KindReserved
	KindPortBusy           = errs.KindPortBusy
	KindPortInvalid        = errs.KindPortInvalid
	KindAuthFailed         = errs.KindAuthFailed
	KindLoopDetected       = errs.KindLoopDetected
	KindUpstreamError      = errs.KindUpstreamError
	KindParseError         = errs.KindParseError
	KindRequestInterrupted = errs.KindRequestInterrupted
	KindTimeout            = errs.KindTimeout
	KindIOError            = errs.KindIOError
	KindPricingMissing     = errs.KindPricingMissing
	KindPricingCycle       = errs.KindPricingCycle
	KindInternal           = errs.KindInternal
)

var New = errs.New

var As = errs.As
