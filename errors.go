package erpc

import (
	"fmt"

	"github.com/jiangxiaosheng/eRPC/sm"
)

// UsageError indicates a caller-side mistake: a bad argument, a call from a
// thread other than the creator thread, or a capacity ceiling already
// reached. It is returned to the application as a nil result plus this
// error, and logged (at Debug, or at Warn for a rejected concurrent call).
type UsageError struct {
	Op     string
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("erpc: usage error in %s: %s", e.Op, e.Reason)
}

// ResourceError indicates an allocation failure. Any buffers already
// allocated by the failed operation have been rolled back before this error
// is returned.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("erpc: resource error in %s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// ProtocolError indicates a session-management packet that cannot be
// dispatched: an unknown packet type, a mismatched secret, an unknown
// session number, or a handler invoked against the wrong state. It never
// escapes the Rpc; the offending packet is discarded and only logged.
type ProtocolError struct {
	PktType sm.PktType
	Reason  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("erpc: protocol error on %s: %s", e.PktType, e.Reason)
}

// PeerErr wraps a non-None sm.ErrType carried back by a session-management
// response. It terminates the exchange: the session transitions to
// Disconnected and the matching ConnectFailed or DisconnectFailed callback
// fires.
type PeerErr struct {
	ErrType sm.ErrType
}

func (e *PeerErr) Error() string {
	return fmt.Sprintf("erpc: peer returned err_type=%s", e.ErrType)
}

// FatalError marks an invariant violation or an impossible switch arm. The
// original implementation calls exit(-1) here; this port panics, since
// there is no safe way to keep serving other sessions once an invariant the
// rest of the runtime depends on has already broken.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("erpc: fatal: %s", e.Reason)
}

func fatalf(format string, args ...any) {
	panic(&FatalError{Reason: fmt.Sprintf(format, args...)})
}

// DatapathErrCode is a stable, integer-coded datapath error, mirroring the
// closed jsonrpc.ErrorCode enum the teacher uses for wire-facing error
// codes. These never appear on the session-management wire; they are
// returned from request/response/slot helper calls.
type DatapathErrCode int

const (
	ErrCodeNone DatapathErrCode = iota
	ErrCodeInvalidSessionArg
	ErrCodeInvalidMsgBufferArg
	ErrCodeInvalidMsgSizeArg
	ErrCodeInvalidReqTypeArg
	ErrCodeInvalidReqFuncArg
	ErrCodeNoSessionMsgSlots
)

func (c DatapathErrCode) String() string {
	switch c {
	case ErrCodeNone:
		return "None"
	case ErrCodeInvalidSessionArg:
		return "InvalidSessionArg"
	case ErrCodeInvalidMsgBufferArg:
		return "InvalidMsgBufferArg"
	case ErrCodeInvalidMsgSizeArg:
		return "InvalidMsgSizeArg"
	case ErrCodeInvalidReqTypeArg:
		return "InvalidReqTypeArg"
	case ErrCodeInvalidReqFuncArg:
		return "InvalidReqFuncArg"
	case ErrCodeNoSessionMsgSlots:
		return "NoSessionMsgSlots"
	default:
		return "Unknown"
	}
}

func (c DatapathErrCode) Error() string {
	return "erpc: " + c.String()
}
