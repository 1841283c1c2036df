package erpc

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jiangxiaosheng/eRPC/alloc"
	"github.com/jiangxiaosheng/eRPC/hook"
	"github.com/jiangxiaosheng/eRPC/msgbuf"
	"github.com/jiangxiaosheng/eRPC/nexus"
	"github.com/jiangxiaosheng/eRPC/retry"
	"github.com/jiangxiaosheng/eRPC/session"
	"github.com/jiangxiaosheng/eRPC/sm"
	"github.com/jiangxiaosheng/eRPC/transport"
)

const (
	numControlMsgBufs  = 2
	controlMsgBufBytes = 256
)

// SmEventType is the outcome an Rpc reports to its SessionMgmtHandler when a
// session reaches a terminal point in its connect/disconnect lifecycle.
type SmEventType int

const (
	SmEventConnected SmEventType = iota
	SmEventConnectFailed
	SmEventDisconnected
	SmEventDisconnectFailed
)

func (e SmEventType) String() string {
	switch e {
	case SmEventConnected:
		return "Connected"
	case SmEventConnectFailed:
		return "ConnectFailed"
	case SmEventDisconnected:
		return "Disconnected"
	case SmEventDisconnectFailed:
		return "DisconnectFailed"
	default:
		return "Unknown"
	}
}

// SessionMgmtHandler is invoked on the creator goroutine whenever a session
// reaches Connected, ConnectFailed, Disconnected, or DisconnectFailed. The
// original C++ API threads an opaque application context pointer through
// this callback; in Go the caller captures whatever context it needs in the
// closure it passes to New instead.
type SessionMgmtHandler func(sessionNum uint16, event SmEventType, errType sm.ErrType)

// Rpc is one endpoint runtime: it owns a SessionTable, a HugeAlloc handle,
// a hook.Hook registered with a Nexus, and a RetryQueue, and exposes
// CreateSession/DestroySession/the event-loop entry points as its public
// surface. Every public method is creator-goroutine only.
type Rpc struct {
	log     *slog.Logger
	metrics MetricsSink
	cfg     Config

	hostname   string
	endpointID uint8
	transType  sm.TransportType

	nx  *nexus.Nexus
	tr  transport.Transport
	ha  alloc.HugeAlloc
	hk  *hook.Hook

	sessions *session.Table
	retryQ   *retry.Queue

	smHandler SessionMgmtHandler

	controlMsgBufs     []msgbuf.MsgBuffer
	controlBufsFreed   int

	// owner implements the creator-goroutine-only rule. Go exposes no stable
	// per-goroutine identity to compare against a cached "creator thread id"
	// the way the original implementation does, so this is a mutual-
	// exclusion guard instead of an identity check: it catches concurrent
	// calls from more than one goroutine, which is the failure mode the
	// original check exists to prevent in practice.
	owner atomic.Bool

	closed atomic.Bool
}

// New constructs an Rpc bound to nx (the shared multiplexer), speaking over
// tr, allocating through ha, and addressed as endpointID within nx's host.
// Failure here signals an unrecoverable setup error: a bad endpointID/phy
// port, or exhaustion of ha while preallocating control buffers.
func New(nx *nexus.Nexus, tr transport.Transport, ha alloc.HugeAlloc, endpointID uint8, smHandler SessionMgmtHandler, opts ...Option) (*Rpc, error) {
	o := rpcOptions{
		logger:  slog.Default(),
		metrics: noopMetrics{},
		config:  DefaultConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.config.PhyPort >= sm.MaxPhyPorts {
		return nil, &UsageError{Op: "New", Reason: fmt.Sprintf("phy_port %d out of range [0,%d)", o.config.PhyPort, sm.MaxPhyPorts)}
	}
	if smHandler == nil {
		return nil, &UsageError{Op: "New", Reason: "smHandler must not be nil"}
	}

	hk, err := nx.RegisterEndpoint(endpointID, tr)
	if err != nil {
		return nil, &ResourceError{Op: "New", Err: err}
	}

	r := &Rpc{
		log:        o.logger,
		metrics:    o.metrics,
		cfg:        o.config,
		hostname:   nx.Hostname(),
		endpointID: endpointID,
		transType:  o.config.TransportType,
		nx:         nx,
		tr:         tr,
		ha:         ha,
		hk:         hk,
		sessions:   session.NewTable(o.config.MaxSessionsPerEndpoint),
		retryQ:     retry.New(o.config.smTimeout(), o.config.RetryBurstPerTick),
		smHandler:  smHandler,
	}

	// Mirrors rpc.cc's Rpc::Rpc, which preallocates a small pool of
	// control-sized msgbufs before registering with the Nexus. We allocate
	// after registering instead, since RegisterEndpoint is what can fail
	// due to a duplicate endpoint ID and we would rather not roll back a
	// Nexus registration on an unrelated allocator failure.
	for i := 0; i < numControlMsgBufs; i++ {
		buf, err := ha.AllocMsgBuffer(controlMsgBufBytes)
		if err != nil {
			for _, b := range r.controlMsgBufs {
				ha.FreeMsgBuffer(b)
			}
			nx.UnregisterEndpoint(endpointID)
			return nil, &ResourceError{Op: "New", Err: fmt.Errorf("preallocating control msgbuf %d: %w", i, err)}
		}
		r.controlMsgBufs = append(r.controlMsgBufs, buf)
	}

	r.log.Debug("rpc created", "hostname", r.hostname, "endpoint_id", endpointID, "phy_port", o.config.PhyPort)
	return r, nil
}

// acquire implements the creator-goroutine guard described on Rpc.owner. It
// returns false (and logs) if another call is already in flight.
func (r *Rpc) acquire(op string) bool {
	if !r.owner.CompareAndSwap(false, true) {
		r.log.Warn("concurrent call rejected", "op", op)
		return false
	}
	return true
}

func (r *Rpc) release() {
	r.owner.Store(false)
}

// localRoutingInfo asks the transport to fill a fresh routing-info blob for
// this Rpc's own endpoint.
func (r *Rpc) localRoutingInfo() ([sm.RoutingInfoLen]byte, error) {
	var out [sm.RoutingInfoLen]byte
	if err := r.tr.FillLocalRoutingInfo(out[:]); err != nil {
		return out, err
	}
	return out, nil
}

// generateSecret returns a fresh random value with only the low
// Config.SecretBits bits set, used to authenticate a session pair across
// session-number reuse (see sm.Endpoint's Secret invariant).
func generateSecret(secretBits uint) (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	var v uint64
	for i, b := range buf {
		v |= uint64(b) << (8 * i)
	}
	if secretBits < 64 {
		v &= (uint64(1) << secretBits) - 1
	}
	return v, nil
}

// NumActiveSessions returns the number of non-buried entries in this Rpc's
// SessionTable.
func (r *Rpc) NumActiveSessions() int {
	if !r.acquire("NumActiveSessions") {
		return 0
	}
	defer r.release()
	return r.sessions.CountActive()
}

// Hostname returns the address this Rpc's endpoint is reachable at.
func (r *Rpc) Hostname() string { return r.hostname }

// EndpointID returns this Rpc's endpoint ID within its Nexus's host.
func (r *Rpc) EndpointID() uint8 { return r.endpointID }

// AllocMsgBuffer allocates an application-owned MsgBuffer able to hold up
// to maxData bytes, delegating to the configured HugeAlloc.
func (r *Rpc) AllocMsgBuffer(maxData int) (msgbuf.MsgBuffer, error) {
	buf, err := r.ha.AllocMsgBuffer(maxData)
	if err != nil {
		return msgbuf.Empty(), &ResourceError{Op: "AllocMsgBuffer", Err: err}
	}
	return buf, nil
}

// ResizeMsgBuffer changes buf's logical size in place.
func (r *Rpc) ResizeMsgBuffer(buf *msgbuf.MsgBuffer, newSize int) error {
	if buf == nil {
		return ErrCodeInvalidMsgBufferArg
	}
	if err := r.ha.ResizeMsgBuffer(buf, newSize); err != nil {
		return &ResourceError{Op: "ResizeMsgBuffer", Err: err}
	}
	return nil
}

// FreeMsgBuffer returns buf's backing storage to the allocator.
func (r *Rpc) FreeMsgBuffer(buf msgbuf.MsgBuffer) {
	r.ha.FreeMsgBuffer(buf)
}

// ControlMsgBufStats reports how many control-sized MsgBuffers New
// preallocated and how many of them Close has since freed, the way
// NumActiveSessions reports a plain count rather than a dedicated stats
// type: control msgbufs have no behavior of their own in scope here, just
// accounting worth exposing.
func (r *Rpc) ControlMsgBufStats() (allocated, freed int) {
	if !r.acquire("ControlMsgBufStats") {
		return 0, 0
	}
	defer r.release()
	return len(r.controlMsgBufs), r.controlBufsFreed
}

// Close releases control buffers and unregisters this Rpc's endpoint from
// its Nexus. It does not disconnect sessions that are still open or free
// their slot buffers. It is not creator-
// goroutine guarded since it is meant to be callable during shutdown from
// whichever goroutine owns that responsibility in the application.
func (r *Rpc) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	for _, b := range r.controlMsgBufs {
		r.ha.FreeMsgBuffer(b)
	}
	r.controlBufsFreed = len(r.controlMsgBufs)
	r.nx.UnregisterEndpoint(r.endpointID)
	r.log.Debug("rpc closed", "hostname", r.hostname, "endpoint_id", r.endpointID)
}
