// Package nexus implements the process-wide multiplexer named in spec §1 and
// §9: the object that owns the session-management listener thread and hands
// each registered Rpc its own per-endpoint hook.Hook. A Nexus's lifetime
// must strictly exceed every Rpc it serves; RegisterEndpoint/
// UnregisterEndpoint track that with a simple reference count rather than
// relying on callers to sequence shutdown correctly.
package nexus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jiangxiaosheng/eRPC/hook"
	"github.com/jiangxiaosheng/eRPC/transport"
)

// registration pairs one endpoint's hook with the transport it reads from
// and writes to. The Nexus never touches session state; it only moves
// sm.SmPacket work items between a Hook and a Transport.
type registration struct {
	hook *hook.Hook
	tr   transport.Transport
}

// Nexus is the shared, reference-counted multiplexer. Construct one per
// process (or per physical network, in tests) and share it across every Rpc
// that should be reachable through the same SM listener.
type Nexus struct {
	id       string
	hostname string
	log      *slog.Logger

	pollInterval time.Duration

	mu    sync.Mutex
	regs  map[uint8]*registration
	refs  int
	close chan struct{}
	wg    sync.WaitGroup
	ctx   context.Context
	cncl  context.CancelFunc
}

// Option configures a Nexus at construction.
type Option func(*Nexus)

// WithLogger overrides the Nexus's logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(n *Nexus) {
		if l != nil {
			n.log = l
		}
	}
}

// WithPollInterval overrides how often the listener/dispatcher goroutines
// poll registered transports (default 1ms).
func WithPollInterval(d time.Duration) Option {
	return func(n *Nexus) {
		if d > 0 {
			n.pollInterval = d
		}
	}
}

// New constructs a Nexus addressed as hostname, with its listener and
// dispatcher goroutines already running.
func New(hostname string, opts ...Option) *Nexus {
	ctx, cancel := context.WithCancel(context.Background())
	n := &Nexus{
		id:           uuid.NewString(),
		hostname:     hostname,
		log:          slog.Default(),
		pollInterval: time.Millisecond,
		regs:         make(map[uint8]*registration),
		ctx:          ctx,
		cncl:         cancel,
	}
	for _, opt := range opts {
		opt(n)
	}

	n.wg.Add(2)
	go n.runListener()
	go n.runDispatcher()

	n.log.Debug("nexus created", "nexus_id", n.id, "hostname", hostname)
	return n
}

// Hostname returns the address this Nexus's endpoints are reachable at.
func (n *Nexus) Hostname() string { return n.hostname }

// RegisterEndpoint installs a hook.Hook for endpointID, wired to tr, and
// bumps the Nexus's reference count. It fails if endpointID is already
// registered.
func (n *Nexus) RegisterEndpoint(endpointID uint8, tr transport.Transport) (*hook.Hook, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.regs[endpointID]; exists {
		return nil, fmt.Errorf("nexus: endpoint id %d already registered", endpointID)
	}

	h := hook.New()
	n.regs[endpointID] = &registration{hook: h, tr: tr}
	n.refs++
	n.log.Debug("endpoint registered", "nexus_id", n.id, "endpoint_id", endpointID)
	return h, nil
}

// UnregisterEndpoint removes endpointID's hook and drops the reference
// count. It is a no-op if endpointID was never registered.
func (n *Nexus) UnregisterEndpoint(endpointID uint8) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.regs[endpointID]; !exists {
		return
	}
	delete(n.regs, endpointID)
	n.refs--
	n.log.Debug("endpoint unregistered", "nexus_id", n.id, "endpoint_id", endpointID)
}

// RefCount reports how many endpoints are currently registered. Close logs
// a warning rather than blocking if this is non-zero, since an Rpc outliving
// its Nexus is a caller bug this module can only flag, not prevent.
func (n *Nexus) RefCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.refs
}

// Close stops the listener and dispatcher goroutines. It must be called
// only after every registered endpoint has unregistered; calling it earlier
// is logged but not refused, since forcing every caller to sequence
// shutdown correctly would make Nexus harder to use than the reference-
// counting contract it is meant to simplify.
func (n *Nexus) Close() {
	if n.RefCount() > 0 {
		n.log.Warn("nexus closed while endpoints are still registered", "nexus_id", n.id, "ref_count", n.RefCount())
	}
	n.cncl()
	n.wg.Wait()
}

func (n *Nexus) snapshotRegs() map[uint8]*registration {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[uint8]*registration, len(n.regs))
	for id, r := range n.regs {
		out[id] = r
	}
	return out
}
