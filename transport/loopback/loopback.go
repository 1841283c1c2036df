// Package loopback implements an in-process transport.Transport used by
// tests in place of a real NIC. Packets sent between
// Transports created from the same Registry are delivered by direct
// in-memory handoff; no sockets are involved. It plays the same "fake
// collaborator for tests" role that sessions/memoryhost and broker/memory
// play for the teacher's SessionHost and Broker contracts.
package loopback

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jiangxiaosheng/eRPC/sm"
	"github.com/jiangxiaosheng/eRPC/transport"
	"github.com/google/uuid"
)

// Registry routes packets between Transports that share it, keyed by the
// (hostname, endpoint ID) address a sm.Endpoint names.
type Registry struct {
	mu   sync.Mutex
	byID map[addrKey]*Transport
}

type addrKey struct {
	hostname   string
	endpointID uint8
}

// NewRegistry constructs an empty Registry. One Registry stands in for one
// physical network: Transports registered on different Registries cannot
// reach each other.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[addrKey]*Transport)}
}

// NewTransport creates and registers a Transport addressed as
// (hostname, endpointID) with the given per-datagram MTU budget.
func (r *Registry) NewTransport(hostname string, endpointID uint8, phyPort uint8, maxDataPerPkt int) *Transport {
	t := &Transport{
		registry:      r,
		hostname:      hostname,
		endpointID:    endpointID,
		phyPort:       phyPort,
		maxDataPerPkt: maxDataPerPkt,
		id:            uuid.NewString(),
	}
	r.mu.Lock()
	r.byID[addrKey{hostname, endpointID}] = t
	r.mu.Unlock()
	return t
}

func (r *Registry) lookup(hostname string, endpointID uint8) (*Transport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[addrKey{hostname, endpointID}]
	return t, ok
}

// Transport is a Registry-addressed, in-process transport.Transport.
type Transport struct {
	registry      *Registry
	hostname      string
	endpointID    uint8
	phyPort       uint8
	maxDataPerPkt int
	id            string

	mu    sync.Mutex
	inbox []transport.SmPacket

	dropTxLocal       atomic.Bool
	failResolveRemote atomic.Bool
}

var _ transport.Transport = (*Transport)(nil)

// Capabilities implements transport.Transport.
func (t *Transport) Capabilities() transport.Capabilities {
	return transport.Capabilities{
		MaxDataPerPkt:  t.maxDataPerPkt,
		RoutingInfoLen: sm.RoutingInfoLen,
	}
}

// FillLocalRoutingInfo implements transport.Transport. The loopback
// transport's "routing info" is just its own address, encoded so a peer
// Transport object is recoverable via Registry.lookup; real transports would
// encode a QP number and LID here instead.
func (t *Transport) FillLocalRoutingInfo(out []byte) error {
	if len(out) < sm.RoutingInfoLen {
		return fmt.Errorf("loopback: routing info buffer too small")
	}
	copy(out, t.hostname)
	out[len(out)-1] = t.endpointID
	return nil
}

// ResolveRemoteRoutingInfo implements transport.Transport. It succeeds iff a
// Transport is registered at ep's address, unless SetFailResolveRemote has
// forced failure for testing.
func (t *Transport) ResolveRemoteRoutingInfo(ctx context.Context, ep sm.Endpoint) bool {
	if t.failResolveRemote.Load() {
		return false
	}
	_, ok := t.registry.lookup(ep.Hostname, ep.EndpointID)
	return ok
}

// SendSm implements transport.Transport. If peerHandle is a *Transport, the
// packet is delivered directly to it (the "carry the original peer handle"
// path used by enqueue_sm_resp); otherwise the destination is resolved from
// the packet's direction (request -> Server address, response -> Client
// address).
func (t *Transport) SendSm(ctx context.Context, pkt sm.SmPacket, peerHandle any) error {
	if t.dropTxLocal.Load() {
		return nil // simulated local loss: silently discard
	}

	var dst *Transport
	if peerHandle != nil {
		pt, ok := peerHandle.(*Transport)
		if !ok {
			return fmt.Errorf("loopback: peer handle is not a *loopback.Transport")
		}
		dst = pt
	} else {
		ep := pkt.Client
		if pkt.PktType.IsReq() {
			ep = pkt.Server
		}
		var ok bool
		dst, ok = t.registry.lookup(ep.Hostname, ep.EndpointID)
		if !ok {
			return fmt.Errorf("loopback: no transport registered at %s/%d", ep.Hostname, ep.EndpointID)
		}
	}

	dst.deliver(transport.SmPacket{
		OriginEndpointID: t.endpointID,
		Packet:           pkt,
		PeerHandle:       t,
	})
	return nil
}

func (t *Transport) deliver(pkt transport.SmPacket) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inbox = append(t.inbox, pkt)
}

// RecvSm implements transport.Transport.
func (t *Transport) RecvSm(ctx context.Context) ([]transport.SmPacket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.inbox) == 0 {
		return nil, nil
	}
	out := t.inbox
	t.inbox = nil
	return out, nil
}

// SetDropTxLocal toggles the drop_tx_local fault: while true, every SendSm
// on this Transport silently discards its packet, as if the local NIC were
// instructed to drop TX. loopback_test.go sets it directly to check that
// packets are discarded; the FaultDropTxRemote packet handler also drives
// this flag on the receiving Rpc's own transport.
func (t *Transport) SetDropTxLocal(drop bool) {
	t.dropTxLocal.Store(drop)
}

// SetFailResolveRemote forces ResolveRemoteRoutingInfo to fail, simulating
// testing_fail_resolve_remote_rinfo_client from the original implementation.
func (t *Transport) SetFailResolveRemote(fail bool) {
	t.failResolveRemote.Store(fail)
}
