// Package transport defines the unreliable-transport contract the endpoint
// runtime is polymorphic over. The runtime treats Transport as an external
// collaborator: it never implements reliable delivery, retransmission, or
// congestion control itself (that is the datapath's job, out of scope here).
// transport/loopback provides an in-process fake used by tests.
package transport

import (
	"context"

	"github.com/jiangxiaosheng/eRPC/sm"
)

// Capabilities describes the fixed, MTU-related properties of a concrete
// transport. The endpoint runtime reads these once at construction; they do
// not change for the lifetime of an Rpc (no dynamic MTU renegotiation).
type Capabilities struct {
	// MaxDataPerPkt is the maximum application payload carried by one
	// datagram on this transport.
	MaxDataPerPkt int
	// RoutingInfoLen must equal sm.RoutingInfoLen; transports that need less
	// space simply leave the remainder zeroed.
	RoutingInfoLen int
}

// SmPacket pairs a decoded session-management packet with the opaque peer
// handle the transport needs to address a reply, and the endpoint ID of the
// Rpc that sent it. It is the unit exchanged between a Transport and
// the Nexus's SM listener.
type SmPacket struct {
	OriginEndpointID uint8
	Packet           sm.SmPacket
	PeerHandle       any
}

// Transport is the capability set the endpoint runtime is polymorphic over:
// {MaxDataPerPkt, RoutingInfoLen, ResolveRemoteRoutingInfo, SendSm, RecvSm,
// FillLocalRoutingInfo}. The concrete implementation is passed directly to
// erpc.New; Config.TransportType does not select it. No datapath burst
// send/receive is part of this interface.
type Transport interface {
	Capabilities() Capabilities

	// FillLocalRoutingInfo populates out with this transport's local routing
	// information (e.g. a QP number and LID for an RDMA transport). out has
	// length sm.RoutingInfoLen.
	FillLocalRoutingInfo(out []byte) error

	// ResolveRemoteRoutingInfo attempts to resolve/validate a peer's routing
	// info blob (e.g. connecting the QP) so it can be used for sending.
	// Returns false on failure, which the caller maps to
	// ErrTypeRoutingResolutionFailure / a ConnectFailed callback.
	ResolveRemoteRoutingInfo(ctx context.Context, ep sm.Endpoint) bool

	// SendSm transmits one session-management packet addressed to peerHandle
	// (or, if peerHandle is nil, resolved from pkt.Server/pkt.Client routing
	// info depending on direction).
	SendSm(ctx context.Context, pkt sm.SmPacket, peerHandle any) error

	// RecvSm returns any session-management packets the transport has
	// received since the last call. It must not block; an empty slice means
	// no work is pending. This is the mechanism the Nexus's SM listener uses
	// to pull packets off the wire and push them into the addressed Rpc's
	// hook.
	RecvSm(ctx context.Context) ([]SmPacket, error)
}
