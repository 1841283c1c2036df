// Package sm defines the wire-stable session-management packet format and
// the Endpoint addressing tuple exchanged between Rpc instances to set up
// and tear down Sessions. Layout and field sizes are fixed and must not
// change without a protocol version bump; see codec.go for the explicit
// serialization that keeps the layout stable across compilers and
// architectures.
package sm

const (
	// MaxHostnameLen bounds Endpoint.Hostname, excluding the trailing NUL.
	MaxHostnameLen = 60
	// RoutingInfoLen is the size of the opaque transport-owned routing blob.
	RoutingInfoLen = 64
	// SecretBits is the number of low-order bits of Endpoint.Secret that are
	// meaningful; the rest must be zero.
	SecretBits = 48
	// MaxPhyPorts bounds Endpoint.PhyPort.
	MaxPhyPorts = 8
)

// PktType identifies the kind of a session-management packet.
type PktType uint16

const (
	PktTypeInvalid PktType = iota
	PktTypeConnectReq
	PktTypeConnectResp
	PktTypeDisconnectReq
	PktTypeDisconnectResp
	PktTypeFaultDropTxRemote
)

func (t PktType) String() string {
	switch t {
	case PktTypeConnectReq:
		return "ConnectReq"
	case PktTypeConnectResp:
		return "ConnectResp"
	case PktTypeDisconnectReq:
		return "DisconnectReq"
	case PktTypeDisconnectResp:
		return "DisconnectResp"
	case PktTypeFaultDropTxRemote:
		return "FaultDropTxRemote"
	default:
		return "Invalid"
	}
}

// IsReq reports whether t is a request packet type.
func (t PktType) IsReq() bool {
	return t == PktTypeConnectReq || t == PktTypeDisconnectReq
}

// RespType returns the response packet type matching a request type, and
// false if t is not a request type.
func (t PktType) RespType() (PktType, bool) {
	switch t {
	case PktTypeConnectReq:
		return PktTypeConnectResp, true
	case PktTypeDisconnectReq:
		return PktTypeDisconnectResp, true
	default:
		return PktTypeInvalid, false
	}
}

// ErrType classifies the outcome carried back by a session-management
// response.
type ErrType uint16

const (
	ErrTypeNone ErrType = iota
	ErrTypeTooManySessions
	ErrTypeOutOfMemory
	ErrTypeRoutingResolutionFailure
	ErrTypeInvalidRemoteEndpointID
	ErrTypeClientEndpointExists
)

func (e ErrType) String() string {
	switch e {
	case ErrTypeNone:
		return "None"
	case ErrTypeTooManySessions:
		return "TooManySessions"
	case ErrTypeOutOfMemory:
		return "OutOfMemory"
	case ErrTypeRoutingResolutionFailure:
		return "RoutingResolutionFailure"
	case ErrTypeInvalidRemoteEndpointID:
		return "InvalidRemoteEndpointId"
	case ErrTypeClientEndpointExists:
		return "ClientEndpointExists"
	default:
		return "Unknown"
	}
}

// TransportType identifies the concrete unreliable transport an Endpoint
// speaks over. The value itself is opaque to sm; transport.Transport
// implementations each claim one.
type TransportType uint8

// Endpoint is the addressable tuple identifying one side of a Session. It is
// a fixed-size, wire-stable value: see codec.go for its byte layout.
//
// Invariant: Secret is identical on the client and server copies of an
// endpoint pair. SessionNum on each side indexes the owner's own session
// table, not the peer's.
type Endpoint struct {
	TransportType TransportType
	Hostname      string
	PhyPort       uint8
	EndpointID    uint8
	SessionNum    uint16
	Secret        uint64
	RoutingInfo   [RoutingInfoLen]byte
}

// Equal reports whether two endpoints address the same (hostname, endpoint
// ID, phy port) triple, ignoring SessionNum, Secret, and RoutingInfo. It is
// used to detect self-connect attempts.
func (e Endpoint) Equal(o Endpoint) bool {
	return e.Hostname == o.Hostname && e.EndpointID == o.EndpointID && e.PhyPort == o.PhyPort
}

// SmPacket is a session-management request or response exchanged between
// two Rpc instances. A response carries the exact Client and Server of the
// originating request, with ErrType possibly non-None.
type SmPacket struct {
	PktType PktType
	ErrType ErrType
	Client  Endpoint
	Server  Endpoint
}

// Clone returns a deep copy of the packet suitable for handing to a
// different owner (e.g. turning a request into a response without aliasing
// the original).
func (p SmPacket) Clone() SmPacket {
	return p
}
