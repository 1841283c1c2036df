package sm

import (
	"encoding/binary"
	"fmt"
)

// Byte offsets within a serialized Endpoint. Padding is explicit rather than
// relying on the compiler's native struct layout, per the wire-compatibility
// requirement: the same bytes must decode identically on any Go toolchain.
const (
	endpointOffTransportType = 0
	endpointOffHostname      = 4
	endpointOffPhyPort       = endpointOffHostname + MaxHostnameLen + 1
	endpointOffEndpointID    = endpointOffPhyPort + 1
	endpointOffSessionNum    = endpointOffEndpointID + 1
	endpointOffSecret        = 72 // padded to 8-byte alignment after SessionNum
	endpointOffRoutingInfo   = endpointOffSecret + 8

	// EndpointSize is the fixed wire size of one Endpoint.
	EndpointSize = endpointOffRoutingInfo + RoutingInfoLen

	pktOffPktType = 0
	pktOffErrType = 2
	pktOffClient  = 8
	pktOffServer  = pktOffClient + EndpointSize

	// PacketSize is the fixed wire size of one SmPacket.
	PacketSize = pktOffServer + EndpointSize

	secretMask = (uint64(1) << SecretBits) - 1
)

// MarshalBinary serializes the Endpoint into its fixed 144-byte wire form.
func (e Endpoint) MarshalBinary() ([]byte, error) {
	buf := make([]byte, EndpointSize)
	if err := e.marshalInto(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (e Endpoint) marshalInto(buf []byte) error {
	if len(buf) < EndpointSize {
		return fmt.Errorf("sm: endpoint buffer too small: have %d, need %d", len(buf), EndpointSize)
	}
	if len(e.Hostname) > MaxHostnameLen {
		return fmt.Errorf("sm: hostname %q exceeds %d bytes", e.Hostname, MaxHostnameLen)
	}

	buf[endpointOffTransportType] = byte(e.TransportType)
	copy(buf[endpointOffHostname:endpointOffPhyPort], e.Hostname)
	// The remainder of the hostname field, including the terminating NUL, is
	// already zero because buf was freshly allocated.

	buf[endpointOffPhyPort] = e.PhyPort
	buf[endpointOffEndpointID] = e.EndpointID
	binary.LittleEndian.PutUint16(buf[endpointOffSessionNum:], e.SessionNum)
	binary.LittleEndian.PutUint64(buf[endpointOffSecret:], e.Secret&secretMask)
	copy(buf[endpointOffRoutingInfo:endpointOffRoutingInfo+RoutingInfoLen], e.RoutingInfo[:])
	return nil
}

// UnmarshalBinary decodes a fixed 144-byte wire form into the Endpoint.
func (e *Endpoint) UnmarshalBinary(buf []byte) error {
	if len(buf) < EndpointSize {
		return fmt.Errorf("sm: endpoint buffer too small: have %d, need %d", len(buf), EndpointSize)
	}

	e.TransportType = TransportType(buf[endpointOffTransportType])

	hostBytes := buf[endpointOffHostname:endpointOffPhyPort]
	nul := len(hostBytes)
	for i, b := range hostBytes {
		if b == 0 {
			nul = i
			break
		}
	}
	e.Hostname = string(hostBytes[:nul])

	e.PhyPort = buf[endpointOffPhyPort]
	e.EndpointID = buf[endpointOffEndpointID]
	e.SessionNum = binary.LittleEndian.Uint16(buf[endpointOffSessionNum:])
	e.Secret = binary.LittleEndian.Uint64(buf[endpointOffSecret:]) & secretMask

	var routingInfo [RoutingInfoLen]byte
	copy(routingInfo[:], buf[endpointOffRoutingInfo:endpointOffRoutingInfo+RoutingInfoLen])
	e.RoutingInfo = routingInfo
	return nil
}

// MarshalBinary serializes the SmPacket into its fixed 296-byte wire form.
func (p SmPacket) MarshalBinary() ([]byte, error) {
	buf := make([]byte, PacketSize)

	binary.LittleEndian.PutUint16(buf[pktOffPktType:], uint16(p.PktType))
	binary.LittleEndian.PutUint16(buf[pktOffErrType:], uint16(p.ErrType))

	if err := p.Client.marshalInto(buf[pktOffClient : pktOffClient+EndpointSize]); err != nil {
		return nil, fmt.Errorf("sm: marshal client endpoint: %w", err)
	}
	if err := p.Server.marshalInto(buf[pktOffServer : pktOffServer+EndpointSize]); err != nil {
		return nil, fmt.Errorf("sm: marshal server endpoint: %w", err)
	}
	return buf, nil
}

// UnmarshalBinary decodes a fixed 296-byte wire form into the SmPacket.
func (p *SmPacket) UnmarshalBinary(buf []byte) error {
	if len(buf) < PacketSize {
		return fmt.Errorf("sm: packet buffer too small: have %d, need %d", len(buf), PacketSize)
	}

	p.PktType = PktType(binary.LittleEndian.Uint16(buf[pktOffPktType:]))
	p.ErrType = ErrType(binary.LittleEndian.Uint16(buf[pktOffErrType:]))

	if err := p.Client.UnmarshalBinary(buf[pktOffClient : pktOffClient+EndpointSize]); err != nil {
		return fmt.Errorf("sm: unmarshal client endpoint: %w", err)
	}
	if err := p.Server.UnmarshalBinary(buf[pktOffServer : pktOffServer+EndpointSize]); err != nil {
		return fmt.Errorf("sm: unmarshal server endpoint: %w", err)
	}
	return nil
}
