package sm

import (
	"bytes"
	"testing"
)

func sampleEndpoint() Endpoint {
	ep := Endpoint{
		TransportType: 2,
		Hostname:      "node-a.cluster.internal",
		PhyPort:       1,
		EndpointID:    7,
		SessionNum:    42,
		Secret:        0xdeadbeefcafe,
	}
	for i := range ep.RoutingInfo {
		ep.RoutingInfo[i] = byte(i)
	}
	return ep
}

func TestEndpointRoundTrip(t *testing.T) {
	want := sampleEndpoint()

	buf, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(buf) != EndpointSize {
		t.Fatalf("wire size = %d, want %d", len(buf), EndpointSize)
	}

	var got Endpoint
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestEndpointSecretIsMasked(t *testing.T) {
	ep := sampleEndpoint()
	ep.Secret = ^uint64(0) // all bits set

	buf, err := ep.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	var got Endpoint
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got.Secret != secretMask {
		t.Fatalf("secret = %#x, want low %d bits set (%#x)", got.Secret, SecretBits, secretMask)
	}
}

func TestEndpointHostnameTooLong(t *testing.T) {
	ep := sampleEndpoint()
	long := bytes.Repeat([]byte("x"), MaxHostnameLen+1)
	ep.Hostname = string(long)

	if _, err := ep.MarshalBinary(); err == nil {
		t.Fatal("expected error marshaling an over-length hostname")
	}
}

func TestSmPacketRoundTrip(t *testing.T) {
	client := sampleEndpoint()
	server := sampleEndpoint()
	server.Hostname = "node-b.cluster.internal"
	server.EndpointID = 9
	server.SessionNum = 0

	want := SmPacket{
		PktType: PktTypeConnectReq,
		ErrType: ErrTypeNone,
		Client:  client,
		Server:  server,
	}

	buf, err := want.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	if len(buf) != PacketSize {
		t.Fatalf("wire size = %d, want %d", len(buf), PacketSize)
	}

	var got SmPacket
	if err := got.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestSmPacketRespCarriesOriginatingEndpoints(t *testing.T) {
	req := SmPacket{
		PktType: PktTypeConnectReq,
		Client:  sampleEndpoint(),
		Server:  sampleEndpoint(),
	}

	resp := req.Clone()
	respType, ok := req.PktType.RespType()
	if !ok {
		t.Fatalf("%v has no response type", req.PktType)
	}
	resp.PktType = respType
	resp.ErrType = ErrTypeTooManySessions

	if resp.Client != req.Client || resp.Server != req.Server {
		t.Fatal("response must carry the exact client/server of the originating request")
	}
}

func TestPktTypeRespType(t *testing.T) {
	cases := []struct {
		req  PktType
		resp PktType
		ok   bool
	}{
		{PktTypeConnectReq, PktTypeConnectResp, true},
		{PktTypeDisconnectReq, PktTypeDisconnectResp, true},
		{PktTypeConnectResp, PktTypeInvalid, false},
		{PktTypeFaultDropTxRemote, PktTypeInvalid, false},
	}
	for _, c := range cases {
		got, ok := c.req.RespType()
		if ok != c.ok || got != c.resp {
			t.Errorf("%v.RespType() = (%v, %v), want (%v, %v)", c.req, got, ok, c.resp, c.ok)
		}
	}
}
