package loopback

import (
	"context"
	"testing"

	"github.com/jiangxiaosheng/eRPC/sm"
)

func TestSendSmDeliversByEndpointAddress(t *testing.T) {
	reg := NewRegistry()
	a := reg.NewTransport("a", 1, 0, 1024)
	b := reg.NewTransport("b", 2, 0, 1024)

	req := sm.SmPacket{
		PktType: sm.PktTypeConnectReq,
		Client:  sm.Endpoint{Hostname: "a", EndpointID: 1},
		Server:  sm.Endpoint{Hostname: "b", EndpointID: 2},
	}
	if err := a.SendSm(context.Background(), req, nil); err != nil {
		t.Fatalf("SendSm: %v", err)
	}

	got, err := b.RecvSm(context.Background())
	if err != nil {
		t.Fatalf("RecvSm: %v", err)
	}
	if len(got) != 1 || got[0].Packet.PktType != sm.PktTypeConnectReq {
		t.Fatalf("got %+v, want one ConnectReq", got)
	}
	if got[0].OriginEndpointID != 1 {
		t.Fatalf("OriginEndpointID = %d, want 1", got[0].OriginEndpointID)
	}
}

func TestSendSmViaPeerHandleBypassesLookup(t *testing.T) {
	reg := NewRegistry()
	a := reg.NewTransport("a", 1, 0, 1024)
	b := reg.NewTransport("b", 2, 0, 1024)

	resp := sm.SmPacket{PktType: sm.PktTypeConnectResp}
	if err := b.SendSm(context.Background(), resp, a); err != nil {
		t.Fatalf("SendSm via handle: %v", err)
	}

	got, err := a.RecvSm(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("RecvSm: got %+v, err %v", got, err)
	}
}

func TestDropTxLocalDiscardsPackets(t *testing.T) {
	reg := NewRegistry()
	a := reg.NewTransport("a", 1, 0, 1024)
	b := reg.NewTransport("b", 2, 0, 1024)
	a.SetDropTxLocal(true)

	req := sm.SmPacket{
		PktType: sm.PktTypeConnectReq,
		Client:  sm.Endpoint{Hostname: "a", EndpointID: 1},
		Server:  sm.Endpoint{Hostname: "b", EndpointID: 2},
	}
	if err := a.SendSm(context.Background(), req, nil); err != nil {
		t.Fatalf("SendSm: %v", err)
	}

	got, _ := b.RecvSm(context.Background())
	if len(got) != 0 {
		t.Fatalf("expected no packets delivered while drop_tx_local is set, got %d", len(got))
	}
}

func TestResolveRemoteRoutingInfo(t *testing.T) {
	reg := NewRegistry()
	a := reg.NewTransport("a", 1, 0, 1024)
	reg.NewTransport("b", 2, 0, 1024)

	if !a.ResolveRemoteRoutingInfo(context.Background(), sm.Endpoint{Hostname: "b", EndpointID: 2}) {
		t.Fatal("expected resolution to succeed for a registered endpoint")
	}
	if a.ResolveRemoteRoutingInfo(context.Background(), sm.Endpoint{Hostname: "ghost", EndpointID: 9}) {
		t.Fatal("expected resolution to fail for an unregistered endpoint")
	}

	a.SetFailResolveRemote(true)
	if a.ResolveRemoteRoutingInfo(context.Background(), sm.Endpoint{Hostname: "b", EndpointID: 2}) {
		t.Fatal("expected forced resolution failure")
	}
}
