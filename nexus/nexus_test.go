package nexus

import (
	"context"
	"testing"
	"time"

	"github.com/jiangxiaosheng/eRPC/hook"
	"github.com/jiangxiaosheng/eRPC/sm"
	"github.com/jiangxiaosheng/eRPC/transport/loopback"
)

func TestRegisterUnregisterTracksRefCount(t *testing.T) {
	n := New("host-a", WithPollInterval(time.Millisecond))
	defer n.Close()

	reg := loopback.NewRegistry()
	tr := reg.NewTransport("host-a", 1, 0, 1024)

	if _, err := n.RegisterEndpoint(1, tr); err != nil {
		t.Fatalf("RegisterEndpoint: %v", err)
	}
	if got := n.RefCount(); got != 1 {
		t.Fatalf("RefCount() = %d, want 1", got)
	}

	if _, err := n.RegisterEndpoint(1, tr); err == nil {
		t.Fatal("expected a second RegisterEndpoint with the same id to fail")
	}

	n.UnregisterEndpoint(1)
	if got := n.RefCount(); got != 0 {
		t.Fatalf("RefCount() = %d, want 0 after unregister", got)
	}
}

func TestListenerDeliversInboundPacketsToHook(t *testing.T) {
	n := New("host-a", WithPollInterval(time.Millisecond))
	defer n.Close()

	reg := loopback.NewRegistry()
	trA := reg.NewTransport("host-a", 1, 0, 1024)
	trB := reg.NewTransport("host-b", 2, 0, 1024)

	hookA, err := n.RegisterEndpoint(1, trA)
	if err != nil {
		t.Fatalf("RegisterEndpoint: %v", err)
	}

	client := sm.Endpoint{Hostname: "host-b", EndpointID: 2}
	server := sm.Endpoint{Hostname: "host-a", EndpointID: 1}
	pkt := sm.SmPacket{PktType: sm.PktTypeConnectReq, Client: client, Server: server}

	if err := trB.SendSm(context.Background(), pkt, nil); err != nil {
		t.Fatalf("SendSm: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		if !hookA.RXEmpty() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the listener to deliver the packet")
		case <-time.After(time.Millisecond):
		}
	}

	items := hookA.DrainRX()
	if len(items) != 1 {
		t.Fatalf("DrainRX returned %d items, want 1", len(items))
	}
	if items[0].Packet.PktType != sm.PktTypeConnectReq {
		t.Fatalf("delivered packet type = %v, want ConnectReq", items[0].Packet.PktType)
	}
}

func TestDispatcherSendsQueuedPackets(t *testing.T) {
	n := New("host-a", WithPollInterval(time.Millisecond))
	defer n.Close()

	reg := loopback.NewRegistry()
	trA := reg.NewTransport("host-a", 1, 0, 1024)
	trB := reg.NewTransport("host-b", 2, 0, 1024)

	hookA, err := n.RegisterEndpoint(1, trA)
	if err != nil {
		t.Fatalf("RegisterEndpoint: %v", err)
	}

	client := sm.Endpoint{Hostname: "host-a", EndpointID: 1}
	server := sm.Endpoint{Hostname: "host-b", EndpointID: 2}
	pkt := sm.SmPacket{PktType: sm.PktTypeConnectReq, Client: client, Server: server}

	hookA.PushTX(hook.WorkItem{OriginEndpointID: 1, Packet: pkt, PeerHandle: nil})

	deadline := time.After(time.Second)
	for {
		pkts, err := trB.RecvSm(context.Background())
		if err != nil {
			t.Fatalf("RecvSm: %v", err)
		}
		if len(pkts) == 1 {
			if pkts[0].Packet.PktType != sm.PktTypeConnectReq {
				t.Fatalf("received packet type = %v, want ConnectReq", pkts[0].Packet.PktType)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the dispatcher to send the packet")
		case <-time.After(time.Millisecond):
		}
	}
}
