package hook

import (
	"sync"
	"testing"

	"github.com/jiangxiaosheng/eRPC/sm"
)

func TestPushDrainRX(t *testing.T) {
	h := New()
	if !h.RXEmpty() {
		t.Fatal("new hook should have an empty RX queue")
	}

	h.PushRX(WorkItem{OriginEndpointID: 1, Packet: sm.SmPacket{PktType: sm.PktTypeConnectReq}})
	h.PushRX(WorkItem{OriginEndpointID: 2, Packet: sm.SmPacket{PktType: sm.PktTypeDisconnectReq}})

	items := h.DrainRX()
	if len(items) != 2 {
		t.Fatalf("DrainRX returned %d items, want 2", len(items))
	}
	if items[0].OriginEndpointID != 1 || items[1].OriginEndpointID != 2 {
		t.Fatalf("items out of enqueue order: %+v", items)
	}
	if !h.RXEmpty() {
		t.Fatal("RX queue should be empty after a full drain")
	}
	if got := h.DrainRX(); got != nil {
		t.Fatalf("second DrainRX should return nil, got %v", got)
	}
}

func TestPushDrainTX(t *testing.T) {
	h := New()
	h.PushTX(WorkItem{Packet: sm.SmPacket{PktType: sm.PktTypeConnectResp}})

	items := h.DrainTX()
	if len(items) != 1 {
		t.Fatalf("DrainTX returned %d items, want 1", len(items))
	}
}

func TestConcurrentPushRXIsSafe(t *testing.T) {
	h := New()
	var wg sync.WaitGroup
	const n = 100
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.PushRX(WorkItem{OriginEndpointID: uint8(i)})
		}(i)
	}
	wg.Wait()

	if got := len(h.DrainRX()); got != n {
		t.Fatalf("drained %d items, want %d", got, n)
	}
}
