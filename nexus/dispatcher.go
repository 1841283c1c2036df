package nexus

import (
	"context"
	"time"

	"github.com/jiangxiaosheng/eRPC/hook"
	"github.com/jiangxiaosheng/eRPC/transport"
)

// runDispatcher is the Nexus's SM transmit thread: it drains every
// registered endpoint's SM-TX queue and hands each item to that endpoint's
// own transport for sending. Per spec §4.4 SM-TX is documented
// single-producer per endpoint, but multiple endpoints' queues are still
// drained from this one goroutine, so contention is across endpoints, not
// within one.
func (n *Nexus) runDispatcher() {
	defer n.wg.Done()

	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.dispatchOnce(n.ctx)
		}
	}
}

func (n *Nexus) dispatchOnce(ctx context.Context) {
	for endpointID, reg := range n.snapshotRegs() {
		for _, wi := range reg.hook.DrainTX() {
			if err := reg.tr.SendSm(ctx, wi.Packet, wi.PeerHandle); err != nil {
				n.log.Warn("transport send failed", "nexus_id", n.id, "endpoint_id", endpointID, "error", err)
			}
		}
	}
}

func workItemFromTransport(p transport.SmPacket) hook.WorkItem {
	return hook.WorkItem{
		OriginEndpointID: p.OriginEndpointID,
		Packet:           p.Packet,
		PeerHandle:       p.PeerHandle,
	}
}
