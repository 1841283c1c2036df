package nexus

import (
	"context"
	"time"
)

// runListener is the Nexus's SM listener thread: it polls every registered
// endpoint's transport for inbound packets and feeds them into that
// endpoint's SM-RX queue, where the owning Rpc's event loop will find them
// on its next DrainRX call. A loopback transport's RecvSm already returns
// only packets addressed to the endpoint that owns it, so no address
// resolution happens here.
func (n *Nexus) runListener() {
	defer n.wg.Done()

	ticker := time.NewTicker(n.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			n.listenOnce(n.ctx)
		}
	}
}

func (n *Nexus) listenOnce(ctx context.Context) {
	for endpointID, reg := range n.snapshotRegs() {
		pkts, err := reg.tr.RecvSm(ctx)
		if err != nil {
			n.log.Warn("transport recv failed", "nexus_id", n.id, "endpoint_id", endpointID, "error", err)
			continue
		}
		for _, p := range pkts {
			reg.hook.PushRX(workItemFromTransport(p))
		}
	}
}
