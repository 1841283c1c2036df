// Package hook implements ShareHook: the two work-item queues pinned to the
// boundary between one Rpc and the Nexus. SM-RX carries packets from the
// Nexus's SM listener thread to the Rpc's creator thread; SM-TX carries
// packets the other way, to the Nexus's transmit thread. Ownership of a
// WorkItem's Packet transfers to whichever side dequeues it.
package hook

import (
	"sync"

	"github.com/jiangxiaosheng/eRPC/sm"
)

// WorkItem is one session-management packet in flight between an Rpc and
// the Nexus, carrying the originating endpoint ID and an opaque peer handle
// the transport needs to address a reply without re-resolving routing info.
type WorkItem struct {
	OriginEndpointID uint8
	Packet           sm.SmPacket
	PeerHandle       any
}

// queue is a mutex-guarded FIFO. Within one peer pair, items are observed by
// the consumer in enqueue order; across peers, no ordering is promised (the
// same guarantee spec §4.4 states for SM-RX/SM-TX).
type queue struct {
	mu    sync.Mutex
	items []WorkItem
}

func (q *queue) push(wi WorkItem) {
	q.mu.Lock()
	q.items = append(q.items, wi)
	q.mu.Unlock()
}

// drain removes and returns every queued item in one atomic pass, matching
// §4.4's "drains all items under the queue's lock in a single pass".
func (q *queue) drain() []WorkItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

func (q *queue) empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Hook is the SM-RX/SM-TX pair shared between one Rpc and its Nexus.
type Hook struct {
	rx queue
	tx queue
}

// New constructs an empty Hook.
func New() *Hook {
	return &Hook{}
}

// PushRX enqueues a work item produced by the Nexus's SM listener thread,
// to be drained by the Rpc's creator thread.
func (h *Hook) PushRX(wi WorkItem) {
	h.rx.push(wi)
}

// DrainRX removes and returns every pending SM-RX item. Called only from
// the creator thread, once per event-loop tick.
func (h *Hook) DrainRX() []WorkItem {
	return h.rx.drain()
}

// RXEmpty reports whether SM-RX currently has no pending items, used by the
// event loop to skip the drain call entirely on a quiet tick.
func (h *Hook) RXEmpty() bool {
	return h.rx.empty()
}

// PushTX enqueues a work item produced by the Rpc's creator thread, to be
// drained by the Nexus's transmit goroutine. Per spec §4.4 this queue is
// single-producer per endpoint; the lock exists for the Nexus side's
// consumption, not to arbitrate between producers.
func (h *Hook) PushTX(wi WorkItem) {
	h.tx.push(wi)
}

// DrainTX removes and returns every pending SM-TX item. Called only from
// the Nexus's transmit goroutine.
func (h *Hook) DrainTX() []WorkItem {
	return h.tx.drain()
}
