package session

import (
	"fmt"
	"sync"

	"github.com/jiangxiaosheng/eRPC/msgbuf"
)

// Slot is a per-session reservation for one in-flight request/response
// pair. At rest (its index present in the owning Session's free-slot
// stack), TxMsgBuf is nil and RxMsgBuf is empty.
type Slot struct {
	Index int

	// PreRespMsgBuf is a one-MTU response buffer preallocated at session
	// creation. It is always available for a response that fits in one MTU.
	PreRespMsgBuf msgbuf.MsgBuffer

	// TxMsgBuf is the current outgoing MsgBuffer, if any. Non-owning for
	// client requests (the application owns the buffer); owning for dynamic
	// server responses that exceeded PreRespMsgBuf's capacity.
	TxMsgBuf *msgbuf.MsgBuffer

	// RxMsgBuf is the in-place receive buffer, which may grow dynamic if an
	// incoming message exceeds pre-allocated capacity.
	RxMsgBuf msgbuf.MsgBuffer
}

// atRest reports whether the slot carries no in-flight request, the
// invariant required while its index sits in the free-slot stack.
func (s *Slot) atRest() bool {
	return s.TxMsgBuf == nil && s.RxMsgBuf.IsEmpty()
}

// reset clears any in-flight state, returning the slot to rest. It does not
// free TxMsgBuf or RxMsgBuf storage; callers that own allocator-backed
// buffers must free them first.
func (s *Slot) reset() {
	s.TxMsgBuf = nil
	s.RxMsgBuf = msgbuf.Empty()
}

// freeSlotStack is a LIFO stack of available slot indices, guarded by mu
// when the owning Rpc is multi-threaded (background threads may free a
// slot concurrently with the creator thread allocating one).
type freeSlotStack struct {
	mu            sync.Mutex
	multiThreaded bool
	indices       []int
}

func newFreeSlotStack(n int, multiThreaded bool) *freeSlotStack {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = n - 1 - i // pop order is ascending for readability/debugging
	}
	return &freeSlotStack{multiThreaded: multiThreaded, indices: indices}
}

func (f *freeSlotStack) lock() {
	if f.multiThreaded {
		f.mu.Lock()
	}
}

func (f *freeSlotStack) unlock() {
	if f.multiThreaded {
		f.mu.Unlock()
	}
}

// Alloc pops a free slot index, or returns (-1, false) if none remain
// (NoSessionMsgSlots).
func (f *freeSlotStack) Alloc() (int, bool) {
	f.lock()
	defer f.unlock()
	n := len(f.indices)
	if n == 0 {
		return -1, false
	}
	idx := f.indices[n-1]
	f.indices = f.indices[:n-1]
	return idx, true
}

// Free pushes idx back onto the stack. It panics on a double-free, which
// would violate the slot-accounting invariant
// (|free_slots| + |in_flight_slots| == SlotsPerSession).
func (f *freeSlotStack) Free(idx int) {
	f.lock()
	defer f.unlock()
	for _, existing := range f.indices {
		if existing == idx {
			panic(fmt.Sprintf("session: double free of slot %d", idx))
		}
	}
	f.indices = append(f.indices, idx)
}

// Len reports the number of currently free slots.
func (f *freeSlotStack) Len() int {
	f.lock()
	defer f.unlock()
	return len(f.indices)
}
