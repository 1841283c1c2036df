// Package alloc defines the HugeAlloc contract: a size-class pool that
// returns page-backed MsgBuffers to the endpoint runtime. The runtime itself
// treats HugeAlloc as an external collaborator (it never allocates memory
// directly); alloc/pool provides the one reference implementation used by
// tests and any caller that does not need real hugepage-backed memory.
package alloc

import "github.com/jiangxiaosheng/eRPC/msgbuf"

// Stats reports allocator-wide counters, surfaced to applications for
// capacity planning and to tests asserting on rollback behavior.
type Stats struct {
	BuffersAllocated int64
	BuffersFreed     int64
	BytesAllocated   int64
}

// HugeAlloc is the page-backed allocator contract consumed by the endpoint
// runtime. Implementations MUST be safe for concurrent use when the owning
// Rpc was constructed with Config.MultiThreaded; otherwise they are only
// ever called from the creator thread.
type HugeAlloc interface {
	// AllocMsgBuffer returns a MsgBuffer able to hold up to maxData bytes of
	// application payload. It returns an error (ResourceError in the
	// runtime's terms) if the pool is exhausted.
	AllocMsgBuffer(maxData int) (msgbuf.MsgBuffer, error)

	// ResizeMsgBuffer changes the logical size of an allocator-owned buffer
	// without reallocating; newSize must not exceed the buffer's backing
	// capacity.
	ResizeMsgBuffer(buf *msgbuf.MsgBuffer, newSize int) error

	// FreeMsgBuffer returns buf's backing storage to the pool. Freeing an
	// already-empty buffer is a no-op.
	FreeMsgBuffer(buf msgbuf.MsgBuffer)

	// Stats returns a snapshot of allocator-wide counters.
	Stats() Stats
}
