// Package pool provides an in-memory, size-class-backed alloc.HugeAlloc.
// It is the reference implementation used by tests in place of
// a real hugepage allocator; production deployments would swap in one backed
// by mmap'd hugepages, registered with the transport for RDMA.
package pool

import (
	"fmt"
	"sync"

	"github.com/jiangxiaosheng/eRPC/alloc"
	"github.com/jiangxiaosheng/eRPC/msgbuf"
)

// sizeClasses mirrors a typical hugepage-allocator ladder: small control
// buffers, one-MTU buffers, and a handful of larger classes for dynamic
// request/response bodies.
var sizeClasses = []int{64, 256, 1024, 8192, 65536}

// Pool is a size-class allocator: each class makes buffers on demand and
// keeps freed ones on a free list for reuse. It satisfies alloc.HugeAlloc.
type Pool struct {
	mu            sync.Mutex
	multiThreaded bool
	numaNode      int
	maxDataPerPkt int
	classes       []*class
	stats         alloc.Stats
}

type class struct {
	bufSize int
	free    [][]byte
}

// New constructs a Pool. numaNode is recorded for observability only; this
// reference implementation does not pin memory to a NUMA node (see
// DESIGN.md). maxDataPerPkt feeds msgbuf's packet-count bookkeeping.
func New(numaNode int, maxDataPerPkt int, multiThreaded bool) *Pool {
	p := &Pool{
		multiThreaded: multiThreaded,
		numaNode:      numaNode,
		maxDataPerPkt: maxDataPerPkt,
	}
	for _, size := range sizeClasses {
		p.classes = append(p.classes, &class{bufSize: size})
	}
	return p
}

func (p *Pool) lock() {
	if p.multiThreaded {
		p.mu.Lock()
	}
}

func (p *Pool) unlock() {
	if p.multiThreaded {
		p.mu.Unlock()
	}
}

func (p *Pool) classFor(maxData int) (*class, error) {
	for _, c := range p.classes {
		if c.bufSize >= maxData {
			return c, nil
		}
	}
	return nil, fmt.Errorf("pool: requested size %d exceeds largest size class %d", maxData, sizeClasses[len(sizeClasses)-1])
}

// AllocMsgBuffer implements alloc.HugeAlloc.
func (p *Pool) AllocMsgBuffer(maxData int) (msgbuf.MsgBuffer, error) {
	p.lock()
	defer p.unlock()

	c, err := p.classFor(maxData)
	if err != nil {
		return msgbuf.MsgBuffer{}, err
	}

	var buf []byte
	if n := len(c.free); n > 0 {
		buf = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		buf = make([]byte, c.bufSize)
	}

	p.stats.BuffersAllocated++
	p.stats.BytesAllocated += int64(c.bufSize)
	return msgbuf.New(buf, maxData, p.maxDataPerPkt, true), nil
}

// ResizeMsgBuffer implements alloc.HugeAlloc.
func (p *Pool) ResizeMsgBuffer(buf *msgbuf.MsgBuffer, newSize int) error {
	return buf.Resize(newSize)
}

// FreeMsgBuffer implements alloc.HugeAlloc.
func (p *Pool) FreeMsgBuffer(buf msgbuf.MsgBuffer) {
	if buf.IsEmpty() {
		return
	}

	p.lock()
	defer p.unlock()

	for _, c := range p.classes {
		if c.bufSize == len(buf.Buf) {
			c.free = append(c.free, buf.Buf)
			break
		}
	}
	p.stats.BuffersFreed++
}

// Stats implements alloc.HugeAlloc.
func (p *Pool) Stats() alloc.Stats {
	p.lock()
	defer p.unlock()
	return p.stats
}
