package session

import (
	"errors"
	"testing"

	"github.com/jiangxiaosheng/eRPC/alloc/pool"
	"github.com/jiangxiaosheng/eRPC/msgbuf"
)

var errAllocExhausted = errors.New("alloc: exhausted for test")

func TestNewPreallocatesRespBuffers(t *testing.T) {
	p := pool.New(0, 1024, false)

	s, err := New(RoleClient, 8, 1024, p, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(s.Slots) != 8 {
		t.Fatalf("len(Slots) = %d, want 8", len(s.Slots))
	}
	for i, slot := range s.Slots {
		if slot.PreRespMsgBuf.IsEmpty() {
			t.Fatalf("slot %d has no pre_resp_msgbuf", i)
		}
		if !slot.atRest() {
			t.Fatalf("slot %d is not at rest after construction", i)
		}
	}
	if got := s.FreeSlotCount(); got != 8 {
		t.Fatalf("FreeSlotCount() = %d, want 8", got)
	}
}

// failAfterN wraps a *pool.Pool and fails every AllocMsgBuffer call once n
// successful allocations have been made, to exercise New's rollback path.
type failAfterN struct {
	*pool.Pool
	remaining int
}

func (f *failAfterN) AllocMsgBuffer(maxData int) (msgbuf.MsgBuffer, error) {
	if f.remaining <= 0 {
		return msgbuf.Empty(), errAllocExhausted
	}
	f.remaining--
	return f.Pool.AllocMsgBuffer(maxData)
}

func TestNewRollsBackOnAllocFailure(t *testing.T) {
	base := pool.New(0, 1024, false)
	fa := &failAfterN{Pool: base, remaining: 3}

	_, err := New(RoleClient, 8, 1024, fa, false)
	if err == nil {
		t.Fatal("expected New to fail when the allocator runs out partway through")
	}
	if got := base.Stats().BuffersAllocated - base.Stats().BuffersFreed; got != 0 {
		t.Fatalf("allocator leaked %d buffers after a failed New", got)
	}
}

func TestAllocFreeSlotInvariant(t *testing.T) {
	p := pool.New(0, 1024, false)
	s, err := New(RoleClient, 4, 1024, p, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var allocated []*Slot
	for i := 0; i < 4; i++ {
		slot, ok := s.AllocSlot()
		if !ok {
			t.Fatalf("AllocSlot failed on iteration %d", i)
		}
		allocated = append(allocated, slot)
	}
	if _, ok := s.AllocSlot(); ok {
		t.Fatal("expected AllocSlot to fail once the window is exhausted")
	}
	if got := s.FreeSlotCount() + len(allocated); got != 4 {
		t.Fatalf("|free|+|in-flight| = %d, want 4", got)
	}

	s.FreeSlot(allocated[0].Index)
	if got := s.FreeSlotCount(); got != 1 {
		t.Fatalf("FreeSlotCount() = %d, want 1", got)
	}
	slot, ok := s.AllocSlot()
	if !ok || slot.Index != allocated[0].Index {
		t.Fatalf("expected to reallocate the freed slot %d, got ok=%v idx=%v", allocated[0].Index, ok, slot)
	}
}

func TestBuryFreesPreRespBuffers(t *testing.T) {
	p := pool.New(0, 1024, false)
	s, err := New(RoleClient, 4, 1024, p, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	before := p.Stats().BuffersFreed
	s.Bury(p)
	if got := p.Stats().BuffersFreed - before; got != 4 {
		t.Fatalf("Bury freed %d buffers, want 4", got)
	}
	for i, slot := range s.Slots {
		if !slot.PreRespMsgBuf.IsEmpty() {
			t.Fatalf("slot %d still references a pre_resp_msgbuf after Bury", i)
		}
	}
}

func TestAwaitingSmResponse(t *testing.T) {
	cases := []struct {
		state State
		want  bool
	}{
		{StateConnectInProgress, true},
		{StateConnected, false},
		{StateDisconnectInProgress, true},
		{StateDisconnected, false},
	}
	for _, c := range cases {
		if got := c.state.AwaitingSmResponse(); got != c.want {
			t.Errorf("%v.AwaitingSmResponse() = %v, want %v", c.state, got, c.want)
		}
	}
}
