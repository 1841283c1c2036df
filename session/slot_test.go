package session

import (
	"testing"

	"github.com/jiangxiaosheng/eRPC/msgbuf"
)

func msgbufForTest() msgbuf.MsgBuffer {
	return msgbuf.New(make([]byte, 64), 16, 64, false)
}

func TestFreeSlotStackAllocExhaustion(t *testing.T) {
	f := newFreeSlotStack(2, false)

	if _, ok := f.Alloc(); !ok {
		t.Fatal("expected first alloc to succeed")
	}
	if _, ok := f.Alloc(); !ok {
		t.Fatal("expected second alloc to succeed")
	}
	if _, ok := f.Alloc(); ok {
		t.Fatal("expected third alloc to fail: stack should be exhausted")
	}
}

func TestFreeSlotStackDoubleFreePanics(t *testing.T) {
	f := newFreeSlotStack(2, false)
	idx, _ := f.Alloc()
	f.Free(idx)

	defer func() {
		if recover() == nil {
			t.Fatal("expected a double free to panic")
		}
	}()
	f.Free(idx)
}

func TestSlotAtRest(t *testing.T) {
	var s Slot
	if !s.atRest() {
		t.Fatal("zero-value slot should be at rest")
	}
	buf := msgbufForTest()
	s.TxMsgBuf = &buf
	if s.atRest() {
		t.Fatal("slot with a TxMsgBuf should not be at rest")
	}
	s.reset()
	if !s.atRest() {
		t.Fatal("reset should return the slot to rest")
	}
}
