package pool

import "testing"

func TestAllocFreeRoundTrip(t *testing.T) {
	p := New(0, 1024, false)

	buf, err := p.AllocMsgBuffer(512)
	if err != nil {
		t.Fatalf("AllocMsgBuffer: %v", err)
	}
	if buf.IsEmpty() {
		t.Fatal("allocated buffer should not be empty")
	}
	if got := p.Stats().BuffersAllocated; got != 1 {
		t.Fatalf("BuffersAllocated = %d, want 1", got)
	}

	p.FreeMsgBuffer(buf)
	if got := p.Stats().BuffersFreed; got != 1 {
		t.Fatalf("BuffersFreed = %d, want 1", got)
	}
}

func TestAllocReusesFreedBuffer(t *testing.T) {
	p := New(0, 1024, false)

	first, err := p.AllocMsgBuffer(512)
	if err != nil {
		t.Fatalf("AllocMsgBuffer: %v", err)
	}
	firstPtr := &first.Buf[0]
	p.FreeMsgBuffer(first)

	second, err := p.AllocMsgBuffer(512)
	if err != nil {
		t.Fatalf("AllocMsgBuffer: %v", err)
	}
	if &second.Buf[0] != firstPtr {
		t.Fatal("expected the freed buffer to be reused from the free list")
	}
}

func TestAllocOverLargestSizeClassFails(t *testing.T) {
	p := New(0, 1024, false)
	if _, err := p.AllocMsgBuffer(1 << 30); err == nil {
		t.Fatal("expected an error allocating beyond the largest size class")
	}
}

func TestConcurrentAllocIsSerializedWhenMultiThreaded(t *testing.T) {
	p := New(0, 1024, true)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			if _, err := p.AllocMsgBuffer(64); err != nil {
				t.Errorf("AllocMsgBuffer: %v", err)
			}
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		if _, err := p.AllocMsgBuffer(64); err != nil {
			t.Errorf("AllocMsgBuffer: %v", err)
		}
	}
	<-done
	if got := p.Stats().BuffersAllocated; got != 200 {
		t.Fatalf("BuffersAllocated = %d, want 200", got)
	}
}
