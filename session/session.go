// Package session implements the data model and slot accounting described
// by the session management plane: per-session role/state, the fixed-size
// request-slot window, and the free-slot stack discipline that keeps
// |free slots| + |in-flight slots| == SlotsPerSession at all times.
package session

import (
	"fmt"

	"github.com/jiangxiaosheng/eRPC/alloc"
	"github.com/jiangxiaosheng/eRPC/msgbuf"
	"github.com/jiangxiaosheng/eRPC/sm"
)

// Role identifies which side of a Session this Rpc plays.
type Role int

const (
	RoleClient Role = iota
	RoleServer
)

func (r Role) String() string {
	if r == RoleServer {
		return "Server"
	}
	return "Client"
}

// State is a Session's position in the connect/disconnect lifecycle.
// Transitions happen only on the creator thread; see doc.go for the state
// diagram.
type State int

const (
	StateConnectInProgress State = iota
	StateConnected
	StateDisconnectInProgress
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnectInProgress:
		return "ConnectInProgress"
	case StateConnected:
		return "Connected"
	case StateDisconnectInProgress:
		return "DisconnectInProgress"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// AwaitingSmResponse reports whether s is one of the states a Session must be
// in while it holds an in-flight session-management request; retry.Queue's
// membership must match this set exactly (tested in session_test.go).
func (s State) AwaitingSmResponse() bool {
	return s == StateConnectInProgress || s == StateDisconnectInProgress
}

// Session is a logical, bidirectional channel between two Endpoints with a
// fixed request window of slots. It is heap-owned by the endpoint runtime's
// SessionTable; applications hold only an opaque reference (local session
// number) and must never touch a buried Session.
type Session struct {
	Role  Role
	State State

	Client sm.Endpoint
	Server sm.Endpoint

	// LocalSessionNum indexes this Rpc's own SessionTable. For a Role-Client
	// session it equals Client.SessionNum; for a Role-Server session it
	// equals Server.SessionNum.
	LocalSessionNum uint16

	Slots []Slot

	// InTxQueue marks that this session already has a pending TX-queue
	// entry in the datapath, to avoid double-enqueueing (datapath concern;
	// tracked here only for slot-accounting tests).
	InTxQueue bool

	// SmAPIReqPending is set while a client-initiated CreateSession or
	// DestroySession call has emitted a request but not yet observed a
	// terminal response. Server sessions never set this.
	SmAPIReqPending bool

	freeSlots *freeSlotStack
}

// New constructs a Session in StateConnectInProgress (the only state a
// freshly created Session may start in) with SlotsPerSession slots, each
// carrying a fresh one-MTU PreRespMsgBuf obtained from alloc. On allocation
// failure, already-allocated PreRespMsgBufs are rolled back and an error is
// returned.
func New(role Role, slotsPerSession int, maxDataPerPkt int, hugeAlloc alloc.HugeAlloc, multiThreaded bool) (*Session, error) {
	s := &Session{
		Role:      role,
		State:     StateConnectInProgress,
		Slots:     make([]Slot, slotsPerSession),
		freeSlots: newFreeSlotStack(slotsPerSession, multiThreaded),
	}

	for i := range s.Slots {
		buf, err := hugeAlloc.AllocMsgBuffer(maxDataPerPkt)
		if err != nil {
			for j := 0; j < i; j++ {
				hugeAlloc.FreeMsgBuffer(s.Slots[j].PreRespMsgBuf)
				s.Slots[j].PreRespMsgBuf = msgbuf.Empty()
			}
			return nil, fmt.Errorf("session: failed to allocate pre_resp_msgbuf for slot %d: %w", i, err)
		}
		s.Slots[i].Index = i
		s.Slots[i].PreRespMsgBuf = buf
	}

	return s, nil
}

// IsClient reports whether this Session's Role is RoleClient.
func (s *Session) IsClient() bool { return s.Role == RoleClient }

// IsServer reports whether this Session's Role is RoleServer.
func (s *Session) IsServer() bool { return s.Role == RoleServer }

// AllocSlot reserves a free slot for a new in-flight request, returning
// NoSessionMsgSlots semantics (ok == false) if the window is exhausted.
func (s *Session) AllocSlot() (*Slot, bool) {
	idx, ok := s.freeSlots.Alloc()
	if !ok {
		return nil, false
	}
	if !s.Slots[idx].atRest() {
		panic(fmt.Sprintf("session: slot %d allocated from free list while not at rest", idx))
	}
	return &s.Slots[idx], true
}

// FreeSlot returns a slot to the free-slot stack. Callers must have already
// released any allocator-owned buffers referenced by the slot.
func (s *Session) FreeSlot(idx int) {
	s.Slots[idx].reset()
	s.freeSlots.Free(idx)
}

// FreeSlotCount reports the number of currently unreserved slots, used by
// the |free_slots| + |in_flight_slots| == SlotsPerSession invariant check.
func (s *Session) FreeSlotCount() int {
	return s.freeSlots.Len()
}

// Bury releases every slot's PreRespMsgBuf back to hugeAlloc. Per the
// original implementation's unresolved "XXX: which other MsgBuffers do we
// need to free?", this module's policy (recorded in DESIGN.md) is: the
// runtime frees exactly what it allocated (PreRespMsgBuf on every slot); any
// dynamic TxMsgBuf/RxMsgBuf still referenced at bury time is assumed to have
// already been released by the datapath completion path that preceded the
// terminal SM transition, since a session only reaches a terminal state
// once no request is in flight on it.
func (s *Session) Bury(hugeAlloc alloc.HugeAlloc) {
	for i := range s.Slots {
		hugeAlloc.FreeMsgBuffer(s.Slots[i].PreRespMsgBuf)
		s.Slots[i].PreRespMsgBuf = msgbuf.Empty()
	}
}
