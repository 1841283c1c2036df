// Package erpc implements a user-space RPC runtime for lossy datagram
// transports, modeled on reliable/unreliable RDMA verbs. An application
// thread constructs an Rpc bound to a physical network port and an
// application-defined endpoint ID, opens client Sessions to remote Rpcs,
// and drives progress by calling into the event loop.
//
// Layers & Roles
//
//	Transport    -> external collaborator: packet burst send/recv, routing info, MTU
//	HugeAlloc    -> external collaborator: page-backed MsgBuffer allocation
//	Nexus        -> process-wide owner of the SM listener and per-Rpc hooks
//	hook.Hook    -> the SM-RX / SM-TX queues connecting an Rpc to the Nexus
//	retry.Queue  -> in-flight session-management requests awaiting a response
//	session.*    -> per-session state, slot accounting, lifecycle
//	Rpc          -> ties all of the above together behind a single-threaded
//	                cooperative API: CreateSession, DestroySession, RunEventLoop*
//
// # Concurrency
//
// Every exported Rpc method is creator-thread only: the goroutine that calls
// it must be the one that constructed the Rpc. Go has no stable OS-thread
// identity for goroutines, so the session and event-loop methods enforce
// this with a mutual-exclusion guard that rejects a call overlapping another
// one, not with an identity check; see rpc.go for the mechanism. Optional
// background access to the allocator and per-session slot free-lists is
// permitted when Config.MultiThreaded is set, guarded by the matching locks
// described in session/ and alloc/.
//
// # Session management
//
// Sessions move through ConnectInProgress -> Connected -> DisconnectInProgress
// -> Disconnected via a four-packet protocol (sm.SmPacket) exchanged through
// the Nexus-owned hook and retried by retry.Queue until a terminal response
// arrives. See sm_handlers.go for the handler semantics and session/session.go
// for the state machine itself.
package erpc
