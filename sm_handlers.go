package erpc

import (
	"context"

	"github.com/jiangxiaosheng/eRPC/hook"
	"github.com/jiangxiaosheng/eRPC/session"
	"github.com/jiangxiaosheng/eRPC/sm"
)

// dispatchSmWorkItem routes one SM-RX work item to its handler. It is
// called only from the event loop's drain step (eventloop.go), never
// reentrantly: a handler never causes another drain within the same tick.
func (r *Rpc) dispatchSmWorkItem(ctx context.Context, wi hook.WorkItem) {
	switch wi.Packet.PktType {
	case sm.PktTypeConnectReq:
		r.handleConnectReq(wi)
	case sm.PktTypeConnectResp:
		r.handleConnectResp(ctx, wi)
	case sm.PktTypeDisconnectReq:
		r.handleDisconnectReq(wi)
	case sm.PktTypeDisconnectResp:
		r.handleDisconnectResp(wi)
	case sm.PktTypeFaultDropTxRemote:
		r.handleFaultDropTxRemote(wi)
	default:
		r.log.Warn("dropping sm packet of unrecognized type", "pkt_type", wi.Packet.PktType)
	}
}

// handleConnectReq runs at the server side of a connect exchange: validate
// the request is addressed to this endpoint, attempt to accept a new
// Session directly into StateConnected, and reply. On any validation or
// resource failure the server keeps no state and the response carries the
// matching err_type.
func (r *Rpc) handleConnectReq(wi hook.WorkItem) {
	pkt := wi.Packet

	if pkt.Server.Hostname != r.hostname || pkt.Server.EndpointID != r.endpointID {
		r.log.Debug("connect_req rejected", "reason", "unknown remote endpoint id", "want_hostname", r.hostname, "want_endpoint_id", r.endpointID, "got_hostname", pkt.Server.Hostname, "got_endpoint_id", pkt.Server.EndpointID)
		r.metrics.IncCounter("erpc.connect_req.rejected", map[string]string{"reason": "invalid_remote_endpoint_id"})
		r.enqueueSmResp(wi, pkt.Client, pkt.Server, sm.ErrTypeInvalidRemoteEndpointID)
		return
	}
	if pkt.Server.PhyPort >= sm.MaxPhyPorts {
		r.log.Debug("connect_req rejected", "reason", "phy_port out of range", "phy_port", pkt.Server.PhyPort)
		r.metrics.IncCounter("erpc.connect_req.rejected", map[string]string{"reason": "invalid_remote_endpoint_id"})
		r.enqueueSmResp(wi, pkt.Client, pkt.Server, sm.ErrTypeInvalidRemoteEndpointID)
		return
	}
	if r.sessions.Full() {
		r.log.Debug("connect_req rejected", "reason", "too many sessions")
		r.metrics.IncCounter("erpc.connect_req.rejected", map[string]string{"reason": "too_many_sessions"})
		r.enqueueSmResp(wi, pkt.Client, pkt.Server, sm.ErrTypeTooManySessions)
		return
	}

	caps := r.tr.Capabilities()
	s, err := session.New(session.RoleServer, r.cfg.SlotsPerSession, caps.MaxDataPerPkt, r.ha, r.cfg.MultiThreaded)
	if err != nil {
		r.log.Debug("connect_req rejected", "reason", "out of memory", "error", err)
		r.metrics.IncCounter("erpc.connect_req.rejected", map[string]string{"reason": "out_of_memory"})
		r.enqueueSmResp(wi, pkt.Client, pkt.Server, sm.ErrTypeOutOfMemory)
		return
	}

	routingInfo, err := r.localRoutingInfo()
	if err != nil {
		s.Bury(r.ha)
		r.log.Debug("connect_req rejected", "reason", "failed to fill local routing info", "error", err)
		r.metrics.IncCounter("erpc.connect_req.rejected", map[string]string{"reason": "out_of_memory"})
		r.enqueueSmResp(wi, pkt.Client, pkt.Server, sm.ErrTypeOutOfMemory)
		return
	}

	s.Client = pkt.Client
	s.Server = pkt.Server
	s.Server.RoutingInfo = routingInfo
	s.State = session.StateConnected

	num := r.sessions.Append(s)
	s.Server.SessionNum = num

	r.log.Debug("connect_req accepted", "session_num", num, "client_hostname", s.Client.Hostname, "client_endpoint_id", s.Client.EndpointID)
	r.metrics.IncCounter("erpc.connect_req.accepted", nil)
	r.enqueueSmResp(wi, s.Client, s.Server, sm.ErrTypeNone)
}

// handleConnectResp runs at the client side of a connect exchange.
func (r *Rpc) handleConnectResp(ctx context.Context, wi hook.WorkItem) {
	pkt := wi.Packet

	s, ok := r.sessions.Get(pkt.Client.SessionNum)
	if !ok {
		r.log.Debug("connect_resp discarded", "reason", "unknown session_num", "session_num", pkt.Client.SessionNum)
		return
	}
	if !s.IsClient() {
		r.log.Debug("connect_resp discarded", "reason", "session is not a client session", "session_num", pkt.Client.SessionNum)
		return
	}
	if s.State == session.StateDisconnected {
		// destroy_session raced with a slow ConnectResp; already terminal.
		r.log.Debug("connect_resp discarded", "reason", "session already disconnected", "session_num", pkt.Client.SessionNum)
		return
	}
	if s.State != session.StateConnectInProgress {
		r.log.Debug("connect_resp discarded", "reason", "unexpected state", "session_num", pkt.Client.SessionNum, "state", s.State)
		return
	}
	if s.Client.Secret != pkt.Client.Secret || s.Server.Secret != pkt.Server.Secret {
		r.log.Debug("connect_resp discarded", "reason", "secret mismatch", "session_num", pkt.Client.SessionNum)
		return
	}

	r.retryQ.Remove(s)
	s.SmAPIReqPending = false

	if pkt.ErrType != sm.ErrTypeNone {
		s.State = session.StateDisconnected
		r.sessions.Bury(s.LocalSessionNum)
		s.Bury(r.ha)
		r.smHandler(s.LocalSessionNum, SmEventConnectFailed, pkt.ErrType)
		return
	}

	s.Server = pkt.Server
	if !r.tr.ResolveRemoteRoutingInfo(ctx, s.Server) {
		s.State = session.StateDisconnected
		r.sessions.Bury(s.LocalSessionNum)
		s.Bury(r.ha)
		r.smHandler(s.LocalSessionNum, SmEventConnectFailed, sm.ErrTypeRoutingResolutionFailure)
		return
	}

	s.State = session.StateConnected
	r.smHandler(s.LocalSessionNum, SmEventConnected, sm.ErrTypeNone)
}

// handleDisconnectReq runs at the server side of a disconnect exchange. It
// is idempotent: a DisconnectReq for a session that no longer exists still
// gets a DisconnectResp(None), matching spec.md's idempotent-teardown
// property. A secret mismatch against an existing session is treated as a
// protocol error and silently discarded rather than risk confirming to a
// prober which session numbers are live.
func (r *Rpc) handleDisconnectReq(wi hook.WorkItem) {
	pkt := wi.Packet

	s, ok := r.sessions.Get(pkt.Server.SessionNum)
	if !ok {
		r.enqueueSmResp(wi, pkt.Client, pkt.Server, sm.ErrTypeNone)
		return
	}
	if !s.IsServer() || s.Server.Secret != pkt.Server.Secret {
		r.log.Debug("disconnect_req discarded", "reason", "not a server session or secret mismatch", "session_num", pkt.Server.SessionNum)
		return
	}

	r.sessions.Bury(s.LocalSessionNum)
	s.Bury(r.ha)
	r.enqueueSmResp(wi, pkt.Client, pkt.Server, sm.ErrTypeNone)
}

// handleDisconnectResp runs at the client side of a disconnect exchange.
func (r *Rpc) handleDisconnectResp(wi hook.WorkItem) {
	pkt := wi.Packet

	s, ok := r.sessions.Get(pkt.Client.SessionNum)
	if !ok {
		r.log.Debug("disconnect_resp discarded", "reason", "unknown session_num", "session_num", pkt.Client.SessionNum)
		return
	}
	if !s.IsClient() || s.State != session.StateDisconnectInProgress {
		r.log.Debug("disconnect_resp discarded", "reason", "unexpected state or role", "session_num", pkt.Client.SessionNum)
		return
	}
	if s.Client.Secret != pkt.Client.Secret || s.Server.Secret != pkt.Server.Secret {
		r.log.Debug("disconnect_resp discarded", "reason", "secret mismatch", "session_num", pkt.Client.SessionNum)
		return
	}

	r.retryQ.Remove(s)
	s.SmAPIReqPending = false
	s.State = session.StateDisconnected
	r.sessions.Bury(s.LocalSessionNum)
	s.Bury(r.ha)
	if pkt.ErrType != sm.ErrTypeNone {
		r.smHandler(s.LocalSessionNum, SmEventDisconnectFailed, pkt.ErrType)
		return
	}
	r.smHandler(s.LocalSessionNum, SmEventDisconnected, sm.ErrTypeNone)
}

// handleFaultDropTxRemote is not a stateful exchange: it sets drop_tx_local
// on the local transport, if the transport supports toggling it, and
// discards the packet. Production transports are not required to implement
// the optional dropper interface; this is a testing-only fault injector.
func (r *Rpc) handleFaultDropTxRemote(wi hook.WorkItem) {
	type dropper interface {
		SetDropTxLocal(bool)
	}
	if d, ok := r.tr.(dropper); ok {
		d.SetDropTxLocal(true)
		r.log.Debug("fault_drop_tx_remote applied")
		return
	}
	r.log.Debug("fault_drop_tx_remote ignored", "reason", "transport does not support drop_tx_local")
}
