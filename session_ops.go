package erpc

import (
	"time"

	"github.com/jiangxiaosheng/eRPC/session"
	"github.com/jiangxiaosheng/eRPC/sm"
)

// CreateSession opens a client Session to (remoteHostname, remoteEndpointID,
// remotePhyPort). It returns (nil, err) for every fail-soft precondition:
// a malformed argument, a self-connect attempt,
// a duplicate client session to the same remote, or a full SessionTable.
// On success it has already emitted the first ConnectReq and registered
// the session with the retry queue; the session is in StateConnectInProgress
// until a matching ConnectResp arrives.
func (r *Rpc) CreateSession(remoteHostname string, remoteEndpointID uint8, remotePhyPort uint8) (*session.Session, error) {
	if !r.acquire("CreateSession") {
		return nil, &UsageError{Op: "CreateSession", Reason: "called concurrently from another goroutine"}
	}
	defer r.release()

	if remotePhyPort >= sm.MaxPhyPorts {
		err := &UsageError{Op: "CreateSession", Reason: "remote phy_port out of range"}
		r.log.Debug(err.Error())
		return nil, err
	}
	if remoteHostname == "" || len(remoteHostname) > sm.MaxHostnameLen {
		err := &UsageError{Op: "CreateSession", Reason: "remote hostname empty or too long"}
		r.log.Debug(err.Error())
		return nil, err
	}

	self := sm.Endpoint{Hostname: r.hostname, EndpointID: r.endpointID, PhyPort: r.cfg.PhyPort}
	remote := sm.Endpoint{Hostname: remoteHostname, EndpointID: remoteEndpointID, PhyPort: remotePhyPort}
	if self.Equal(remote) {
		err := &UsageError{Op: "CreateSession", Reason: "self-connect rejected"}
		r.log.Debug(err.Error())
		return nil, err
	}

	if _, exists := r.sessions.FindClientSessionTo(remoteHostname, remoteEndpointID); exists {
		err := &UsageError{Op: "CreateSession", Reason: "a client session to this remote endpoint already exists"}
		r.log.Debug(err.Error())
		return nil, err
	}

	if r.sessions.Full() {
		err := &UsageError{Op: "CreateSession", Reason: "session table at MaxSessionsPerEndpoint"}
		r.log.Debug(err.Error())
		return nil, err
	}

	caps := r.tr.Capabilities()
	s, err := session.New(session.RoleClient, r.cfg.SlotsPerSession, caps.MaxDataPerPkt, r.ha, r.cfg.MultiThreaded)
	if err != nil {
		rerr := &ResourceError{Op: "CreateSession", Err: err}
		r.log.Debug(rerr.Error())
		return nil, rerr
	}

	secret, err := generateSecret(r.cfg.SecretBits)
	if err != nil {
		rerr := &ResourceError{Op: "CreateSession", Err: err}
		r.log.Debug(rerr.Error())
		return nil, rerr
	}

	routingInfo, err := r.localRoutingInfo()
	if err != nil {
		rerr := &ResourceError{Op: "CreateSession", Err: err}
		r.log.Debug(rerr.Error())
		return nil, rerr
	}

	s.Client = sm.Endpoint{
		TransportType: r.transType,
		Hostname:      r.hostname,
		PhyPort:       r.cfg.PhyPort,
		EndpointID:    r.endpointID,
		Secret:        secret,
		RoutingInfo:   routingInfo,
	}
	s.Server = sm.Endpoint{
		TransportType: r.transType,
		Hostname:      remoteHostname,
		PhyPort:       remotePhyPort,
		EndpointID:    remoteEndpointID,
		Secret:        secret,
	}

	num := r.sessions.Append(s)
	s.Client.SessionNum = num

	r.retryQ.Add(s, time.Now())
	s.SmAPIReqPending = true
	r.enqueueSmReq(s, sm.PktTypeConnectReq)

	r.log.Debug("session create_session", "session_num", num, "remote_hostname", remoteHostname, "remote_endpoint_id", remoteEndpointID)
	return s, nil
}

// DestroySession begins tearing down a client Session. Its bool return
// follows the original implementation exactly: true means a DisconnectReq
// was emitted and the session is now DisconnectInProgress; false covers
// every refusal (ConnectInProgress in flight, a teardown already running,
// or an already-Disconnected zombie session) including the
// ConnectInProgress case, resolving spec.md's Open Question in favor of
// "false means not-yet-safe-to-consider-destroyed" over the doc-comment
// reading that would allow true there too.
func (r *Rpc) DestroySession(s *session.Session) bool {
	if !r.acquire("DestroySession") {
		return false
	}
	defer r.release()

	if s == nil || !s.IsClient() {
		r.log.Debug("destroy_session usage error", "reason", "nil or non-client session")
		return false
	}

	switch s.State {
	case session.StateConnectInProgress:
		r.log.Debug("destroy_session refused", "session_num", s.LocalSessionNum, "reason", "connect in progress")
		return false
	case session.StateConnected:
		s.State = session.StateDisconnectInProgress
		s.SmAPIReqPending = true
		r.retryQ.Add(s, time.Now())
		r.enqueueSmReq(s, sm.PktTypeDisconnectReq)
		r.log.Debug("destroy_session emitted", "session_num", s.LocalSessionNum)
		return true
	case session.StateDisconnectInProgress:
		r.log.Debug("destroy_session refused", "session_num", s.LocalSessionNum, "reason", "disconnect already in progress")
		return false
	case session.StateDisconnected:
		r.log.Debug("destroy_session refused", "session_num", s.LocalSessionNum, "reason", "session already disconnected")
		return false
	default:
		fatalf("destroy_session: session %d in unrecognized state %v", s.LocalSessionNum, s.State)
		return false
	}
}
