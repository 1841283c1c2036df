package erpc

import (
	"github.com/jiangxiaosheng/eRPC/hook"
	"github.com/jiangxiaosheng/eRPC/session"
	"github.com/jiangxiaosheng/eRPC/sm"
)

// enqueueSmReq builds a fresh SmPacket carrying s's current Client/Server
// endpoints and pktType, and appends it to SM-TX. Used by CreateSession,
// DestroySession, and retry.Queue.Fire's re-emission.
func (r *Rpc) enqueueSmReq(s *session.Session, pktType sm.PktType) {
	pkt := sm.SmPacket{
		PktType: pktType,
		ErrType: sm.ErrTypeNone,
		Client:  s.Client,
		Server:  s.Server,
	}
	r.hk.PushTX(hook.WorkItem{
		OriginEndpointID: r.endpointID,
		Packet:           pkt,
		PeerHandle:       nil,
	})
}

// enqueueSmResp flips the incoming request's pkt_type to its response
// counterpart (ConnectReq<->ConnectResp, DisconnectReq<->DisconnectResp),
// stamps client/server and errType, and appends the result to SM-TX
// carrying the original peer handle so the transport can reply without
// re-resolving routing info. Callers pass the client/server endpoints the
// response should carry: on success these may be more complete than the
// request's (e.g. a freshly assigned session_num); on error they are
// normally just the request's own Client/Server, unchanged.
func (r *Rpc) enqueueSmResp(wi hook.WorkItem, client, server sm.Endpoint, errType sm.ErrType) {
	respType, ok := wi.Packet.PktType.RespType()
	if !ok {
		fatalf("enqueueSmResp: %s is not a request packet type", wi.Packet.PktType)
	}

	pkt := sm.SmPacket{
		PktType: respType,
		ErrType: errType,
		Client:  client,
		Server:  server,
	}
	r.hk.PushTX(hook.WorkItem{
		OriginEndpointID: r.endpointID,
		Packet:           pkt,
		PeerHandle:       wi.PeerHandle,
	})
}
