package raft

import (
	"context"

	"github.com/google/uuid"
)

// Peer identifies one member of the fixed cluster roster.
type Peer struct {
	ID       string
	Endpoint string
}

// RPC carries one inbound peer request from the Transport into the event
// loop, and carries the reply back out once a RoleState handler responds.
// It mirrors the request/response envelope used throughout the reference
// corpus (the teacher's own rpc.go) rather than returning values directly,
// because a handler must be able to reply asynchronously without blocking
// the caller's goroutine.
type RPC struct {
	id         string
	PeerID     string
	Request    interface{}
	responseCh chan rpcResult
}

type rpcResult struct {
	Response interface{}
	Err      error
}

// NewPeerRPC wraps an inbound peer request (a *RequestVote or
// *AppendEntries) for delivery to the event loop.
func NewPeerRPC(peerID string, request interface{}) *RPC {
	return &RPC{id: uuid.NewString(), PeerID: peerID, Request: request, responseCh: make(chan rpcResult, 1)}
}

// NewClientRPC wraps an inbound client request (a *ClientAppend,
// *ClientGet, or *ClientDiagnostic) for delivery to the event loop.
func NewClientRPC(request interface{}) *RPC {
	return &RPC{id: uuid.NewString(), Request: request, responseCh: make(chan rpcResult, 1)}
}

// ID is a correlation identifier useful for log lines and transport
// adapters matching requests to responses.
func (r *RPC) ID() string { return r.id }

// Respond delivers the handler's reply. At most one call is made per RPC;
// an RPC that never gets Respond leaves the caller blocked forever on
// Result. The event loop answers every request except a client append
// parked in waitingClients whose leader steps down before it commits.
func (r *RPC) Respond(response interface{}, err error) {
	r.responseCh <- rpcResult{Response: response, Err: err}
}

// Result blocks until Respond is called.
func (r *RPC) Result() (interface{}, error) {
	res := <-r.responseCh
	return res.Response, res.Err
}

// Transport is the CORE's only dependency on the wire layer (spec §1): an
// ordered-per-peer, best-effort, possibly duplicating/losing channel to
// every other node. Moving bytes between processes, framing, retries and
// connection lifecycle are all the concrete Transport's concern.
type Transport interface {
	// Endpoint is this node's own dial address, used for diagnostics and
	// for the first-peer bootstrap case.
	Endpoint() string

	// SendRequestVote and SendAppendEntries make an outbound call to peer
	// and block the calling goroutine (never the event loop's) until a
	// reply or ctx's deadline.
	SendRequestVote(ctx context.Context, peer Peer, req *RequestVote) (*ResponseVote, error)
	SendAppendEntries(ctx context.Context, peer Peer, req *AppendEntries) (*ResponseAppend, error)

	// Inbox delivers inbound peer RPCs (RequestVote/AppendEntries) for the
	// event loop to dispatch. Client requests are submitted directly
	// through Orchestrator.Submit, not through this channel, since in a
	// real deployment they usually arrive over a distinct API surface.
	Inbox() <-chan *RPC
}
