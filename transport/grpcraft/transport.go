package grpcraft

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"

	"github.com/quorumhq/raft"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// server implements transportHandler by handing each inbound call to the
// event loop as a raft.RPC and blocking until it replies, the same
// envelope pattern the teacher's grpcTransService uses.
type server struct {
	inbox chan *raft.RPC
}

func (s *server) RequestVote(ctx context.Context, req *raft.RequestVote) (*raft.ResponseVote, error) {
	rpc := raft.NewPeerRPC(req.CandidateID, req)
	s.inbox <- rpc
	resp, err := rpc.Result()
	if err != nil {
		return nil, err
	}
	return resp.(*raft.ResponseVote), nil
}

func (s *server) AppendEntries(ctx context.Context, req *raft.AppendEntries) (*raft.ResponseAppend, error) {
	rpc := raft.NewPeerRPC(req.LeaderID, req)
	s.inbox <- rpc
	resp, err := rpc.Result()
	if err != nil {
		return nil, err
	}
	return resp.(*raft.ResponseAppend), nil
}

type client struct {
	conn *grpc.ClientConn
}

// Transport is a raft.Transport backed by a real gRPC server and a pool
// of lazily-dialed client connections, one per peer, exactly the shape of
// the teacher's GRPCTransport.
type Transport struct {
	listenAddr string
	listener   net.Listener
	grpcServer *grpc.Server
	server     *server

	mu      sync.RWMutex
	clients map[string]*client

	serveFlag uint32
}

// Listen opens listenAddr but does not start serving until Serve is
// called, mirroring NewGRPCTransport/Serve's two-phase lifecycle.
func Listen(listenAddr string) (*Transport, error) {
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("grpcraft: listen %s: %w", listenAddr, err)
	}
	return &Transport{
		listenAddr: listenAddr,
		listener:   lis,
		server:     &server{inbox: make(chan *raft.RPC, 64)},
		clients:    make(map[string]*client),
	}, nil
}

func (t *Transport) Endpoint() string { return t.listener.Addr().String() }

func (t *Transport) Inbox() <-chan *raft.RPC { return t.server.inbox }

// Serve blocks, accepting connections, until Close is called. Call it in
// its own goroutine.
func (t *Transport) Serve() error {
	if !atomic.CompareAndSwapUint32(&t.serveFlag, 0, 1) {
		panic("grpcraft: Serve called more than once")
	}
	t.grpcServer = grpc.NewServer(grpc.ForceServerCodec(jsonCodec{}))
	registerTransportServer(t.grpcServer, t.server)
	return t.grpcServer.Serve(t.listener)
}

// Close stops accepting new calls and closes every pooled client
// connection.
func (t *Transport) Close() error {
	if t.grpcServer != nil {
		t.grpcServer.GracefulStop()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, c := range t.clients {
		c.conn.Close()
		delete(t.clients, id)
	}
	return nil
}

func (t *Transport) clientFor(peer raft.Peer) (*client, error) {
	t.mu.RLock()
	c, ok := t.clients[peer.ID]
	t.mu.RUnlock()
	if ok {
		return c, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.clients[peer.ID]; ok {
		return c, nil
	}
	conn, err := grpc.Dial(peer.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})))
	if err != nil {
		return nil, fmt.Errorf("grpcraft: dial %s: %w", peer.Endpoint, err)
	}
	c = &client{conn: conn}
	t.clients[peer.ID] = c
	return c, nil
}

// disconnect drops a pooled connection so the next call redials, used
// after an RPC fails in case the old connection is simply wedged.
func (t *Transport) disconnect(peerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.clients[peerID]; ok {
		c.conn.Close()
		delete(t.clients, peerID)
	}
}

func (t *Transport) SendRequestVote(ctx context.Context, peer raft.Peer, req *raft.RequestVote) (*raft.ResponseVote, error) {
	c, err := t.clientFor(peer)
	if err != nil {
		return nil, err
	}
	resp := new(raft.ResponseVote)
	method := "/" + serviceName + "/RequestVote"
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		t.disconnect(peer.ID)
		return nil, err
	}
	return resp, nil
}

func (t *Transport) SendAppendEntries(ctx context.Context, peer raft.Peer, req *raft.AppendEntries) (*raft.ResponseAppend, error) {
	c, err := t.clientFor(peer)
	if err != nil {
		return nil, err
	}
	resp := new(raft.ResponseAppend)
	method := "/" + serviceName + "/AppendEntries"
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		t.disconnect(peer.ID)
		return nil, err
	}
	return resp, nil
}
