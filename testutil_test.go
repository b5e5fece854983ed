package raft

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// memTransport is an in-process Transport used by the test suite to
// simulate a cluster without sockets. It can drop every message to and
// from a node on demand (setPartitioned), within the "ordered-per-peer,
// best-effort" contract spec §1 places on any real Transport; it never
// reorders messages.
type memTransport struct {
	mu       sync.Mutex
	endpoint string
	peers    map[string]*memTransport
	inbox    chan *RPC

	dropAll bool
}

func newMemTransport(id string) *memTransport {
	return &memTransport{endpoint: id, peers: make(map[string]*memTransport), inbox: make(chan *RPC, 256)}
}

// link makes two transports mutually reachable. Call for every pair in a
// simulated cluster.
func link(a, b *memTransport) {
	a.mu.Lock()
	a.peers[b.endpoint] = b
	a.mu.Unlock()
	b.mu.Lock()
	b.peers[a.endpoint] = a
	b.mu.Unlock()
}

func (m *memTransport) Endpoint() string { return m.endpoint }

func (m *memTransport) Inbox() <-chan *RPC { return m.inbox }

func (m *memTransport) setPartitioned(dropped bool) {
	m.mu.Lock()
	m.dropAll = dropped
	m.mu.Unlock()
}

func (m *memTransport) peerFor(id string) (*memTransport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dropAll {
		return nil, false
	}
	p, ok := m.peers[id]
	return p, ok
}

func (m *memTransport) SendRequestVote(ctx context.Context, peer Peer, req *RequestVote) (*ResponseVote, error) {
	dst, ok := m.peerFor(peer.ID)
	if !ok {
		return nil, errors.New("memtransport: unreachable")
	}
	dst.mu.Lock()
	partitioned := dst.dropAll
	dst.mu.Unlock()
	if partitioned {
		return nil, errors.New("memtransport: unreachable")
	}
	rpc := NewPeerRPC(m.endpoint, req)
	select {
	case dst.inbox <- rpc:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-rpc.responseCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Response.(*ResponseVote), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *memTransport) SendAppendEntries(ctx context.Context, peer Peer, req *AppendEntries) (*ResponseAppend, error) {
	dst, ok := m.peerFor(peer.ID)
	if !ok {
		return nil, errors.New("memtransport: unreachable")
	}
	dst.mu.Lock()
	partitioned := dst.dropAll
	dst.mu.Unlock()
	if partitioned {
		return nil, errors.New("memtransport: unreachable")
	}
	rpc := NewPeerRPC(m.endpoint, req)
	select {
	case dst.inbox <- rpc:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-rpc.responseCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Response.(*ResponseAppend), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// memStateMachine is a deterministic append-only log of applied commands,
// enough to assert ordering and exactly-once application without pulling
// in the real kv state machine package and its msgpack command encoding.
type memStateMachine struct {
	mu      sync.Mutex
	applied [][]byte
}

func (s *memStateMachine) Apply(command []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := append([]byte(nil), command...)
	s.applied = append(s.applied, cp)
}

func (s *memStateMachine) Value() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.applied) == 0 {
		return nil
	}
	return s.applied[len(s.applied)-1]
}

func (s *memStateMachine) Snapshot() ([]byte, error) {
	return s.Value(), nil
}

func (s *memStateMachine) Restore(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applied = [][]byte{append([]byte(nil), data...)}
	return nil
}

func (s *memStateMachine) appliedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.applied)
}

// testCluster wires N nodes together over memTransport with short timer
// bases (not the Debug option) so elections and replication complete quickly under
// `go test`.
type testCluster struct {
	nodes map[string]*Node
	orchs map[string]*Orchestrator
	sms   map[string]*memStateMachine
	trs   map[string]*memTransport
}

func newTestCluster(n int) *testCluster {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = string(rune('A' + i))
	}

	tc := &testCluster{
		nodes: make(map[string]*Node, n),
		orchs: make(map[string]*Orchestrator, n),
		sms:   make(map[string]*memStateMachine, n),
		trs:   make(map[string]*memTransport, n),
	}

	for _, id := range ids {
		tc.trs[id] = newMemTransport(id)
	}
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			link(tc.trs[a], tc.trs[b])
		}
	}

	for _, id := range ids {
		var peers []Peer
		for _, other := range ids {
			if other != id {
				peers = append(peers, Peer{ID: other, Endpoint: other})
			}
		}
		sm := &memStateMachine{}
		tc.sms[id] = sm
		node := NewNode(id, peers, tc.trs[id], NewMemCell(), NewLogStore(sm),
			WithElectionBase(defaultTestElectionBase), WithHeartbeatBase(defaultTestHeartbeatBase))
		tc.nodes[id] = node
		tc.orchs[id] = node.Orchestrator()
	}
	return tc
}

const (
	defaultTestElectionBase  = 30 * time.Millisecond
	defaultTestHeartbeatBase = 5 * time.Millisecond
)

func (tc *testCluster) shutdown() {
	for _, n := range tc.nodes {
		n.Shutdown()
	}
}

func (tc *testCluster) leader() (*Node, bool) {
	for _, n := range tc.nodes {
		report, err := n.Diagnostic()
		if err == nil && report.Role == "leader" {
			return n, true
		}
	}
	return nil, false
}

func randomID(ids []string) string {
	return ids[rand.Intn(len(ids))]
}
