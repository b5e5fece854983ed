package raft

// Node is the package's public entry point: it owns the Orchestrator's
// event loop goroutine and exposes the client operations spec §4.3 and
// §6 define, without exposing any internal role/log state to callers.
type Node struct {
	o *Orchestrator
}

// NewNode builds a Node around the given fixed cluster roster and
// collaborators (spec §1) and starts its event loop. peers must not
// include this node's own ID.
func NewNode(id string, peers []Peer, transport Transport, persist PersistentCell, log *LogStore, opts ...Option) *Node {
	n := &Node{o: NewOrchestrator(id, peers, transport, persist, log, opts...)}
	go n.o.Run()
	return n
}

// Append submits data for replication and blocks until it is committed (if
// this node is the leader) or returns a redirect otherwise. If the leader
// steps down before the entry commits, no reply is sent and Append does
// not return.
func (n *Node) Append(data []byte) (*ClientResult, *ClientRedirect, error) {
	res, err := n.o.Submit(&ClientAppend{Data: data})
	if err != nil {
		return nil, nil, err
	}
	switch v := res.(type) {
	case *ClientResult:
		return v, nil, nil
	case *ClientRedirect:
		return nil, v, nil
	default:
		return nil, nil, ErrUnknownMessage
	}
}

// Get reads the state machine's current value. Unlike Append, any node
// answers a read directly regardless of role — there is no redirect.
func (n *Node) Get() (*ClientValue, error) {
	res, err := n.o.Submit(&ClientGet{})
	if err != nil {
		return nil, err
	}
	value, ok := res.(*ClientValue)
	if !ok {
		return nil, ErrUnknownMessage
	}
	return value, nil
}

// Diagnostic returns this node's full status report (spec §4.3).
func (n *Node) Diagnostic() (*DiagnosticReport, error) {
	res, err := n.o.Submit(&ClientDiagnostic{})
	if err != nil {
		return nil, err
	}
	report, ok := res.(*DiagnosticReport)
	if !ok {
		return nil, ErrUnknownMessage
	}
	return report, nil
}

// Orchestrator exposes the underlying event loop for adapters (transports,
// CLI front ends) that need to register metrics or inspect wiring beyond
// the client operations above.
func (n *Node) Orchestrator() *Orchestrator { return n.o }

// Shutdown stops the event loop and waits for it to exit.
func (n *Node) Shutdown() {
	n.o.Shutdown()
}
