package raft

import "errors"

// Error taxonomy (spec §7). Stale terms are recovered locally through the
// reply/retry flow and never reach these sentinels; only PersistIOFailure
// is fatal to the node.
var (
	// ErrUnknownMessage is the error reply the event loop sends back to the
	// caller for a peer or client request of a type it does not handle, and
	// what Node's client calls return for a reply of an unexpected type.
	// Such requests are answered with this error, not dropped, and nothing
	// is logged for them.
	ErrUnknownMessage = errors.New("raft: unknown message type")

	// ErrNotLeader reports that a client append reached a node that is not
	// the leader. Nothing in this package returns it: non-leaders answer an
	// append with a ClientRedirect, and a leader that steps down sends no
	// reply to appends still waiting in waitingClients.
	ErrNotLeader = errors.New("raft: not leader")

	// ErrUnknownPersistKey names a rejected persistent-cell key. The
	// PersistentCell interface has one typed method per field and takes no
	// key, so no implementation in this module returns it.
	ErrUnknownPersistKey = errors.New("raft: unknown persistent cell key")

	// ErrShutdown is returned by Orchestrator.Submit (and so by Node's
	// client calls) once the event loop has stopped.
	ErrShutdown = errors.New("raft: node is shutting down")
)

// PersistFailureError wraps a durability failure from a PersistentCell
// write. It is fatal: the node cannot safely continue participating in
// consensus once its vote/term bookkeeping might not have reached disk.
type PersistFailureError struct {
	Key string
	Err error
}

func (e *PersistFailureError) Error() string {
	return "raft: persistent cell write failed for " + e.Key + ": " + e.Err.Error()
}

func (e *PersistFailureError) Unwrap() error { return e.Err }
