// Package raft implements the consensus CORE of a replicated state machine:
// the per-node role state machine (Follower/Candidate/Leader), the log and
// snapshot data structures, the peer RPC protocol that drives replication,
// leader election and commit advancement, and the client-facing request
// semantics (append, read, redirect).
//
// The wire transport, the state machine interpreting committed entries, and
// the on-disk byte layout of persisted files are external collaborators;
// this package only depends on the Transport, StateMachine and
// PersistentCell interfaces it declares.
package raft
