package raft

import "time"

// RoleName is one of the three states spec §3 defines for a node.
type RoleName int

const (
	RoleFollower RoleName = iota
	RoleCandidate
	RoleLeader
)

func (r RoleName) String() string {
	switch r {
	case RoleFollower:
		return "follower"
	case RoleCandidate:
		return "candidate"
	case RoleLeader:
		return "leader"
	default:
		return "unknown"
	}
}

// Role is the behavior that differs across Follower/Candidate/Leader: what
// happens on a timer firing, and how a client append is handled. Everything
// that is identical regardless of role — the term bookkeeping and
// vote/append safety checks of spec §4.1/§4.2 — lives in the Orchestrator's
// common handlers instead, so a Role only implements the part of the Raft
// paper's "Rules for Servers" specific to that state.
type Role interface {
	Name() RoleName

	// TimerChan fires on election timeout (Follower/Candidate) or on the
	// heartbeat interval (Leader). Every role has exactly one timer.
	TimerChan() <-chan time.Time

	// ResetTimer postpones the role's timer, called whenever this node
	// observes activity from a legitimate leader or casts a vote. A
	// Leader's heartbeat ticker ignores this; only Follower/Candidate
	// election timers are meaningfully reset by it.
	ResetTimer(o *Orchestrator)

	// HandleTimeout runs when TimerChan fires.
	HandleTimeout(o *Orchestrator)

	// HandleClientAppend runs when a client submits data to append. Only a
	// Leader can accept it; Follower/Candidate answer with a redirect.
	HandleClientAppend(o *Orchestrator, rpc *RPC, req *ClientAppend)

	// HandleVoteResult and HandleAppendResult deliver the outcome of an
	// earlier outbound call this role issued. Follower ignores both (it
	// issues no outbound calls); Candidate only cares about vote results;
	// Leader acts on append results, and on a vote result only to step
	// down when it carries a higher term.
	HandleVoteResult(o *Orchestrator, peer Peer, resp *ResponseVote, err error)
	HandleAppendResult(o *Orchestrator, peer Peer, sentPrev uint64, sentLast uint64, resp *ResponseAppend, err error)

	// Stop releases the role's timer, called once when the Orchestrator
	// transitions away from this role or shuts down. In-flight goroutines
	// the role started are cancelled separately, through the role's
	// context, by Orchestrator.transition and Shutdown.
	Stop()
}
