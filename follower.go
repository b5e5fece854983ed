package raft

import "time"

// followerRole is the passive default state: it answers RPCs (handled
// commonly by the Orchestrator) and waits for either a leader's heartbeat
// or an election timeout.
type followerRole struct {
	o     *Orchestrator
	timer *time.Timer
}

func newFollower(o *Orchestrator) *followerRole {
	return &followerRole{o: o, timer: newRandomTimer(o.opts.ElectionBase)}
}

func (f *followerRole) Name() RoleName { return RoleFollower }

func (f *followerRole) TimerChan() <-chan time.Time { return f.timer.C }

// ResetTimer is called whenever we observe activity from a legitimate
// leader or cast a vote, postponing our own election.
func (f *followerRole) ResetTimer(o *Orchestrator) {
	resetTimer(f.timer, o.opts.ElectionBase)
}

func (f *followerRole) HandleTimeout(o *Orchestrator) {
	o.becomeCandidate()
}

func (f *followerRole) HandleClientAppend(o *Orchestrator, rpc *RPC, req *ClientAppend) {
	rpc.Respond(&ClientRedirect{Leader: o.leaderEndpoint()}, nil)
}

// HandleVoteResult and HandleAppendResult: a Follower issues no outbound
// RPCs, so any event delivered here is a stale reply from a role this node
// has since left. Ignore it.
func (f *followerRole) HandleVoteResult(o *Orchestrator, peer Peer, resp *ResponseVote, err error) {}

func (f *followerRole) HandleAppendResult(o *Orchestrator, peer Peer, sentPrev, sentLast uint64, resp *ResponseAppend, err error) {
}

func (f *followerRole) Stop() { f.timer.Stop() }
