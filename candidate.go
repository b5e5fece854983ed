package raft

import (
	"context"
	"time"
)

// candidateRole runs one election for one term: it has already voted for
// itself (Orchestrator.becomeCandidate persists that before constructing
// this role) and is waiting on either a quorum of votes, a higher term
// from someone else, or its own timeout to start the next term's election.
type candidateRole struct {
	o     *Orchestrator
	timer *time.Timer
	votes map[string]bool
}

func newCandidate(o *Orchestrator) *candidateRole {
	c := &candidateRole{
		o:     o,
		timer: newRandomTimer(o.opts.ElectionBase),
		votes: map[string]bool{o.id: true},
	}
	c.broadcastRequestVote(o)
	return c
}

func (c *candidateRole) Name() RoleName { return RoleCandidate }

func (c *candidateRole) TimerChan() <-chan time.Time { return c.timer.C }

func (c *candidateRole) ResetTimer(o *Orchestrator) {
	resetTimer(c.timer, o.opts.ElectionBase)
}

// HandleTimeout means this election was inconclusive (split vote, or too
// many unreachable peers); start a fresh one for the next term.
func (c *candidateRole) HandleTimeout(o *Orchestrator) {
	o.becomeCandidate()
}

func (c *candidateRole) HandleClientAppend(o *Orchestrator, rpc *RPC, req *ClientAppend) {
	rpc.Respond(&ClientRedirect{Leader: ""}, nil)
}

func (c *candidateRole) HandleVoteResult(o *Orchestrator, peer Peer, resp *ResponseVote, err error) {
	if err != nil {
		return
	}
	if resp.Term > o.currentTerm() {
		o.stepDown(resp.Term)
		return
	}
	if resp.Term < o.currentTerm() || !resp.VoteGranted {
		return
	}
	c.votes[peer.ID] = true
	o.metrics.votesGranted.Inc()
	if c.hasQuorum(o) {
		o.becomeLeader()
	}
}

// hasQuorum reports whether this election has a majority of the cluster's
// votes, counting the candidate's own self-vote.
func (c *candidateRole) hasQuorum(o *Orchestrator) bool {
	return len(c.votes)*2 > len(o.peers)+1
}

// HandleAppendResult: a Candidate never replicates, so any delivery here
// is a stale reply from a prior Leader term. Ignore it.
func (c *candidateRole) HandleAppendResult(o *Orchestrator, peer Peer, sentPrev, sentLast uint64, resp *ResponseAppend, err error) {
}

func (c *candidateRole) Stop() { c.timer.Stop() }

// broadcastRequestVote fires one outbound RequestVote per peer, each in its
// own goroutine so a slow or unreachable peer never delays the others or
// blocks the event loop. Results are posted back as voteResponseEvent.
func (c *candidateRole) broadcastRequestVote(o *Orchestrator) {
	term := o.currentTerm()
	lastTerm, lastIndex := o.log.LastTermIndex()
	req := &RequestVote{
		Term:         term,
		CandidateID:  o.id,
		LastLogIndex: lastIndex,
		LastLogTerm:  lastTerm,
	}
	for _, peer := range o.peers {
		peer := peer
		go func() {
			ctx, cancel := context.WithTimeout(o.roleCtx, o.opts.ElectionBase)
			defer cancel()
			resp, err := o.transport.SendRequestVote(ctx, peer, req)
			select {
			case o.asyncCh <- voteResponseEvent{peer: peer, resp: resp, err: err}:
			case <-o.roleCtx.Done():
			}
		}()
	}
}
