package raft

import (
	"context"
	"sort"
	"time"
)

// leaderRole drives replication to every peer: nextIndex is this leader's
// guess at where each follower's log diverges (optimistically its own
// index()+1 until a probe proves otherwise), matchIndex is the highest
// index each follower has confirmed (spec §4.2, §4.4).
type leaderRole struct {
	o          *Orchestrator
	ticker     *time.Ticker
	nextIndex  map[string]uint64
	matchIndex map[string]uint64
}

func newLeader(o *Orchestrator) *leaderRole {
	l := &leaderRole{
		o:          o,
		ticker:     time.NewTicker(o.opts.HeartbeatBase),
		nextIndex:  make(map[string]uint64, len(o.peers)),
		matchIndex: make(map[string]uint64, len(o.peers)),
	}
	for _, p := range o.peers {
		l.nextIndex[p.ID] = o.log.Index() + 1
		l.matchIndex[p.ID] = 0
	}
	l.replicateAll(o)
	return l
}

func (l *leaderRole) Name() RoleName { return RoleLeader }

func (l *leaderRole) TimerChan() <-chan time.Time { return l.ticker.C }

// ResetTimer is a no-op: the heartbeat interval runs independent of
// inbound activity, unlike a Follower/Candidate's election timeout.
func (l *leaderRole) ResetTimer(o *Orchestrator) {}

func (l *leaderRole) HandleTimeout(o *Orchestrator) {
	l.replicateAll(o)
}

// HandleClientAppend is the only path that grows the log (spec §4.2): the
// entry is appended under the leader's current term, the caller is parked
// in waitingClients until it commits, and replication is kicked off
// immediately rather than waiting for the next heartbeat.
func (l *leaderRole) HandleClientAppend(o *Orchestrator, rpc *RPC, req *ClientAppend) {
	entry := LogEntry{Term: o.currentTerm(), Data: req.Data}
	o.log.AppendEntries([]LogEntry{entry}, o.log.Index())
	index := o.log.Index()
	o.waitingClients[index] = append(o.waitingClients[index], rpc)
	l.matchIndex[o.id] = index
	l.updateCommitIndex(o)
	l.replicateAll(o)
}

func (l *leaderRole) HandleVoteResult(o *Orchestrator, peer Peer, resp *ResponseVote, err error) {
	if err == nil && resp.Term > o.currentTerm() {
		o.stepDown(resp.Term)
	}
}

// HandleAppendResult advances or backs off nextIndex/matchIndex for the
// responding peer and recomputes the commit index. sentPrev/sentLast
// describe what was actually sent, letting success be distinguished from
// failure without depending on which of several in-flight probes the
// reply answers: ConflictIndexFor always reports an index at or below
// prevLogIndex, while a successful probe always reports index()+1 above it.
func (l *leaderRole) HandleAppendResult(o *Orchestrator, peer Peer, sentPrev, sentLast uint64, resp *ResponseAppend, err error) {
	if err != nil {
		return
	}
	if resp.Term > o.currentTerm() {
		o.stepDown(resp.Term)
		return
	}
	if resp.NextIndex > sentPrev {
		if sentLast > l.matchIndex[peer.ID] {
			l.matchIndex[peer.ID] = sentLast
		}
		l.nextIndex[peer.ID] = sentLast + 1
		l.updateCommitIndex(o)
		return
	}
	next := resp.NextIndex
	if next < 1 {
		next = 1
	}
	l.nextIndex[peer.ID] = next
	l.replicateOne(o, peer)
}

func (l *leaderRole) Stop() { l.ticker.Stop() }

// updateCommitIndex applies the lower-median rule: commitIndex may advance
// to N only if a majority of matchIndex values (including the leader's
// own, which is always log.Index()) are >= N, and only if log entry N was
// written during the leader's current term (the safety rule that prevents
// an old leader's uncommitted entries from being committed by a later
// leader purely by replica count).
func (l *leaderRole) updateCommitIndex(o *Orchestrator) {
	values := make([]uint64, 0, len(o.peers)+1)
	values = append(values, o.log.Index())
	for _, peer := range o.peers {
		values = append(values, l.matchIndex[peer.ID])
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	candidate := values[(len(values)-1)/2]
	if candidate > o.log.CommitIndex() && o.log.Term(candidate) == o.currentTerm() {
		o.log.Commit(candidate)
		o.notifyWaitingClients()
	}
}

func (l *leaderRole) replicateAll(o *Orchestrator) {
	for _, peer := range o.peers {
		l.replicateOne(o, peer)
	}
}

// replicateOne sends whatever the peer's nextIndex says it's missing: a
// snapshot if the peer has fallen behind the compaction horizon, otherwise
// up to BatchSize log entries. An empty Entries slice (peer fully caught
// up) still serves as the heartbeat.
func (l *leaderRole) replicateOne(o *Orchestrator, peer Peer) {
	next := l.nextIndex[peer.ID]
	if next < 1 {
		next = 1
	}
	compacted := o.log.Compacted()
	if next <= compacted.Index {
		req := &AppendEntries{
			Term:         o.currentTerm(),
			LeaderID:     o.id,
			LeaderCommit: o.log.CommitIndex(),
			HasSnapshot:  true,
			CompactData:  compacted.Data,
			CompactTerm:  compacted.Term,
			CompactCount: compacted.Count,
		}
		l.dispatch(o, peer, req, 0, compacted.Index)
		return
	}

	prevIndex := next - 1
	prevTerm := o.log.Term(prevIndex)
	entries := o.log.Slice(next, next+uint64(o.opts.BatchSize))
	sentLast := prevIndex + uint64(len(entries))
	req := &AppendEntries{
		Term:         o.currentTerm(),
		LeaderID:     o.id,
		PrevLogIndex: prevIndex,
		PrevLogTerm:  prevTerm,
		Entries:      entries,
		LeaderCommit: o.log.CommitIndex(),
	}
	l.dispatch(o, peer, req, prevIndex, sentLast)
}

func (l *leaderRole) dispatch(o *Orchestrator, peer Peer, req *AppendEntries, sentPrev, sentLast uint64) {
	go func() {
		ctx, cancel := context.WithTimeout(o.roleCtx, o.opts.HeartbeatBase*4)
		defer cancel()
		resp, err := o.transport.SendAppendEntries(ctx, peer, req)
		select {
		case o.asyncCh <- appendResponseEvent{peer: peer, sentPrev: sentPrev, sentLast: sentLast, resp: resp, err: err}:
		case <-o.roleCtx.Done():
		}
	}()
}
