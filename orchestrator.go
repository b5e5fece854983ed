package raft

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"
)

// voteResponseEvent and appendResponseEvent carry the outcome of an earlier
// outbound RPC back onto the event loop. A goroutine spawned by a role
// (Candidate broadcasting RequestVote, Leader replicating) never touches
// Orchestrator state directly; it only ever posts one of these.
type voteResponseEvent struct {
	peer Peer
	resp *ResponseVote
	err  error
}

type appendResponseEvent struct {
	peer     Peer
	sentPrev uint64
	sentLast uint64
	resp     *ResponseAppend
	err      error
}

// Orchestrator is the single-threaded event loop spec §5 requires: exactly
// one goroutine ever touches role, log, or persist state. Everything else —
// the Transport's network I/O, a Candidate's vote broadcast, a Leader's
// replication calls — runs in its own goroutine and communicates back only
// through the channels this struct owns.
type Orchestrator struct {
	id        string
	peers     []Peer
	transport Transport
	persist   PersistentCell
	log       *LogStore
	opts      *Options
	logger    *zap.SugaredLogger
	metrics   *metricsSet

	role     Role
	leaderID string

	closeCtx    context.Context
	closeCancel context.CancelFunc
	roleCtx     context.Context
	roleCancel  context.CancelFunc

	clientCh chan *RPC
	asyncCh  chan interface{}

	waitingClients map[uint64][]*RPC

	shutdownCh   chan struct{}
	doneCh       chan struct{}
	shutdownOnce sync.Once
}

// NewOrchestrator wires together the three external collaborators (spec
// §1) and the fixed peer roster into a node that starts, like every real
// Raft node, as a Follower.
func NewOrchestrator(id string, peers []Peer, transport Transport, persist PersistentCell, log *LogStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		id:             id,
		peers:          peers,
		transport:      transport,
		persist:        persist,
		log:            log,
		opts:           applyOptions(opts...),
		metrics:        newMetrics(id),
		clientCh:       make(chan *RPC),
		asyncCh:        make(chan interface{}, 64),
		waitingClients: make(map[uint64][]*RPC),
		shutdownCh:     make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
	o.logger = newLogger(o.opts.Debug)
	o.closeCtx, o.closeCancel = context.WithCancel(context.Background())
	o.transition(func(o *Orchestrator) Role { return newFollower(o) })
	return o
}

// RegisterMetrics attaches this node's Prometheus collectors to reg.
func (o *Orchestrator) RegisterMetrics(reg *prometheus.Registry) {
	o.metrics.Register(reg)
}

func (o *Orchestrator) currentTerm() uint64 { return o.persist.CurrentTerm() }

func (o *Orchestrator) persistTerm(term uint64) {
	if err := o.persist.SetCurrentTerm(term); err != nil {
		o.fatal(&PersistFailureError{Key: "currentTerm", Err: err})
		return
	}
	o.metrics.setTerm(term)
}

func (o *Orchestrator) persistVote(candidate string) {
	if err := o.persist.SetVotedFor(candidate); err != nil {
		o.fatal(&PersistFailureError{Key: "votedFor", Err: err})
	}
}

// fatal logs a non-recoverable failure and signals the event loop to stop
// (spec §7: only a persistence write failure is fatal). It is always
// called from inside the event loop itself, so it cannot block on doneCh
// the way the public Shutdown does — the loop has to return first.
func (o *Orchestrator) fatal(err error) {
	o.logger.Errorw("fatal error, shutting down", logFields(o, "error", err)...)
	o.signalShutdown()
}

// signalShutdown triggers the loop to exit on its next iteration without
// waiting for it. Safe to call more than once and from any goroutine.
func (o *Orchestrator) signalShutdown() {
	o.shutdownOnce.Do(func() {
		close(o.shutdownCh)
		o.closeCancel()
	})
}

func (o *Orchestrator) leaderEndpoint() string {
	if o.leaderID == "" {
		return ""
	}
	for _, p := range o.peers {
		if p.ID == o.leaderID {
			return p.Endpoint
		}
	}
	if o.leaderID == o.id {
		return o.transport.Endpoint()
	}
	return ""
}

// transition stops the current role (if any), cancels its in-flight
// goroutines, derives a fresh context scoped to the new role's lifetime,
// and only then constructs it via factory. The context must exist before
// factory runs: a Candidate starts broadcasting RequestVote calls (and a
// Leader starts replicating) from inside its own constructor, and those
// goroutines key off o.roleCtx — constructing the role first would hand
// them the outgoing role's context, which this same call is about to
// cancel.
func (o *Orchestrator) transition(factory func(*Orchestrator) Role) {
	if o.role != nil {
		o.role.Stop()
	}
	if o.roleCancel != nil {
		o.roleCancel()
	}
	o.roleCtx, o.roleCancel = context.WithCancel(o.closeCtx)
	o.role = factory(o)
	o.metrics.setRole(o.id, o.role.Name().String())
	o.logger.Infow("role transition", logFields(o)...)
}

func (o *Orchestrator) becomeFollower() {
	o.transition(func(o *Orchestrator) Role { return newFollower(o) })
}

func (o *Orchestrator) becomeCandidate() {
	o.persistTerm(o.currentTerm() + 1)
	o.persistVote(o.id)
	o.leaderID = ""
	o.metrics.elections.Inc()
	o.transition(func(o *Orchestrator) Role { return newCandidate(o) })
	// A single-node cluster (or any election where the self-vote alone is
	// already a majority) never receives an external vote reply to react
	// to, so the quorum check has to happen here too.
	if c, ok := o.role.(*candidateRole); ok && c.hasQuorum(o) {
		o.becomeLeader()
	}
}

func (o *Orchestrator) becomeLeader() {
	o.leaderID = o.id
	o.transition(func(o *Orchestrator) Role { return newLeader(o) })
}

// stepDown is the "all servers" rule of the Raft paper: any message
// carrying a higher term demotes the receiver to Follower for that term,
// regardless of what role it held before.
func (o *Orchestrator) stepDown(term uint64) {
	if term > o.currentTerm() {
		o.persistTerm(term)
		o.persistVote("")
	}
	o.leaderID = ""
	o.becomeFollower()
}

// Run is the event loop. It returns once Shutdown has been called.
func (o *Orchestrator) Run() {
	defer close(o.doneCh)
	for {
		select {
		case rpc := <-o.transport.Inbox():
			o.dispatchPeer(rpc)
		case rpc := <-o.clientCh:
			o.dispatchClient(rpc)
		case ev := <-o.asyncCh:
			o.dispatchAsync(ev)
		case <-o.role.TimerChan():
			o.role.HandleTimeout(o)
		case <-o.shutdownCh:
			return
		}
	}
}

// Submit hands a client request to the event loop and blocks until it is
// answered. Safe to call from any goroutine.
func (o *Orchestrator) Submit(req interface{}) (interface{}, error) {
	rpc := NewClientRPC(req)
	select {
	case o.clientCh <- rpc:
	case <-o.doneCh:
		return nil, ErrShutdown
	}
	return rpc.Result()
}

// Shutdown stops the event loop and releases the active role's resources.
// It is safe to call more than once and from any goroutine.
func (o *Orchestrator) Shutdown() {
	o.signalShutdown()
	<-o.doneCh
	if o.role != nil {
		o.role.Stop()
	}
}

func (o *Orchestrator) dispatchPeer(rpc *RPC) {
	switch req := rpc.Request.(type) {
	case *RequestVote:
		rpc.Respond(o.handleRequestVote(req), nil)
	case *AppendEntries:
		rpc.Respond(o.handleAppendEntries(req), nil)
	default:
		rpc.Respond(nil, ErrUnknownMessage)
	}
}

func (o *Orchestrator) dispatchClient(rpc *RPC) {
	switch req := rpc.Request.(type) {
	case *ClientAppend:
		o.role.HandleClientAppend(o, rpc, req)
	case *ClientGet:
		o.handleClientGet(rpc)
	case *ClientDiagnostic:
		o.handleClientDiagnostic(rpc)
	default:
		rpc.Respond(nil, ErrUnknownMessage)
	}
}

func (o *Orchestrator) dispatchAsync(ev interface{}) {
	switch e := ev.(type) {
	case voteResponseEvent:
		o.role.HandleVoteResult(o, e.peer, e.resp, e.err)
	case appendResponseEvent:
		o.role.HandleAppendResult(o, e.peer, e.sentPrev, e.sentLast, e.resp, e.err)
	}
}

// handleRequestVote implements spec §4.1's vote-granting rule: at most one
// vote per term, and only for a candidate whose log is at least as
// up-to-date as ours under the canonical (lastLogTerm, lastLogIndex)
// comparison.
func (o *Orchestrator) handleRequestVote(req *RequestVote) *ResponseVote {
	o.role.ResetTimer(o)

	if req.Term > o.currentTerm() {
		o.stepDown(req.Term)
	}
	if req.Term < o.currentTerm() {
		return &ResponseVote{Term: o.currentTerm(), VoteGranted: false}
	}

	votedFor := o.persist.VotedFor()
	if votedFor != "" && votedFor != req.CandidateID {
		return &ResponseVote{Term: o.currentTerm(), VoteGranted: false}
	}
	ourTerm, ourIndex := o.log.LastTermIndex()
	upToDate := req.LastLogTerm > ourTerm ||
		(req.LastLogTerm == ourTerm && req.LastLogIndex >= ourIndex)
	if !upToDate {
		return &ResponseVote{Term: o.currentTerm(), VoteGranted: false}
	}

	o.persistVote(req.CandidateID)
	return &ResponseVote{Term: o.currentTerm(), VoteGranted: true}
}

// handleAppendEntries implements spec §4.2's log-matching consistency
// check and §4.4 step 2's snapshot install path, and applies the "all
// servers" higher-term and candidate-reverts-to-follower rules common to
// every role.
func (o *Orchestrator) handleAppendEntries(req *AppendEntries) *ResponseAppend {
	o.role.ResetTimer(o)

	if req.Term > o.currentTerm() {
		o.stepDown(req.Term)
	} else if req.Term < o.currentTerm() {
		return &ResponseAppend{Term: o.currentTerm(), NextIndex: o.log.Index() + 1}
	} else if o.role.Name() == RoleCandidate {
		o.becomeFollower()
	}

	if req.HasSnapshot {
		o.log.InstallSnapshot(req.CompactCount, req.CompactTerm, req.CompactData)
		o.leaderID = req.LeaderID
		o.notifyWaitingClients()
		return &ResponseAppend{Term: o.currentTerm(), NextIndex: o.log.Index() + 1}
	}

	if req.PrevLogIndex > o.log.Index() || o.log.Term(req.PrevLogIndex) != req.PrevLogTerm {
		return &ResponseAppend{Term: o.currentTerm(), NextIndex: o.log.ConflictIndexFor(req.PrevLogIndex)}
	}

	o.log.AppendEntries(req.Entries, req.PrevLogIndex)
	o.log.Commit(req.LeaderCommit)
	o.leaderID = req.LeaderID
	o.notifyWaitingClients()
	return &ResponseAppend{Term: o.currentTerm(), NextIndex: o.log.Index() + 1}
}

// handleClientGet answers with the state machine's current value
// unconditionally — unlike append, a read is served by whichever node
// receives it, with no leader check and no redirect.
func (o *Orchestrator) handleClientGet(rpc *RPC) {
	rpc.Respond(&ClientValue{Value: o.log.StateMachine().Value()}, nil)
}

func (o *Orchestrator) handleClientDiagnostic(rpc *RPC) {
	compacted := o.log.Compacted()
	rpc.Respond(&DiagnosticReport{
		NodeID:         o.id,
		Role:           o.role.Name().String(),
		CurrentTerm:    o.currentTerm(),
		VotedFor:       o.persist.VotedFor(),
		LeaderID:       o.leaderID,
		LogIndex:       o.log.Index(),
		LogTerm:        o.log.Term(o.log.Index()),
		CommitIndex:    o.log.CommitIndex(),
		CompactedIndex: compacted.Index,
		CompactedTerm:  compacted.Term,
	}, nil)
}

// notifyWaitingClients answers every client append still waiting on an
// index that has now been committed. Map keys are deleted directly rather
// than captured into a closure, so there is nothing here for a loop
// variable to alias across iterations.
func (o *Orchestrator) notifyWaitingClients() {
	commit := o.log.CommitIndex()
	o.metrics.setCommitIndex(commit)
	for index, waiters := range o.waitingClients {
		if index > commit {
			continue
		}
		for _, rpc := range waiters {
			rpc.Respond(&ClientResult{Success: true}, nil)
		}
		delete(o.waitingClients, index)
	}
}
