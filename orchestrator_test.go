package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(id string, peers []Peer) *Orchestrator {
	tr := newMemTransport(id)
	sm := &memStateMachine{}
	o := NewOrchestrator(id, peers, tr, NewMemCell(), NewLogStore(sm),
		WithElectionBase(defaultTestElectionBase), WithHeartbeatBase(defaultTestHeartbeatBase))
	// These tests call the handlers directly on the test goroutine and never
	// start Run, so nothing else would close doneCh; closing it here lets the
	// deferred Shutdown return instead of waiting on a loop that never ran.
	close(o.doneCh)
	return o
}

func TestHandleRequestVoteGrantsFirstComer(t *testing.T) {
	o := newTestOrchestrator("A", []Peer{{ID: "B", Endpoint: "B"}})
	defer o.Shutdown()

	resp := o.handleRequestVote(&RequestVote{Term: 1, CandidateID: "B"})
	require.True(t, resp.VoteGranted)
	require.Equal(t, "B", o.persist.VotedFor())
}

func TestHandleRequestVoteRefusesSecondCandidateSameTerm(t *testing.T) {
	o := newTestOrchestrator("A", []Peer{{ID: "B", Endpoint: "B"}, {ID: "C", Endpoint: "C"}})
	defer o.Shutdown()

	first := o.handleRequestVote(&RequestVote{Term: 1, CandidateID: "B"})
	require.True(t, first.VoteGranted)

	second := o.handleRequestVote(&RequestVote{Term: 1, CandidateID: "C"})
	require.False(t, second.VoteGranted)
}

func TestHandleRequestVoteRefusesStaleTerm(t *testing.T) {
	o := newTestOrchestrator("A", nil)
	defer o.Shutdown()
	o.persistTerm(5)

	resp := o.handleRequestVote(&RequestVote{Term: 3, CandidateID: "B"})
	require.False(t, resp.VoteGranted)
	require.Equal(t, uint64(5), resp.Term)
}

func TestHandleRequestVoteRefusesOutOfDateLog(t *testing.T) {
	o := newTestOrchestrator("A", nil)
	defer o.Shutdown()
	o.log.AppendEntries([]LogEntry{{Term: 1}, {Term: 2}}, 0)

	resp := o.handleRequestVote(&RequestVote{Term: 3, CandidateID: "B", LastLogTerm: 1, LastLogIndex: 5})
	require.False(t, resp.VoteGranted)
}

func TestHandleRequestVoteHigherTermStepsDown(t *testing.T) {
	o := newTestOrchestrator("A", []Peer{{ID: "B", Endpoint: "B"}})
	defer o.Shutdown()
	o.becomeCandidate()
	require.Equal(t, RoleCandidate, o.role.Name())

	resp := o.handleRequestVote(&RequestVote{Term: o.currentTerm() + 1, CandidateID: "B"})
	require.True(t, resp.VoteGranted)
	require.Equal(t, RoleFollower, o.role.Name())
}

func TestHandleAppendEntriesRejectsStaleTerm(t *testing.T) {
	o := newTestOrchestrator("A", nil)
	defer o.Shutdown()
	o.persistTerm(5)

	resp := o.handleAppendEntries(&AppendEntries{Term: 3, LeaderID: "B"})
	require.Equal(t, uint64(5), resp.Term)
	require.Equal(t, uint64(1), resp.NextIndex)
}

func TestHandleAppendEntriesConsistencyCheckFails(t *testing.T) {
	o := newTestOrchestrator("A", nil)
	defer o.Shutdown()

	resp := o.handleAppendEntries(&AppendEntries{Term: 1, LeaderID: "B", PrevLogIndex: 3, PrevLogTerm: 1})
	require.Equal(t, uint64(1), resp.NextIndex)
	require.Equal(t, uint64(0), o.log.Index())
}

func TestHandleAppendEntriesAppendsAndCommits(t *testing.T) {
	o := newTestOrchestrator("A", nil)
	defer o.Shutdown()

	resp := o.handleAppendEntries(&AppendEntries{
		Term: 1, LeaderID: "B",
		Entries:      []LogEntry{{Term: 1, Data: []byte("x")}},
		LeaderCommit: 1,
	})
	require.Equal(t, uint64(2), resp.NextIndex)
	require.Equal(t, uint64(1), o.log.CommitIndex())
	require.Equal(t, "B", o.leaderID)
}

func TestHandleAppendEntriesFromCandidateStepsBackToFollower(t *testing.T) {
	o := newTestOrchestrator("A", []Peer{{ID: "B", Endpoint: "B"}})
	defer o.Shutdown()
	o.becomeCandidate()
	term := o.currentTerm()

	o.handleAppendEntries(&AppendEntries{Term: term, LeaderID: "B"})
	require.Equal(t, RoleFollower, o.role.Name())
}

func TestBecomeCandidateVotesForSelfAndIncrementsTerm(t *testing.T) {
	o := newTestOrchestrator("A", []Peer{{ID: "B", Endpoint: "B"}})
	defer o.Shutdown()
	before := o.currentTerm()

	o.becomeCandidate()
	require.Equal(t, before+1, o.currentTerm())
	require.Equal(t, "A", o.persist.VotedFor())
	require.Equal(t, RoleCandidate, o.role.Name())
}

func TestSingleNodeClusterBecomesLeaderOnQuorumOfOne(t *testing.T) {
	o := newTestOrchestrator("A", nil)
	defer o.Shutdown()

	o.becomeCandidate()
	require.Equal(t, RoleLeader, o.role.Name())
}

func TestHandleClientGetAnswersRegardlessOfRole(t *testing.T) {
	o := newTestOrchestrator("A", []Peer{{ID: "B", Endpoint: "B"}})
	defer o.Shutdown()
	require.Equal(t, RoleFollower, o.role.Name())

	o.handleAppendEntries(&AppendEntries{
		Term: 1, LeaderID: "B",
		Entries:      []LogEntry{{Term: 1, Data: []byte("v1")}},
		LeaderCommit: 1,
	})

	rpc := NewClientRPC(&ClientGet{})
	o.handleClientGet(rpc)
	res, err := rpc.Result()
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), res.(*ClientValue).Value)
}
