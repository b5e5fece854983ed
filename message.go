package raft

// MessageType tags the schema of a peer or client message (spec §6).
type MessageType string

const (
	MsgRequestVote    MessageType = "request_vote"
	MsgResponseVote   MessageType = "response_vote"
	MsgAppendEntries  MessageType = "append_entries"
	MsgResponseAppend MessageType = "response_append"

	MsgClientAppend     MessageType = "append"
	MsgClientGet        MessageType = "get"
	MsgClientDiagnostic MessageType = "diagnostic"
	MsgClientResult     MessageType = "result"
	MsgClientRedirect   MessageType = "redirect"
)

// RequestVote is sent by a Candidate to every other peer (spec §6).
type RequestVote struct {
	Term         uint64
	CandidateID  string
	LastLogIndex uint64
	LastLogTerm  uint64
}

// ResponseVote answers a RequestVote.
type ResponseVote struct {
	Term        uint64
	VoteGranted bool
}

// AppendEntries is the Leader's replication and heartbeat message. When
// HasSnapshot is set, Entries/PrevLogIndex/PrevLogTerm are meaningless and
// the receiver must install the carried snapshot instead (spec §4.4 step 2).
type AppendEntries struct {
	Term         uint64
	LeaderID     string
	PrevLogIndex uint64
	PrevLogTerm  uint64
	Entries      []LogEntry
	LeaderCommit uint64

	HasSnapshot  bool
	CompactData  []byte
	CompactTerm  uint64
	CompactCount uint64
}

// ResponseAppend answers an AppendEntries. On success (and on a stale-term
// rejection) NextIndex is log.Index()+1 as observed by the responder; on a
// failed consistency check it is LogStore.ConflictIndexFor(prevLogIndex),
// the leader's backoff hint (see DESIGN.md).
type ResponseAppend struct {
	Term      uint64
	NextIndex uint64
}

// Client-facing inbound messages (spec §6).
type (
	ClientAppend     struct{ Data []byte }
	ClientGet        struct{}
	ClientDiagnostic struct{}
)

// Client-facing replies.
type (
	ClientResult   struct{ Success bool }
	ClientRedirect struct{ Leader string } // peer address, or "" if unknown
	ClientValue    struct{ Value []byte }
)

// DiagnosticReport is the structured status snapshot spec §4.3's diagnostic
// handler replies with: role name, persistent fields, volatile fields, and
// log metadata.
type DiagnosticReport struct {
	NodeID         string
	Role           string
	CurrentTerm    uint64
	VotedFor       string
	LeaderID       string
	LogIndex       uint64
	LogTerm        uint64
	CommitIndex    uint64
	CompactedIndex uint64
	CompactedTerm  uint64
}
