package raft

// LogStore is the ordered sequence of log entries plus a snapshot
// descriptor (spec §3, §4.2). Entries are stored for indices
// (compacted.Index, lastIndex]; term(i) for i <= compacted.Index is defined
// to equal compacted.Term, and term(0) always returns the sentinel 0 so a
// leader's first prevLogIndex=0 probe matches trivially.
//
// LogStore is not safe for concurrent use: the single-threaded event loop
// (spec §5) is what makes that unnecessary.
type LogStore struct {
	entries   []LogEntry
	compacted Compacted

	commitIndex uint64
	lastApplied uint64

	sm StateMachine
}

// NewLogStore creates an empty log store driving the given state machine on
// commit. sm may be nil for tests that only exercise log bookkeeping.
func NewLogStore(sm StateMachine) *LogStore {
	return &LogStore{sm: sm}
}

// StateMachine returns the state machine this log store drives on commit.
func (l *LogStore) StateMachine() StateMachine { return l.sm }

// Entries returns a copy of every entry currently held in memory, for a
// collaborator persisting the log to disk (spec §1 Non-goals keeps byte
// layout out of the CORE).
func (l *LogStore) Entries() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Restore replaces this store's contents with previously persisted
// entries and a snapshot descriptor, restoring the state machine from the
// snapshot data if there is any. It applies no entry: commitIndex is reset
// to the snapshot's index, and later entries are applied once a Commit
// covers them. It is only safe to call before the log store is handed to
// an Orchestrator.
func (l *LogStore) Restore(entries []LogEntry, compacted Compacted) {
	l.entries = append([]LogEntry(nil), entries...)
	l.compacted = compacted
	l.commitIndex = compacted.Index
	l.lastApplied = 0
	if l.sm != nil && compacted.Data != nil {
		l.sm.Restore(compacted.Data)
		l.lastApplied = compacted.Index
	}
}

// Compacted returns the current snapshot descriptor.
func (l *LogStore) Compacted() Compacted { return l.compacted }

// Index returns the last log index: compacted.Index + len(entries).
func (l *LogStore) Index() uint64 {
	return l.compacted.Index + uint64(len(l.entries))
}

// CommitIndex returns the highest index known to be committed.
func (l *LogStore) CommitIndex() uint64 { return l.commitIndex }

// LastApplied returns the highest index applied to the state machine.
func (l *LogStore) LastApplied() uint64 { return l.lastApplied }

// Term returns the term of the entry at index i, or the sentinel 0 for i=0
// and for any index beyond what this store has ever held.
func (l *LogStore) Term(i uint64) uint64 {
	if i == 0 {
		return 0
	}
	if i <= l.compacted.Index {
		return l.compacted.Term
	}
	offset := i - l.compacted.Index - 1
	if offset >= uint64(len(l.entries)) {
		return 0
	}
	return l.entries[offset].Term
}

// LastTermIndex is the convenience pair (term(index()), index()) a
// Candidate needs to fill out a RequestVote.
func (l *LogStore) LastTermIndex() (term, index uint64) {
	index = l.Index()
	return l.Term(index), index
}

// Entry returns the entry at index i, or nil if i falls at or before the
// snapshot horizon or beyond the end of the log.
func (l *LogStore) Entry(i uint64) *LogEntry {
	if i <= l.compacted.Index {
		return nil
	}
	offset := i - l.compacted.Index - 1
	if offset >= uint64(len(l.entries)) {
		return nil
	}
	return &l.entries[offset]
}

// Slice returns entries in the half-open range [lo, hi), clamped to what is
// actually held in memory.
func (l *LogStore) Slice(lo, hi uint64) []LogEntry {
	floor := l.compacted.Index + 1
	if lo < floor {
		lo = floor
	}
	ceil := l.Index() + 1
	if hi > ceil {
		hi = ceil
	}
	if lo >= hi {
		return nil
	}
	loOffset := lo - l.compacted.Index - 1
	hiOffset := hi - l.compacted.Index - 1
	out := make([]LogEntry, hiOffset-loOffset)
	copy(out, l.entries[loOffset:hiOffset])
	return out
}

// AppendEntries truncates any existing entries at positions > prevIndex
// that conflict (different term) with the incoming entries, then appends
// entries whose position exceeds the current index. Entries already
// present and matching are left untouched, making replay idempotent
// (spec §4.2, scenario S6).
func (l *LogStore) AppendEntries(entries []LogEntry, prevIndex uint64) {
	next := prevIndex + 1
	for k, e := range entries {
		idx := next + uint64(k)
		if idx <= l.Index() {
			if l.Term(idx) == e.Term {
				continue
			}
			l.truncateFrom(idx)
		}
		l.entries = append(l.entries, e)
	}
}

func (l *LogStore) truncateFrom(idx uint64) {
	if idx <= l.compacted.Index {
		l.entries = nil
		return
	}
	keep := idx - l.compacted.Index - 1
	if keep < uint64(len(l.entries)) {
		l.entries = l.entries[:keep]
	}
}

// ConflictIndexFor returns the leader-backoff hint a Follower reports when
// an AppendEntries probe fails its prevLogTerm check: the first index of
// the conflicting term in our log, or our own log length plus one when the
// follower's log is simply shorter than prevLogIndex. This is the
// decrement-on-mismatch resolution of spec §9's open question (see
// DESIGN.md) rather than the source's plain "trust next_index on failure".
func (l *LogStore) ConflictIndexFor(prevLogIndex uint64) uint64 {
	if prevLogIndex > l.Index() {
		return l.Index() + 1
	}
	conflictTerm := l.Term(prevLogIndex)
	i := prevLogIndex
	for i > l.compacted.Index+1 && l.Term(i-1) == conflictTerm {
		i--
	}
	return i
}

// Commit advances commitIndex monotonically to min(max(commitIndex,
// newCommit), index()) and applies newly committed entries to the state
// machine in order, exactly once each (spec §4.2).
func (l *LogStore) Commit(newCommit uint64) {
	if newCommit > l.commitIndex {
		l.commitIndex = newCommit
	}
	if l.commitIndex > l.Index() {
		l.commitIndex = l.Index()
	}
	for l.lastApplied < l.commitIndex {
		l.lastApplied++
		if e := l.Entry(l.lastApplied); e != nil && l.sm != nil {
			l.sm.Apply(e.Data)
		}
	}
}

// InstallSnapshot replaces the log with a new snapshot descriptor,
// discarding every in-memory entry (including any above the snapshot's
// index) and advancing commitIndex (and lastApplied) to it if they were lower
// (spec §4.2). The resulting snapshot covers indices [1, count], so its
// index is count.
func (l *LogStore) InstallSnapshot(count, term uint64, data []byte) {
	l.entries = nil
	l.compacted = Compacted{Index: count, Term: term, Data: data, Count: count}
	if l.commitIndex < count {
		l.commitIndex = count
	}
	if l.lastApplied < count {
		l.lastApplied = count
	}
	if l.sm != nil {
		l.sm.Restore(data)
	}
}
