// Package kv is a deterministic key/value StateMachine for the raft
// package, grounded in the teacher's cmd/kv StateMachine: commands are
// msgpack-encoded set/unset operations applied to an in-memory map, and
// snapshots are the whole map msgpack-encoded in one shot.
package kv

import (
	"sync"

	"github.com/ugorji/go/codec"
)

// CommandType tags a Command's operation.
type CommandType uint8

const (
	CommandSet CommandType = iota
	CommandUnset
)

// Command is the unit of data a client Append submits; StateMachine.Apply
// receives it msgpack-encoded (see EncodeCommand) and decodes it itself.
type Command struct {
	Type  CommandType
	Key   string
	Value []byte
}

var msgpackHandle = &codec.MsgpackHandle{}

// EncodeCommand serializes a Command for use as raft.LogEntry.Data.
func EncodeCommand(cmd Command) []byte {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, msgpackHandle).Encode(cmd); err != nil {
		// Command contains only primitive fields; msgpack encoding of it
		// cannot fail.
		panic(err)
	}
	return buf
}

func decodeCommand(data []byte) (Command, error) {
	var cmd Command
	err := codec.NewDecoderBytes(data, msgpackHandle).Decode(&cmd)
	return cmd, err
}

// StateMachine is a raft.StateMachine backing a flat string->[]byte map.
// The last-applied key's value is what raft.Node.Get returns, matching the
// CORE's single-Value() read contract; callers needing a specific key
// should read Lookup directly against the StateMachine instance rather
// than going through raft.Node.Get.
type StateMachine struct {
	mu       sync.RWMutex
	states   map[string][]byte
	lastRead []byte
}

// New returns an empty key/value state machine.
func New() *StateMachine {
	return &StateMachine{states: make(map[string][]byte)}
}

// Apply decodes and applies one committed command. A malformed command is
// simply dropped, and since Apply has no error result the caller is not
// told about it; a StateMachine must never panic on committed data another
// node in the cluster already accepted.
func (m *StateMachine) Apply(command []byte) {
	cmd, err := decodeCommand(command)
	if err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch cmd.Type {
	case CommandSet:
		m.states[cmd.Key] = cmd.Value
		m.lastRead = cmd.Value
	case CommandUnset:
		delete(m.states, cmd.Key)
		m.lastRead = nil
	}
}

// Value returns the value most recently set, satisfying raft.StateMachine.
func (m *StateMachine) Value() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.lastRead...)
}

// Lookup reads a specific key, for callers that bypass raft.Node.Get.
func (m *StateMachine) Lookup(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.states[key]
	return append([]byte(nil), v...), ok
}

// Keys lists every key currently set.
func (m *StateMachine) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.states))
	for k := range m.states {
		keys = append(keys, k)
	}
	return keys
}
