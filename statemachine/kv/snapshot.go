package kv

import "github.com/ugorji/go/codec"

// Snapshot and Restore implement the compaction half of raft.StateMachine:
// the whole map is msgpack-encoded or decoded in one shot, the same
// approach the teacher's KVSMSnapshot takes for its keyValues map.
func (m *StateMachine) Snapshot() ([]byte, error) {
	m.mu.RLock()
	keyValues := make(map[string][]byte, len(m.states))
	for k, v := range m.states {
		keyValues[k] = append([]byte(nil), v...)
	}
	m.mu.RUnlock()

	var buf []byte
	if err := codec.NewEncoderBytes(&buf, msgpackHandle).Encode(keyValues); err != nil {
		return nil, err
	}
	return buf, nil
}

func (m *StateMachine) Restore(data []byte) error {
	keyValues := make(map[string][]byte)
	if err := codec.NewDecoderBytes(data, msgpackHandle).Decode(&keyValues); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = keyValues
	m.lastRead = nil
	return nil
}
