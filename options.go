package raft

import "time"

// Default timer bases (spec §4.4/§4.6: "T" normal is 100ms, heartbeat "H"
// must be much smaller than any follower's election timeout).
const (
	DefaultElectionBase  = 100 * time.Millisecond
	DefaultHeartbeatBase = 20 * time.Millisecond
	DebugTimerScale      = 10
	DefaultBatchSize     = 2
)

// Options configures the timers and replication batch size an Orchestrator
// runs with. Debug scales both timer bases by DebugTimerScale, matching
// the "debug" configuration input of spec §6.
type Options struct {
	ElectionBase  time.Duration
	HeartbeatBase time.Duration
	BatchSize     int
	Debug         bool
}

func defaultOptions() *Options {
	return &Options{
		ElectionBase:  DefaultElectionBase,
		HeartbeatBase: DefaultHeartbeatBase,
		BatchSize:     DefaultBatchSize,
	}
}

// Option mutates Options before an Orchestrator is built.
type Option func(*Options)

func WithDebug(debug bool) Option            { return func(o *Options) { o.Debug = debug } }
func WithElectionBase(d time.Duration) Option { return func(o *Options) { o.ElectionBase = d } }
func WithHeartbeatBase(d time.Duration) Option {
	return func(o *Options) { o.HeartbeatBase = d }
}
func WithBatchSize(n int) Option { return func(o *Options) { o.BatchSize = n } }

func applyOptions(opts ...Option) *Options {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}
	if o.Debug {
		o.ElectionBase *= DebugTimerScale
		o.HeartbeatBase *= DebugTimerScale
	}
	return o
}
