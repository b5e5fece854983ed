// Command raftd runs a single node of a fixed-membership quorumhq/raft
// cluster: it wires a gRPC transport, a disk-backed persistent cell and
// log, and a key/value state machine together, then serves client
// requests until terminated.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
