package main

import (
	"os"
	"os/signal"
	"syscall"
)

// terminalSignalCh returns a buffered channel fed every signal that
// usually means "shut down this node". runDaemon blocks on it and logs
// which one arrived before starting the persistence-flush shutdown path.
func terminalSignalCh() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	return ch
}
