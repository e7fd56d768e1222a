//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"
)

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1}

// A reader closing the control socket early must not kill the process.
func ignoreSignals() { signal.Ignore(syscall.SIGPIPE) }
