//go:build unix

package main

import (
	"os"
	"syscall"
)

// shutdownSignals stop serve and chat. SIGTERM comes from Docker and process managers.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
