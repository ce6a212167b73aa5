//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals stop the service. SIGTERM is what container runtimes send.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
