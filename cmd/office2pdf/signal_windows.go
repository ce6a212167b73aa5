//go:build windows

package main

import "os"

// shutdownSignals stop the service. Windows has no SIGTERM.
var shutdownSignals = []os.Signal{os.Interrupt}
