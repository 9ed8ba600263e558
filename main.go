// SPDX-License-Identifier: MIT
package main

import (
	"runtime"

	"lightdesk/cmd"
	"lightdesk/internal/build"
	applog "lightdesk/internal/log"
)

// main wires build information and the runtime before handing over to the
// command line. Capture, analysis and choreography run on their own
// goroutines; the control surfaces and outputs share what is left.
func main() {
	if err := build.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}

	// One thread for the capture callback and analysis, one for I/O.
	runtime.GOMAXPROCS(2)

	if err := cmd.Execute(); err != nil {
		applog.Fatalf("%v", err)
	}
}
