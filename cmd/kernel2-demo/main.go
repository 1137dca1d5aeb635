// Command kernel2-demo brings up a full kernel2.Kernel and drives it
// through the six end-to-end scenarios the Layer-2 services were
// designed against, printing a pass/fail summary. There is no device or
// mount lifecycle to manage here (this kernel has no block device to
// expose to the host) so the binary runs to completion rather than
// waiting on a signal.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/oslab/kernel2"
	"github.com/oslab/kernel2/internal/logging"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	logger.Info("running end-to-end scenarios")
	report := kernel2.RunHarness()

	failed := 0
	for _, s := range report.Scenarios {
		status := "PASS"
		if !s.Passed {
			status = "FAIL"
			failed++
		}
		fmt.Printf("[%s] %-28s (%v) %s\n", status, s.Name, s.Elapsed, s.Detail)
	}

	fmt.Printf("\n%d/%d scenarios passed\n", len(report.Scenarios)-failed, len(report.Scenarios))
	if failed > 0 {
		os.Exit(1)
	}
}
