package main

import (
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/sebr/bhyve-bridge/cmd"
	"github.com/sebr/bhyve-bridge/internal/bridge"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	bridge.AppVersion = version
	bridge.CommitDate = buildDate
	bridge.Commit = commit

	// signal handler channel
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		sig := <-c

		// ctrl+c handler
		log.Debugf("Got %s signal. aborting...\n", sig)

		os.Exit(0)
	}()

	cmd.Execute()
}
