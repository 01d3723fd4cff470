// fbterm is the single binary that acts as either a control-socket
// client (when invoked with one command token) or the terminal engine
// itself (spec.md §4.8 "Client mode"). Grounded on
// cmd/texel-server/main.go's flag-parsing and os.Exit idiom.
package main

import (
	"fmt"
	"os"

	"github.com/OpalAayan/kitty-tty/internal/app"
	"github.com/OpalAayan/kitty-tty/internal/config"
	"github.com/OpalAayan/kitty-tty/internal/control"
)

const usage = `usage: fbterm [--new-tab|-nt] [--next|-n] [--prev|-p] [--split-v|-s] [--left|-l] [--right|-r] [--help|-h]

With no argument, or with a flag and no running server, fbterm starts the terminal engine.
With a flag and a running server, fbterm sends that command and exits.
An unrecognised argument prints this text and exits with status 1.
`

func main() {
	if len(os.Args) > 1 {
		os.Exit(runClient(os.Args[1]))
	}
	os.Exit(runServer())
}

// runClient implements spec.md §6's client-mode exit codes: 0 on
// successful dispatch or --help, 1 on an unknown token or when a
// server accepted the connection but the command could not be sent.
func runClient(arg string) int {
	if control.IsHelp(arg) {
		fmt.Print(usage)
		return 0
	}
	cmd, ok := control.ParseFlag(arg)
	if !ok {
		fmt.Fprintf(os.Stderr, "fbterm: unrecognised command %q\n", arg)
		fmt.Fprint(os.Stderr, usage)
		return 1
	}

	sent, err := control.Send(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fbterm: %v\n", err)
		return 1
	}
	if sent {
		return 0
	}
	// No server reachable: spec.md §4.8 says a client invocation with
	// no server falls through to starting the engine itself.
	return runServer()
}

// runServer builds the engine and runs its event loop until shutdown.
func runServer() int {
	logFile, err := config.OpenLogFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fbterm: cannot open log file: %v\n", err)
		return 1
	}
	defer logFile.Close()
	log := config.NewLogger(logFile)

	a, err := app.New(log)
	if err != nil {
		log.Fatal("startup failed: %v", err)
		fmt.Fprintf(os.Stderr, "fbterm: startup failed: %v\n", err)
		return 1
	}
	defer a.Shutdown()

	log.Info("fbterm: engine started")
	a.Run()
	log.Info("fbterm: engine exited")
	return 0
}
