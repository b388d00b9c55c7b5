// bundles loads script bundles and answers queries about them.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/stackb/scriptbundles/pkg/procutil"
)

func main() {
	os.Exit(run())
}

func run() int {
	if procutil.LookupBoolEnv(procutil.BUNDLES_DEBUG_PROCESS, false) {
		procutil.WaitForDebugger(os.Stderr, os.Stdin)
	}

	filename, _ := procutil.LookupEnv(procutil.BUNDLES_LOG_FILE)
	log, closer, err := newLogger(filename, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closer.Close()

	if err := newRootCmd(log).Execute(); err != nil {
		log.Error().Err(err).Msg("bundles")
		return 1
	}
	return 0
}

// newLogger returns a logger writing to filename, or to stderr when filename
// is empty.  The closer must be closed once logging is done.
func newLogger(filename string, stderr io.Writer) (zerolog.Logger, io.Closer, error) {
	var out io.Writer = zerolog.ConsoleWriter{Out: stderr}
	var closer io.Closer = io.NopCloser(nil)
	if filename != "" {
		f, err := os.Create(filename)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("creating log file: %w", err)
		}
		out = zerolog.ConsoleWriter{Out: f, NoColor: true}
		closer = f
	}
	return zerolog.New(out).With().Timestamp().Logger(), closer, nil
}
