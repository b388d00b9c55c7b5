package procutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// WaitForDebugger prints the process ID with a dlv command line to out and
// blocks until a line is read from in.
func WaitForDebugger(out io.Writer, in io.Reader) {
	pid := os.Getpid()
	fmt.Fprintf(out, "Debugging session requested (Process ID: %d)\n", pid)
	fmt.Fprintf(out, "dlv attach --headless --listen=:2345 %d\n", pid)
	fmt.Fprintln(out, "Press ENTER to continue.")
	bufio.NewReader(in).ReadString('\n')
}
