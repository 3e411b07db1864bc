package main

import (
	"fmt"
	"io"
	"os"
)

// Dispatcher
func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		return runServe(stderr)
	}

	switch args[1] {
	case "serve", "server":
		return runServe(stderr)
	case "sweep":
		return runSweep(stdout, stderr)
	case "verify-export":
		return runVerifyExport(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		if args[1][0] == '-' {
			return runServe(stderr)
		}
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "autocomply - compliance case workflow service")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  autocomply serve              Start the console server (default)")
	fmt.Fprintln(w, "  autocomply sweep              Run the retention sweep once and exit")
	fmt.Fprintln(w, "  autocomply verify-export FILE Verify a signed audit bundle")
	fmt.Fprintln(w, "  autocomply help               Show this help")
	fmt.Fprintln(w, "")
}
