// Package main provides the born-storage CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const version = "v0.1.0-dev"

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		printUsage(out)
		return nil
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(out, "born-storage %s\n", version)
		return nil
	case "inspect":
		return runInspect(args[1:], out)
	case "pack":
		return runPack(args[1:], out)
	case "trace":
		return runTrace(args[1:], out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "born-storage - refcounted storage tooling")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version                          Show version")
	fmt.Fprintln(w, "  inspect [-verify] <file>         List the storages of a container")
	fmt.Fprintln(w, "  pack <out> name=path [...]       Write files into a container")
	fmt.Fprintln(w, "  trace [-config file]             Run the wrapper lifecycle and print refcounts")
}
