package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// exitInterrupted follows the shell convention for SIGINT.
const exitInterrupted = 130

func main() {
	os.Exit(run())
}

func run() int {
	err := newRootCommand().Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		fmt.Fprintf(os.Stderr, "stopmo: %v\n", err)
		return 1
	}
}
