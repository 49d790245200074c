package main

import (
	"context"
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := newRootCommand(os.Stdout, os.Stderr)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
