package main

import (
	"fmt"
	"os"

	"github.com/spec-kit/ticket-sla/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "slactl:", err)
		os.Exit(1)
	}
}
