// Package main is the entry point for the talkbox CLI.
//
// Usage:
//
//	talkbox [flags] <command> [args]
//
// Commands:
//
//	chat       - Interactive conversation in the terminal
//	history    - Inspect or clear the persisted conversation log
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/talkbox/talkbox/cmd/talkbox/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
