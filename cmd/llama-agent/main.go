// Package main provides the entry point for the llama-agent CLI.
package main

import (
	"os"

	"github.com/llama-agent/llama-agent/cmd/llama-agent/commands"
)

func main() {
	os.Exit(commands.Execute())
}
