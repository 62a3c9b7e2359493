package main

import (
	"os"

	"github.com/pulsohq/pulso/cmd/pulso/commands"
)

// main is the entry point for the Pulso CLI: go run ./cmd/pulso [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
