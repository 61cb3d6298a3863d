// Package main provides the entry point for the eywa CLI.
package main

import (
	"os"

	"github.com/ShankarKakumani/eywa/cmd/eywa/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
