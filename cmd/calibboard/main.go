// Package main is the entry point for calibboard.
package main

import (
	"os"

	"calibboard/cmd/calibboard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
