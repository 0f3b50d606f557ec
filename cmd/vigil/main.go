// Package main is the entry point for Vigil, the activity alert service.
// It matches incoming activity records against alert definitions and
// dispatches notifications for every match.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
