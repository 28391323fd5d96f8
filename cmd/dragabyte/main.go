// Package main provides the dragabyte disk usage CLI: local scans, disk
// capacity queries, the remote control hub and a client for it.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
