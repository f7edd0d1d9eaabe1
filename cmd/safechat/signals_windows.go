//go:build windows

package main

import "os"

// Windows has no SIGHUP; the log file is never rotated in place.
func notifyRotate(chan<- os.Signal) bool {
	return false
}
