//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// notifyRotate routes SIGHUP, the log rotation signal, to ch.
func notifyRotate(ch chan<- os.Signal) bool {
	signal.Notify(ch, syscall.SIGHUP)
	return true
}
