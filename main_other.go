//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	// x/hotkey registrations must run on the main thread
	mainthread.Init(run)
}
