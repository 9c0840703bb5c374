//go:build linux

package invoker

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// streamThreadNice is the nice value requested for the delivery thread
const streamThreadNice = -10

// raiseThreadPriority pins the calling goroutine to its OS thread and lowers
// that thread's nice value.  The thread is discarded when the goroutine
// exits since it is never unlocked.
func raiseThreadPriority() error {
	runtime.LockOSThread()
	return unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), streamThreadNice)
}
