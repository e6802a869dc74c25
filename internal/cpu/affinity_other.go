//go:build !linux && !windows

package cpu

import "runtime"

// ProcessorCount returns the number of logical CPUs available.
func ProcessorCount() int {
	return runtime.NumCPU()
}

// SetupWorkerAffinity locks the goroutine to an OS thread. Threads cannot
// be pinned to a core here (macOS among others), so the thread mask is never
// touched and the cleanup only unlocks.
func SetupWorkerAffinity(int) func() {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}
