//go:build windows

package cpu

import (
	"runtime"
	"syscall"
)

var (
	kernel32              = syscall.NewLazyDLL("kernel32.dll")
	setThreadAffinityMask = kernel32.NewProc("SetThreadAffinityMask")
	getCurrentThread      = kernel32.NewProc("GetCurrentThread")
)

// maskBits is the number of CPUs a thread affinity mask can address.
const maskBits = 32 << (^uintptr(0) >> 63)

// pinToCore pins the current OS thread to one CPU and returns the thread's
// previous affinity mask. Must be called after runtime.LockOSThread().
func pinToCore(cpuID int) (uintptr, error) {
	n := min(runtime.NumCPU(), maskBits)
	cpuID %= n
	if cpuID < 0 {
		cpuID += n
	}

	handle, _, _ := getCurrentThread.Call()
	prev, _, err := setThreadAffinityMask.Call(handle, uintptr(1)<<cpuID)
	if prev == 0 {
		return 0, err
	}
	return prev, nil
}

func restoreMask(prev uintptr) {
	handle, _, _ := getCurrentThread.Call()
	_, _, _ = setThreadAffinityMask.Call(handle, prev)
}

// ProcessorCount returns the number of logical CPUs available.
func ProcessorCount() int {
	return runtime.NumCPU()
}

// SetupWorkerAffinity locks the goroutine to an OS thread and pins it to a
// single CPU core. The returned cleanup restores the previous mask before
// unlocking the thread.
func SetupWorkerAffinity(workerID int) func() {
	runtime.LockOSThread()
	prev, err := pinToCore(workerID)

	return func() {
		if err == nil {
			restoreMask(prev)
		}
		runtime.UnlockOSThread()
	}
}
