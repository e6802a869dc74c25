//go:build linux

package cpu

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// setSize is the number of CPUs a unix.CPUSet can describe.
const setSize = 1024

// allowedCount is read once, before any worker narrows its thread's mask.
var allowedCount = readAllowedCount()

func readAllowedCount() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err == nil {
		if n := set.Count(); n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}

// pinToCore pins the current OS thread to one of the CPUs it may run on and
// returns that CPU together with the mask the thread had before.
// Must be called after runtime.LockOSThread().
//
// cpuID is wrapped into the range of allowed CPUs, so a restricted cpuset
// (containers, taskset) never produces an empty mask.
func pinToCore(cpuID int) (int, unix.CPUSet, error) {
	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		return -1, prev, err
	}

	n := prev.Count()
	if n == 0 {
		return -1, prev, unix.EINVAL
	}
	target := cpuID % n
	if target < 0 {
		target += n
	}

	cpu, seen := -1, 0
	for i := 0; i < setSize; i++ {
		if !prev.IsSet(i) {
			continue
		}
		if seen == target {
			cpu = i
			break
		}
		seen++
	}

	var mask unix.CPUSet
	mask.Zero()
	mask.Set(cpu)
	if err := unix.SchedSetaffinity(0, &mask); err != nil { // 0 = current thread
		return -1, prev, err
	}
	return cpu, prev, nil
}

// ProcessorCount returns the number of logical CPUs this process is
// allowed to run on, as seen when the package was loaded.
func ProcessorCount() int {
	return allowedCount
}

// SetupWorkerAffinity locks the goroutine to an OS thread and pins it to a
// single CPU core. The returned cleanup restores the thread's previous mask
// before unlocking it, so the thread goes back to the scheduler unpinned.
func SetupWorkerAffinity(workerID int) func() {
	runtime.LockOSThread()
	_, prev, err := pinToCore(workerID)

	return func() {
		if err == nil {
			_ = unix.SchedSetaffinity(0, &prev)
		}
		runtime.UnlockOSThread()
	}
}
