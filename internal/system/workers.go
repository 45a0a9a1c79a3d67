package system

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// buffersPerWorker counts the frames one worker can hold at once: the one
// being drawn plus those parked in the reorder window.
const buffersPerWorker = 4

// RecommendedWorkers bounds the render pool by logical CPUs and by the
// memory available for frameBytes-sized buffers. It is always at least 1.
func RecommendedWorkers(frameBytes int) int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		n = runtime.NumCPU()
	}
	if frameBytes > 0 {
		if vm, err := mem.VirtualMemory(); err == nil && vm.Available > 0 {
			byMem := int(vm.Available / uint64(frameBytes) / buffersPerWorker)
			n = min(n, byMem)
		}
	}
	return max(n, 1)
}
