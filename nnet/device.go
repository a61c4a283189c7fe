package nnet

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// Device returns a description of the host CPU.
func Device() string {
	cpu := cpuid.CPU
	return fmt.Sprintf("%s: %d cores %d threads avx2=%v fma=%v avx512=%v",
		cpu.BrandName, cpu.PhysicalCores, cpu.LogicalCores,
		cpu.Supports(cpuid.AVX2), cpu.Supports(cpuid.FMA3), cpu.Supports(cpuid.AVX512F))
}

// DefaultThreads is the number of physical cores, used when Config.Threads is not set.
func DefaultThreads() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}
