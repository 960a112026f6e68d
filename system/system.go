// Package system reports host and process resource usage for /status.
package system

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats is a point-in-time resource reading. Host readings that fail are
// left at zero and reported in Errors.
type Stats struct {
	CPUPercent    float64  `json:"cpu_percent"`
	MemoryPercent float64  `json:"memory_percent"`
	Goroutines    int      `json:"goroutines"`
	HeapAllocMB   float64  `json:"heap_alloc_mb"`
	SysMB         float64  `json:"sys_mb"`
	GCRuns        uint32   `json:"gc_runs"`
	Errors        []string `json:"errors,omitempty"`
}

// GetCPUUsage returns the current host CPU usage as a percentage.
func GetCPUUsage() (float64, error) {
	percentages, err := cpu.Percent(0, false)
	if err != nil {
		return 0, err
	}
	if len(percentages) == 0 {
		return 0, fmt.Errorf("could not get CPU usage")
	}
	return percentages[0], nil
}

// GetMemoryUsage returns the current host memory usage as a percentage.
func GetMemoryUsage() (float64, error) {
	virtualMem, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return virtualMem.UsedPercent, nil
}

func Snapshot() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s := Stats{
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(m.HeapAlloc) / 1024 / 1024,
		SysMB:       float64(m.Sys) / 1024 / 1024,
		GCRuns:      m.NumGC,
	}
	var err error
	if s.CPUPercent, err = GetCPUUsage(); err != nil {
		s.Errors = append(s.Errors, "cpu: "+err.Error())
	}
	if s.MemoryPercent, err = GetMemoryUsage(); err != nil {
		s.Errors = append(s.Errors, "memory: "+err.Error())
	}
	return s
}
