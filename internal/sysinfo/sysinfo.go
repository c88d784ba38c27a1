// Package sysinfo snapshots host resources for the doctor preflight.
package sysinfo

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

const gb = 1024 * 1024 * 1024

// Snapshot holds the host facts the preflight cares about.
type Snapshot struct {
	TotalRAMGB     float64 `json:"total_ram_gb"`
	AvailableRAMGB float64 `json:"available_ram_gb"`
	CPUCores       int     `json:"cpu_cores"`
	OS             string  `json:"os"`
	Arch           string  `json:"arch"`
}

// Detect reads RAM and CPU counts for the current machine.
func Detect() (*Snapshot, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("mem: %w", err)
	}
	cores, err := cpu.Counts(true)
	if err != nil || cores == 0 {
		cores = runtime.NumCPU()
	}
	return &Snapshot{
		TotalRAMGB:     float64(v.Total) / gb,
		AvailableRAMGB: float64(v.Available) / gb,
		CPUCores:       cores,
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
	}, nil
}

// RAMWarning returns a human warning when the host looks too small to run
// the configured number of models comfortably, or "" when it looks fine.
// The bar is deliberately coarse: ~5 GB per model covers a quantized 7B.
func (s *Snapshot) RAMWarning(modelCount int) string {
	if modelCount == 0 {
		return ""
	}
	const perModelGB = 5.0
	if s.AvailableRAMGB < perModelGB {
		return fmt.Sprintf("only %.1f GB RAM available; even a single quantized 7B model wants ~%.0f GB", s.AvailableRAMGB, perModelGB)
	}
	return ""
}
