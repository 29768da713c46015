// Package sysinfo reports host CPU and memory usage for the health
// endpoint, smoothed the way the rest of this codebase's metrics layer
// smooths gopsutil samples.
package sysinfo

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Tracker holds a smoothed CPU percentage. Memory figures are not stored;
// Snapshot reads them fresh on every call.
type Tracker struct {
	mu         sync.RWMutex
	cpuPercent float64
}

// NewTracker creates a Tracker with its first sample already taken.
func NewTracker() *Tracker {
	t := &Tracker{}
	t.sample()
	return t
}

// Run refreshes the CPU sample every interval until ctx-like stop is
// closed. Call in its own goroutine.
func (t *Tracker) Run(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.sample()
		}
	}
}

func (t *Tracker) sample() {
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return
	}
	current := percents[0]

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cpuPercent == 0 {
		t.cpuPercent = current
	} else {
		const alpha = 0.3
		t.cpuPercent = alpha*current + (1-alpha)*t.cpuPercent
	}
}

// Snapshot is a point-in-time view of system resource usage.
type Snapshot struct {
	CPUPercent  float64 `json:"cpu_percent"`
	MemUsedPct  float64 `json:"mem_used_percent"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	Goroutines  int     `json:"goroutines"`
}

// Snapshot returns the current resource usage.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	cpuPct := t.cpuPercent
	t.mu.RUnlock()

	var memPct float64
	if vm, err := mem.VirtualMemory(); err == nil {
		memPct = vm.UsedPercent
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return Snapshot{
		CPUPercent:  cpuPct,
		MemUsedPct:  memPct,
		HeapAllocMB: float64(memStats.HeapAlloc) / 1024 / 1024,
		Goroutines:  runtime.NumGoroutine(),
	}
}
