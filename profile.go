// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

//go:build profile

package radix

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"
)

// ProfileConfig holds profiling configuration.
type ProfileConfig struct {
	// CPUProfile enables CPU profiling to the specified file.
	CPUProfile string
	// MemProfile enables memory profiling to the specified file.
	MemProfile string
}

// Profiler wraps pprof setup and teardown for the profile command.
type Profiler struct {
	config    ProfileConfig
	cpuFile   *os.File
	startTime time.Time
}

// NewProfiler creates a new profiler with the given configuration.
func NewProfiler(config ProfileConfig) *Profiler {
	return &Profiler{config: config}
}

// Start begins profiling.
func (p *Profiler) Start() error {
	p.startTime = time.Now()

	if p.config.CPUProfile != "" {
		f, err := os.Create(p.config.CPUProfile)
		if err != nil {
			return fmt.Errorf("create CPU profile: %w", err)
		}
		p.cpuFile = f
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("start CPU profile: %w", err)
		}
	}

	return nil
}

// Stop ends profiling and writes the profile files.
func (p *Profiler) Stop() error {
	fmt.Printf("Profiling duration: %v\n", time.Since(p.startTime))

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		p.cpuFile.Close()
		fmt.Printf("CPU profile written to: %s\n", p.config.CPUProfile)
	}

	if p.config.MemProfile != "" {
		f, err := os.Create(p.config.MemProfile)
		if err != nil {
			return fmt.Errorf("create memory profile: %w", err)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return fmt.Errorf("write memory profile: %w", err)
		}
		fmt.Printf("Memory profile written to: %s\n", p.config.MemProfile)
	}

	return nil
}

// PrintMemStats prints memory statistics.
func PrintMemStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	fmt.Printf("Memory Statistics:\n")
	fmt.Printf("  Alloc:       %d MB\n", m.Alloc/1024/1024)
	fmt.Printf("  TotalAlloc:  %d MB\n", m.TotalAlloc/1024/1024)
	fmt.Printf("  Sys:         %d MB\n", m.Sys/1024/1024)
	fmt.Printf("  NumGC:       %d\n", m.NumGC)
	fmt.Printf("  HeapObjects: %d\n", m.HeapObjects)
}

// Timer is a simple operation timer.
type Timer struct {
	name  string
	start time.Time
}

// NewTimer creates a timer that prints duration on Stop.
func NewTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop prints the elapsed time.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	fmt.Printf("%s: %v\n", t.name, d)
	return d
}

// Elapsed returns elapsed time without stopping.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
