// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

//go:build profile

// Command radix-profile profiles the radix arithmetic layer and reports
// bootstrap counts on the simulation engine, where every homomorphic
// operation is a cheap cleartext step and the schedule can be inspected.
//
// Usage:
//
//	go build -tags profile -o radix-profile ./cmd/radix-profile
//	./radix-profile -cpu=cpu.prof -blocks=32 -terms=16
//
// Analyze profiles:
//
//	go tool pprof -http=:8080 cpu.prof
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"

	"github.com/luxfi/radix"
)

var (
	cpuProfile = flag.String("cpu", "", "write cpu profile to file")
	memProfile = flag.String("mem", "", "write memory profile to file")
	numBlocks  = flag.Int("blocks", 32, "digits per operand")
	numTerms   = flag.Int("terms", 16, "operands for the summation workloads")
	iterations = flag.Int("iterations", 100, "iterations per workload")
	operation  = flag.String("op", "all", "workload: all, propagate, sum")
)

func main() {
	flag.Parse()

	profiler := radix.NewProfiler(radix.ProfileConfig{
		CPUProfile: *cpuProfile,
		MemProfile: *memProfile,
	})
	if err := profiler.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start profiler: %v\n", err)
		os.Exit(1)
	}
	defer profiler.Stop()

	fmt.Printf("Running %d iterations of '%s' (%d digits, %d terms)\n",
		*iterations, *operation, *numBlocks, *numTerms)
	fmt.Printf("GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))

	switch *operation {
	case "all":
		profilePropagate()
		profileSum()
	case "propagate":
		profilePropagate()
	case "sum":
		profileSum()
	default:
		fmt.Fprintf(os.Stderr, "Unknown operation: %s\n", *operation)
		os.Exit(1)
	}

	radix.PrintMemStats()
}

func newEvaluator(algo radix.Algorithm) (*radix.SimEngine, *radix.Evaluator) {
	engine, err := radix.NewSimEngine(radix.DefaultParameters)
	if err != nil {
		panic(err)
	}
	ev := radix.NewEvaluatorWithConfig(engine, radix.Config{Algorithm: algo})
	return engine, ev
}

// profilePropagate compares the sequential chain against the parallel
// prefix network on the same dirty inputs.
func profilePropagate() {
	fmt.Println("\n=== Carry Propagation ===")
	rng := rand.New(rand.NewSource(1))

	for _, algo := range []struct {
		name string
		algo radix.Algorithm
	}{
		{"sequential", radix.AlgorithmSequential},
		{"parallel-prefix", radix.AlgorithmParallelPrefix},
	} {
		engine, ev := newEvaluator(algo.algo)
		timer := radix.NewTimer(algo.name)
		for i := 0; i < *iterations; i++ {
			a := engine.EncryptUint64(rng.Uint64(), *numBlocks)
			b := engine.EncryptUint64(rng.Uint64(), *numBlocks)
			dirty, err := radix.UncheckedAdd(ev, a, b)
			if err != nil {
				panic(err)
			}
			if _, err := radix.FullPropagate(ev, dirty); err != nil {
				panic(err)
			}
		}
		timer.Stop()
		c := engine.Counters()
		fmt.Printf("  bootstraps/op: %d, plain adds/op: %d\n",
			c.Bootstraps/uint64(*iterations), c.PlainAdds/uint64(*iterations))
	}
}

// profileSum compares column reduction against the naive chain of checked
// additions.
func profileSum() {
	fmt.Println("\n=== Multi-Operand Summation ===")
	rng := rand.New(rand.NewSource(2))

	// Column reduction.
	engine, ev := newEvaluator(radix.AlgorithmAuto)
	timer := radix.NewTimer("column reduction")
	for i := 0; i < *iterations; i++ {
		terms := make([]*radix.RadixCiphertext, *numTerms)
		for t := range terms {
			terms[t] = engine.EncryptUint64(rng.Uint64(), *numBlocks)
		}
		if _, err := radix.Sum(ev, terms); err != nil {
			panic(err)
		}
	}
	timer.Stop()
	c := engine.Counters()
	fmt.Printf("  bootstraps/op: %d, plain adds/op: %d\n",
		c.Bootstraps/uint64(*iterations), c.PlainAdds/uint64(*iterations))

	// Naive chain: propagate after every addition.
	engine, ev = newEvaluator(radix.AlgorithmAuto)
	timer = radix.NewTimer("naive add chain")
	for i := 0; i < *iterations; i++ {
		acc := engine.EncryptUint64(rng.Uint64(), *numBlocks)
		for t := 1; t < *numTerms; t++ {
			next := engine.EncryptUint64(rng.Uint64(), *numBlocks)
			var err error
			acc, err = radix.Add(ev, acc, next)
			if err != nil {
				panic(err)
			}
		}
	}
	timer.Stop()
	c = engine.Counters()
	fmt.Printf("  bootstraps/op: %d, plain adds/op: %d\n",
		c.Bootstraps/uint64(*iterations), c.PlainAdds/uint64(*iterations))
}
